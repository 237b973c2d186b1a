// Package main serves pdftools as Google Cloud Functions: the HTTP function
// PDFTools exposes the web application, and the CloudEvent function
// SweepScratch removes expired scratch files when a scheduler fires.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/spf13/viper"

	"github.com/Lllllllleong/pdftoolkit/internal/app"
	"github.com/Lllllllleong/pdftoolkit/internal/logging"
	"github.com/Lllllllleong/pdftoolkit/internal/models"
)

var (
	instance *app.App
	once     sync.Once
	initErr  error
)

func init() {
	functions.HTTP("PDFTools", pdfTools)
	functions.CloudEvent("SweepScratch", sweepScratch)
}

// loadApp builds the application once per instance from the environment.
func loadApp() (*app.App, error) {
	once.Do(func() {
		cfg, err := app.LoadConfig(viper.New(), "")
		if err != nil {
			initErr = err
			return
		}
		if err := logging.Setup(cfg.LogLevel); err != nil {
			initErr = err
			return
		}
		instance, initErr = app.New(cfg)
	})
	return instance, initErr
}

// pdfTools is the HTTP function entry point.
func pdfTools(w http.ResponseWriter, r *http.Request) {
	a, err := loadApp()
	if err != nil {
		slog.Error("Critical error during function initialization.", "error", err)
		http.Error(w, models.FailureMarker+"Service is not configured correctly", http.StatusInternalServerError)
		return
	}
	a.Handler.ServeHTTP(w, r)
}

// sweepScratch is the CloudEvent function entry point.
func sweepScratch(ctx context.Context, e cloudevents.Event) error {
	a, err := loadApp()
	if err != nil {
		slog.Error("Critical error during function initialization.", "error", err)
		return err
	}
	return sweep(ctx, a, e)
}

// sweepRequest is the optional event payload. It may arrive directly or
// wrapped in a Pub/Sub message.
type sweepRequest struct {
	OlderThan string `json:"olderThan"`
}

type pubSubEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
}

// sweepAge picks the age threshold: the event's olderThan when given,
// otherwise the configured retention.
func sweepAge(data []byte, retention time.Duration) (time.Duration, error) {
	if len(data) == 0 {
		return retention, nil
	}

	var envelope pubSubEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Message.Data) > 0 {
		data = envelope.Message.Data
	}

	var req sweepRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return 0, fmt.Errorf("json.Unmarshal: %w", err)
	}
	if req.OlderThan == "" {
		return retention, nil
	}
	d, err := time.ParseDuration(req.OlderThan)
	if err != nil {
		return 0, fmt.Errorf("invalid olderThan %q: %w", req.OlderThan, err)
	}
	return d, nil
}

func sweep(ctx context.Context, a *app.App, e cloudevents.Event) error {
	logCtx := slog.With("eventId", e.ID(), "scratchDir", a.Store.Dir())

	olderThan, err := sweepAge(e.Data(), a.Config.Retention)
	if err != nil {
		logCtx.Error("Failed to decode sweep event.", "error", err, "data", string(e.Data()))
		return err
	}
	if olderThan <= 0 {
		logCtx.Info("Retention is disabled; nothing to sweep.")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := a.Store.Sweep(olderThan, time.Now())
	if err != nil {
		logCtx.Error("Scratch sweep failed.", "error", err)
		return err
	}
	logCtx.Info("Scratch sweep finished.", "removed", n, "olderThan", olderThan.String())
	return nil
}

// main runs the functions locally; on Cloud Functions the platform invokes
// the registered functions directly.
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("Functions framework stopped.", "error", err)
		os.Exit(1)
	}
}
