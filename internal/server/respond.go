package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
)

func respond(w http.ResponseWriter, r *http.Request, art *models.Artifact, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	sendArtifact(w, r, art)
}

// writeError sends the caller-facing message as plain text with the status
// the error kind maps to.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	opErr := models.AsOpError(err)
	status := opErr.Kind.Status()

	logCtx := slog.With("path", r.URL.Path, "requestId", middleware.GetReqID(r.Context()), "status", status)
	if status >= http.StatusInternalServerError {
		logCtx.Error("Request failed.", "error", err)
	} else {
		logCtx.Info("Request rejected.", "reason", opErr.Message)
	}
	http.Error(w, opErr.Message, status)
}

// sendArtifact streams a generated file back as an attachment named after
// its scratch file.
func sendArtifact(w http.ResponseWriter, r *http.Request, art *models.Artifact) {
	f, err := os.Open(art.Path)
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to open artifact: %w", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to stat artifact: %w", err))
		return
	}

	name := art.Name()
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}
