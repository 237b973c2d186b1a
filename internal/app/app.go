// Package app wires configuration, scratch storage, converters and the HTTP
// server together. Both the CLI and the Cloud Functions entry point build
// their process from here.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/viper"

	"github.com/Lllllllleong/pdftoolkit/internal/config"
	"github.com/Lllllllleong/pdftoolkit/internal/office"
	"github.com/Lllllllleong/pdftoolkit/internal/scratch"
	"github.com/Lllllllleong/pdftoolkit/internal/server"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

// App is a fully wired process.
type App struct {
	// Config carries the resolved capability flag.
	Config  config.Config
	Store   *scratch.Store
	Handler http.Handler
}

// New builds an App from cfg, probing the office binary for the
// document-to-PDF capability.
func New(cfg config.Config) (*App, error) {
	store, err := scratch.New(cfg.ScratchDir)
	if err != nil {
		return nil, err
	}

	converter := office.New(cfg.OfficeBinary)
	cfg = cfg.WithWordToPDF(converter.Available())
	if !cfg.WordToPDF {
		slog.Warn("Office binary not found; Word to PDF conversion is disabled.", "binary", cfg.OfficeBinary)
	}

	pdfService := services.NewPDFService(store, services.PDFConfig{
		MergeWorkers:   cfg.MergeWorkers,
		OptimizeOutput: cfg.OptimizeOutput,
	})
	convertService := services.NewConvertService(store, converter, converter, services.ConvertConfig{
		Timeout:   cfg.ConvertTimeout,
		WordToPDF: cfg.WordToPDF,
	})

	return &App{
		Config:  cfg,
		Store:   store,
		Handler: server.New(cfg, pdfService, convertService),
	}, nil
}

// LoadConfig reads configuration from every source registered by
// config.Configure on v.
func LoadConfig(v *viper.Viper, configFile string) (config.Config, error) {
	used, err := config.Configure(v, configFile)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if used != "" {
		slog.Info("Loaded config file.", "path", used)
	}
	return cfg, nil
}
