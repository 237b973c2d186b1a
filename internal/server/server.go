// Package server exposes the PDF operations over HTTP.
package server

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/Lllllllleong/pdftoolkit/internal/config"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

//go:embed templates/index.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

// Server routes requests to the PDF and conversion services.
type Server struct {
	config  config.Config
	pdf     *services.PDFService
	convert *services.ConvertService
	router  chi.Router
}

// New builds the router for cfg.
func New(cfg config.Config, pdf *services.PDFService, convert *services.ConvertService) *Server {
	s := &Server{config: cfg, pdf: pdf, convert: convert}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: s.config.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
		}),
	)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)

	r.Group(func(pr chi.Router) {
		if s.config.RateLimit > 0 {
			pr.Use(httprate.LimitByIP(s.config.RateLimit, time.Minute))
		}
		pr.Post("/merge", s.handleMerge)
		pr.Post("/split", s.handleSplit)
		pr.Post("/pdf_to_word", s.handlePDFToWord)
		pr.Post("/word_to_pdf", s.handleWordToPDF)
	})
	return r
}

// requestLogger writes one log line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			slog.Info("Request handled.",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"requestId", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
