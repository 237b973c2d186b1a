package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

// multipartMemory is how much of a multipart body is held in memory before
// file parts spill to disk.
const multipartMemory = 8 << 20

type indexData struct {
	Docx2PDFAvailable bool
	MaxUpload         string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Docx2PDFAvailable: s.convert.WordToPDFAvailable(),
		MaxUpload:         humanize.IBytes(uint64(s.config.MaxUploadBytes)),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		slog.Error("Failed to render index page.", "error", err)
	}
}

type healthResponse struct {
	Status            string `json:"status"`
	Docx2PDFAvailable bool   `json:"docx2pdf_available"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:            "ok",
		Docx2PDFAvailable: s.convert.WordToPDFAvailable(),
	})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	art, err := s.pdf.Merge(r.Context(), formFiles(r, "pdfs"))
	respond(w, r, art, err)
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	art, err := s.pdf.Split(r.Context(), formFile(r, "pdf"), r.FormValue("pages"))
	respond(w, r, art, err)
}

func (s *Server) handlePDFToWord(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	art, err := s.convert.PDFToWord(r.Context(), formFile(r, "pdf"))
	respond(w, r, art, err)
}

func (s *Server) handleWordToPDF(w http.ResponseWriter, r *http.Request) {
	// Refuse before the body is read so nothing reaches disk.
	if !s.convert.WordToPDFAvailable() {
		writeError(w, r, models.Fail(models.KindUnavailable, services.UnavailableMessage, nil))
		return
	}
	if err := s.parseUpload(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	art, err := s.convert.WordToPDF(r.Context(), formFile(r, "word"))
	respond(w, r, art, err)
}

// parseUpload reads the multipart body under the configured size limit. A
// request that is not multipart at all is left for the operation to reject
// as having no files.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		limit := humanize.IBytes(uint64(tooLarge.Limit))
		return models.Fail(models.KindTooLarge, fmt.Sprintf("Upload is larger than the %s limit", limit), err)
	}
	return models.Fail(models.KindInvalid, "Malformed upload", err)
}

func formFiles(r *http.Request, field string) []*models.Upload {
	if r.MultipartForm == nil {
		return nil
	}
	headers := r.MultipartForm.File[field]
	uploads := make([]*models.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, models.UploadFromHeader(fh))
	}
	return uploads
}

// formFile returns the first file sent under field, or nil.
func formFile(r *http.Request, field string) *models.Upload {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil
	}
	return models.UploadFromHeader(r.MultipartForm.File[field][0])
}
