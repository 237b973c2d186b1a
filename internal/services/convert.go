package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/scratch"
)

// ConvertConfig holds configuration for the format conversion operations.
type ConvertConfig struct {
	// Timeout bounds a single converter invocation. Zero means no bound.
	Timeout time.Duration
	// WordToPDF is the capability flag resolved at startup.
	WordToPDF bool
}

// ConvertService converts between PDF and Word documents through external
// converters.
type ConvertService struct {
	store     *scratch.Store
	pdfToDocx models.PDFToDocx
	docxToPDF models.DocxToPDF
	config    ConvertConfig

	// officeMu serializes document-to-PDF calls; the office environment is
	// not reentrant.
	officeMu sync.Mutex
}

// NewConvertService creates a new ConvertService instance. docxToPDF may be
// nil when the platform has no document-to-PDF converter.
func NewConvertService(store *scratch.Store, pdfToDocx models.PDFToDocx, docxToPDF models.DocxToPDF, config ConvertConfig) *ConvertService {
	return &ConvertService{
		store:     store,
		pdfToDocx: pdfToDocx,
		docxToPDF: docxToPDF,
		config:    config,
	}
}

// WordToPDFAvailable is the capability flag advertised on the index page.
func (s *ConvertService) WordToPDFAvailable() bool {
	return s.config.WordToPDF && s.docxToPDF != nil && s.docxToPDF.Available()
}

// UnavailableMessage is shown when document-to-PDF conversion is not installed.
const UnavailableMessage = "Word-to-PDF not available on this system (requires LibreOffice)"

// CorruptMessage is shown when the converter reports a damaged document.
const CorruptMessage = "The .docx file appears corrupted or invalid. Open it in MS Word, save again, and retry."

func (s *ConvertService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

// PDFToWord converts every page of a PDF upload to a Word document.
func (s *ConvertService) PDFToWord(ctx context.Context, u *models.Upload) (*models.Artifact, error) {
	logCtx := slog.With("operation", "pdf_to_word")

	pdfPath, err := s.store.Save(u, ".pdf")
	if err != nil {
		if errors.Is(err, scratch.ErrInvalidUpload) {
			return nil, models.Fail(models.KindInvalid, "Invalid file", nil)
		}
		return nil, handleError(logCtx, "failed to persist upload", err)
	}
	docxPath := scratch.SiblingPath(pdfPath, "docx")
	logCtx = logCtx.With("input", filepath.Base(pdfPath))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.convertPDF(ctx, pdfPath, docxPath); err != nil {
		logCtx.Error("PDF to Word conversion failed.", "error", err)
		return nil, models.Fail(models.KindConversion, "Error converting PDF to Word: "+err.Error(), err)
	}

	logCtx.Info("Converted PDF to Word.", "output", filepath.Base(docxPath))
	return models.NewArtifact(docxPath), nil
}

// convertPDF runs the converter over the full page range. The document is
// closed on every path.
func (s *ConvertService) convertPDF(ctx context.Context, pdfPath, docxPath string) (err error) {
	doc, err := s.pdfToDocx.Open(ctx, pdfPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to release converter: %w", cerr)
		}
	}()

	return doc.Convert(ctx, docxPath, 0, doc.PageCount()-1)
}

// WordToPDF converts a .docx upload to PDF. It fails immediately, before
// touching the upload, when the capability is absent.
func (s *ConvertService) WordToPDF(ctx context.Context, u *models.Upload) (*models.Artifact, error) {
	logCtx := slog.With("operation", "word_to_pdf")
	if !s.WordToPDFAvailable() {
		return nil, models.Fail(models.KindUnavailable, UnavailableMessage, nil)
	}

	docxPath, err := s.store.Save(u, ".docx")
	if err != nil {
		if errors.Is(err, scratch.ErrInvalidUpload) {
			return nil, models.Fail(models.KindInvalid, "Invalid Word file", nil)
		}
		return nil, handleError(logCtx, "failed to persist upload", err)
	}
	pdfPath := scratch.SiblingPath(docxPath, "pdf")
	logCtx = logCtx.With("input", filepath.Base(docxPath))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.withOffice(ctx, logCtx, func(env models.OfficeEnv) error {
		return env.ConvertDocx(ctx, docxPath, pdfPath)
	})
	if err != nil {
		if IsCorruption(err) {
			logCtx.Warn("Word document looks corrupted.", "error", err)
			return nil, models.Fail(models.KindCorrupt, CorruptMessage, err)
		}
		logCtx.Error("Word to PDF conversion failed.", "error", err)
		return nil, models.Fail(models.KindConversion, "Error converting Word to PDF: "+err.Error(), err)
	}

	logCtx.Info("Converted Word to PDF.", "output", filepath.Base(pdfPath))
	return models.NewArtifact(pdfPath), nil
}

// withOffice acquires the office environment, runs fn, and releases the
// environment on every path. Calls are serialized.
func (s *ConvertService) withOffice(ctx context.Context, logCtx *slog.Logger, fn func(models.OfficeEnv) error) error {
	s.officeMu.Lock()
	defer s.officeMu.Unlock()

	env, err := s.docxToPDF.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize office environment: %w", err)
	}
	defer func() {
		if rerr := env.Release(); rerr != nil {
			logCtx.Warn("Failed to release office environment.", "error", rerr)
		}
	}()

	return fn(env)
}

var corruptionSignatures = []string{"corrupt", "could not be loaded"}

// IsCorruption reports whether a converter error points at a damaged input.
func IsCorruption(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, sig := range corruptionSignatures {
		if strings.Contains(text, sig) {
			return true
		}
	}
	return false
}
