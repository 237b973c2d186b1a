package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/pagerange"
	"github.com/Lllllllleong/pdftoolkit/internal/scratch"
)

// PDFConfig holds configuration for the merge and split operations.
type PDFConfig struct {
	// MergeWorkers bounds how many merge inputs are inspected at once.
	MergeWorkers int
	// OptimizeOutput runs the merged document through pdfcpu's optimizer.
	OptimizeOutput bool
}

// PDFService merges and splits PDFs, writing results to scratch storage.
type PDFService struct {
	store  *scratch.Store
	config PDFConfig
}

// NewPDFService creates a new PDFService instance.
func NewPDFService(store *scratch.Store, config PDFConfig) *PDFService {
	if config.MergeWorkers <= 0 {
		config.MergeWorkers = 1
	}
	return &PDFService{store: store, config: config}
}

var disableConfigDir sync.Once

// newPDFConfig returns a fresh pdfcpu configuration. pdfcpu records the
// running command on the configuration, so one is never shared between calls.
func newPDFConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// mergeSource is one merge input read into memory.
type mergeSource struct {
	filename string
	data     []byte
	pages    int
}

// Merge concatenates the pages of every .pdf upload, in request order, into
// one document. Uploads with any other extension are skipped.
func (s *PDFService) Merge(ctx context.Context, uploads []*models.Upload) (*models.Artifact, error) {
	logCtx := slog.With("operation", "merge", "uploads", len(uploads))
	if len(uploads) == 0 {
		return nil, models.Fail(models.KindInvalid, "No files uploaded", nil)
	}

	// --- 1. Read and count pages of each candidate, keeping request order ---
	sources := make([]*mergeSource, len(uploads))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.config.MergeWorkers)
	for i, u := range uploads {
		if !u.HasExt(".pdf") {
			logCtx.Info("Skipping upload without a .pdf extension.", "index", i)
			continue
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := readMergeSource(u)
			if err != nil {
				return models.Fail(models.KindInvalid, fmt.Sprintf("Could not read PDF file %q", u.Filename), err)
			}
			sources[i] = src
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, handleError(logCtx, "failed to read merge input", err)
	}

	readers := make([]io.ReadSeeker, 0, len(sources))
	totalPages := 0
	for _, src := range sources {
		if src == nil || src.pages == 0 {
			continue
		}
		readers = append(readers, bytes.NewReader(src.data))
		totalPages += src.pages
	}
	if len(readers) == 0 {
		return nil, models.Fail(models.KindInvalid, "No valid PDF files provided", nil)
	}
	logCtx = logCtx.With("files", len(readers), "pages", totalPages)

	// --- 2. Merge into one scratch file ---
	var merged bytes.Buffer
	if err := api.MergeRaw(readers, &merged, false, newPDFConfig()); err != nil {
		return nil, handleError(logCtx, "failed to merge PDFs", err)
	}

	outputPath := s.store.Path("merged", "pdf")
	if err := s.writeMerged(outputPath, merged.Bytes()); err != nil {
		return nil, handleError(logCtx, "failed to write merged PDF", err)
	}

	logCtx.Info("Merged PDFs.", "output", filepath.Base(outputPath))
	return models.NewArtifact(outputPath), nil
}

func readMergeSource(u *models.Upload) (*mergeSource, error) {
	f, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	pages, err := api.PageCount(bytes.NewReader(data), newPDFConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	return &mergeSource{filename: u.Filename, data: data, pages: pages}, nil
}

func (s *PDFService) writeMerged(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if s.config.OptimizeOutput {
		err = api.Optimize(bytes.NewReader(data), f, newPDFConfig())
	} else {
		_, err = f.Write(data)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// Split writes one single-page PDF per page selected by pagesSpec and
// returns a zip archive holding all of them.
func (s *PDFService) Split(ctx context.Context, u *models.Upload, pagesSpec string) (*models.Artifact, error) {
	logCtx := slog.With("operation", "split")
	if !u.HasExt(".pdf") {
		return nil, models.Fail(models.KindInvalid, "Invalid file", nil)
	}

	// --- 1. Open the document and count its pages ---
	source, err := readContext(u)
	if err != nil {
		logCtx.Warn("Failed to open PDF for splitting.", "error", err)
		return nil, models.Fail(models.KindInvalid, fmt.Sprintf("Could not read PDF file %q", u.Filename), err)
	}
	total := source.PageCount
	logCtx = logCtx.With("pageCount", total)

	// --- 2. Resolve the page selection ---
	spec := strings.TrimSpace(pagesSpec)
	if spec == "" {
		return nil, models.Fail(models.KindInvalid, "Please enter pages to split", nil)
	}
	pages := pagerange.Parse(spec, total)
	if len(pages) == 0 {
		return nil, models.Fail(models.KindInvalid, fmt.Sprintf("Invalid page selection. Total pages: %d", total), nil)
	}

	// --- 3. One single-page PDF per selected page ---
	outputFiles := make([]string, 0, len(pages))
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, handleError(logCtx, "split cancelled", err)
		}
		path, err := s.writePage(source, p)
		if err != nil {
			return nil, handleError(logCtx, fmt.Sprintf("failed to extract page %d", p), err)
		}
		outputFiles = append(outputFiles, path)
	}

	// --- 4. Package the pages ---
	zipPath := s.store.Path("split_pages", "zip")
	if err := zipFiles(zipPath, outputFiles); err != nil {
		return nil, handleError(logCtx, "failed to package split pages", err)
	}

	logCtx.Info("PDF split into pages.", "selected", len(pages), "output", filepath.Base(zipPath))
	return models.NewArtifact(zipPath), nil
}

func readContext(u *models.Upload) (*model.Context, error) {
	f, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, newPDFConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	return ctx, nil
}

func (s *PDFService) writePage(source *model.Context, page int) (string, error) {
	pageCtx, err := pdfcpu.ExtractPages(source, []int{page}, false)
	if err != nil {
		return "", err
	}

	path := s.store.Path(fmt.Sprintf("page_%d", page), "pdf")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := api.WriteContext(pageCtx, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	return path, f.Close()
}

// zipFiles writes a flat archive whose entries are named after each file's base name.
func zipFiles(zipPath string, files []string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(out)

	for _, path := range files {
		if err := addToZip(zw, path); err != nil {
			_ = zw.Close()
			_ = out.Close()
			_ = os.Remove(zipPath)
			return err
		}
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func addToZip(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	entry, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, in)
	return err
}
