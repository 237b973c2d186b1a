// Package office drives a headless LibreOffice binary to convert between PDF
// and Word documents. Every conversion runs in its own office environment: a
// private user profile directory created on Acquire and removed on Release.
package office

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
)

const (
	filterDocx      = "docx:MS Word 2007 XML"
	filterPDF       = "pdf:writer_pdf_Export"
	filterPDFImport = "writer_pdf_import"
)

var (
	_ models.PDFToDocx = (*Office)(nil)
	_ models.DocxToPDF = (*Office)(nil)
)

var disableConfigDir sync.Once

func pdfConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	// Run executes name and returns its combined stdout and stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Office converts documents with the LibreOffice binary bin.
type Office struct {
	bin  string
	exec executor
	// tempDir holds profile directories; empty means os.TempDir.
	tempDir string
}

// New returns an Office that runs binary, resolved through PATH.
func New(binary string) *Office {
	return &Office{bin: binary, exec: osExecutor{}}
}

// Available reports whether the binary can be found.
func (o *Office) Available() bool {
	_, err := o.exec.LookPath(o.bin)
	return err == nil
}

// Acquire creates a fresh office environment.
func (o *Office) Acquire(ctx context.Context) (models.OfficeEnv, error) {
	e, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (o *Office) acquire(ctx context.Context) (*env, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	profile, err := os.MkdirTemp(o.tempDir, "pdftools-office-")
	if err != nil {
		return nil, fmt.Errorf("failed to create office profile: %w", err)
	}
	return &env{office: o, profile: profile}, nil
}

// Open counts the pages of the PDF at pdfPath and prepares it for conversion.
// The returned document owns an office environment until Close.
func (o *Office) Open(ctx context.Context, pdfPath string) (models.PDFDocument, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(pdfPath), err)
	}
	pages, err := api.PageCount(f, pdfConfig())
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read page count: %w", err)
	}

	e, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pdfDocument{env: e, path: pdfPath, pages: pages}, nil
}

// env is one office environment.
type env struct {
	office  *Office
	profile string

	releaseOnce sync.Once
	releaseErr  error
}

func (e *env) ConvertDocx(ctx context.Context, docxPath, pdfPath string) error {
	return e.convert(ctx, docxPath, pdfPath, filterPDF, "")
}

// Release removes the profile directory. It is safe to call more than once.
func (e *env) Release() error {
	e.releaseOnce.Do(func() {
		if err := os.RemoveAll(e.profile); err != nil {
			e.releaseErr = fmt.Errorf("failed to remove office profile: %w", err)
		}
	})
	return e.releaseErr
}

// convert runs one headless conversion of inPath into outPath. LibreOffice
// names its output after the input, so the result is renamed when the two
// stems differ.
func (e *env) convert(ctx context.Context, inPath, outPath, filter, infilter string) error {
	outDir := filepath.Dir(outPath)
	args := []string{
		"-env:UserInstallation=" + (&url.URL{Scheme: "file", Path: filepath.ToSlash(e.profile)}).String(),
		"--headless", "--norestore", "--nologo", "--nolockcheck",
	}
	if infilter != "" {
		args = append(args, "--infilter="+infilter)
	}
	args = append(args, "--convert-to", filter, "--outdir", outDir, inPath)

	slog.Debug("Running office conversion.", "binary", e.office.bin, "input", filepath.Base(inPath), "filter", filter)
	out, err := e.office.exec.Run(ctx, e.office.bin, args...)
	output := strings.TrimSpace(string(out))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("conversion aborted: %w", ctxErr)
		}
		if output != "" {
			return fmt.Errorf("%s: %w", output, err)
		}
		return err
	}

	stem := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	produced := filepath.Join(outDir, stem+filepath.Ext(outPath))
	if _, err := os.Stat(produced); err != nil {
		if output == "" {
			output = "no output file was produced"
		}
		return fmt.Errorf("conversion produced no file: %s", output)
	}
	if produced != outPath {
		if err := os.Rename(produced, outPath); err != nil {
			return fmt.Errorf("failed to move converted file: %w", err)
		}
	}
	return nil
}

// pdfDocument is a PDF opened for conversion to Word.
type pdfDocument struct {
	env   *env
	path  string
	pages int
}

func (d *pdfDocument) PageCount() int { return d.pages }

// Convert writes pages first..last (zero-based, inclusive) to docxPath.
// A partial range is trimmed into the environment's profile before import.
func (d *pdfDocument) Convert(ctx context.Context, docxPath string, first, last int) error {
	if first < 0 || last >= d.pages || first > last {
		return fmt.Errorf("page range %d-%d out of bounds for %d pages", first, last, d.pages)
	}

	source := d.path
	if first != 0 || last != d.pages-1 {
		stem := strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath))
		source = filepath.Join(d.env.profile, stem+".pdf")
		selection := []string{fmt.Sprintf("%d-%d", first+1, last+1)}
		if err := api.TrimFile(d.path, source, selection, pdfConfig()); err != nil {
			return fmt.Errorf("failed to select pages: %w", err)
		}
	}
	return d.env.convert(ctx, source, docxPath, filterDocx, filterPDFImport)
}

func (d *pdfDocument) Close() error {
	return d.env.Release()
}
