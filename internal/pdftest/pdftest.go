// Package pdftest builds small, valid PDFs for tests. Page i (1-based) of a
// generated document has a media box BaseWidth+i points wide, so tests can
// tell pages apart after they have been merged or split.
package pdftest

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
)

// BaseWidth is the width every generated page adds its page number to.
const BaseWidth = 200

const pageHeight = 300

// Build returns a PDF with the given number of pages. Page widths start at
// offset+1, so documents built with different offsets have distinct pages.
func Build(pages, offset int) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, 3+2*pages)

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i := 1; i <= pages; i++ {
		width := BaseWidth + offset + i
		obj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			width, pageHeight, 5+2*(i-1),
		))
		content := fmt.Sprintf("BT /F1 18 Tf 20 150 Td (Page %d) Tj ET", offset+i)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// WriteFile writes a generated PDF into dir and returns its path.
func WriteFile(t testing.TB, dir, name string, pages, offset int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(pages, offset), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
	return path
}

// Upload wraps raw bytes as an upload with the given claimed filename.
func Upload(filename string, data []byte) *models.Upload {
	return &models.Upload{
		Filename: filename,
		Size:     int64(len(data)),
		Open: func() (multipart.File, error) {
			return file{bytes.NewReader(data)}, nil
		},
	}
}

type file struct{ *bytes.Reader }

func (file) Close() error { return nil }

// Widths reads back the media box width of every page in the PDF at path,
// in page order.
func Widths(t testing.TB, path string) []int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()

	dims, err := api.PageDims(f, Config())
	if err != nil {
		t.Fatalf("reading page dimensions of %s: %v", path, err)
	}
	widths := make([]int, len(dims))
	for i, d := range dims {
		widths[i] = int(d.Width + 0.5)
	}
	return widths
}

// PageWidths lists the widths Build assigns to pages 1..pages at offset.
func PageWidths(offset int, pages ...int) []int {
	out := make([]int, len(pages))
	for i, p := range pages {
		out[i] = BaseWidth + offset + p
	}
	return out
}

// Config is the pdfcpu configuration used to inspect fixtures.
func Config() *model.Configuration {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
