package scratch

import (
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/pdftest"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return s
}

func TestNewCreatesDirectory(t *testing.T) {
	s := newStore(t)
	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, filepath.IsAbs(s.Dir()))
}

func TestNewRejectsEmptyDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestPathNaming(t *testing.T) {
	s := newStore(t)

	merged := filepath.Base(s.Path("merged", "pdf"))
	require.True(t, strings.HasPrefix(merged, "merged_"))
	require.True(t, strings.HasSuffix(merged, ".pdf"))
	assert.Regexp(t, tokenPattern, strings.TrimSuffix(strings.TrimPrefix(merged, "merged_"), ".pdf"))

	bare := filepath.Base(s.Path("", ".docx"))
	assert.Regexp(t, tokenPattern, strings.TrimSuffix(bare, ".docx"))
	assert.Equal(t, s.Dir(), filepath.Dir(s.Path("x", "zip")))
}

func TestPathIsUnique(t *testing.T) {
	s := newStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		p := s.Path("page_1", "pdf")
		require.False(t, seen[p], "duplicate scratch path %s", p)
		seen[p] = true
	}
}

func TestSave(t *testing.T) {
	data := pdftest.Build(2, 0)

	tests := []struct {
		name    string
		upload  *models.Upload
		ext     string
		wantErr error
	}{
		{name: "pdf accepted", upload: pdftest.Upload("report.pdf", data), ext: ".pdf"},
		{name: "extension case ignored", upload: pdftest.Upload("REPORT.PDF", data), ext: ".pdf"},
		{name: "missing upload", upload: nil, ext: ".pdf", wantErr: ErrInvalidUpload},
		{name: "empty filename", upload: pdftest.Upload("", data), ext: ".pdf", wantErr: ErrInvalidUpload},
		{name: "wrong extension", upload: pdftest.Upload("report.docx", data), ext: ".pdf", wantErr: ErrInvalidUpload},
		{name: "extension only in the middle", upload: pdftest.Upload("report.pdf.exe", data), ext: ".pdf", wantErr: ErrInvalidUpload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			path, err := s.Save(tt.upload, tt.ext)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				entries, _ := os.ReadDir(s.Dir())
				assert.Empty(t, entries, "nothing should be persisted")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, s.Dir(), filepath.Dir(path))
			assert.Equal(t, ".pdf", filepath.Ext(path))
			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestSaveOpenFailure(t *testing.T) {
	s := newStore(t)
	u := &models.Upload{
		Filename: "a.pdf",
		Open:     func() (multipart.File, error) { return nil, errors.New("boom") },
	}
	_, err := s.Save(u, ".pdf")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidUpload)
}

func TestSiblingPath(t *testing.T) {
	assert.Equal(t, "/tmp/abc.docx", SiblingPath("/tmp/abc.pdf", "docx"))
	assert.Equal(t, "/tmp/abc.pdf", SiblingPath("/tmp/abc.docx", ".pdf"))
}

func TestSweep(t *testing.T) {
	s := newStore(t)
	now := time.Now()

	old := filepath.Join(s.Dir(), "merged_old.pdf")
	fresh := filepath.Join(s.Dir(), "merged_fresh.pdf")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(old, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "nested"), 0o755))

	n, err := s.Sweep(time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.DirExists(t, filepath.Join(s.Dir(), "nested"))
}
