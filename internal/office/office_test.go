package office

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdftoolkit/internal/pdftest"
)

// fakeExecutor mimics soffice: it writes "<outdir>/<input stem>.<ext>"
// unless told to fail or to stay silent.
type fakeExecutor struct {
	known    map[string]bool
	output   string
	err      error
	noOutput bool

	calls         [][]string
	profileExists bool
	inputPages    int
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.known[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("executable file not found in $PATH")
}

func (f *fakeExecutor) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return []byte(f.output), f.err
	}

	var outDir, filter, profile string
	for i, a := range args {
		switch {
		case a == "--outdir":
			outDir = args[i+1]
		case a == "--convert-to":
			filter = args[i+1]
		case strings.HasPrefix(a, "-env:UserInstallation="):
			u, err := url.Parse(strings.TrimPrefix(a, "-env:UserInstallation="))
			if err != nil {
				return nil, err
			}
			profile = u.Path
		}
	}
	_, statErr := os.Stat(profile)
	f.profileExists = statErr == nil

	input := args[len(args)-1]
	if strings.HasSuffix(input, ".pdf") {
		if n, err := api.PageCountFile(input); err == nil {
			f.inputPages = n
		}
	}
	if f.noOutput {
		return []byte(f.output), nil
	}

	ext, _, _ := strings.Cut(filter, ":")
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	out := filepath.Join(outDir, stem+"."+ext)
	return []byte("convert " + input + " -> " + out), os.WriteFile(out, []byte("converted"), 0o644)
}

func newTestOffice(t *testing.T, fx *fakeExecutor) *Office {
	t.Helper()
	return &Office{bin: "soffice", exec: fx, tempDir: t.TempDir()}
}

func profiles(t *testing.T, o *Office) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(o.tempDir)
	require.NoError(t, err)
	return entries
}

func TestAvailable(t *testing.T) {
	o := newTestOffice(t, &fakeExecutor{known: map[string]bool{"soffice": true}})
	assert.True(t, o.Available())

	o = newTestOffice(t, &fakeExecutor{})
	assert.False(t, o.Available())
}

func TestAcquireAndRelease(t *testing.T) {
	o := newTestOffice(t, &fakeExecutor{})

	env, err := o.Acquire(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles(t, o), 1)

	require.NoError(t, env.Release())
	assert.Empty(t, profiles(t, o))
	assert.NoError(t, env.Release(), "second release is a no-op")
}

func TestAcquireCancelled(t *testing.T) {
	o := newTestOffice(t, &fakeExecutor{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, profiles(t, o))
}

func TestConvertDocx(t *testing.T) {
	fx := &fakeExecutor{}
	o := newTestOffice(t, fx)
	dir := t.TempDir()
	docx := filepath.Join(dir, "abc.docx")
	require.NoError(t, os.WriteFile(docx, []byte("doc"), 0o644))

	env, err := o.Acquire(context.Background())
	require.NoError(t, err)
	defer env.Release()

	pdf := filepath.Join(dir, "abc.pdf")
	require.NoError(t, env.ConvertDocx(context.Background(), docx, pdf))
	assert.FileExists(t, pdf)
	assert.True(t, fx.profileExists)

	require.Len(t, fx.calls, 1)
	call := fx.calls[0]
	assert.Equal(t, "soffice", call[0])
	assert.Contains(t, call, "--headless")
	assert.Contains(t, call, filterPDF)
	assert.Equal(t, docx, call[len(call)-1])
	assert.NotContains(t, strings.Join(call, " "), "--infilter")
}

func TestConvertRenamesWhenStemsDiffer(t *testing.T) {
	o := newTestOffice(t, &fakeExecutor{})
	dir := t.TempDir()
	docx := filepath.Join(dir, "input.docx")
	require.NoError(t, os.WriteFile(docx, []byte("doc"), 0o644))

	env, err := o.acquire(context.Background())
	require.NoError(t, err)
	defer env.Release()

	out := filepath.Join(dir, "renamed.pdf")
	require.NoError(t, env.ConvertDocx(context.Background(), docx, out))
	assert.FileExists(t, out)
	assert.NoFileExists(t, filepath.Join(dir, "input.pdf"))
}

func TestConvertFailures(t *testing.T) {
	tests := []struct {
		name string
		fx   *fakeExecutor
		want string
	}{
		{
			name: "command fails",
			fx:   &fakeExecutor{err: errors.New("exit status 1"), output: "Error: source file could not be loaded\n"},
			want: "Error: source file could not be loaded: exit status 1",
		},
		{
			name: "no output file",
			fx:   &fakeExecutor{noOutput: true, output: "Error: source file could not be loaded"},
			want: "could not be loaded",
		},
		{
			name: "no output file and silent",
			fx:   &fakeExecutor{noOutput: true},
			want: "no output file was produced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOffice(t, tt.fx)
			dir := t.TempDir()
			docx := filepath.Join(dir, "x.docx")
			require.NoError(t, os.WriteFile(docx, []byte("doc"), 0o644))

			env, err := o.Acquire(context.Background())
			require.NoError(t, err)
			defer env.Release()

			err = env.ConvertDocx(context.Background(), docx, filepath.Join(dir, "x.pdf"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOpenAndConvertFullRange(t *testing.T) {
	fx := &fakeExecutor{}
	o := newTestOffice(t, fx)
	dir := t.TempDir()
	pdf := pdftest.WriteFile(t, dir, "tok.pdf", 4, 0)

	doc, err := o.Open(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.PageCount())
	require.Len(t, profiles(t, o), 1)

	docx := filepath.Join(dir, "tok.docx")
	require.NoError(t, doc.Convert(context.Background(), docx, 0, 3))
	assert.FileExists(t, docx)
	assert.Equal(t, 4, fx.inputPages)

	call := strings.Join(fx.calls[0], " ")
	assert.Contains(t, call, "--infilter="+filterPDFImport)
	assert.Contains(t, fx.calls[0], filterDocx)
	assert.Contains(t, call, pdf)

	require.NoError(t, doc.Close())
	assert.Empty(t, profiles(t, o))
}

func TestConvertPartialRangeTrimsFirst(t *testing.T) {
	fx := &fakeExecutor{}
	o := newTestOffice(t, fx)
	dir := t.TempDir()
	pdf := pdftest.WriteFile(t, dir, "tok.pdf", 5, 0)

	doc, err := o.Open(context.Background(), pdf)
	require.NoError(t, err)
	defer doc.Close()

	docx := filepath.Join(dir, "tok.docx")
	require.NoError(t, doc.Convert(context.Background(), docx, 1, 2))
	assert.FileExists(t, docx)
	assert.Equal(t, 2, fx.inputPages)
	assert.NotEqual(t, pdf, fx.calls[0][len(fx.calls[0])-1])
}

func TestConvertRejectsBadRange(t *testing.T) {
	o := newTestOffice(t, &fakeExecutor{})
	dir := t.TempDir()
	pdf := pdftest.WriteFile(t, dir, "tok.pdf", 2, 0)

	doc, err := o.Open(context.Background(), pdf)
	require.NoError(t, err)
	defer doc.Close()

	for _, r := range [][2]int{{-1, 1}, {0, 2}, {1, 0}} {
		err := doc.Convert(context.Background(), filepath.Join(dir, "out.docx"), r[0], r[1])
		assert.Error(t, err, fmt.Sprintf("range %v", r))
	}
}

func TestOpenUnreadablePDF(t *testing.T) {
	o := newTestOffice(t, &fakeExecutor{})
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := o.Open(context.Background(), path)
	require.Error(t, err)
	assert.Empty(t, profiles(t, o))
}
