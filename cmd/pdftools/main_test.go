package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPagesCommand(t *testing.T) {
	out, err := run(t, "pages", "1,3-5,9", "--total", "10")
	require.NoError(t, err)
	assert.Equal(t, "1,3,4,5,9\n", out)

	_, err = run(t, "pages", "0,11", "--total", "10")
	assert.ErrorContains(t, err, "total pages: 10")

	_, err = run(t, "pages", "1")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pdftools dev\n", out)
}

func TestSweepCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()

	old := filepath.Join(dir, "merged_old.pdf")
	fresh := filepath.Join(dir, "merged_new.pdf")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	out, err := run(t, "sweep", "--scratch-dir", dir, "--older-than", "1h", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 file(s)")
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestSweepRequiresRetention(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := run(t, "sweep", "--scratch-dir", t.TempDir(), "--log-level", "error")
	assert.ErrorContains(t, err, "nothing to sweep")
}

func TestSweepUsesConfiguredRetention(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	old := filepath.Join(dir, "page_1_old.pdf")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	t.Setenv("PDFTOOLS_RETENTION", "24h")

	_, err := run(t, "sweep", "--scratch-dir", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.NoFileExists(t, old)
}
