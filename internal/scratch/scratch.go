// Package scratch owns the flat directory where uploads are persisted and
// generated files are written before being sent back. Every name embeds a
// fresh random token, so concurrent requests never collide and no locking is
// needed.
package scratch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
)

// ErrInvalidUpload is returned by Save when the upload is missing or its
// filename does not carry the expected extension.
var ErrInvalidUpload = errors.New("invalid upload")

// Store is a handle on the scratch directory.
type Store struct {
	dir string
}

// New creates dir if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("scratch directory must be set")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scratch directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory %s: %w", abs, err)
	}
	return &Store{dir: abs}, nil
}

// Dir is the absolute scratch directory.
func (s *Store) Dir() string { return s.dir }

// Token returns a new 32-character hex token.
func Token() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Path returns a fresh path "{purpose}_{token}.{ext}", or "{token}.{ext}"
// when purpose is empty. Nothing is created on disk.
func (s *Store) Path(purpose, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name := Token() + "." + ext
	if purpose != "" {
		name = purpose + "_" + name
	}
	return filepath.Join(s.dir, name)
}

// Save validates the upload against ext (".pdf", ".docx") and copies it to a
// fresh "{token}{ext}" path, which it returns.
func (s *Store) Save(u *models.Upload, ext string) (string, error) {
	if !u.HasExt(ext) {
		return "", ErrInvalidUpload
	}

	src, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %s: %w", u.Filename, err)
	}
	defer src.Close()

	path := s.Path("", ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to persist upload %s: %w", u.Filename, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize scratch file: %w", err)
	}
	return path, nil
}

// SiblingPath swaps path's extension for ext, keeping the token.
func SiblingPath(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + strings.TrimPrefix(ext, ".")
}

// Sweep deletes regular files in the scratch directory last modified before
// now minus olderThan. It returns how many files were removed. Files that
// cannot be removed are logged and skipped.
func (s *Store) Sweep(olderThan time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list scratch directory: %w", err)
	}

	cutoff := now.Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to remove expired scratch file.", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// RunSweeper sweeps every interval until ctx is cancelled. A zero retention
// disables sweeping and RunSweeper returns immediately.
func (s *Store) RunSweeper(ctx context.Context, interval, retention time.Duration) {
	if retention <= 0 || interval <= 0 {
		return
	}
	logCtx := slog.With("scratchDir", s.dir, "retention", retention.String())
	logCtx.Info("Scratch sweeper started.", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logCtx.Info("Scratch sweeper stopped.")
			return
		case now := <-ticker.C:
			n, err := s.Sweep(retention, now)
			if err != nil {
				logCtx.Error("Scratch sweep failed.", "error", err)
				continue
			}
			if n > 0 {
				logCtx.Info("Removed expired scratch files.", "count", n)
			}
		}
	}
}
