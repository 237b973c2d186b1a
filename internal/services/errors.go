package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
)

// handleError logs a processing failure and returns the error the caller
// should see. OpErrors pass through unchanged; anything else becomes an
// internal failure that keeps message as context.
func handleError(logCtx *slog.Logger, message string, originalErr error) error {
	var opErr *models.OpError
	if errors.As(originalErr, &opErr) {
		logCtx.Warn(message, "error", originalErr, "kind", opErr.Kind.String())
		return opErr
	}
	logCtx.Error(message, "error", originalErr)
	return models.Fail(models.KindInternal, "Internal error while processing the file", fmt.Errorf("%s: %w", message, originalErr))
}
