// Package logging provides the process-wide slog logger, backed by zap's
// production JSON encoder.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// New returns a slog logger writing JSON lines to w at the given level
// ("debug", "info", "warn", "error").
func New(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(w)), lvl)
	return slog.New(zapslog.NewHandler(core)), nil
}

// Setup installs a stderr logger as the slog default.
func Setup(level string) error {
	logger, err := New(level, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
