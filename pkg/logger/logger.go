// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger for the given level. "debug" selects the
// development config; every other level selects the production config,
// with "warn" and "error" raising the output floor. Callers own the
// returned logger and are expected to pass it down rather than install
// it globally.
func New(level string) (*zap.Logger, error) {
	switch level {
	case "debug":
		return zap.NewDevelopment()
	case "", "info":
		return zap.NewProduction()
	case "warn", "error":
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level %q: %w", level, err)
		}
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(parsed)
		return cfg.Build()
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
}
