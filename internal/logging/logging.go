// Package logging constructs the structured logger threaded through the
// engine's long-lived components (servers, the external-merge sorter),
// grounded on the *zap.SugaredLogger convention used throughout the
// storage/index/engine packages of the ignite example repo: a logger is
// built once at process start and passed down via each component's Config,
// never reconstructed per call and never used on the scan hot path.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger's verbosity and output encoding.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// Development enables human-readable console output with stack traces
	// on Warn+; false (the default) emits one JSON object per line.
	Development bool
}

// New builds a *zap.SugaredLogger per cfg. Components that don't need
// logging (short-lived test helpers, pure library code) should accept a
// nil logger and fall back to Nop() rather than force every caller to
// build one.
func New(cfg Config) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(levelOrDefault(cfg.Level))
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything, for components and tests
// that don't care about log output.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// OrNop returns l if non-nil, otherwise a discarding logger. Long-lived
// components call this on their Config.Logger so a caller may omit it
// without every call site nil-checking.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return Nop()
	}
	return l
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}
