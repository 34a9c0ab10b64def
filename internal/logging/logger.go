// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu sync.Mutex
	// L is the process-wide logger. It is a no-op until InitLogger or
	// Configure runs.
	L = zap.NewNop()
)

// New builds a zap.Logger configured for development or production at Info
// level.
func New(development bool) (*zap.Logger, error) {
	return NewWithLevel(development, zapcore.InfoLevel)
}

// NewWithLevel builds a development (console, coloured levels) or
// production (JSON) logger at the given level.
func NewWithLevel(development bool, level zapcore.Level) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

// InitLogger installs a development logger as L so that startup messages
// are visible before configuration is read.
func InitLogger() {
	logger, err := New(true)
	if err != nil {
		logger = zap.NewExample()
	}
	set(logger)
}

// Configure replaces L once the configuration is known. verbose lowers the
// level to Debug, which turns on per-URL progress messages.
func Configure(development, verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	logger, err := NewWithLevel(development, level)
	if err != nil {
		return nil, err
	}
	set(logger)
	return logger, nil
}

func set(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	L = logger
	zap.ReplaceGlobals(logger)
}
