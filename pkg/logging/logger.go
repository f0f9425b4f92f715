// Package logging provides the zap logger construction and credential
// sanitization helpers used across the engine.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. env selects the preset: "local" and "dev" get
// human-readable console output at debug level, everything else gets JSON at
// the given level.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "local", "dev":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}

	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
