// Package logging builds the process logger and scrubs secrets from
// anything that ends up in log output.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the root zap logger for the given environment.
// "local" gets human-readable development output; everything else gets
// production JSON. Level accepts the standard zap level names.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if level != "" {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		cfg.Level = parsed
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
