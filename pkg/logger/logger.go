// Package logger builds the process-wide zerolog logger from the
// logging configuration.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/config"
)

// New builds a logger for the given settings. Unknown levels fall
// back to info; a missing log file falls back to stderr.
func New(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		if f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			out = f
		}
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("component", "phishwatch").Logger()
}
