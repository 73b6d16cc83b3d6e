// Package logging builds the zerolog loggers used across diarist.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/diarist/internal/config"
)

// FieldComponent tags log lines with the subsystem that produced them.
const FieldComponent = "component"

// New creates a logger from config. Output goes to stderr so that stdout
// stays reserved for CLI JSON and the MCP stdio transport.
func New(cfg *config.Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg *config.Config, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	format := "console"
	if cfg != nil {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil && cfg.LogLevel != "" {
			level = parsed
		}
		if cfg.LogFormat != "" {
			format = strings.ToLower(cfg.LogFormat)
		}
	}

	out := w
	if format == "console" || format == "pretty" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

// Nop returns a disabled logger, used where no logger was injected.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
