// Package logger builds the zerolog loggers shared by the restoration
// pipeline, the batch orchestrator and the HTTP service.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/code4indo/DE-GAN/internal/models"
)

// New returns a logger writing to w at the named level. JSON lines are emitted
// when useJSON is set, otherwise a human readable console format.
func New(w io.Writer, level string, useJSON bool) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if w == nil {
		w = os.Stderr
	}
	if !useJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger(), nil
}

// ParseLevel maps a config level name onto a zerolog level. An empty name
// means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, &models.ConfigurationError{Reason: "unknown log level " + level, Err: err}
	}
	return lvl, nil
}

// Component tags l with the name of the emitting component.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
