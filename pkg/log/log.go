// Package log builds the process-wide zerolog logger from the level and
// pretty-print settings carried in configuration.
package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log wraps the configured root zerolog.Logger so callers can both use it
// directly (l.Info()...) and pull the bare zerolog.Logger out via l.Logger
// for embedding into application structs.
type Log struct {
	Logger zerolog.Logger
}

// New builds a Log from a level name (trace, debug, info, warn, error,
// fatal, panic; unrecognized or empty defaults to info) and a pretty flag
// that switches from JSON to a human-readable console writer.
func New(level string, pretty bool) Log {
	zerolog.TimeFieldFormat = time.RFC3339

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}

	logger := zerolog.New(writer(pretty)).Level(parsed).With().Timestamp().Logger()

	return Log{Logger: logger}
}

func writer(pretty bool) io.Writer {
	if pretty {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return os.Stderr
}
