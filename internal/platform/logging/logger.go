// Package logging builds the structured logger shared by service commands.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format values accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Logger aliases zerolog.Logger so packages can accept the service logger
// without importing the third-party module directly.
type Logger = zerolog.Logger

// New constructs a zerolog.Logger writing to stdout.
func New(level, format string) Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter constructs a zerolog.Logger writing to w. Unknown levels fall
// back to info; the console format uses a human-readable writer.
func NewWithWriter(w io.Writer, level, format string) Logger {
	if w == nil {
		w = io.Discard
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	if strings.EqualFold(strings.TrimSpace(format), FormatConsole) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(parsed).
		With().
		Timestamp().
		Logger()
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return zerolog.Nop()
}
