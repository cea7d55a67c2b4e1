// Package logging builds the zerolog logger shared by every component.
//
// Logs always go to stderr: stdout carries the MCP protocol when the server
// runs, and the worker subcommand writes its result there.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	Level  string // debug|info|warn|error|fatal|panic
	Pretty bool   // human-readable console output
}

// New returns a logger writing to stderr and applies the global level.
func New(opts Options) zerolog.Logger {
	return NewWithWriter(os.Stderr, opts)
}

// NewWithWriter is New with an explicit sink, used by tests.
func NewWithWriter(w io.Writer, opts Options) zerolog.Logger {
	SetLevel(opts.Level)
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Str("service", "qrhunt").Logger()
}

// SetLevel configures the global zerolog level based on a string value.
// Unknown values fall back to info.
func SetLevel(lvl string) {
	zerolog.SetGlobalLevel(ParseLevel(lvl))
}

// ParseLevel maps a case-insensitive level name to a zerolog level.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
