// Package logger builds the process-wide zerolog instances. Components
// receive a zerolog.Logger by value and derive sub-loggers with With();
// nothing in the tree logs through a global.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. Unknown level names fall back to info rather
// than failing startup. pretty switches to the human console writer for
// local runs; production stays on JSON.
func New(level string, pretty bool) zerolog.Logger {
	out := io.Writer(os.Stdout)
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(toLevel(level)).
		With().
		Timestamp().
		Caller().
		Logger()
}

// NewWithWriter routes output to w; tests use it to capture log lines.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(toLevel(level)).
		With().
		Timestamp().
		Logger()
}

func toLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
