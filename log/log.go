// Package log builds the process-wide zerolog logger from the configured
// level and output style.
package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Logger wraps the root zerolog logger.
type Logger struct {
	zerolog.Logger
}

// New returns a logger writing JSON to stderr, or colored console output
// when pretty is set. Unknown levels fall back to info.
func New(level string, pretty bool) *Logger {
	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(out, level)
}

// NewWithWriter returns a logger writing to w.
func NewWithWriter(w io.Writer, level string) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	l := zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("app", "aebridge").
		Logger()
	zlog.Logger = l
	return &Logger{Logger: l}
}

// ParseLevel maps a level name to its zerolog level.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Module returns a child logger tagged with a module name.
func (l *Logger) Module(name string) zerolog.Logger {
	return l.With().Str("module", name).Logger()
}
