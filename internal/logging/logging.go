// =============================================================================
// Pega Tickets - Logging
// =============================================================================
//
// Structured logging for the CLI, on zerolog. Human-readable lines go to the
// console (stderr); when a log file is configured, the same events are also
// appended to it as JSON lines.
//
// =============================================================================

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	// Level is a zerolog level name. Empty means "info".
	Level string

	// File, when set, receives JSON log lines. The file is created or
	// appended to.
	File string

	// Console receives human-readable output. Nil means os.Stderr.
	Console io.Writer

	// NoColor disables ANSI colors on the console.
	NoColor bool
}

// New builds a logger. The returned close function releases the log file and
// is safe to call when no file was opened.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		NoColor:    opts.NoColor,
		TimeFormat: time.TimeOnly,
	}}

	closer := noop
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f.Close
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return logger, closer, nil
}

func noop() error { return nil }
