// Package logging builds the process logger: human-readable lines on the
// console and JSON lines in the configured log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	// Level is one of debug, info, warn, error. Unknown values fall back to info.
	Level string
	// File receives JSON log lines; its directory is created on demand. Empty disables file output.
	File string
	// Console receives the human-readable stream (defaults to os.Stdout).
	Console io.Writer
	NoColor bool
}

// New returns a logger and a closer for the log file. The closer is never nil.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	}}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return zerolog.Nop(), closer, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		writers = append(writers, f)
		closer = f
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()

	return logger, closer, nil
}

// Console returns a console-only logger for use before the configuration is loaded.
func Console() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
