// Package logging builds the zerolog logger used by alps commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configures Setup.
type Options struct {
	Level   string    // zerolog level name; empty means info
	File    string    // rotating log file; empty disables file output
	Console io.Writer // human-readable output; nil means stderr
	NoColor bool
}

// Setup returns a logger writing human-readable lines to the console and,
// when a file is configured, JSON lines to a rotating file. The returned
// logger also becomes the global zerolog logger. The close function
// releases the log file and is never nil.
func Setup(opts Options) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("parsing log level: %w", err)
		}
		level = lvl
	}

	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: opts.NoColor}

	var w io.Writer = console
	closeFn := noop
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("creating log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(console, file)
		closeFn = file.Close
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closeFn, nil
}

func noop() error { return nil }
