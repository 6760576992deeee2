// Package logger owns the process-wide zerolog instance. Components receive
// the logger through construction; GetLogger exists for the few call sites
// that run before configuration is loaded.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	global   zerolog.Logger
	bootOnce sync.Once
)

// GetLogger returns the process logger. Until New has run it serves a console
// logger at info level so startup failures are still visible.
func GetLogger() zerolog.Logger {
	bootOnce.Do(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		global = build(consoleWriter(), zerolog.InfoLevel)
	})
	return global
}

// New configures the process logger from the LOG_LEVEL and LOG_FORMAT
// settings and returns it. Format is "json" or "console".
func New(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level: %w", err)
	}

	var out io.Writer
	switch strings.ToLower(format) {
	case "json":
		out = os.Stdout
	case "console":
		out = consoleWriter()
	default:
		return zerolog.Logger{}, fmt.Errorf("unsupported log format %q", format)
	}

	zerolog.SetGlobalLevel(lvl)
	global = build(out, lvl)
	return global, nil
}

func build(out io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(out).With().Timestamp().Logger().Level(lvl)
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
}
