// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const appName = "measureiq"

// New returns a JSON logger writing to stderr and, when logFile is set, to
// that file as well. The logger is installed as the slog default and tags
// every record with the app name. Callers must defer the returned cleanup.
func New(level, logFile string) (*slog.Logger, func(), error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	writers := []io.Writer{os.Stderr}
	cleanup := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		cleanup = func() { _ = f.Close() }
	}

	logger := newLogger(io.MultiWriter(writers...), lvl)
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func newLogger(w io.Writer, lvl slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("app", appName)
}

// parseLevel accepts slog level names in any case, with an optional offset
// such as "debug-2". An empty string means info.
func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return lvl, nil
}
