// Package logging builds the JSON process loggers. Every record
// carries the service attribute so api and worker output interleave
// cleanly in one aggregation stream.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

var levelsByName = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// parseLevel treats unknown or empty names as info so a typo in
// LOG_LEVEL never silences the process.
func parseLevel(level string) slog.Level {
	if parsed, ok := levelsByName[strings.ToLower(strings.TrimSpace(level))]; ok {
		return parsed
	}
	return slog.LevelInfo
}
