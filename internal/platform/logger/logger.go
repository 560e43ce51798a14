// Package logger constructs the process-wide slog.Logger. Components receive it
// by injection; there is no package-level default.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a text slog.Logger at the given level writing to stdout.
func New(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
