// Package logging builds the single *slog.Logger each process constructs at
// startup and threads through its constructors.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON-handler logger at the given level ("debug", "info",
// "warn", "error"). Unknown levels fall back to info.
func New(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

// NewTest returns a text-handler logger writing to io.Discard, for use in
// tests that need a non-nil logger but no output.
func NewTest() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
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
