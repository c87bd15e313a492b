package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the application logger: JSON to stdout, level parsed from the
// LOG_LEVEL value ("debug", "info", "warn", "error"; default info).
func New(level string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
