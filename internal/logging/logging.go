// Package logging configures the process-wide slog logger. Components take
// children of the returned logger via With("component", ...) so every line
// carries its origin.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds a text logger on stderr at the given level, installs it as the
// slog default, and returns it. Level is one of debug, info, warn, or error;
// anything else (including empty, the usual case when BYWATER_LOG_LEVEL is
// unset) means info.
func Setup(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
