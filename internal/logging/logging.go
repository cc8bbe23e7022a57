// Package logging configures the CLI's slog default. The terminal is
// owned by the progress display, so anything below error stays quiet
// unless the user opts in.
package logging

import (
	"log/slog"
	"os"
)

// Init installs the default logger. The level comes from PAIRLANE_LOG
// (or LOG_LEVEL as a fallback); production default only shows errors.
func Init() {
	level := slog.LevelError

	l, ok := os.LookupEnv("PAIRLANE_LOG")
	if !ok {
		l, ok = os.LookupEnv("LOG_LEVEL")
	}
	if ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
