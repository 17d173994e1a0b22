package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON except when
// BIZLINK_LOG_FORMAT=text, which is easier on the eyes in dev.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("BIZLINK_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("BIZLINK_LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
