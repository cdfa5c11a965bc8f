package utils

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process-wide slog.Logger. Unknown levels fall back to
// info; json selects the JSON handler for log shippers.
func NewLogger(level string, json bool) *slog.Logger {
	var handlerLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		handlerLevel = slog.LevelDebug
	case "warn", "warning":
		handlerLevel = slog.LevelWarn
	case "error":
		handlerLevel = slog.LevelError
	default:
		handlerLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: handlerLevel}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
