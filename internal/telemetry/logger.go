package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process-wide structured logger. JSON output on stdout;
// level comes from STORYREEL_LOG_LEVEL (default info).
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("STORYREEL_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
