package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger used by both the API
// server and the worker. LOG_FORMAT=json switches to JSON output.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
