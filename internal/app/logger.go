package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: logLevel(cfg)}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("service", "ledger"))
}

// logLevel honours LOG_LEVEL and otherwise logs debug outside production.
func logLevel(cfg *Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if raw := strings.TrimSpace(cfg.LogLevel); raw != "" && level.UnmarshalText([]byte(raw)) == nil {
		return level
	}
	if cfg.IsProduction() {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
