package logger

import (
	"io"
	"log/slog"
	"os"

	"galactic-server/internal/shared/config"
)

func Init() {
	if config.GlobalConfig == nil {
		panic("config must be initialized before logger")
	}

	cfg := config.GlobalConfig
	jsonFormat := cfg.Logging.Format == "json" || cfg.IsProduction()

	slog.SetDefault(New(os.Stdout, cfg.Logging.Level, jsonFormat))

	logger := slog.With("component", "logger")
	logger.Debug("Logger initialized",
		"level", cfg.Logging.Level,
		"json_format", jsonFormat,
		"environment", cfg.Server.Environment,
	)
}

// New builds a logger writing to w; used by Init and by tests that need a quiet logger.
func New(w io.Writer, level string, jsonFormat bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return New(io.Discard, "error", false)
}

func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
