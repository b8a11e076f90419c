package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig selects the log level and handler
type LogConfig struct {
	Level  string
	Format string
}

// NewLogger creates a *slog.Logger from cfg and sets it as the default logger.
// Format "json" writes JSON; anything else writes text with source positions.
// Level is one of debug, info, warn, error; unknown values mean info.
// A nil w writes to os.Stderr so command output on stdout stays clean.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: strings.EqualFold(cfg.Format, "text") && parseLevel(cfg.Level) == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
