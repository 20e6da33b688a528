package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoggerConfig configures the runtime logger.
type LoggerConfig struct {
	Level  slog.Level
	Format string // "text" or "json"
	Output io.Writer
}

// ParseLogLevel parses a level name. Unknown names yield info.
func ParseLogLevel(s string) slog.Level {
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

// NewLogger builds a logger whose level can be changed later through the
// returned LevelVar.
func NewLogger(cfg LoggerConfig) (*slog.Logger, *slog.LevelVar) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	level := new(slog.LevelVar)
	level.Set(cfg.Level)

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		h = slog.NewTextHandler(cfg.Output, opts)
	}
	return slog.New(h).With("app", "pitwall"), level
}

// OpenLogOutput resolves a log output setting: "stderr", "stdout", or a file
// path opened for appending. The returned close function is a no-op for the
// standard streams.
func OpenLogOutput(dest string) (io.Writer, func() error, error) {
	switch dest {
	case "", "stderr":
		return os.Stderr, func() error { return nil }, nil
	case "stdout":
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output %s: %w", dest, err)
	}
	return f, f.Close, nil
}
