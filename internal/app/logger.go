package app

import (
	"io"
	"log/slog"
)

// newLogger builds the application logger. It does not touch the global
// logger, so every App gets an isolated one. Unknown levels fall back to
// info; debug logs also carry the source position.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch formatStr {
	case "json":
		handler = slog.NewJSONHandler(outW, opts)
	default:
		handler = slog.NewTextHandler(outW, opts)
	}
	return slog.New(handler)
}
