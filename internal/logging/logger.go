package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a thin wrapper over slog that supports attaching field maps.
type Logger struct {
	*slog.Logger
}

// NewLogger writes text logs in development and JSON logs otherwise.
func NewLogger(isDevelopment bool) *Logger {
	return New(os.Stdout, isDevelopment)
}

func New(w io.Writer, isDevelopment bool) *Logger {
	var handler slog.Handler
	if isDevelopment {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return New(io.Discard, false)
}

// WithFields returns a child logger carrying the given fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.Logger.With(args...)}
}
