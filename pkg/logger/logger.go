// Package logger configures the process-wide slog logger and carries the
// run id through contexts.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type runIDKey struct{}

// Setup installs a text or json handler writing to w as the default slog
// logger. Unknown levels and formats are rejected.
func Setup(w io.Writer, level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels. Empty means
// info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// FromContext returns the default logger tagged with the run id in ctx, if
// any.
func FromContext(ctx context.Context) *slog.Logger {
	if id := RunID(ctx); id != "" {
		return slog.Default().With("run_id", id)
	}
	return slog.Default()
}
