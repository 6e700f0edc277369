package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns the JSON process logger. level overrides the environment default
// (debug for local and dev, info elsewhere) when it names a slog level.
func New(appEnv, level string) *slog.Logger {
	return NewWriter(os.Stdout, appEnv, level)
}

func NewWriter(w io.Writer, appEnv, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(appEnv, level)})
	return slog.New(h).With("service", "hangup-attribution")
}

// ParseLevel resolves the effective level. Unknown names fall back to the env default.
func ParseLevel(appEnv, level string) slog.Level {
	var lvl slog.Level
	if level != "" && lvl.UnmarshalText([]byte(strings.TrimSpace(level))) == nil {
		return lvl
	}
	if appEnv == "local" || appEnv == "dev" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

type ctxKey struct{}

// With stores l in ctx for code that has no gin.Context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored by With, or slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// Component tags the context logger, e.g. component=hangupby.
func Component(ctx context.Context, name string) *slog.Logger {
	return From(ctx).With("component", name)
}
