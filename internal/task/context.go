package task

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	runnerKey  contextKey = "runner"
	loggerKey  contextKey = "logger"
	currentKey contextKey = "currentTask"
)

// WithRunner attaches r to ctx so composite tasks run their steps through it.
func WithRunner(ctx context.Context, r *Runner) context.Context {
	return context.WithValue(ctx, runnerKey, r)
}

// RunnerFrom returns the runner attached to ctx, or a default runner.
func RunnerFrom(ctx context.Context) *Runner {
	if r, ok := ctx.Value(runnerKey).(*Runner); ok && r != nil {
		return r
	}
	return NewRunner(nil, nil)
}

func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the logger of the task running in ctx. It carries the task
// name and run id. Outside a task it returns slog.Default().
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

func withCurrent(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, currentKey, name)
}

// Current returns the name of the task running in ctx, or "".
func Current(ctx context.Context) string {
	if name, ok := ctx.Value(currentKey).(string); ok {
		return name
	}
	return ""
}
