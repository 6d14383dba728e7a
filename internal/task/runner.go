package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yaklabco/stipple/internal/logging"
	"github.com/yaklabco/stipple/internal/metrics"
)

type swallowedError struct {
	error
}

func (s swallowedError) Unwrap() error {
	return s.error
}

// Swallow marks err as recoverable. The runner logs it and reports the
// task as successful, so a sequence keeps going.
func Swallow(err error) error {
	if err == nil {
		return nil
	}
	return swallowedError{error: err}
}

// IsSwallowed reports whether err was marked with Swallow.
func IsSwallowed(err error) bool {
	var s swallowedError
	return errors.As(err, &s)
}

// Runner executes tasks with logging and metrics around each run.
type Runner struct {
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// NewRunner returns a Runner. Nil arguments fall back to slog.Default and
// a no-op recorder.
func NewRunner(logger *slog.Logger, recorder metrics.Recorder) *Runner {
	return &Runner{
		logger:   logger,
		recorder: metrics.OrNoop(recorder),
		now:      time.Now,
	}
}

func (r *Runner) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// Run executes t. Composite tasks run their steps through this same runner.
func (r *Runner) Run(ctx context.Context, t Task) error {
	runID := uuid.NewString()
	logger := r.log().With(logging.Task, t.Name(), logging.RunID, runID)

	ctx = WithRunner(ctx, r)
	ctx = withLogger(ctx, logger)
	ctx = withCurrent(ctx, t.Name())

	logger.Info("starting")
	start := r.now()
	err := t.Run(ctx)
	elapsed := r.now().Sub(start)

	if _, composite := t.(Composite); !composite {
		r.recorder.ObserveTaskDuration(t.Name(), elapsed)
	}

	switch {
	case err == nil:
		r.recorder.IncTaskResult(t.Name(), metrics.ResultSuccess)
		logger.Info("finished", logging.Duration, elapsed.Round(time.Millisecond))
		return nil
	case IsSwallowed(err):
		r.recorder.IncTaskResult(t.Name(), metrics.ResultSwallow)
		logger.Error("finished with recoverable error", logging.Error, err, logging.Duration, elapsed.Round(time.Millisecond))
		return nil
	case errors.Is(err, context.Canceled):
		r.recorder.IncTaskResult(t.Name(), metrics.ResultCanceled)
		logger.Warn("canceled", logging.Duration, elapsed.Round(time.Millisecond))
		return err
	default:
		r.recorder.IncTaskResult(t.Name(), metrics.ResultFailed)
		logger.Error("failed", logging.Error, err, logging.Duration, elapsed.Round(time.Millisecond))
		return err
	}
}
