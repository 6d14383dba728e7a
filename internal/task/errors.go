package task

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTask is returned when a task name is not registered.
	ErrUnknownTask = errors.New("unknown task")

	// ErrOrdering is returned when a sequence would run a task before one of
	// its declared predecessors.
	ErrOrdering = errors.New("task ordering violated")
)

type fatalError struct {
	code int
	error
}

func (f fatalError) ExitStatus() int {
	return f.code
}

func (f fatalError) Unwrap() error {
	return f.error
}

// ExitStatuser is implemented by errors that carry a process exit status.
type ExitStatuser interface {
	ExitStatus() int
}

// Fatal returns an error that makes stipple print args and exit with code.
func Fatal(code int, args ...any) error {
	return fatalError{
		code:  code,
		error: errors.New(fmt.Sprint(args...)),
	}
}

// Fatalf returns an error that makes stipple print the message and exit
// with code. A %w verb in format keeps the wrapped error reachable.
func Fatalf(code int, format string, args ...any) error {
	return fatalError{
		code:  code,
		error: fmt.Errorf(format, args...),
	}
}

// ExitStatus queries err for an exit status. A nil error yields 0 and an
// error that carries no status yields 1.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exit ExitStatuser
	if errors.As(err, &exit) {
		return exit.ExitStatus()
	}
	return 1
}
