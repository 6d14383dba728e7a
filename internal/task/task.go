// Package task provides the unit of work stipple runs, strict sequential
// composition of tasks, and the registry that validates their ordering.
package task

import (
	"context"
	"fmt"
)

// Task is a named, side-effecting unit of work. Tasks keep no state between
// invocations.
type Task interface {
	Name() string
	Description() string
	Run(ctx context.Context) error
}

// Composite is implemented by tasks that only sequence other tasks.
type Composite interface {
	Task
	Steps() []Task
}

// Func adapts a plain function into a Task.
type Func struct {
	TaskName string
	Desc     string
	Fn       func(ctx context.Context) error
}

// New returns a Task named name that runs fn.
func New(name, desc string, fn func(ctx context.Context) error) *Func {
	return &Func{TaskName: name, Desc: desc, Fn: fn}
}

func (f *Func) Name() string        { return f.TaskName }
func (f *Func) Description() string { return f.Desc }

func (f *Func) Run(ctx context.Context) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx)
}

// Sequence runs its steps strictly one after another and stops at the
// first failure.
type Sequence struct {
	name  string
	desc  string
	steps []Task
}

// Series composes steps into a Sequence named name. Each step starts only
// after the previous one returned.
func Series(name, desc string, steps ...Task) *Sequence {
	return &Sequence{name: name, desc: desc, steps: steps}
}

func (s *Sequence) Name() string        { return s.name }
func (s *Sequence) Description() string { return s.desc }
func (s *Sequence) Steps() []Task       { return append([]Task(nil), s.steps...) }

// Run executes every step through the runner found in ctx. The error of a
// failing step is wrapped with the step name and keeps its exit status.
func (s *Sequence) Run(ctx context.Context) error {
	runner := RunnerFrom(ctx)
	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if err := runner.Run(ctx, step); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
	return nil
}
