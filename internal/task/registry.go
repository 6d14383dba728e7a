package task

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yaklabco/stipple/internal/toposort"
)

type entry struct {
	task  Task
	after []string
}

func (e *entry) NodeID() string         { return e.task.Name() }
func (e *entry) Predecessors() []string { return e.after }

// Registry maps task names to tasks together with their declared ordering
// constraints.
type Registry struct {
	entries []*entry
	byName  map[string]*entry
	aliases map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*entry),
		aliases: make(map[string]string),
	}
}

// Register adds t. after names the tasks that must complete before t
// whenever both appear in the same sequence.
func (r *Registry) Register(t Task, after ...string) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("register: empty task name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("register %q: %w", name, toposort.ErrDuplicateNode)
	}
	e := &entry{task: t, after: slices.Clone(after)}
	r.entries = append(r.entries, e)
	r.byName[name] = e
	return nil
}

// MustRegister is Register that panics on error. It is meant for the fixed
// task tables built at startup.
func (r *Registry) MustRegister(t Task, after ...string) {
	if err := r.Register(t, after...); err != nil {
		panic(err)
	}
}

// Alias makes alias resolve to the task registered as name.
func (r *Registry) Alias(alias, name string) {
	r.aliases[strings.ToLower(alias)] = name
}

func (r *Registry) resolve(name string) (*entry, error) {
	if e, ok := r.byName[name]; ok {
		return e, nil
	}
	if target, ok := r.aliases[strings.ToLower(name)]; ok {
		if e, ok := r.byName[target]; ok {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
}

// Lookup returns the task registered under name or one of its aliases.
func (r *Registry) Lookup(name string) (Task, error) {
	e, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	return e.task, nil
}

// Aliases returns the sorted aliases that resolve to the task named name.
func (r *Registry) Aliases(name string) []string {
	var out []string
	for alias, target := range r.aliases {
		if target == name && alias != name {
			out = append(out, alias)
		}
	}
	slices.Sort(out)
	return out
}

// After returns the declared predecessors of name.
func (r *Registry) After(name string) []string {
	e, err := r.resolve(name)
	if err != nil {
		return nil
	}
	return slices.Clone(e.after)
}

// Validate checks that the ordering constraints name known tasks and
// contain no cycle.
func (r *Registry) Validate() error {
	_, err := toposort.Sort(r.entries)
	if err != nil {
		return fmt.Errorf("task registry: %w", err)
	}
	return nil
}

// Ordered returns every task in an order that satisfies the constraints.
// Tasks with no constraint between them keep registration order.
func (r *Registry) Ordered() ([]Task, error) {
	sorted, err := toposort.Sort(r.entries)
	if err != nil {
		return nil, fmt.Errorf("task registry: %w", err)
	}
	out := make([]Task, len(sorted))
	for i, e := range sorted {
		out[i] = e.task
	}
	return out, nil
}

// Series looks up names and composes them into a Sequence. It fails with
// ErrOrdering when a task would run before one of its declared
// predecessors that is also part of the sequence.
func (r *Registry) Series(name, desc string, names ...string) (*Sequence, error) {
	steps := make([]Task, 0, len(names))
	position := make(map[string]int, len(names))

	for i, n := range names {
		e, err := r.resolve(n)
		if err != nil {
			return nil, err
		}
		steps = append(steps, e.task)
		if _, seen := position[e.task.Name()]; !seen {
			position[e.task.Name()] = i
		}
	}

	for i, step := range steps {
		for _, pred := range r.byName[step.Name()].after {
			if j, ok := position[pred]; ok && j > i {
				return nil, fmt.Errorf("%w: %q must run after %q", ErrOrdering, step.Name(), pred)
			}
		}
	}

	return Series(name, desc, steps...), nil
}
