package watch

import (
	"context"
	"fmt"
	"sync"
)

// Policy decides what happens to a change that arrives while the
// binding's reaction is already running.
type Policy string

const (
	// Coalesce keeps one pending rerun; later changes fold into it.
	Coalesce Policy = "coalesce"
	// Reject drops the change.
	Reject Policy = "reject"
)

// ParsePolicy validates a policy name. The empty string means Coalesce.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", Coalesce:
		return Coalesce, nil
	case Reject:
		return Reject, nil
	default:
		return "", fmt.Errorf("unknown watch policy %q (want %q or %q)", s, Coalesce, Reject)
	}
}

// Outcome is what Trigger did with a change.
type Outcome int

const (
	Started Outcome = iota
	Queued
	Coalesced
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Started:
		return "started"
	case Queued:
		return "queued"
	case Coalesced:
		return "coalesced"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Slot is a single-slot queue in front of one reaction. At most one run is
// in flight and at most one more is pending. All slots sharing exec run
// their reactions one at a time.
type Slot struct {
	policy Policy
	exec   sync.Locker
	run    func(ctx context.Context)

	mu      sync.Mutex
	running bool
	pending bool
	wg      sync.WaitGroup
}

// NewSlot returns a Slot that runs fn under exec. A nil exec gets a
// private mutex.
func NewSlot(policy Policy, exec sync.Locker, fn func(ctx context.Context)) *Slot {
	if exec == nil {
		exec = &sync.Mutex{}
	}
	return &Slot{policy: policy, exec: exec, run: fn}
}

// Trigger records a change. It never blocks on the reaction.
func (s *Slot) Trigger(ctx context.Context) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		switch {
		case s.policy == Reject:
			return Rejected
		case s.pending:
			return Coalesced
		default:
			s.pending = true
			return Queued
		}
	}

	s.running = true
	s.wg.Add(1)
	go s.loop(ctx)
	return Started
}

func (s *Slot) loop(ctx context.Context) {
	defer s.wg.Done()
	for {
		s.exec.Lock()
		s.run(ctx)
		s.exec.Unlock()

		s.mu.Lock()
		if s.pending && ctx.Err() == nil {
			s.pending = false
			s.mu.Unlock()
			continue
		}
		s.pending = false
		s.running = false
		s.mu.Unlock()
		return
	}
}

// Busy reports whether a run is in flight.
func (s *Slot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until no run is in flight or pending.
func (s *Slot) Wait() {
	s.wg.Wait()
}
