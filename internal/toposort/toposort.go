// Package toposort orders named nodes so that every node comes after the
// nodes it declares as predecessors.
package toposort

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrCircularDependency is returned when the input contains a cycle.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrMissingDependency is returned when a predecessor is not among the nodes.
	ErrMissingDependency = errors.New("dependency not found")

	// ErrDuplicateNode is returned when two nodes share an ID.
	ErrDuplicateNode = errors.New("duplicate node")
)

// Node is anything with a stable ID and a list of predecessor IDs.
type Node interface {
	NodeID() string
	Predecessors() []string
}

// Sort orders nodes with Kahn's algorithm. Among nodes that are ready at the
// same time, the one declared first in the input wins, so an input that
// already satisfies every constraint comes back unchanged.
func Sort[T Node](nodes []T) ([]T, error) {
	n := len(nodes)
	if n == 0 {
		return nil, nil
	}

	index := make(map[string]int, n)
	for i, node := range nodes {
		id := node.NodeID()
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, id)
		}
		index[id] = i
	}

	successors := make([][]int, n)
	indeg := make([]int, n)

	for i, node := range nodes {
		id := node.NodeID()
		for _, pred := range node.Predecessors() {
			if pred == id {
				return nil, fmt.Errorf("%w: self dependency at %q", ErrCircularDependency, id)
			}
			p, ok := index[pred]
			if !ok {
				return nil, fmt.Errorf("dependency %q of %q not found: %w", pred, id, ErrMissingDependency)
			}
			successors[p] = append(successors[p], i)
			indeg[i]++
		}
	}

	ready := make([]int, 0, n)
	for i := range nodes {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	result := make([]T, 0, n)
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		result = append(result, nodes[cur])

		for _, next := range successors[cur] {
			indeg[next]--
			if indeg[next] == 0 {
				pos, _ := slices.BinarySearch(ready, next)
				ready = slices.Insert(ready, pos, next)
			}
		}
	}

	if len(result) != n {
		remaining := make([]string, 0, n-len(result))
		for i, d := range indeg {
			if d > 0 {
				remaining = append(remaining, nodes[i].NodeID())
			}
		}
		slices.Sort(remaining)
		return nil, fmt.Errorf("%w: cycle among nodes: %v", ErrCircularDependency, remaining)
	}

	return result, nil
}
