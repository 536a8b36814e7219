// Package scheduler derives the executable subgraph of a canvas and produces
// deterministic topological run orders over it.
package scheduler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dukex/canvasflow/pkg/canvas"
)

var (
	// ErrCycle means the executable edge set is not acyclic. No node runs.
	ErrCycle = errors.New("execution graph contains a cycle")

	// ErrUnreachable means no root node reaches the requested target.
	ErrUnreachable = errors.New("no root node reaches the target")

	// ErrNotExecutable means the target has no runnable role.
	ErrNotExecutable = errors.New("node is not executable")
)

// Scheduler computes run orders for one graph snapshot.
type Scheduler struct {
	graph *canvas.Graph

	nodes map[string]struct{} // runnable-role nodes
	out   map[string][]string
	in    map[string]int
}

// New indexes the executable subgraph: auxiliary edges stripped, sidecar
// redirection applied, nodes without a runnable role excluded.
func New(g *canvas.Graph) *Scheduler {
	s := &Scheduler{
		graph: g,
		nodes: make(map[string]struct{}),
		out:   make(map[string][]string),
		in:    make(map[string]int),
	}

	for _, n := range g.Document().Nodes {
		if role, ok := g.Role(n.ID); ok && role.Runnable() {
			s.nodes[n.ID] = struct{}{}
		}
	}

	for _, e := range g.ExecutableEdges() {
		s.out[e.From] = append(s.out[e.From], e.To)
		s.in[e.To]++
	}

	return s
}

// Roots returns the runnable nodes with no executable incoming edge, sorted
// for determinism.
func (s *Scheduler) Roots() []string {
	var roots []string

	for id := range s.nodes {
		if s.in[id] == 0 {
			roots = append(roots, id)
		}
	}

	sort.Strings(roots)

	return roots
}

// FullOrder returns a topological order over every node reachable from the
// roots. Any cycle in the executable edge set fails the whole call.
func (s *Scheduler) FullOrder() ([]string, error) {
	order, err := s.sortAll()
	if err != nil {
		return nil, err
	}

	reachable := s.forwardReach(s.Roots())

	return filterOrder(order, reachable), nil
}

// ChainOrder returns a topological order over the ancestors of target,
// target included. The target must be runnable and fed from at least one
// root.
func (s *Scheduler) ChainOrder(target string) ([]string, error) {
	if _, ok := s.nodes[target]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExecutable, target)
	}

	order, err := s.sortAll()
	if err != nil {
		return nil, err
	}

	ancestors := s.backwardReach(target)

	rooted := false

	for _, root := range s.Roots() {
		if _, ok := ancestors[root]; ok {
			rooted = true

			break
		}
	}

	if !rooted {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, target)
	}

	return filterOrder(order, ancestors), nil
}

// sortAll runs Kahn's algorithm over the whole executable node set. The ready
// set is re-sorted after every dequeue with a two-tier comparator: code and
// passthrough nodes surface before model calls, then ascending y, then id.
func (s *Scheduler) sortAll() ([]string, error) {
	indegree := make(map[string]int, len(s.nodes))
	for id := range s.nodes {
		indegree[id] = s.in[id]
	}

	var ready []string

	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(s.nodes))

	for len(ready) > 0 {
		s.sortReady(ready)

		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, succ := range s.out[next] {
			indegree[succ]--
			if indegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) < len(s.nodes) {
		return nil, fmt.Errorf("%w: %d of %d nodes unorderable", ErrCycle, len(s.nodes)-len(order), len(s.nodes))
	}

	return order, nil
}

func (s *Scheduler) sortReady(ready []string) {
	sort.SliceStable(ready, func(i, j int) bool {
		ti, tj := s.tier(ready[i]), s.tier(ready[j])
		if ti != tj {
			return ti < tj
		}

		a, b := s.graph.Node(ready[i]), s.graph.Node(ready[j])
		if a.Y != b.Y {
			return a.Y < b.Y
		}

		return ready[i] < ready[j]
	})
}

// tier 0 runs without an inference round-trip, so its output surfaces first.
func (s *Scheduler) tier(id string) int {
	role, _ := s.graph.Role(id)
	if role == canvas.RoleCode || role == canvas.RolePassthrough {
		return 0
	}

	return 1
}

func (s *Scheduler) forwardReach(from []string) map[string]struct{} {
	reach := make(map[string]struct{})
	queue := append([]string(nil), from...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if _, seen := reach[id]; seen {
			continue
		}

		reach[id] = struct{}{}
		queue = append(queue, s.out[id]...)
	}

	return reach
}

func (s *Scheduler) backwardReach(target string) map[string]struct{} {
	parents := make(map[string][]string)

	for from, succs := range s.out {
		for _, to := range succs {
			parents[to] = append(parents[to], from)
		}
	}

	reach := make(map[string]struct{})
	queue := []string{target}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if _, seen := reach[id]; seen {
			continue
		}

		reach[id] = struct{}{}
		queue = append(queue, parents[id]...)
	}

	return reach
}

func filterOrder(order []string, keep map[string]struct{}) []string {
	out := make([]string, 0, len(keep))

	for _, id := range order {
		if _, ok := keep[id]; ok {
			out = append(out, id)
		}
	}

	return out
}
