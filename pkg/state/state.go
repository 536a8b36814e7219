// Package state holds the in-memory run state the engine keeps per open
// workspace: cached node results, resolved edge modes, durations, the
// run-start snapshot and the queued-job FIFO. Nothing here is persisted; the
// canvas document remains the only durable artifact.
package state

import (
	"sync"
	"time"

	"github.com/dukex/canvasflow/pkg/canvas"
)

// JobMode selects which coordinator entry point a queued job replays.
type JobMode string

const (
	JobRunNode   JobMode = "node"
	JobRunChain  JobMode = "chain"
	JobRunEntire JobMode = "entire"
)

// Job is one deferred run request.
type Job struct {
	Mode   JobMode `json:"mode"`
	Target string  `json:"target,omitempty"` // node id, empty for entire-graph runs
}

// State is the mutable run state of one workspace. All methods are safe for
// concurrent use.
type State struct {
	mu sync.RWMutex

	results   map[string]string
	edgeModes map[string]canvas.EdgeMode
	durations map[string]time.Duration
	running   string
	snapshot  map[string]struct{}
	queued    map[string]struct{}
	queue     []Job
}

func newState() *State {
	return &State{
		results:   make(map[string]string),
		edgeModes: make(map[string]canvas.EdgeMode),
		durations: make(map[string]time.Duration),
		snapshot:  make(map[string]struct{}),
		queued:    make(map[string]struct{}),
	}
}

// Result returns the last cached output of a node.
func (s *State) Result(nodeID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[nodeID]

	return result, ok
}

// SetResult caches a node's output.
func (s *State) SetResult(nodeID, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[nodeID] = result
}

// Results returns a copy of the whole result cache.
func (s *State) Results() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}

	return out
}

// EdgeMode returns the most recently resolved mode of an edge.
func (s *State) EdgeMode(edgeID string) (canvas.EdgeMode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mode, ok := s.edgeModes[edgeID]

	return mode, ok
}

// EdgeModes returns a copy of the whole edge-mode cache.
func (s *State) EdgeModes() map[string]canvas.EdgeMode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]canvas.EdgeMode, len(s.edgeModes))
	for k, v := range s.edgeModes {
		out[k] = v
	}

	return out
}

// SetEdgeMode records an edge's resolved mode.
func (s *State) SetEdgeMode(edgeID string, mode canvas.EdgeMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.edgeModes[edgeID] = mode
}

// SetRunning marks the node currently executing.
func (s *State) SetRunning(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = nodeID
}

// ClearRunning clears the currently-executing marker.
func (s *State) ClearRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = ""
}

// Running returns the id of the node currently executing, if any.
func (s *State) Running() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.running, s.running != ""
}

// SetDuration records how long a node's last dispatch took.
func (s *State) SetDuration(nodeID string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations[nodeID] = d
}

// Durations returns a copy of the duration metrics.
func (s *State) Durations() map[string]time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]time.Duration, len(s.durations))
	for k, v := range s.durations {
		out[k] = v
	}

	return out
}

// TakeSnapshot records the node ids present when a run starts. Sidecar
// maintenance later consults it so nodes the user deleted mid-run stay
// deleted.
func (s *State) TakeSnapshot(nodeIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		s.snapshot[id] = struct{}{}
	}
}

// InSnapshot reports whether a node existed at run start.
func (s *State) InSnapshot(nodeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.snapshot[nodeID]

	return ok
}

// Enqueue appends a deferred job and marks its target as queued.
func (s *State) Enqueue(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, job)

	if job.Target != "" {
		s.queued[job.Target] = struct{}{}
	}
}

// Dequeue pops the oldest deferred job.
func (s *State) Dequeue() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return Job{}, false
	}

	job := s.queue[0]
	s.queue = s.queue[1:]

	if job.Target != "" {
		delete(s.queued, job.Target)
	}

	return job, true
}

// QueuedNodes returns the ids of nodes with a pending queued run.
func (s *State) QueuedNodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.queued))
	for id := range s.queued {
		out = append(out, id)
	}

	return out
}

// QueueLen returns the number of deferred jobs.
func (s *State) QueueLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.queue)
}

// Reset drops every cache and the queue. Used when a workspace closes.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make(map[string]string)
	s.edgeModes = make(map[string]canvas.EdgeMode)
	s.durations = make(map[string]time.Duration)
	s.snapshot = make(map[string]struct{})
	s.queued = make(map[string]struct{})
	s.queue = nil
	s.running = ""
}
