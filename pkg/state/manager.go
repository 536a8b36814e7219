package state

import (
	"sort"
	"sync"
)

// Manager keys workspace state strictly by workspace identity. State is
// created on first access and dropped explicitly on workspace close.
type Manager struct {
	mu         sync.Mutex
	workspaces map[string]*State
}

// NewManager returns an empty state manager.
func NewManager() *Manager {
	return &Manager{workspaces: make(map[string]*State)}
}

// Workspace returns the state for a key, creating it on first access.
func (m *Manager) Workspace(key string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.workspaces[key]
	if !ok {
		st = newState()
		m.workspaces[key] = st
	}

	return st
}

// Close drops a workspace's state entirely.
func (m *Manager) Close(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.workspaces, key)
}

// Keys returns the open workspace keys in sorted order.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.workspaces))
	for k := range m.workspaces {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Gate is the process-wide single run slot: exactly one logical run proceeds
// across all workspaces at a time, additional requests defer into the
// per-workspace queues until the holder releases.
type Gate struct {
	mu   sync.Mutex
	busy bool
}

// NewGate returns a released gate.
func NewGate() *Gate {
	return &Gate{}
}

// TryAcquire claims the run slot. It never blocks.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return false
	}

	g.busy = true

	return true
}

// Release frees the run slot.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.busy = false
}

// Busy reports whether a run is in flight.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.busy
}
