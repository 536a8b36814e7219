package runner

import "errors"

var (
	// ErrQueued means the request was deferred because a run already holds
	// the global slot. The job replays when the slot frees.
	ErrQueued = errors.New("run queued behind an in-flight run")

	// ErrNotRunnable means the target node has no runnable role: its color
	// is unmapped, or it is an output sidecar.
	ErrNotRunnable = errors.New("node is not a valid run target")
)
