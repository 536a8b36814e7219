// Package events defines the run-lifecycle notifications the coordinator
// publishes. The editor subscribes to them for its affordances: queued
// badges, the spinner on the running node, error toasts.
package events

import (
	"time"

	"github.com/dukex/canvasflow/pkg/canvas"
)

type EventType string

// Topic carries every canvasflow event.
const Topic = "canvasflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent  EventType = "run.started"
	RunFinishedEvent EventType = "run.finished"
	RunFailedEvent   EventType = "run.failed"
	RunQueuedEvent   EventType = "run.queued"

	NodeStartedEvent  EventType = "node.started"
	NodeFinishedEvent EventType = "node.finished"
	NodeFailedEvent   EventType = "node.failed"
)

// BaseEvent carries the fields shared by every event.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Workspace string    `json:"workspace"`
}

func (e BaseEvent) GetType() EventType { return e.Type }

// RunStarted signals a run acquired the global slot and began executing.
type RunStarted struct {
	BaseEvent

	Mode   string `json:"mode"`
	Target string `json:"target,omitempty"`
	Nodes  int    `json:"nodes"`
}

// RunFinished signals every node in the run completed.
type RunFinished struct {
	BaseEvent

	Mode     string        `json:"mode"`
	Duration time.Duration `json:"duration"`
}

// RunFailed signals a run aborted. Completed nodes keep their results.
type RunFailed struct {
	BaseEvent

	Mode  string `json:"mode"`
	Error string `json:"error"`
}

// RunQueued signals a request deferred because a run was already in flight.
type RunQueued struct {
	BaseEvent

	Mode   string `json:"mode"`
	Target string `json:"target,omitempty"`
}

// NodeStarted signals one node began dispatch.
type NodeStarted struct {
	BaseEvent

	NodeID string      `json:"node_id"`
	Role   canvas.Role `json:"role"`
}

// NodeFinished signals one node completed and its result is cached.
type NodeFinished struct {
	BaseEvent

	NodeID   string        `json:"node_id"`
	Role     canvas.Role   `json:"role"`
	Duration time.Duration `json:"duration"`
}

// NodeFailed signals one node's dispatch errored, aborting the run.
type NodeFailed struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Error  string `json:"error"`
}
