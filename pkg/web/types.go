package web

// RunRequest asks the coordinator to execute part of a workspace's canvas.
type RunRequest struct {
	Mode   string `json:"mode"              validate:"required,oneof=node chain graph"`
	NodeID string `json:"node_id,omitempty" validate:"required_unless=Mode graph"`
}

// RunResponse reports how a run request was handled.
type RunResponse struct {
	Status string `json:"status"` // "completed" or "queued"
	Mode   string `json:"mode"`
	NodeID string `json:"node_id,omitempty"`
}

// StateResponse is the run state of one workspace.
type StateResponse struct {
	Workspace string            `json:"workspace"`
	Results   map[string]string `json:"results"`
	EdgeModes map[string]string `json:"edge_modes"`
	Durations map[string]int64  `json:"durations_ms"`
	Running   string            `json:"running,omitempty"`
	Queued    []string          `json:"queued"`
}
