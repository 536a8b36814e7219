// Package canvas defines the canvas document model and the structural queries
// the execution engine runs against it.
package canvas

// NodeType represents the kind of a canvas node.
type NodeType string

const (
	NodeTypeText  NodeType = "text"  // Inline markdown/text content
	NodeTypeFile  NodeType = "file"  // Content lives in an external file
	NodeTypeGroup NodeType = "group" // Visual grouping only, never executed
)

// Node is one box on the canvas. Geometry, color and content are owned by the
// editor; the engine only ever rewrites Text, Width and Height of nodes it
// manages itself.
type Node struct {
	ID     string   `json:"id"              validate:"required"`
	Type   NodeType `json:"type"            validate:"required"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Color  string   `json:"color,omitempty"`
	Text   string   `json:"text,omitempty"`
	File   string   `json:"file,omitempty"`
	Label  string   `json:"label,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID       string `json:"id"       validate:"required"`
	FromNode string `json:"fromNode" validate:"required"`
	ToNode   string `json:"toNode"   validate:"required"`
	FromSide string `json:"fromSide,omitempty"`
	ToSide   string `json:"toSide,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Document is the persisted form of one canvas.
type Document struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Node returns the node with the given id, or nil.
func (d *Document) Node(id string) *Node {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// NodeIDs returns the ids of every node in document order.
func (d *Document) NodeIDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		ids = append(ids, n.ID)
	}

	return ids
}

// Rect is an axis-aligned bounding box in canvas coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Bounds returns the node's bounding box.
func (n *Node) Bounds() Rect {
	return Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// Expand grows the rect by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
}

// Intersects reports whether two rects overlap. Touching edges do not count.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Width &&
		o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height &&
		o.Y < r.Y+r.Height
}
