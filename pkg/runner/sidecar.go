package runner

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/dukex/canvasflow/pkg/placement"
)

// Sidecar geometry. Sizes grow with content up to a cap so long results stay
// readable without swallowing the canvas.
const (
	sidecarGap       = 40.0
	sidecarMinWidth  = 360.0
	sidecarMaxWidth  = 560.0
	sidecarMinHeight = 100.0
	sidecarMaxHeight = 640.0
	sidecarLineStep  = 24.0
	sidecarCharStep  = 8.0
)

// sidecarSize derives a box size from the text to display.
func sidecarSize(text string) (width, height float64) {
	lines := strings.Split(text, "\n")

	longest := 0
	for _, line := range lines {
		if len(line) > longest {
			longest = len(line)
		}
	}

	width = clamp(float64(longest)*sidecarCharStep, sidecarMinWidth, sidecarMaxWidth)
	height = clamp(float64(len(lines))*sidecarLineStep+2*sidecarLineStep, sidecarMinHeight, sidecarMaxHeight)

	return width, height
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// sidecarAnchor returns the default position for a sidecar of the given kind:
// output goes below its source, prompt to the left, thinking to the right.
func sidecarAnchor(source *canvas.Node, kind canvas.AuxKind, width float64) placement.Point {
	switch kind {
	case canvas.AuxPrompt:
		return placement.Point{X: source.X - width - sidecarGap, Y: source.Y}
	case canvas.AuxThinking:
		return placement.Point{X: source.X + source.Width + sidecarGap, Y: source.Y}
	default:
		return placement.Point{X: source.X, Y: source.Y + source.Height + sidecarGap}
	}
}

// findSidecar scans the live document for the sidecar of the given kind
// attached to a source via a reserved-label edge. With duplicates the
// lexically smallest node id wins, matching graph indexing, so repeated
// lookups return the same node.
func findSidecar(doc *canvas.Document, sourceID string, kind canvas.AuxKind) (node *canvas.Node, edge *canvas.Edge) {
	for _, e := range doc.Edges {
		if e.FromNode != sourceID {
			continue
		}

		_, k, isAux := canvas.ParseLabel(e.Label)
		if !isAux || k != kind {
			continue
		}

		candidate := doc.Node(e.ToNode)
		if candidate == nil {
			continue
		}

		if node == nil || candidate.ID < node.ID {
			node, edge = candidate, e
		}
	}

	return node, edge
}

// ensureSidecar writes a result into the source's sidecar of the given kind,
// updating the existing node in place (position preserved) or creating a new
// node and reserved-label edge when none exists. At most one live sidecar per
// kind per source results, so re-running a node replaces its visible output
// instead of duplicating it.
func ensureSidecar(doc *canvas.Document, source *canvas.Node, kind canvas.AuxKind, text, color string) *canvas.Node {
	width, height := sidecarSize(text)

	if node, _ := findSidecar(doc, source.ID, kind); node != nil {
		node.Text = text
		node.Width = width
		node.Height = height

		return node
	}

	node := &canvas.Node{
		ID:     uuid.NewString(),
		Type:   canvas.NodeTypeText,
		Width:  width,
		Height: height,
		Color:  color,
		Text:   text,
	}

	obstacles := make([]canvas.Rect, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.ID == source.ID {
			continue
		}

		obstacles = append(obstacles, n.Bounds())
	}

	pos := placement.FindFree(sidecarAnchor(source, kind, width), width, height, obstacles)
	node.X = pos.X
	node.Y = pos.Y

	doc.Nodes = append(doc.Nodes, node)
	doc.Edges = append(doc.Edges, &canvas.Edge{
		ID:       uuid.NewString(),
		FromNode: source.ID,
		ToNode:   node.ID,
		FromSide: sideFor(kind, false),
		ToSide:   sideFor(kind, true),
		Label:    string(kind),
	})

	return node
}

func sideFor(kind canvas.AuxKind, target bool) string {
	switch kind {
	case canvas.AuxPrompt:
		if target {
			return "right"
		}

		return "left"
	case canvas.AuxThinking:
		if target {
			return "left"
		}

		return "right"
	default:
		if target {
			return "top"
		}

		return "bottom"
	}
}

// Code fence handling for code-execution nodes.

const codeFence = "```"

// isFenced reports whether the text already starts and ends with fence lines.
func isFenced(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, codeFence) {
		return false
	}

	lines := strings.Split(trimmed, "\n")

	return len(lines) >= 2 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), codeFence)
}

// wrapFences wraps bare text in a python code fence. Idempotent.
func wrapFences(text string) string {
	if isFenced(text) {
		return text
	}

	return codeFence + "python\n" + strings.TrimRight(text, "\n") + "\n" + codeFence
}

// stripFences removes the surrounding fence lines, returning the inner code.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !isFenced(trimmed) {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")

	return strings.Join(lines[1:len(lines)-1], "\n")
}
