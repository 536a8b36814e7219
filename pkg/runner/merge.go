package runner

import (
	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/dukex/canvasflow/pkg/state"
)

// mergeLiveEdits folds the latest on-disk document state into the in-memory
// run copy before a checkpoint write. The engine owns only the text and size
// of the nodes it manages; everything the editor may have touched mid-run is
// taken from the latest state:
//
//   - position, size and color of shared non-auxiliary nodes come from latest
//   - nodes that were present at run start but are gone from latest were
//     deleted by the user and stay deleted, along with their edges
//   - nodes and edges that exist only in latest were added by the user and
//     are carried over
func mergeLiveEdits(ours, latest *canvas.Document, st *state.State, isAux func(id string) bool) {
	latestNodes := make(map[string]*canvas.Node, len(latest.Nodes))
	for _, n := range latest.Nodes {
		latestNodes[n.ID] = n
	}

	kept := ours.Nodes[:0]
	removed := make(map[string]bool)

	for _, n := range ours.Nodes {
		live, shared := latestNodes[n.ID]

		if !shared && st.InSnapshot(n.ID) {
			removed[n.ID] = true

			continue
		}

		if shared && !isAux(n.ID) {
			n.X = live.X
			n.Y = live.Y
			n.Width = live.Width
			n.Height = live.Height
			n.Color = live.Color
		}

		kept = append(kept, n)
	}

	ours.Nodes = kept

	ourNodes := make(map[string]bool, len(ours.Nodes))
	for _, n := range ours.Nodes {
		ourNodes[n.ID] = true
	}

	for _, n := range latest.Nodes {
		if !ourNodes[n.ID] && !st.InSnapshot(n.ID) {
			ours.Nodes = append(ours.Nodes, n)
			ourNodes[n.ID] = true
		}
	}

	ourEdges := make(map[string]bool, len(ours.Edges))
	keptEdges := ours.Edges[:0]

	for _, e := range ours.Edges {
		if removed[e.FromNode] || removed[e.ToNode] {
			continue
		}

		keptEdges = append(keptEdges, e)
		ourEdges[e.ID] = true
	}

	ours.Edges = keptEdges

	for _, e := range latest.Edges {
		if !ourEdges[e.ID] && ourNodes[e.FromNode] && ourNodes[e.ToNode] {
			ours.Edges = append(ours.Edges, e)
		}
	}
}
