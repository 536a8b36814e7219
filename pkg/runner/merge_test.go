package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/dukex/canvasflow/pkg/state"
)

func noAux(string) bool { return false }

func TestMergeLiveEditsCopiesGeometryFromLatest(t *testing.T) {
	ours := &canvas.Document{Nodes: []*canvas.Node{
		{ID: "a", Type: canvas.NodeTypeText, X: 0, Y: 0, Width: 100, Height: 50, Color: "1", Text: "engine text"},
	}}
	latest := &canvas.Document{Nodes: []*canvas.Node{
		{ID: "a", Type: canvas.NodeTypeText, X: 300, Y: 400, Width: 120, Height: 60, Color: "5", Text: "stale text"},
	}}

	st := state.NewManager().Workspace("w")
	st.TakeSnapshot([]string{"a"})

	mergeLiveEdits(ours, latest, st, noAux)

	node := ours.Node("a")
	require.NotNil(t, node)
	assert.Equal(t, 300.0, node.X)
	assert.Equal(t, 400.0, node.Y)
	assert.Equal(t, 120.0, node.Width)
	assert.Equal(t, "5", node.Color)

	// Text is engine-owned and never overwritten by the merge.
	assert.Equal(t, "engine text", node.Text)
}

func TestMergeLiveEditsKeepsUserDeletions(t *testing.T) {
	ours := &canvas.Document{
		Nodes: []*canvas.Node{
			{ID: "a", Type: canvas.NodeTypeText},
			{ID: "gone", Type: canvas.NodeTypeText},
		},
		Edges: []*canvas.Edge{
			{ID: "e1", FromNode: "a", ToNode: "gone"},
		},
	}
	latest := &canvas.Document{Nodes: []*canvas.Node{
		{ID: "a", Type: canvas.NodeTypeText},
	}}

	st := state.NewManager().Workspace("w")
	st.TakeSnapshot([]string{"a", "gone"})

	mergeLiveEdits(ours, latest, st, noAux)

	assert.Nil(t, ours.Node("gone"))
	assert.Empty(t, ours.Edges)
}

func TestMergeLiveEditsKeepsFreshSidecars(t *testing.T) {
	// A sidecar created during this run is absent from both latest and the
	// snapshot; it must survive the merge.
	ours := &canvas.Document{
		Nodes: []*canvas.Node{
			{ID: "a", Type: canvas.NodeTypeText},
			{ID: "sidecar", Type: canvas.NodeTypeText, Text: "result"},
		},
		Edges: []*canvas.Edge{
			{ID: "e1", FromNode: "a", ToNode: "sidecar", Label: "output"},
		},
	}
	latest := &canvas.Document{Nodes: []*canvas.Node{
		{ID: "a", Type: canvas.NodeTypeText},
	}}

	st := state.NewManager().Workspace("w")
	st.TakeSnapshot([]string{"a"})

	mergeLiveEdits(ours, latest, st, func(id string) bool { return id == "sidecar" })

	require.NotNil(t, ours.Node("sidecar"))
	assert.Len(t, ours.Edges, 1)
}

func TestMergeLiveEditsCarriesUserAdditions(t *testing.T) {
	ours := &canvas.Document{Nodes: []*canvas.Node{
		{ID: "a", Type: canvas.NodeTypeText},
	}}
	latest := &canvas.Document{
		Nodes: []*canvas.Node{
			{ID: "a", Type: canvas.NodeTypeText},
			{ID: "new", Type: canvas.NodeTypeText, Text: "added mid-run"},
		},
		Edges: []*canvas.Edge{
			{ID: "e-new", FromNode: "a", ToNode: "new", Label: "fresh"},
		},
	}

	st := state.NewManager().Workspace("w")
	st.TakeSnapshot([]string{"a"})

	mergeLiveEdits(ours, latest, st, noAux)

	require.NotNil(t, ours.Node("new"))
	require.Len(t, ours.Edges, 1)
	assert.Equal(t, "e-new", ours.Edges[0].ID)
}

func TestMergeLiveEditsLeavesSidecarGeometryAlone(t *testing.T) {
	ours := &canvas.Document{Nodes: []*canvas.Node{
		{ID: "side", Type: canvas.NodeTypeText, X: 10, Y: 20, Width: 360, Height: 100},
	}}
	latest := &canvas.Document{Nodes: []*canvas.Node{
		{ID: "side", Type: canvas.NodeTypeText, X: 999, Y: 999, Width: 1, Height: 1},
	}}

	st := state.NewManager().Workspace("w")
	st.TakeSnapshot([]string{"side"})

	mergeLiveEdits(ours, latest, st, func(id string) bool { return id == "side" })

	node := ours.Node("side")
	require.NotNil(t, node)
	assert.Equal(t, 10.0, node.X)
	assert.Equal(t, 360.0, node.Width)
}
