package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/dukex/canvasflow/pkg/state"
)

func resolveRoleTable() canvas.RoleTable {
	return canvas.NewRoleTable(map[string]canvas.Role{
		"3": canvas.RolePassthrough,
		"2": canvas.RoleOutput,
	})
}

func resolveDoc() *canvas.Document {
	return &canvas.Document{
		Nodes: []*canvas.Node{
			{ID: "top", Type: canvas.NodeTypeText, Y: 0, Color: "3", Text: "first"},
			{ID: "bottom", Type: canvas.NodeTypeText, Y: 100, Color: "3", Text: "second"},
			{ID: "sink", Type: canvas.NodeTypeText, Y: 200, Color: "3"},
		},
		Edges: []*canvas.Edge{
			{ID: "e-top", FromNode: "top", ToNode: "sink", Label: "intro"},
			{ID: "e-bottom", FromNode: "bottom", ToNode: "sink", Label: "detail"},
		},
	}
}

func TestResolveInputsInjects(t *testing.T) {
	g := canvas.NewGraph(resolveDoc(), resolveRoleTable())

	st := state.NewManager().Workspace("w")
	st.SetResult("top", "TOP RESULT")
	st.SetResult("bottom", "BOTTOM RESULT")

	content := "Use {{var:intro}} here and {{var:intro}} again."
	res := resolveInputs(st, g, "sink", content)

	assert.Equal(t, "Use TOP RESULT here and TOP RESULT again.", res.Template)
	assert.Equal(t, "BOTTOM RESULT", res.ConcatBlock)
	assert.Equal(t, "BOTTOM RESULT\n\nUse TOP RESULT here and TOP RESULT again.", res.Merged)

	require.Len(t, res.Edges, 2)
	assert.Equal(t, canvas.ModeInject, res.Edges[0].Mode)
	assert.Equal(t, canvas.ModeConcatenate, res.Edges[1].Mode)
}

func TestResolveInputsConcatenatesInParentOrder(t *testing.T) {
	g := canvas.NewGraph(resolveDoc(), resolveRoleTable())

	st := state.NewManager().Workspace("w")
	st.SetResult("top", "first result")
	st.SetResult("bottom", "second result")

	res := resolveInputs(st, g, "sink", "the template")

	assert.Equal(t, "first result\n\nsecond result", res.ConcatBlock)
	assert.Equal(t, "first result\n\nsecond result\n\nthe template", res.Merged)
}

func TestResolveInputsSkipsParentsWithoutResults(t *testing.T) {
	g := canvas.NewGraph(resolveDoc(), resolveRoleTable())

	st := state.NewManager().Workspace("w")
	st.SetResult("bottom", "only this")

	res := resolveInputs(st, g, "sink", "body {{var:intro}}")

	// The placeholder stays: its parent has not produced a result yet.
	assert.Equal(t, "body {{var:intro}}", res.Template)
	assert.Equal(t, "only this", res.ConcatBlock)
	require.Len(t, res.Edges, 1)
	assert.Equal(t, "e-bottom", res.Edges[0].Edge.ID)
}

func TestResolveInputsTemplateAloneWhenAllInjected(t *testing.T) {
	g := canvas.NewGraph(resolveDoc(), resolveRoleTable())

	st := state.NewManager().Workspace("w")
	st.SetResult("top", "A")
	st.SetResult("bottom", "B")

	res := resolveInputs(st, g, "sink", "{{var:intro}} + {{var:detail}}")

	assert.Empty(t, res.ConcatBlock)
	assert.Equal(t, "A + B", res.Merged)
}

func TestApplyResolutionRecordsModesAndNormalizesLabels(t *testing.T) {
	doc := resolveDoc()
	doc.Edges[0].Label = "intro (concatenated)"

	g := canvas.NewGraph(doc, resolveRoleTable())

	st := state.NewManager().Workspace("w")
	st.SetResult("top", "TOP")
	st.SetResult("bottom", "BOTTOM")

	res := resolveInputs(st, g, "sink", "now {{var:intro}}")
	applyResolution(st, res)

	mode, ok := st.EdgeMode("e-top")
	require.True(t, ok)
	assert.Equal(t, canvas.ModeInject, mode)
	assert.Equal(t, "intro (injected)", doc.Edges[0].Label)

	mode, ok = st.EdgeMode("e-bottom")
	require.True(t, ok)
	assert.Equal(t, canvas.ModeConcatenate, mode)
	assert.Equal(t, "detail (concatenated)", doc.Edges[1].Label)
}
