package runner

import (
	"strings"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/dukex/canvasflow/pkg/state"
)

// EdgeResolution records how one incoming edge was used.
type EdgeResolution struct {
	Edge     *canvas.Edge
	ParentID string
	Variable string
	Mode     canvas.EdgeMode
}

// Resolution is the outcome of resolving a node's inputs against its own
// text.
type Resolution struct {
	// Template is the node's own text with every injection applied.
	Template string

	// ConcatBlock is the blank-line separated concatenation of the parent
	// results that were not injected, in parent-y order.
	ConcatBlock string

	// Merged is the full input: block, separator, template - or the
	// template alone when nothing was concatenated.
	Merged string

	Edges []EdgeResolution
}

// resolveInputs applies the inject-vs-concatenate rule: a parent result is
// injected when the node's raw text contains that edge's placeholder,
// otherwise it is concatenated ahead of the text. Edges whose parent has no
// cached result yet resolve to nothing and record no mode.
func resolveInputs(st *state.State, g *canvas.Graph, nodeID, content string) Resolution {
	res := Resolution{Template: content}

	var parts []string

	for _, in := range g.IncomingVariables(nodeID) {
		parentResult, ok := st.Result(in.ParentID)
		if !ok {
			continue
		}

		mode := canvas.ModeConcatenate

		if in.Variable != "" && strings.Contains(content, canvas.Placeholder(in.Variable)) {
			res.Template = strings.ReplaceAll(res.Template, canvas.Placeholder(in.Variable), parentResult)
			mode = canvas.ModeInject
		} else {
			parts = append(parts, parentResult)
		}

		res.Edges = append(res.Edges, EdgeResolution{
			Edge:     in.Edge,
			ParentID: in.ParentID,
			Variable: in.Variable,
			Mode:     mode,
		})
	}

	res.ConcatBlock = strings.Join(parts, "\n\n")

	if res.ConcatBlock == "" {
		res.Merged = res.Template
	} else {
		res.Merged = res.ConcatBlock + "\n\n" + res.Template
	}

	return res
}

// applyResolution records the resolved mode of every edge in workspace state
// and rewrites the persisted labels to the bare variable name with the
// display annotation recomputed from the latest outcome.
func applyResolution(st *state.State, res Resolution) {
	for _, er := range res.Edges {
		st.SetEdgeMode(er.Edge.ID, er.Mode)

		if er.Variable != "" {
			er.Edge.Label = canvas.AnnotateLabel(er.Variable, er.Mode)
		}
	}
}
