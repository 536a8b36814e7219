package canvas

import "sort"

// Graph wraps a document with a role table and answers the structural queries
// scheduling and execution need. It never mutates the document.
type Graph struct {
	doc   *Document
	roles RoleTable

	nodes   map[string]*Node
	roleOf  map[string]Role
	auxKind map[string]AuxKind // sidecar node id -> kind
	auxSrc  map[string]string  // sidecar node id -> source node id
}

type auxKey struct {
	source string
	kind   AuxKind
}

// IncomingEdge describes one executable edge arriving at a node, with its
// logical parent (after sidecar redirection) and parsed variable name.
type IncomingEdge struct {
	ParentID string
	Edge     *Edge
	Variable string
}

// ExecEdge is a document edge with sidecar redirection applied to its origin.
type ExecEdge struct {
	Edge *Edge
	From string
	To   string
}

// NewGraph indexes a document under a role table.
func NewGraph(doc *Document, roles RoleTable) *Graph {
	g := &Graph{
		doc:     doc,
		roles:   roles,
		nodes:   make(map[string]*Node, len(doc.Nodes)),
		roleOf:  make(map[string]Role),
		auxKind: make(map[string]AuxKind),
		auxSrc:  make(map[string]string),
	}

	for _, n := range doc.Nodes {
		g.nodes[n.ID] = n

		if role, ok := ClassifyRole(n, roles); ok {
			g.roleOf[n.ID] = role
		}
	}

	// A reserved-label edge A -> S marks S as A's sidecar of that kind. With
	// a hand-edited document two sidecars of one kind can exist; the lexically
	// smallest node id wins so repeated lookups stay stable.
	claimed := make(map[auxKey]string)

	for _, e := range doc.Edges {
		_, kind, isAux := ParseLabel(e.Label)
		if !isAux {
			continue
		}

		if g.nodes[e.FromNode] == nil || g.nodes[e.ToNode] == nil {
			continue
		}

		key := auxKey{source: e.FromNode, kind: kind}
		if prev, ok := claimed[key]; ok && prev <= e.ToNode {
			continue
		}

		claimed[key] = e.ToNode
	}

	for key, sidecar := range claimed {
		g.auxKind[sidecar] = key.kind
		g.auxSrc[sidecar] = key.source
	}

	return g
}

// Document returns the wrapped document.
func (g *Graph) Document() *Document { return g.doc }

// Node returns a node by id.
func (g *Graph) Node(id string) *Node { return g.nodes[id] }

// Role returns the derived role of a node.
func (g *Graph) Role(id string) (Role, bool) {
	role, ok := g.roleOf[id]

	return role, ok
}

// IsAuxNode reports whether the node is a live sidecar of some source.
func (g *Graph) IsAuxNode(id string) bool {
	_, ok := g.auxKind[id]

	return ok
}

// AuxNodeFor returns the live sidecar of the given kind for a source node.
func (g *Graph) AuxNodeFor(sourceID string, kind AuxKind) (string, bool) {
	for sidecar, src := range g.auxSrc {
		if src == sourceID && g.auxKind[sidecar] == kind {
			return sidecar, true
		}
	}

	return "", false
}

// resolveOrigin collapses chains through output sidecars: an edge drawn out of
// a node that is the output sidecar of some source logically originates from
// that source. Sidecars can therefore be deleted or rewired without breaking
// the chains built on them.
func (g *Graph) resolveOrigin(id string) string {
	seen := make(map[string]bool)

	for {
		if seen[id] {
			return id
		}

		seen[id] = true

		if g.auxKind[id] != AuxOutput {
			return id
		}

		id = g.auxSrc[id]
	}
}

// ExecutableEdges returns every edge that participates in execution:
// auxiliary edges are stripped, sidecar redirection is applied to origins,
// and both endpoints must classify to a runnable role.
func (g *Graph) ExecutableEdges() []ExecEdge {
	edges := make([]ExecEdge, 0, len(g.doc.Edges))

	for _, e := range g.doc.Edges {
		if _, _, isAux := ParseLabel(e.Label); isAux {
			continue
		}

		from := g.resolveOrigin(e.FromNode)
		to := e.ToNode

		if from == to {
			continue
		}

		if role, ok := g.roleOf[from]; !ok || !role.Runnable() {
			continue
		}

		if role, ok := g.roleOf[to]; !ok || !role.Runnable() {
			continue
		}

		edges = append(edges, ExecEdge{Edge: e, From: from, To: to})
	}

	return edges
}

// IncomingVariables returns the executable edges arriving at a node with
// their parsed variable names, ordered by the parent's position (ascending y,
// ties by x) so concatenation order matches the visual layout.
func (g *Graph) IncomingVariables(nodeID string) []IncomingEdge {
	var incoming []IncomingEdge

	for _, ee := range g.ExecutableEdges() {
		if ee.To != nodeID {
			continue
		}

		variable, _, _ := ParseLabel(ee.Edge.Label)
		incoming = append(incoming, IncomingEdge{
			ParentID: ee.From,
			Edge:     ee.Edge,
			Variable: variable,
		})
	}

	sort.SliceStable(incoming, func(i, j int) bool {
		a, b := g.nodes[incoming[i].ParentID], g.nodes[incoming[j].ParentID]
		if a.Y != b.Y {
			return a.Y < b.Y
		}

		return a.X < b.X
	})

	return incoming
}

// ParentIDs returns the logical parents of a node in the same order as
// IncomingVariables, deduplicated.
func (g *Graph) ParentIDs(nodeID string) []string {
	var (
		parents []string
		seen    = make(map[string]bool)
	)

	for _, in := range g.IncomingVariables(nodeID) {
		if seen[in.ParentID] {
			continue
		}

		seen[in.ParentID] = true
		parents = append(parents, in.ParentID)
	}

	return parents
}
