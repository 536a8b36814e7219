package canvas

import "strings"

// Role is the derived execution classification of a node. It is never stored
// in the document; it is computed from the node color through a RoleTable.
type Role string

const (
	RolePrimaryModel   Role = "primary-model"
	RoleSecondaryModel Role = "secondary-model"
	RoleTertiaryModel  Role = "tertiary-model"
	RoleCode           Role = "code"
	RolePassthrough    Role = "passthrough"
	RoleOutput         Role = "output"
)

// Roles lists every valid role value.
func Roles() []Role {
	return []Role{
		RolePrimaryModel,
		RoleSecondaryModel,
		RoleTertiaryModel,
		RoleCode,
		RolePassthrough,
		RoleOutput,
	}
}

// IsModel reports whether the role dispatches to the inference endpoint.
func (r Role) IsModel() bool {
	return r == RolePrimaryModel || r == RoleSecondaryModel || r == RoleTertiaryModel
}

// Runnable reports whether a node of this role is a valid run target.
func (r Role) Runnable() bool {
	return r != RoleOutput && r != ""
}

// RoleTable maps a canvas color token to a role. Keys are stored normalized.
type RoleTable map[string]Role

// NormalizeColor canonicalizes a raw color attribute for comparison: hex
// colors compare lowercased, preset tokens ("1".."6") compare as-is.
func NormalizeColor(raw string) string {
	c := strings.TrimSpace(raw)
	if strings.HasPrefix(c, "#") {
		return strings.ToLower(c)
	}

	return c
}

// NewRoleTable builds a table from raw color keys, normalizing each.
func NewRoleTable(colors map[string]Role) RoleTable {
	table := make(RoleTable, len(colors))
	for color, role := range colors {
		table[NormalizeColor(color)] = role
	}

	return table
}

// ClassifyRole derives a node's role from its color. Nodes with no color or a
// color absent from the table have no role and take no part in execution.
// Group nodes are visual only and never classify.
func ClassifyRole(node *Node, table RoleTable) (Role, bool) {
	if node == nil || node.Color == "" || node.Type == NodeTypeGroup {
		return "", false
	}

	role, ok := table[NormalizeColor(node.Color)]

	return role, ok
}

// ColorFor returns a color token mapped to the given role, preferring preset
// tokens over hex and lower tokens over higher so the pick is deterministic.
// Returns "" when the table maps nothing to the role.
func (t RoleTable) ColorFor(role Role) string {
	best := ""

	for color, r := range t {
		if r != role {
			continue
		}

		if best == "" || betterColor(color, best) {
			best = color
		}
	}

	return best
}

func betterColor(candidate, current string) bool {
	candHex := strings.HasPrefix(candidate, "#")
	curHex := strings.HasPrefix(current, "#")

	if candHex != curHex {
		return curHex
	}

	return candidate < current
}
