package canvas_test

import (
	"testing"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/stretchr/testify/assert"
)

func testRoleTable() canvas.RoleTable {
	return canvas.NewRoleTable(map[string]canvas.Role{
		"6":       canvas.RolePrimaryModel,
		"5":       canvas.RoleSecondaryModel,
		"#AABB00": canvas.RoleTertiaryModel,
		"1":       canvas.RoleCode,
		"3":       canvas.RolePassthrough,
		"2":       canvas.RoleOutput,
	})
}

func TestClassifyRole(t *testing.T) {
	t.Parallel()

	table := testRoleTable()

	tests := []struct {
		name     string
		color    string
		wantRole canvas.Role
		wantOK   bool
	}{
		{name: "preset primary", color: "6", wantRole: canvas.RolePrimaryModel, wantOK: true},
		{name: "preset code", color: "1", wantRole: canvas.RoleCode, wantOK: true},
		{name: "hex case insensitive", color: "#aabb00", wantRole: canvas.RoleTertiaryModel, wantOK: true},
		{name: "hex with whitespace", color: " #AABB00 ", wantRole: canvas.RoleTertiaryModel, wantOK: true},
		{name: "unmapped preset", color: "4", wantOK: false},
		{name: "unmapped hex", color: "#123456", wantOK: false},
		{name: "no color", color: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			node := &canvas.Node{ID: "n", Type: canvas.NodeTypeText, Color: tt.color}
			role, ok := canvas.ClassifyRole(node, table)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantRole, role)
			}
		})
	}
}

func TestClassifyRole_NilNode(t *testing.T) {
	t.Parallel()

	_, ok := canvas.ClassifyRole(nil, testRoleTable())
	assert.False(t, ok)
}

func TestClassifyRole_GroupNeverClassifies(t *testing.T) {
	t.Parallel()

	node := &canvas.Node{ID: "g", Type: canvas.NodeTypeGroup, Color: "6"}
	_, ok := canvas.ClassifyRole(node, testRoleTable())
	assert.False(t, ok)
}

func TestRole_Runnable(t *testing.T) {
	t.Parallel()

	assert.True(t, canvas.RoleCode.Runnable())
	assert.True(t, canvas.RolePassthrough.Runnable())
	assert.True(t, canvas.RolePrimaryModel.Runnable())
	assert.False(t, canvas.RoleOutput.Runnable())
	assert.False(t, canvas.Role("").Runnable())
}

func TestRoleTable_ColorFor(t *testing.T) {
	t.Parallel()

	table := canvas.NewRoleTable(map[string]canvas.Role{
		"#ff0000": canvas.RoleOutput,
		"2":       canvas.RoleOutput,
		"6":       canvas.RolePrimaryModel,
	})

	// Preset tokens win over hex.
	assert.Equal(t, "2", table.ColorFor(canvas.RoleOutput))
	assert.Equal(t, "6", table.ColorFor(canvas.RolePrimaryModel))
	assert.Equal(t, "", table.ColorFor(canvas.RoleCode))
}

func TestRect_Intersects(t *testing.T) {
	t.Parallel()

	a := canvas.Rect{X: 0, Y: 0, Width: 100, Height: 100}

	assert.True(t, a.Intersects(canvas.Rect{X: 50, Y: 50, Width: 100, Height: 100}))
	assert.False(t, a.Intersects(canvas.Rect{X: 200, Y: 0, Width: 10, Height: 10}))
	// Touching edges do not overlap.
	assert.False(t, a.Intersects(canvas.Rect{X: 100, Y: 0, Width: 10, Height: 10}))
	// A buffer turns touch into overlap.
	assert.True(t, a.Expand(1).Intersects(canvas.Rect{X: 100, Y: 0, Width: 10, Height: 10}))
}
