// Package placement finds non-overlapping canvas positions for newly created
// sidecar nodes.
package placement

import "github.com/dukex/canvasflow/pkg/canvas"

// Search geometry. The candidate list is finite by construction so the
// search always terminates; when it exhausts, overlap at the default
// position is accepted.
const (
	// Buffer is the clearance kept between a placed box and any obstacle.
	Buffer = 16.0

	verticalStep    = 60.0
	horizontalStep  = 60.0
	verticalSteps   = 24
	horizontalSteps = 10
)

// Point is a canvas coordinate.
type Point struct {
	X float64
	Y float64
}

// candidateOffsets precomputes the bounded search sequence: increasing
// vertical steps, and at each step a horizontal zig-zag outward from zero.
func candidateOffsets() []Point {
	offsets := make([]Point, 0, (verticalSteps+1)*(2*horizontalSteps+1))

	for v := 0; v <= verticalSteps; v++ {
		y := float64(v) * verticalStep

		offsets = append(offsets, Point{X: 0, Y: y})

		for h := 1; h <= horizontalSteps; h++ {
			x := float64(h) * horizontalStep
			offsets = append(offsets, Point{X: x, Y: y}, Point{X: -x, Y: y})
		}
	}

	return offsets
}

// FindFree returns the first candidate position around the default whose
// buffer-expanded box intersects no buffer-expanded obstacle. Falls back to
// the default position when every candidate collides.
func FindFree(defaultPos Point, width, height float64, obstacles []canvas.Rect) Point {
	expanded := make([]canvas.Rect, len(obstacles))
	for i, o := range obstacles {
		expanded[i] = o.Expand(Buffer)
	}

	for _, off := range candidateOffsets() {
		box := canvas.Rect{
			X:      defaultPos.X + off.X,
			Y:      defaultPos.Y + off.Y,
			Width:  width,
			Height: height,
		}.Expand(Buffer)

		if !collides(box, expanded) {
			return Point{X: defaultPos.X + off.X, Y: defaultPos.Y + off.Y}
		}
	}

	return defaultPos
}

func collides(box canvas.Rect, obstacles []canvas.Rect) bool {
	for _, o := range obstacles {
		if box.Intersects(o) {
			return true
		}
	}

	return false
}
