package render

import (
	"fmt"
	"math"
)

// DepthTest selects which of two depths wins a pixel.
type DepthTest int

const (
	// DepthLess keeps the smaller depth. Candidates outside (0, 1) are
	// rejected. Pairs with the frustum projection.
	DepthLess DepthTest = iota
	// DepthGreater keeps the larger depth, unbounded. Pairs with the
	// pinhole projection.
	DepthGreater
)

// String returns "less" or "greater".
func (t DepthTest) String() string {
	switch t {
	case DepthLess:
		return "less"
	case DepthGreater:
		return "greater"
	default:
		return fmt.Sprintf("DepthTest(%d)", int(t))
	}
}

// Worst returns the value a fresh buffer holds: one every candidate beats.
func (t DepthTest) Worst() float64 {
	if t == DepthGreater {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// Accept reports whether candidate z replaces stored.
func (t DepthTest) Accept(z, stored float64) bool {
	if t == DepthGreater {
		return z > stored
	}
	return z > 0 && z < 1 && z < stored
}

// DepthBuffer stores one depth per pixel, row-major like Framebuffer.
type DepthBuffer struct {
	Width  int
	Height int
	Test   DepthTest
	Values []float64
}

// NewDepthBuffer allocates a buffer already cleared for test.
func NewDepthBuffer(width, height int, test DepthTest) *DepthBuffer {
	d := &DepthBuffer{
		Width:  width,
		Height: height,
		Test:   test,
		Values: make([]float64, width*height),
	}
	d.Clear()
	return d
}

// Clear resets every entry to the worst value for the buffer's test.
func (d *DepthBuffer) Clear() {
	n := len(d.Values)
	if n == 0 {
		return
	}
	d.Values[0] = d.Test.Worst()
	for i := 1; i < n; i *= 2 {
		copy(d.Values[i:], d.Values[:i])
	}
}

// At returns the stored depth, or the worst value when out of bounds.
func (d *DepthBuffer) At(x, y int) float64 {
	if x < 0 || x >= d.Width || y < 0 || y >= d.Height {
		return d.Test.Worst()
	}
	return d.Values[y*d.Width+x]
}

// Set stores z at (x, y). Out-of-bounds writes are ignored.
func (d *DepthBuffer) Set(x, y int, z float64) {
	if x < 0 || x >= d.Width || y < 0 || y >= d.Height {
		return
	}
	d.Values[y*d.Width+x] = z
}

// Passes reports whether z would win (x, y). Out-of-bounds pixels never pass.
func (d *DepthBuffer) Passes(x, y int, z float64) bool {
	if x < 0 || x >= d.Width || y < 0 || y >= d.Height {
		return false
	}
	return d.Test.Accept(z, d.Values[y*d.Width+x])
}
