package render

import (
	"math"

	"github.com/taigrr/tinyrender/pkg/math3d"
)

// degenerateArea is the smallest screen-space double area a triangle may
// have and still be rasterized.
const degenerateArea = 1e-2

// edgeEpsilon lets samples lying exactly on an edge shared by two faces
// land in both instead of neither.
const edgeEpsilon = 1e-9

// lineSteps is the number of parametric samples taken along each edge in
// line mode.
const lineSteps = 100

// Rasterizer draws screen-space primitives into a framebuffer and its depth
// buffer. It keeps no state between calls.
type Rasterizer struct {
	fb *Framebuffer
	zb *DepthBuffer
}

// NewRasterizer creates a rasterizer writing to fb and zb, which must have
// the same dimensions.
func NewRasterizer(fb *Framebuffer, zb *DepthBuffer) *Rasterizer {
	return &Rasterizer{fb: fb, zb: zb}
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int {
	return r.fb.Width
}

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int {
	return r.fb.Height
}

// Barycentric returns the weights of p with respect to triangle abc. The
// weights sum to one; a negative weight means p lies outside. A degenerate
// triangle yields (-1, 1, 1).
func Barycentric(a, b, c, p math3d.Vec2) math3d.Vec3 {
	u := math3d.V3(c.X-a.X, b.X-a.X, a.X-p.X).Cross(math3d.V3(c.Y-a.Y, b.Y-a.Y, a.Y-p.Y))
	if math.Abs(u.Z) < degenerateArea {
		return math3d.V3(-1, 1, 1)
	}
	return math3d.V3(1-(u.X+u.Y)/u.Z, u.Y/u.Z, u.X/u.Z)
}

// perspectiveCorrect reweights screen-space barycentrics by the clip-space w
// of each corner so attributes interpolate linearly in view space.
func perspectiveCorrect(bar math3d.Vec3, w [3]float64) math3d.Vec3 {
	c := math3d.V3(bar.X/w[0], bar.Y/w[1], bar.Z/w[2])
	return c.Scale(1 / c.Sum())
}

// Triangle rasterizes one face. Each point holds the post-viewport screen
// position in X, Y and Z and the clip-space w in W. The shader must already
// have run its vertex stage for the face. When colored is false every
// covered pixel is written white.
func (r *Rasterizer) Triangle(pts [3]math3d.Vec4, sh Shader, colored bool) {
	var w [3]float64
	for i, p := range pts {
		if p.W <= 0 || !finite(p) {
			return
		}
		w[i] = p.W
	}

	a, b, c := pts[0].Vec3().XY(), pts[1].Vec3().XY(), pts[2].Vec3().XY()
	if math.Abs(b.Sub(a).X*c.Sub(a).Y-b.Sub(a).Y*c.Sub(a).X) < degenerateArea {
		return
	}

	minX, maxX, ok := span(min3(a.X, b.X, c.X), max3(a.X, b.X, c.X), r.Width())
	if !ok {
		return
	}
	minY, maxY, ok := span(min3(a.Y, b.Y, c.Y), max3(a.Y, b.Y, c.Y), r.Height())
	if !ok {
		return
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := math3d.V2(float64(x)+0.5, float64(y)+0.5)
			bar := Barycentric(a, b, c, p)
			if bar.X < -edgeEpsilon || bar.Y < -edgeEpsilon || bar.Z < -edgeEpsilon {
				continue
			}

			z := bar.X*pts[0].Z + bar.Y*pts[1].Z + bar.Z*pts[2].Z
			if !r.zb.Passes(x, y, z) {
				continue
			}

			color, discard := sh.Fragment(perspectiveCorrect(bar, w))
			if discard {
				continue
			}
			if !colored {
				color = ColorWhite
			}
			r.zb.Set(x, y, z)
			r.fb.SetPixel(x, y, color)
		}
	}
}

// Points plots the corners of a face in white.
func (r *Rasterizer) Points(pts [3]math3d.Vec4) {
	for _, p := range pts {
		if p.W <= 0 || !finite(p) {
			continue
		}
		r.fb.SetPixel(int(math.Floor(p.X)), int(math.Floor(p.Y)), ColorWhite)
	}
}

// Lines traces the edges of a face in white by sampling each edge at a
// fixed number of parametric steps. Long edges show gaps.
func (r *Rasterizer) Lines(pts [3]math3d.Vec4) {
	for _, p := range pts {
		if p.W <= 0 || !finite(p) {
			return
		}
	}
	for i := range 3 {
		a, b := pts[i].Vec3().XY(), pts[(i+1)%3].Vec3().XY()
		d := b.Sub(a)
		for step := 0; step <= lineSteps; step++ {
			q := a.Add(d.Scale(float64(step) / lineSteps))
			r.fb.SetPixel(int(math.Floor(q.X)), int(math.Floor(q.Y)), ColorWhite)
		}
	}
}

// span clips the range [lo, hi] to the pixel indices [0, n-1]. It reports
// false when the range misses them, and clamps before converting so far
// off-screen coordinates cannot overflow int.
func span(lo, hi float64, n int) (first, last int, ok bool) {
	lo, hi = math.Floor(lo), math.Ceil(hi)
	if hi < 0 || lo > float64(n-1) {
		return 0, 0, false
	}
	return int(math.Max(0, lo)), int(math.Min(float64(n-1), hi)), true
}

func finite(v math3d.Vec4) bool {
	for _, c := range [...]float64{v.X, v.Y, v.Z, v.W} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
