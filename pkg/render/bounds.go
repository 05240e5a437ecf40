package render

import (
	"math"

	"github.com/taigrr/tinyrender/pkg/math3d"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// BoundsOf returns the smallest box holding every point, or a zero box for
// no points.
func BoundsOf(points []math3d.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	b := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// Center returns the center of the box.
func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the dimensions of the box.
func (b AABB) Size() math3d.Vec3 {
	return b.Max.Sub(b.Min)
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]math3d.Vec3 {
	return [8]math3d.Vec3{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	}
}

// Transform returns the box bounding all eight transformed corners.
func (b AABB) Transform(m math3d.Mat4) AABB {
	corners := b.Corners()
	for i := range corners {
		corners[i] = m.MulVec3(corners[i])
	}
	return BoundsOf(corners[:])
}

// FitTransform returns the uniform scale and translation that centres the
// box on the origin with its longest side equal to size. A flat or empty
// box is only centred.
func (b AABB) FitTransform(size float64) math3d.Mat4 {
	s := b.Size()
	longest := math.Max(s.X, math.Max(s.Y, s.Z))
	center := math3d.Translate(b.Center().Negate())
	if longest <= 0 {
		return center
	}
	k := size / longest
	return math3d.Scale(math3d.V3(k, k, k)).Mul(center)
}

// Plane is the half-space Normal·p + D >= 0.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

// Normalize scales the plane so its normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1 / l)
	p.D /= l
}

// DistanceToPoint returns the signed distance to point; positive is inside.
func (p Plane) DistanceToPoint(point math3d.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// ViewVolume is the region of world space that lands inside the clip
// volume. Normals point inward.
type ViewVolume struct {
	Planes []Plane
}

// NewViewVolume extracts the bounding planes of a view-projection matrix
// (Gribb/Hartmann). With depthPlanes false only the four side planes and the
// w > 0 plane are kept, which suits projections that do not bound depth.
func NewViewVolume(m math3d.Mat4, depthPlanes bool) ViewVolume {
	row := func(i int) (math3d.Vec3, float64) {
		r := m.Row(i)
		return r.Vec3(), r.W
	}
	r0, d0 := row(0)
	r1, d1 := row(1)
	r2, d2 := row(2)
	r3, d3 := row(3)

	planes := []Plane{
		{r3.Add(r0), d3 + d0}, // left
		{r3.Sub(r0), d3 - d0}, // right
		{r3.Add(r1), d3 + d1}, // bottom
		{r3.Sub(r1), d3 - d1}, // top
	}
	if depthPlanes {
		planes = append(planes,
			Plane{r3.Add(r2), d3 + d2}, // near
			Plane{r3.Sub(r2), d3 - d2}, // far
		)
	} else {
		planes = append(planes, Plane{r3, d3}) // in front of the eye
	}
	for i := range planes {
		planes[i].Normalize()
	}
	return ViewVolume{Planes: planes}
}

// IntersectsAABB reports whether any part of box may be visible. It tests
// the corner furthest along each plane normal, so it can report boxes near
// a volume edge as visible when they are not.
func (v ViewVolume) IntersectsAABB(box AABB) bool {
	for _, plane := range v.Planes {
		p := math3d.V3(
			pick(plane.Normal.X >= 0, box.Max.X, box.Min.X),
			pick(plane.Normal.Y >= 0, box.Max.Y, box.Min.Y),
			pick(plane.Normal.Z >= 0, box.Max.Z, box.Min.Z),
		)
		if plane.DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

// ViewVolume returns the camera's visible region in world space.
func (c *Camera) ViewVolume() ViewVolume {
	return NewViewVolume(c.ViewProjectionMatrix(), c.Projection == ProjectionFrustum)
}
