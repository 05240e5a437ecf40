package math3d

// Varying2 holds one 2-component attribute per triangle corner. The vertex
// stage writes slot i for corner i, the fragment stage reads the weighted sum.
type Varying2 [3]Vec2

// Interpolate returns the barycentric combination of the three corners.
func (v Varying2) Interpolate(bar Vec3) Vec2 {
	return v[0].Scale(bar.X).Add(v[1].Scale(bar.Y)).Add(v[2].Scale(bar.Z))
}

// Varying3 holds one 3-component attribute per triangle corner.
type Varying3 [3]Vec3

// Interpolate returns the barycentric combination of the three corners.
func (v Varying3) Interpolate(bar Vec3) Vec3 {
	return v[0].Scale(bar.X).Add(v[1].Scale(bar.Y)).Add(v[2].Scale(bar.Z))
}

// Varying4 holds one homogeneous attribute per triangle corner.
type Varying4 [3]Vec4

// Interpolate returns the barycentric combination of the three corners.
func (v Varying4) Interpolate(bar Vec3) Vec4 {
	return v[0].Scale(bar.X).Add(v[1].Scale(bar.Y)).Add(v[2].Scale(bar.Z))
}

// Scalars holds one scalar per triangle corner, e.g. a per-vertex light intensity.
type Scalars [3]float64

// Interpolate returns the barycentric combination of the three corners.
func (s Scalars) Interpolate(bar Vec3) float64 {
	return s[0]*bar.X + s[1]*bar.Y + s[2]*bar.Z
}
