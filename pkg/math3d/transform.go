package math3d

// LookAt builds the view matrix for a camera at eye looking towards center.
//
// The basis is z = normalize(eye-center), x = normalize(up × z),
// y = normalize(z × x); the result is (Translate(eye) * R)^-1 = R^T * Translate(-eye),
// built directly. An up vector parallel to eye-center produces a degenerate
// (zero) basis.
func LookAt(eye, center, up Vec3) Mat4 {
	z := eye.Sub(center).Normalize()
	x := up.Cross(z).Normalize()
	y := z.Cross(x).Normalize()

	return Mat4{
		x.X, y.X, z.X, 0,
		x.Y, y.Y, z.Y, 0,
		x.Z, y.Z, z.Z, 0,
		-x.Dot(eye), -y.Dot(eye), -z.Dot(eye), 1,
	}
}

// Projection builds the minimal pinhole projection: the identity with
// element (3,2) set to coeff, where coeff = -1/distance(eye, center).
// It expects view space centred on the look-at target, so after the divide
// by w points on the target plane keep their x and y.
func Projection(coeff float64) Mat4 {
	m := Identity()
	m.Set(3, 2, coeff)
	return m
}

// Frustum builds the off-center perspective matrix mapping the view-space
// frustum [l,r]×[b,t] at distance n..f to clip space. After the divide, the
// near plane lands on z=-1 and the far plane on z=+1.
func Frustum(l, r, b, t, n, f float64) Mat4 {
	var m Mat4
	m.Set(0, 0, 2*n/(r-l))
	m.Set(0, 2, (r+l)/(r-l))
	m.Set(1, 1, 2*n/(t-b))
	m.Set(1, 2, (t+b)/(t-b))
	m.Set(2, 2, -(f+n)/(f-n))
	m.Set(2, 3, -2*f*n/(f-n))
	m.Set(3, 2, -1)
	return m
}

// Viewport maps normalized device coordinates [-1,1]² to the pixel rectangle
// [x,x+w]×[y,y+h] and z from [-1,1] to [0,1].
func Viewport(x, y, w, h int) Mat4 {
	// [-1,1] -> [0,2]
	translate := Translate(V3(1, 1, 1))
	// [0,2] -> [0,1]
	half := Scale(V3(0.5, 0.5, 0.5))
	// [0,1] -> [0,w]×[0,h]
	resize := Scale(V3(float64(w), float64(h), 1))
	// [0,w] -> [x,x+w]
	offset := Translate(V3(float64(x), float64(y), 0))

	return offset.Mul(resize).Mul(half).Mul(translate)
}
