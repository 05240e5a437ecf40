package render

import (
	"fmt"
	"math"

	"github.com/taigrr/tinyrender/pkg/math3d"
)

// Model is the mesh a shader reads. Faces are triangles; nth selects the
// corner (0, 1 or 2). Texture lookups also receive the face so meshes with
// several materials can resolve them.
type Model interface {
	NumFaces() int
	Vert(face, nth int) math3d.Vec3
	UV(face, nth int) math3d.Vec2
	Normal(face, nth int) math3d.Vec3
	Diffuse(face int, uv math3d.Vec2) Color
	NormalMap(face int, uv math3d.Vec2) math3d.Vec3
}

// Shader is a two-stage shading program. Vertex is called for the three
// corners of a face before the face is rasterized and returns the clip-space
// position; Fragment receives perspective-corrected barycentric weights and
// returns the pixel color, or true to discard it.
type Shader interface {
	Vertex(face, nth int) math3d.Vec4
	Fragment(bar math3d.Vec3) (Color, bool)
}

// TransformSetter is implemented by shaders that take the combined
// model-view-projection matrix.
type TransformSetter interface {
	SetTransform(mvp math3d.Mat4)
}

// ModelSetter is implemented by shaders that read mesh attributes.
type ModelSetter interface {
	SetModel(m Model)
}

// ShaderKind names one of the built-in shading programs.
type ShaderKind int

const (
	ShaderUnlit ShaderKind = iota
	ShaderGouraud
	ShaderPhong
	ShaderBump
)

var shaderNames = [...]string{"unlit", "gouraud", "phong", "bump"}

// String returns the name accepted by ParseShaderKind.
func (k ShaderKind) String() string {
	if k < 0 || int(k) >= len(shaderNames) {
		return fmt.Sprintf("ShaderKind(%d)", int(k))
	}
	return shaderNames[k]
}

// ParseShaderKind maps a name such as "phong" to its ShaderKind.
func ParseShaderKind(s string) (ShaderKind, error) {
	for i, name := range shaderNames {
		if s == name {
			return ShaderKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown shader %q", s)
}

// NewShader builds the shading program for kind, lit from direction light.
func NewShader(kind ShaderKind, light math3d.Vec3) (Shader, error) {
	switch kind {
	case ShaderUnlit:
		return &UnlitShader{mvp: math3d.Identity()}, nil
	case ShaderGouraud:
		return &GouraudShader{mvp: math3d.Identity(), light: light.Normalize()}, nil
	case ShaderPhong:
		s := &PhongShader{light: light}
		s.SetTransform(math3d.Identity())
		return s, nil
	case ShaderBump:
		return &BumpShader{mvp: math3d.Identity(), light: light.Normalize()}, nil
	default:
		return nil, fmt.Errorf("unknown shader kind %v", kind)
	}
}

// UnlitShader outputs the diffuse texture with no lighting.
type UnlitShader struct {
	model Model
	mvp   math3d.Mat4
	face  int
	uv    math3d.Varying2
}

// SetTransform sets the model-view-projection matrix.
func (s *UnlitShader) SetTransform(mvp math3d.Mat4) { s.mvp = mvp }

// SetModel sets the mesh the shader reads.
func (s *UnlitShader) SetModel(m Model) { s.model = m }

// Vertex records the corner's texture coordinate and projects it.
func (s *UnlitShader) Vertex(face, nth int) math3d.Vec4 {
	s.face = face
	s.uv[nth] = s.model.UV(face, nth)
	return s.mvp.MulVec4(math3d.V4FromV3(s.model.Vert(face, nth), 1))
}

// Fragment samples the diffuse texture. It never discards.
func (s *UnlitShader) Fragment(bar math3d.Vec3) (Color, bool) {
	return s.model.Diffuse(s.face, s.uv.Interpolate(bar)), false
}

// GouraudShader computes diffuse intensity per vertex and interpolates it.
type GouraudShader struct {
	model     Model
	mvp       math3d.Mat4
	light     math3d.Vec3
	face      int
	uv        math3d.Varying2
	intensity math3d.Scalars
}

// SetTransform sets the model-view-projection matrix.
func (s *GouraudShader) SetTransform(mvp math3d.Mat4) { s.mvp = mvp }

// SetModel sets the mesh the shader reads.
func (s *GouraudShader) SetModel(m Model) { s.model = m }

// Vertex computes the corner's diffuse intensity, clamped to [0, 1], from
// its normal and the light direction.
func (s *GouraudShader) Vertex(face, nth int) math3d.Vec4 {
	s.face = face
	s.uv[nth] = s.model.UV(face, nth)
	s.intensity[nth] = clamp01(s.model.Normal(face, nth).Normalize().Dot(s.light))
	return s.mvp.MulVec4(math3d.V4FromV3(s.model.Vert(face, nth), 1))
}

// Fragment scales the diffuse texel by the interpolated intensity.
func (s *GouraudShader) Fragment(bar math3d.Vec3) (Color, bool) {
	c := s.model.Diffuse(s.face, s.uv.Interpolate(bar))
	return MultiplyColor(c, s.intensity.Interpolate(bar)), false
}

// PhongShader interpolates normals and perturbs them with a tangent-space
// normal map. The tangent frame is rebuilt per fragment from the triangle's
// NDC edges and UV deltas. Normals and light are carried in clip space.
type PhongShader struct {
	model Model
	mvp   math3d.Mat4
	mvpIT math3d.Mat4
	light math3d.Vec3 // as given
	lclip math3d.Vec3 // transformed by mvp
	face  int
	uv    math3d.Varying2
	nrm   math3d.Varying3
	ndc   math3d.Varying3
}

// SetTransform sets the model-view-projection matrix and derives the
// matrices for normals and the light.
func (s *PhongShader) SetTransform(mvp math3d.Mat4) {
	s.mvp = mvp
	s.mvpIT = mvp.InverseTranspose()
	s.lclip = mvp.MulVec3Dir(s.light).Normalize()
}

// SetModel sets the mesh the shader reads.
func (s *PhongShader) SetModel(m Model) { s.model = m }

// Vertex records the corner's texture coordinate, clip-space normal and NDC
// position for the tangent frame.
func (s *PhongShader) Vertex(face, nth int) math3d.Vec4 {
	s.face = face
	s.uv[nth] = s.model.UV(face, nth)
	s.nrm[nth] = s.mvpIT.MulVec3Dir(s.model.Normal(face, nth))
	clip := s.mvp.MulVec4(math3d.V4FromV3(s.model.Vert(face, nth), 1))
	s.ndc[nth] = clip.PerspectiveDivide()
	return clip
}

// Fragment perturbs the interpolated normal by the normal map and lights
// the diffuse texel with it.
func (s *PhongShader) Fragment(bar math3d.Vec3) (Color, bool) {
	bn := s.nrm.Interpolate(bar).Normalize()
	uv := s.uv.Interpolate(bar)

	tbn := tangentFrame(s.ndc, s.uv, bn)
	n := tbn.MulVec3(s.model.NormalMap(s.face, uv)).Normalize()

	c := s.model.Diffuse(s.face, uv)
	return MultiplyColor(c, math.Max(0, n.Dot(s.lclip))), false
}

// BumpShader applies a tangent-space normal map in object space, with the
// frame built from untransformed positions and normals.
type BumpShader struct {
	model Model
	mvp   math3d.Mat4
	light math3d.Vec3
	face  int
	uv    math3d.Varying2
	nrm   math3d.Varying3
	pos   math3d.Varying3
}

// SetTransform sets the model-view-projection matrix.
func (s *BumpShader) SetTransform(mvp math3d.Mat4) { s.mvp = mvp }

// SetModel sets the mesh the shader reads.
func (s *BumpShader) SetModel(m Model) { s.model = m }

// Vertex records the corner's object-space position and normal.
func (s *BumpShader) Vertex(face, nth int) math3d.Vec4 {
	s.face = face
	s.uv[nth] = s.model.UV(face, nth)
	s.nrm[nth] = s.model.Normal(face, nth)
	s.pos[nth] = s.model.Vert(face, nth)
	return s.mvp.MulVec4(math3d.V4FromV3(s.pos[nth], 1))
}

// Fragment is PhongShader.Fragment in object space.
func (s *BumpShader) Fragment(bar math3d.Vec3) (Color, bool) {
	vn := s.nrm.Interpolate(bar).Normalize()
	uv := s.uv.Interpolate(bar)

	tbn := tangentFrame(s.pos, s.uv, vn)
	n := tbn.MulVec3(s.model.NormalMap(s.face, uv)).Normalize()

	c := s.model.Diffuse(s.face, uv)
	return MultiplyColor(c, math.Max(0, n.Dot(s.light))), false
}

// tangentFrame solves for the tangent and bitangent of a triangle whose
// corners are p and texture coordinates uv, constrained to be orthogonal to
// n. The result maps tangent-space vectors into the space of p.
func tangentFrame(p math3d.Varying3, uv math3d.Varying2, n math3d.Vec3) math3d.Mat3 {
	a := math3d.Mat3FromRows(p[1].Sub(p[0]), p[2].Sub(p[0]), n)
	ai := a.Inverse()

	i := ai.MulVec3(math3d.V3(uv[1].X-uv[0].X, uv[2].X-uv[0].X, 0))
	j := ai.MulVec3(math3d.V3(uv[1].Y-uv[0].Y, uv[2].Y-uv[0].Y, 0))

	return math3d.Mat3FromCols(i.Normalize(), j.Normalize(), n)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
