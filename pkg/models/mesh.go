// Package models loads triangle meshes and their textures for the renderer.
package models

import (
	"github.com/taigrr/tinyrender/pkg/math3d"
	"github.com/taigrr/tinyrender/pkg/render"
)

// Mesh is an indexed triangle mesh. It implements render.Model.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []Material
	Bounds    render.AABB
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	UV       math3d.Vec2
}

// Face is a triangle with vertex indices and a material reference.
type Face struct {
	V        [3]int // indices into Mesh.Vertices
	Material int    // index into Mesh.Materials, -1 for none
}

// Material is the surface description shared by a group of faces. Either
// texture may be nil.
type Material struct {
	Name      string
	BaseColor render.Color
	Diffuse   *render.Texture
	NormalMap *render.Texture
}

// flatNormal is the tangent-space normal of an unperturbed surface.
var flatNormal = math3d.V3(0, 0, 1)

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// CalculateBounds recomputes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	pts := make([]math3d.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		pts[i] = v.Position
	}
	m.Bounds = render.BoundsOf(pts)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// HasNormals reports whether any vertex carries a normal.
func (m *Mesh) HasNormals() bool {
	for _, v := range m.Vertices {
		if v.Normal.Len() > 0.001 {
			return true
		}
	}
	return false
}

// CalculateSmoothNormals replaces every normal with the area-weighted
// average of the adjacent face normals. Faces wind counter-clockwise.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position
		n := v1.Sub(v0).Cross(v2.Sub(v0)) // not normalized: larger faces weigh more

		for _, idx := range f.V {
			m.Vertices[idx].Normal = m.Vertices[idx].Normal.Add(n)
		}
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// Transform applies mat to every position and its inverse transpose to
// every normal.
func (m *Mesh) Transform(mat math3d.Mat4) {
	nmat := mat.InverseTranspose()
	for i := range m.Vertices {
		m.Vertices[i].Position = mat.MulVec3(m.Vertices[i].Position)
		m.Vertices[i].Normal = nmat.MulVec3Dir(m.Vertices[i].Normal).Normalize()
	}
	m.CalculateBounds()
}

// Fit scales and centres the mesh so its longest side equals size.
func (m *Mesh) Fit(size float64) {
	m.Transform(m.Bounds.FitTransform(size))
}

// GetMaterial returns the material at index i, or nil.
func (m *Mesh) GetMaterial(i int) *Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return &m.Materials[i]
}

// MaterialCount returns the number of materials.
func (m *Mesh) MaterialCount() int {
	return len(m.Materials)
}

func (m *Mesh) vertex(face, nth int) MeshVertex {
	return m.Vertices[m.Faces[face].V[nth]]
}

// NumFaces returns the number of triangles.
func (m *Mesh) NumFaces() int { return len(m.Faces) }

// Vert returns the position of corner nth of face.
func (m *Mesh) Vert(face, nth int) math3d.Vec3 { return m.vertex(face, nth).Position }

// UV returns the texture coordinate of corner nth of face.
func (m *Mesh) UV(face, nth int) math3d.Vec2 { return m.vertex(face, nth).UV }

// Normal returns the vertex normal of corner nth of face.
func (m *Mesh) Normal(face, nth int) math3d.Vec3 { return m.vertex(face, nth).Normal }

// Diffuse returns the surface color of face at uv: the diffuse texture
// modulated by the base color, the base color alone, or white when the face
// has no material.
func (m *Mesh) Diffuse(face int, uv math3d.Vec2) render.Color {
	mat := m.GetMaterial(m.Faces[face].Material)
	switch {
	case mat == nil:
		return render.ColorWhite
	case mat.Diffuse == nil:
		return mat.BaseColor
	default:
		return render.ModulateColor(mat.Diffuse.Sample(uv), mat.BaseColor)
	}
}

// NormalMap returns the tangent-space normal of face at uv, or +Z when the
// material has no normal map.
func (m *Mesh) NormalMap(face int, uv math3d.Vec2) math3d.Vec3 {
	mat := m.GetMaterial(m.Faces[face].Material)
	if mat == nil || mat.NormalMap == nil {
		return flatNormal
	}
	return mat.NormalMap.SampleNormal(uv)
}

var _ render.Model = (*Mesh)(nil)
