package models

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/taigrr/tinyrender/pkg/math3d"
	"github.com/taigrr/tinyrender/pkg/render"
)

// GLTFLoader loads glTF/GLB files into Mesh format.
type GLTFLoader struct {
	// Options
	CalculateNormals bool
	LoadTextures     bool
	Warnf            func(format string, args ...any)
}

// NewGLTFLoader creates a new glTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		LoadTextures:     true,
	}
}

// LoadGLTF loads a .gltf or .glb file with the default options.
func LoadGLTF(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a glTF or GLB file and returns a Mesh. Every triangle
// primitive of every mesh in the document is merged into one Mesh.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	mesh := NewMesh(filepath.Base(path))
	mesh.Materials = l.materials(doc, filepath.Dir(path))

	for _, m := range doc.Meshes {
		if err := l.processMesh(doc, m, mesh); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
	}
	if len(mesh.Faces) == 0 {
		return nil, fmt.Errorf("%s: no triangles", path)
	}

	if l.CalculateNormals && !mesh.HasNormals() {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()

	return mesh, nil
}

// processMesh extracts geometry from a glTF mesh.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals [][3]float32
		if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
			if err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs [][2]float32
		if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
			if err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
		}

		material := -1
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			material = *prim.Material
		}

		baseVertex := len(mesh.Vertices)
		for i, p := range positions {
			v := MeshVertex{Position: vec3(p)}
			if i < len(normals) {
				v.Normal = vec3(normals[i])
			}
			if i < len(uvs) {
				// glTF puts V=0 at the top of the image; textures sample
				// with V=0 at the bottom.
				v.UV = math3d.V2(float64(uvs[i][0]), 1-float64(uvs[i][1]))
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		var indices []uint32
		if prim.Indices != nil {
			indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		for i := 0; i+2 < len(indices); i += 3 {
			f := Face{Material: material}
			for j := range 3 {
				idx := int(indices[i+j])
				if idx >= len(positions) {
					return fmt.Errorf("index %d out of range (%d vertices)", idx, len(positions))
				}
				f.V[j] = baseVertex + idx
			}
			mesh.Faces = append(mesh.Faces, f)
		}
	}

	return nil
}

// materials converts the document materials. Textures that cannot be read
// are reported through Warnf and left nil.
func (l *GLTFLoader) materials(doc *gltf.Document, dir string) []Material {
	images := make(map[int]*render.Texture)
	texture := func(texIdx int) *render.Texture {
		if !l.LoadTextures || texIdx < 0 || texIdx >= len(doc.Textures) {
			return nil
		}
		src := doc.Textures[texIdx].Source
		if src == nil || *src >= len(doc.Images) {
			return nil
		}
		if tex, ok := images[*src]; ok {
			return tex
		}
		tex, err := loadGLTFImage(doc, doc.Images[*src], dir)
		if err != nil {
			l.warnf("image %d: %v", *src, err)
		}
		images[*src] = tex
		return tex
	}

	mats := make([]Material, 0, len(doc.Materials))
	for _, gm := range doc.Materials {
		mat := Material{Name: gm.Name, BaseColor: render.ColorWhite}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			mat.BaseColor = factorColor(pbr.BaseColorFactorOrDefault())
			if pbr.BaseColorTexture != nil {
				mat.Diffuse = texture(pbr.BaseColorTexture.Index)
			}
		}
		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			mat.NormalMap = texture(*gm.NormalTexture.Index)
		}
		mats = append(mats, mat)
	}
	return mats
}

func (l *GLTFLoader) warnf(format string, args ...any) {
	if l.Warnf != nil {
		l.Warnf(format, args...)
	}
}

// loadGLTFImage decodes an image stored in a buffer view, a base64 data URI
// or a file next to the document.
func loadGLTFImage(doc *gltf.Document, img *gltf.Image, dir string) (*render.Texture, error) {
	var data []byte
	format := img.MimeType
	switch {
	case img.BufferView != nil:
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer]
		end := bv.ByteOffset + bv.ByteLength
		if end > len(buf.Data) {
			return nil, fmt.Errorf("buffer view %d out of range", *img.BufferView)
		}
		data = buf.Data[bv.ByteOffset:end]
	case img.IsEmbeddedResource():
		var err error
		if data, err = img.MarshalData(); err != nil {
			return nil, fmt.Errorf("decode data URI: %w", err)
		}
		if format == "" {
			format, _, _ = strings.Cut(strings.TrimPrefix(img.URI, "data:"), ";")
		}
	case img.URI != "" && !strings.HasPrefix(img.URI, "data:"):
		// gltf.Open has already percent-decoded the URI.
		var err error
		data, err = os.ReadFile(filepath.Join(dir, filepath.FromSlash(img.URI)))
		if err != nil {
			return nil, err
		}
		if format == "" {
			format = filepath.Ext(img.URI)
		}
	default:
		return nil, fmt.Errorf("unsupported image source")
	}

	decoded, err := render.DecodeImage(bytes.NewReader(data), format)
	if err != nil {
		return nil, err
	}
	return render.TextureFromImage(decoded), nil
}

func vec3(v [3]float32) math3d.Vec3 {
	return math3d.V3(float64(v[0]), float64(v[1]), float64(v[2]))
}

func factorColor(f [4]float64) render.Color {
	c := func(x float64) uint8 {
		return uint8(min(max(x, 0), 1)*255 + 0.5)
	}
	return render.RGBA(c(f[0]), c(f[1]), c(f[2]), c(f[3]))
}
