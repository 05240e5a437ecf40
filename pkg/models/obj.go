package models

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/tinyrender/pkg/math3d"
	"github.com/taigrr/tinyrender/pkg/render"
)

// OBJLoader loads Wavefront OBJ files into Mesh format.
type OBJLoader struct {
	// Options
	CalculateNormals bool
	LoadTextures     bool
	Warnf            func(format string, args ...any)
}

// NewOBJLoader creates a new OBJ loader with default options.
func NewOBJLoader() *OBJLoader {
	return &OBJLoader{
		CalculateNormals: true,
		LoadTextures:     true,
	}
}

// LoadOBJ loads an OBJ file and its sibling textures with the default
// options.
func LoadOBJ(path string) (*Mesh, error) {
	return NewOBJLoader().Load(path)
}

// Load reads the OBJ geometry at path. Textures named <base>_diffuse.tga
// and <base>_nm_tangent.tga (or <base>_nm.tga) are attached when present.
func (l *OBJLoader) Load(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	mesh, err := ParseOBJ(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if l.LoadTextures {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		mat := &mesh.Materials[0]
		mat.Diffuse = l.texture(base + "_diffuse.tga")
		mat.NormalMap = l.texture(base + "_nm_tangent.tga")
		if mat.NormalMap == nil {
			mat.NormalMap = l.texture(base + "_nm.tga")
		}
	}

	if l.CalculateNormals && !mesh.hasAllNormals() {
		mesh.CalculateSmoothNormals()
	}
	return mesh, nil
}

// texture loads an optional texture. A missing file is silent; one that
// exists but cannot be decoded is reported through Warnf.
func (l *OBJLoader) texture(path string) *render.Texture {
	tex, err := render.LoadTexture(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && l.Warnf != nil {
			l.Warnf("texture %s: %v", path, err)
		}
		return nil
	}
	return tex
}

// objCorner identifies a face corner by its position, UV and normal indices
// (-1 when absent).
type objCorner struct {
	v, vt, vn int
}

type objParser struct {
	positions []math3d.Vec3
	uvs       []math3d.Vec2
	normals   []math3d.Vec3
	corners   map[objCorner]int
	mesh      *Mesh
}

// ParseOBJ reads OBJ geometry from r. Polygons are fan-triangulated and
// identical corners share one vertex. The returned mesh has a single white
// material used by every face. Statements other than v, vt, vn and f are
// ignored.
func ParseOBJ(r io.Reader, name string) (*Mesh, error) {
	p := &objParser{
		corners: make(map[objCorner]int),
		mesh:    NewMesh(name),
	}
	p.mesh.Materials = []Material{{Name: "default", BaseColor: render.ColorWhite}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := p.statement(fields[0], fields[1:]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}
	if len(p.mesh.Faces) == 0 {
		return nil, errors.New("no faces")
	}

	p.mesh.CalculateBounds()
	return p.mesh, nil
}

func (p *objParser) statement(kw string, args []string) error {
	switch kw {
	case "v":
		v, err := parseFloats(args, 3)
		if err != nil {
			return fmt.Errorf("vertex: %w", err)
		}
		p.positions = append(p.positions, math3d.V3(v[0], v[1], v[2]))
	case "vt":
		v, err := parseFloats(args, 2)
		if err != nil {
			return fmt.Errorf("texture coordinate: %w", err)
		}
		p.uvs = append(p.uvs, math3d.V2(v[0], v[1]))
	case "vn":
		v, err := parseFloats(args, 3)
		if err != nil {
			return fmt.Errorf("normal: %w", err)
		}
		p.normals = append(p.normals, math3d.V3(v[0], v[1], v[2]).Normalize())
	case "f":
		return p.face(args)
	}
	return nil
}

func (p *objParser) face(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("face has %d corners", len(args))
	}
	idx := make([]int, len(args))
	for i, a := range args {
		c, err := p.corner(a)
		if err != nil {
			return fmt.Errorf("face corner %q: %w", a, err)
		}
		idx[i] = p.vertex(c)
	}
	for i := 1; i+1 < len(idx); i++ {
		p.mesh.Faces = append(p.mesh.Faces, Face{V: [3]int{idx[0], idx[i], idx[i+1]}})
	}
	return nil
}

// corner parses v, v/vt, v//vn or v/vt/vn.
func (p *objParser) corner(s string) (objCorner, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return objCorner{}, errors.New("too many components")
	}
	c := objCorner{v: -1, vt: -1, vn: -1}
	var err error
	if c.v, err = resolveIndex(parts[0], len(p.positions)); err != nil {
		return c, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.vt, err = resolveIndex(parts[1], len(p.uvs)); err != nil {
			return c, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.vn, err = resolveIndex(parts[2], len(p.normals)); err != nil {
			return c, err
		}
	}
	return c, nil
}

// vertex returns the shared vertex for c, creating it on first use.
func (p *objParser) vertex(c objCorner) int {
	if i, ok := p.corners[c]; ok {
		return i
	}
	v := MeshVertex{Position: p.positions[c.v]}
	if c.vt >= 0 {
		v.UV = p.uvs[c.vt]
	}
	if c.vn >= 0 {
		v.Normal = p.normals[c.vn]
	}
	i := len(p.mesh.Vertices)
	p.mesh.Vertices = append(p.mesh.Vertices, v)
	p.corners[c] = i
	return i
}

// resolveIndex converts a 1-based (or negative, relative) OBJ index into a
// 0-based index into a list of n elements.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	default:
		return 0, fmt.Errorf("index %d out of range (%d defined)", i, n)
	}
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) < n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i := range n {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// hasAllNormals reports whether every vertex carries a normal.
func (m *Mesh) hasAllNormals() bool {
	for _, v := range m.Vertices {
		if v.Normal.Len() < 0.001 {
			return false
		}
	}
	return true
}
