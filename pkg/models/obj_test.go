package models

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taigrr/tinyrender/pkg/math3d"
	"github.com/taigrr/tinyrender/pkg/render"
	"github.com/taigrr/tinyrender/pkg/tga"
)

const quadOBJ = `# unit quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestParseOBJ(t *testing.T) {
	m, err := ParseOBJ(strings.NewReader(quadOBJ), "quad")
	if err != nil {
		t.Fatalf("ParseOBJ: %v", err)
	}
	if m.NumFaces() != 2 {
		t.Fatalf("NumFaces = %d, want 2 (fan)", m.NumFaces())
	}
	if m.VertexCount() != 4 {
		t.Errorf("VertexCount = %d, want 4 (shared corners)", m.VertexCount())
	}
	if m.Faces[1].V != [3]int{0, 2, 3} {
		t.Errorf("second fan triangle = %v, want [0 2 3]", m.Faces[1].V)
	}
	if got := m.UV(0, 2); got != math3d.V2(1, 1) {
		t.Errorf("UV(0,2) = %v", got)
	}
	if got := m.Normal(1, 0); got != math3d.V3(0, 0, 1) {
		t.Errorf("Normal(1,0) = %v", got)
	}
	if m.Bounds.Max != math3d.V3(1, 1, 0) {
		t.Errorf("Bounds.Max = %v", m.Bounds.Max)
	}
	if got := m.Diffuse(0, math3d.V2(0.5, 0.5)); got != render.ColorWhite {
		t.Errorf("default diffuse = %v, want white", got)
	}
}

func TestParseOBJCornerForms(t *testing.T) {
	tests := []struct {
		name     string
		face     string
		wantUV   math3d.Vec2
		wantNorm math3d.Vec3
	}{
		{"position only", "f 1 2 3", math3d.V2(0, 0), math3d.V3(0, 0, 0)},
		{"position uv", "f 1/2 2/2 3/2", math3d.V2(1, 0), math3d.V3(0, 0, 0)},
		{"position normal", "f 1//1 2//1 3//1", math3d.V2(0, 0), math3d.V3(0, 0, 1)},
		{"all three", "f 1/2/1 2/2/1 3/2/1", math3d.V2(1, 0), math3d.V3(0, 0, 1)},
		{"negative", "f -3/-1/-1 -2/-1/-1 -1/-1/-1", math3d.V2(1, 0), math3d.V3(0, 0, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nvt 1 0\nvn 0 0 2\n" + tt.face + "\n"
			m, err := ParseOBJ(strings.NewReader(src), tt.name)
			if err != nil {
				t.Fatalf("ParseOBJ: %v", err)
			}
			if m.NumFaces() != 1 {
				t.Fatalf("NumFaces = %d, want 1", m.NumFaces())
			}
			if got := m.Vert(0, 1); got != math3d.V3(1, 0, 0) {
				t.Errorf("Vert(0,1) = %v", got)
			}
			if got := m.UV(0, 0); got != tt.wantUV {
				t.Errorf("UV = %v, want %v", got, tt.wantUV)
			}
			if got := m.Normal(0, 0); got != tt.wantNorm {
				t.Errorf("Normal = %v, want %v", got, tt.wantNorm)
			}
		})
	}
}

func TestParseOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "# nothing\n", "no faces"},
		{"short face", "v 0 0 0\nv 1 0 0\nf 1 2\n", "line 3"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n", "out of range"},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n", "out of range"},
		{"bad float", "v 0 zero 0\n", "line 1"},
		{"short vertex", "v 0 0\n", "want 3 values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOBJ(strings.NewReader(tt.src), tt.name)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func writeTGA(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := tga.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

func TestLoadOBJSiblingTextures(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "head.obj")
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nvt 1 0\nvt 0 1\nf 1/1 2/2 3/3\n"
	if err := os.WriteFile(objPath, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	writeTGA(t, filepath.Join(dir, "head_diffuse.tga"), color.NRGBA{R: 10, G: 200, B: 30, A: 255})
	writeTGA(t, filepath.Join(dir, "head_nm.tga"), color.NRGBA{R: 128, G: 128, B: 255, A: 255})
	if err := os.WriteFile(filepath.Join(dir, "head_nm_tangent.tga"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	var warnings []string
	loader := NewOBJLoader()
	loader.Warnf = func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}
	m, err := loader.Load(objPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := m.Diffuse(0, math3d.V2(0.25, 0.25)); got != render.RGB(10, 200, 30) {
		t.Errorf("Diffuse = %v, want the sibling texture color", got)
	}
	// head_nm_tangent.tga is corrupt, so head_nm.tga is used instead.
	if len(warnings) != 1 || !strings.Contains(warnings[0], "head_nm_tangent.tga") {
		t.Errorf("warnings = %q, want one about head_nm_tangent.tga", warnings)
	}
	if m.Materials[0].NormalMap == nil {
		t.Fatal("expected fallback normal map")
	}
	if got := m.NormalMap(0, math3d.V2(0.5, 0.5)); got.Z < 0.99 {
		t.Errorf("NormalMap = %v, want roughly +Z", got)
	}
	if !m.HasNormals() {
		t.Error("normals should be computed when the file has none")
	}
}

func TestLoadOBJWithoutTextures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	if err := os.WriteFile(path, []byte(quadOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadOBJ(path)
	if err != nil {
		t.Fatalf("LoadOBJ: %v", err)
	}
	mat := m.GetMaterial(0)
	if mat.Diffuse != nil || mat.NormalMap != nil {
		t.Error("missing textures should stay nil")
	}
}

func TestLoadOBJInvalidPath(t *testing.T) {
	if _, err := LoadOBJ("/nonexistent/path.obj"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func BenchmarkParseOBJ(b *testing.B) {
	const n = 64
	var sb strings.Builder
	for y := range n {
		for x := range n {
			fmt.Fprintf(&sb, "v %d %d 0\nvt %g %g\n", x, y, float64(x)/n, float64(y)/n)
		}
	}
	for y := range n - 1 {
		for x := range n - 1 {
			i := y*n + x + 1
			fmt.Fprintf(&sb, "f %d/%d %d/%d %d/%d %d/%d\n", i, i, i+1, i+1, i+n+1, i+n+1, i+n, i+n)
		}
	}
	src := sb.String()

	for b.Loop() {
		if _, err := ParseOBJ(strings.NewReader(src), "grid"); err != nil {
			b.Fatal(err)
		}
	}
}
