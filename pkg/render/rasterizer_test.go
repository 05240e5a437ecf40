package render

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/taigrr/tinyrender/pkg/math3d"
	"github.com/taigrr/tinyrender/pkg/tga"
)

// triModel is a Model made of independent triangles, one color per face.
type triModel struct {
	verts  [][3]math3d.Vec3
	uvs    [][3]math3d.Vec2
	colors []Color
	normal math3d.Vec3
	nmap   math3d.Vec3
}

func (m *triModel) NumFaces() int                  { return len(m.verts) }
func (m *triModel) Vert(face, nth int) math3d.Vec3 { return m.verts[face][nth] }
func (m *triModel) Normal(int, int) math3d.Vec3    { return m.normal }

func (m *triModel) UV(face, nth int) math3d.Vec2 {
	if m.uvs == nil {
		return math3d.Vec2{}
	}
	return m.uvs[face][nth]
}

func (m *triModel) Diffuse(face int, _ math3d.Vec2) Color  { return m.colors[face] }
func (m *triModel) NormalMap(int, math3d.Vec2) math3d.Vec3 { return m.nmap }

// addQuad appends an axis-aligned square of side size centred on the z axis.
func (m *triModel) addQuad(size, z float64, c Color) *triModel {
	h := size / 2
	a, b := math3d.V3(-h, -h, z), math3d.V3(h, -h, z)
	cc, d := math3d.V3(h, h, z), math3d.V3(-h, h, z)
	m.verts = append(m.verts, [3]math3d.Vec3{a, b, cc}, [3]math3d.Vec3{a, cc, d})
	m.colors = append(m.colors, c, c)
	return m
}

func newTriModel() *triModel {
	return &triModel{normal: math3d.V3(0, 0, 1), nmap: math3d.V3(0, 0, 1)}
}

// flatShader paints every fragment one color and ignores its vertex stage.
type flatShader struct {
	color   Color
	discard bool
}

func (s *flatShader) Vertex(int, int) math3d.Vec4 { return math3d.V4(0, 0, 0, 1) }
func (s *flatShader) Fragment(math3d.Vec3) (Color, bool) {
	return s.color, s.discard
}

func newTestRasterizer(width, height int, test DepthTest) (*Rasterizer, *Framebuffer, *DepthBuffer) {
	fb := NewFramebuffer(width, height, tga.RGB)
	zb := NewDepthBuffer(width, height, test)
	return NewRasterizer(fb, zb), fb, zb
}

func screenTri(a, b, c math3d.Vec3) [3]math3d.Vec4 {
	return [3]math3d.Vec4{math3d.V4FromV3(a, 1), math3d.V4FromV3(b, 1), math3d.V4FromV3(c, 1)}
}

func countColor(fb *Framebuffer, c Color) int {
	n := 0
	for _, p := range fb.Pixels {
		if p == c {
			n++
		}
	}
	return n
}

func TestBarycentric(t *testing.T) {
	a, b, c := math3d.V2(0, 0), math3d.V2(10, 0), math3d.V2(0, 10)
	tests := []struct {
		name string
		p    math3d.Vec2
		want math3d.Vec3
	}{
		{"vertex 0", a, math3d.V3(1, 0, 0)},
		{"vertex 1", b, math3d.V3(0, 1, 0)},
		{"vertex 2", c, math3d.V3(0, 0, 1)},
		{"centroid", math3d.V2(10.0/3, 10.0/3), math3d.V3(1.0/3, 1.0/3, 1.0/3)},
		{"edge midpoint", math3d.V2(5, 0), math3d.V3(0.5, 0.5, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Barycentric(a, b, c, tc.p)
			if got.Sub(tc.want).Len() > 1e-9 {
				t.Errorf("Barycentric(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestBarycentricSumsToOne(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		var v [3]math3d.Vec2
		for i := range v {
			v[i] = math3d.V2(rng.Float64()*800, rng.Float64()*800)
		}
		// Pick an interior point from random convex weights.
		w := math3d.V3(rng.Float64(), rng.Float64(), rng.Float64())
		w = w.Scale(1 / w.Sum())
		p := v[0].Scale(w.X).Add(v[1].Scale(w.Y)).Add(v[2].Scale(w.Z))

		bar := Barycentric(v[0], v[1], v[2], p)
		if bar.X == -1 && bar.Y == 1 && bar.Z == 1 {
			continue // degenerate draw
		}
		if math.Abs(bar.Sum()-1) > 1e-4 {
			t.Fatalf("weights %v sum to %v", bar, bar.Sum())
		}
		if bar.Sub(w).Len() > 1e-4 {
			t.Fatalf("weights %v, want %v", bar, w)
		}
	}
}

func TestBarycentricOutside(t *testing.T) {
	a, b, c := math3d.V2(0, 0), math3d.V2(10, 0), math3d.V2(0, 10)
	for _, p := range []math3d.Vec2{
		math3d.V2(-1, -1), math3d.V2(11, 0), math3d.V2(0, 10.5),
		math3d.V2(6, 6), math3d.V2(-0.01, 5), math3d.V2(100, -100),
	} {
		bar := Barycentric(a, b, c, p)
		if bar.X >= 0 && bar.Y >= 0 && bar.Z >= 0 {
			t.Errorf("Barycentric(%v) = %v, want a negative weight", p, bar)
		}
	}
}

func TestBarycentricDegenerate(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c math3d.Vec2
	}{
		{"collinear", math3d.V2(0, 0), math3d.V2(5, 5), math3d.V2(10, 10)},
		{"coincident", math3d.V2(3, 3), math3d.V2(3, 3), math3d.V2(3, 3)},
		{"sliver", math3d.V2(0, 0), math3d.V2(100, 0), math3d.V2(50, 1e-6)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bar := Barycentric(tc.a, tc.b, tc.c, math3d.V2(1, 1))
			if bar != math3d.V3(-1, 1, 1) {
				t.Errorf("Barycentric = %v, want (-1, 1, 1)", bar)
			}
		})
	}
}

func TestPerspectiveCorrectKeepsConstants(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 500 {
		bar := math3d.V3(rng.Float64(), rng.Float64(), rng.Float64())
		bar = bar.Scale(1 / bar.Sum())
		w := [3]float64{0.1 + rng.Float64()*50, 0.1 + rng.Float64()*50, 0.1 + rng.Float64()*50}

		corr := perspectiveCorrect(bar, w)
		if math.Abs(corr.Sum()-1) > 1e-9 {
			t.Fatalf("corrected weights %v sum to %v", corr, corr.Sum())
		}
		attr := math3d.Scalars{7.25, 7.25, 7.25}
		if got := attr.Interpolate(corr); math.Abs(got-7.25) > 1e-9 {
			t.Fatalf("constant attribute interpolated to %v", got)
		}
	}
}

func TestPerspectiveCorrectFavoursNearVertex(t *testing.T) {
	bar := math3d.V3(0.5, 0.5, 0)
	corr := perspectiveCorrect(bar, [3]float64{1, 4, 1})
	if corr.X <= corr.Y {
		t.Errorf("corrected %v: nearer vertex should dominate", corr)
	}
	want := math3d.V3(0.8, 0.2, 0)
	if corr.Sub(want).Len() > 1e-9 {
		t.Errorf("corrected = %v, want %v", corr, want)
	}
}

func TestTriangleFillsInterior(t *testing.T) {
	r, fb, _ := newTestRasterizer(20, 20, DepthLess)
	red := RGB(255, 0, 0)
	r.Triangle(screenTri(math3d.V3(0, 0, 0.5), math3d.V3(10, 0, 0.5), math3d.V3(0, 10, 0.5)), &flatShader{color: red}, true)

	// Pixels whose centres satisfy x+y < 10 are inside.
	for y := range 20 {
		for x := range 20 {
			inside := float64(x)+0.5+float64(y)+0.5 < 10
			got := fb.GetPixel(x, y) == red
			if x+y == 9 {
				continue // centre on the hypotenuse
			}
			if inside != got {
				t.Fatalf("pixel (%d,%d) filled=%v, want %v", x, y, got, inside)
			}
		}
	}
}

func TestTriangleZeroCoverage(t *testing.T) {
	tests := []struct {
		name string
		pts  [3]math3d.Vec4
	}{
		{"collinear", screenTri(math3d.V3(0, 0, 0.5), math3d.V3(5, 5, 0.5), math3d.V3(9, 9, 0.5))},
		{"behind eye", [3]math3d.Vec4{math3d.V4(0, 0, 0.5, 1), math3d.V4(9, 0, 0.5, -1), math3d.V4(0, 9, 0.5, 1)}},
		{"zero w", [3]math3d.Vec4{math3d.V4(0, 0, 0.5, 0), math3d.V4(9, 0, 0.5, 1), math3d.V4(0, 9, 0.5, 1)}},
		{"nan", [3]math3d.Vec4{math3d.V4(math.NaN(), 0, 0.5, 1), math3d.V4(9, 0, 0.5, 1), math3d.V4(0, 9, 0.5, 1)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb, _ := newTestRasterizer(10, 10, DepthLess)
			r.Triangle(tc.pts, &flatShader{color: ColorRed}, true)
			if n := countColor(fb, ColorRed); n != 0 {
				t.Errorf("%d pixels written, want 0", n)
			}
		})
	}
}

func TestTriangleFarOffscreen(t *testing.T) {
	tests := []struct {
		name string
		pts  [3]math3d.Vec4
	}{
		{"beyond right", screenTri(math3d.V3(1e19, 5, 0.5), math3d.V3(2e19, 5, 0.5), math3d.V3(1e19, 15, 0.5))},
		{"beyond top", screenTri(math3d.V3(5, 1e19, 0.5), math3d.V3(15, 1e19, 0.5), math3d.V3(5, 2e19, 0.5))},
		{"beyond left", screenTri(math3d.V3(-2e19, 5, 0.5), math3d.V3(-1e19, 5, 0.5), math3d.V3(-1e19, 15, 0.5))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb, _ := newTestRasterizer(20, 20, DepthLess)
			done := make(chan struct{})
			go func() {
				r.Triangle(tc.pts, &flatShader{color: ColorRed}, true)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("Triangle did not return")
			}
			if n := countColor(fb, ColorRed); n != 0 {
				t.Errorf("%d pixels written, want 0", n)
			}
		})
	}
}

// constShader interpolates attributes that are the same at every corner and
// counts fragments where the result drifts.
type constShader struct {
	attr  math3d.Varying3
	scale math3d.Scalars
	want  math3d.Vec3
	drift int
	frags int
}

func (s *constShader) Vertex(int, int) math3d.Vec4 { return math3d.V4(0, 0, 0, 1) }

func (s *constShader) Fragment(bar math3d.Vec3) (Color, bool) {
	s.frags++
	v := s.attr.Interpolate(bar).Scale(s.scale.Interpolate(bar))
	if v.Sub(s.want).Len() > 1e-9 {
		s.drift++
	}
	return ColorRed, false
}

func TestTriangleConstantAttribute(t *testing.T) {
	a := math3d.V4(2, 3, 0.2, 0.5)
	b := math3d.V4(60, 10, 0.5, 3)
	c := math3d.V4(20, 55, 0.9, 8)
	tests := []struct {
		name string
		pts  [3]math3d.Vec4
	}{
		{"counter-clockwise", [3]math3d.Vec4{a, b, c}},
		{"clockwise", [3]math3d.Vec4{a, c, b}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb, _ := newTestRasterizer(64, 64, DepthLess)
			k := math3d.V3(0.25, -3, 7.5)
			sh := &constShader{
				attr:  math3d.Varying3{k, k, k},
				scale: math3d.Scalars{2, 2, 2},
				want:  k.Scale(2),
			}
			r.Triangle(tc.pts, sh, true)
			if sh.frags == 0 {
				t.Fatal("no fragments shaded")
			}
			if sh.drift != 0 {
				t.Errorf("%d of %d fragments drifted from %v", sh.drift, sh.frags, sh.want)
			}
			if n := countColor(fb, ColorRed); n != sh.frags {
				t.Errorf("%d pixels written, want %d", n, sh.frags)
			}
		})
	}
}

func TestTriangleClampsToFramebuffer(t *testing.T) {
	r, fb, _ := newTestRasterizer(16, 8, DepthLess)
	r.Triangle(screenTri(math3d.V3(-100, -100, 0.5), math3d.V3(300, -100, 0.5), math3d.V3(-100, 300, 0.5)), &flatShader{color: ColorBlue}, true)
	if n := countColor(fb, ColorBlue); n != 16*8 {
		t.Errorf("%d pixels filled, want %d", n, 16*8)
	}
}

func TestTriangleColoredFlag(t *testing.T) {
	r, fb, _ := newTestRasterizer(10, 10, DepthLess)
	r.Triangle(screenTri(math3d.V3(0, 0, 0.5), math3d.V3(10, 0, 0.5), math3d.V3(0, 10, 0.5)), &flatShader{color: ColorRed}, false)
	if countColor(fb, ColorRed) != 0 {
		t.Error("colored=false still wrote shader color")
	}
	if countColor(fb, ColorWhite) == 0 {
		t.Error("colored=false wrote nothing")
	}
}

func TestTriangleDiscard(t *testing.T) {
	r, fb, zb := newTestRasterizer(10, 10, DepthLess)
	r.Triangle(screenTri(math3d.V3(0, 0, 0.5), math3d.V3(10, 0, 0.5), math3d.V3(0, 10, 0.5)), &flatShader{color: ColorRed, discard: true}, true)
	if countColor(fb, ColorRed) != 0 {
		t.Error("discarded fragments were written")
	}
	if !math.IsInf(zb.At(1, 1), 1) {
		t.Errorf("depth = %v after discard, want +Inf", zb.At(1, 1))
	}
}

func TestTriangleDepthOrder(t *testing.T) {
	near := screenTri(math3d.V3(0, 0, 0.2), math3d.V3(10, 0, 0.2), math3d.V3(0, 10, 0.2))
	far := screenTri(math3d.V3(0, 0, 0.8), math3d.V3(10, 0, 0.8), math3d.V3(0, 10, 0.8))

	tests := []struct {
		name   string
		test   DepthTest
		winner Color
	}{
		{"less keeps smaller", DepthLess, ColorRed},
		{"greater keeps larger", DepthGreater, ColorGreen},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, nearFirst := range []bool{true, false} {
				r, fb, _ := newTestRasterizer(10, 10, tc.test)
				a, b := &flatShader{color: ColorRed}, &flatShader{color: ColorGreen}
				if nearFirst {
					r.Triangle(near, a, true)
					r.Triangle(far, b, true)
				} else {
					r.Triangle(far, b, true)
					r.Triangle(near, a, true)
				}
				if got := fb.GetPixel(2, 2); got != tc.winner {
					t.Errorf("nearFirst=%v: pixel = %v, want %v", nearFirst, got, tc.winner)
				}
			}
		})
	}
}

func TestPoints(t *testing.T) {
	r, fb, _ := newTestRasterizer(10, 10, DepthLess)
	r.Points([3]math3d.Vec4{math3d.V4(1, 1, 0, 1), math3d.V4(5, 2, 0, 1), math3d.V4(50, 50, 0, 1)})
	if fb.GetPixel(1, 1) != ColorWhite || fb.GetPixel(5, 2) != ColorWhite {
		t.Error("in-bounds corners not plotted")
	}
	if n := countColor(fb, ColorWhite); n != 2 {
		t.Errorf("%d pixels plotted, want 2", n)
	}
}

func TestPointsSkipNegativeSubpixel(t *testing.T) {
	r, fb, _ := newTestRasterizer(10, 10, DepthLess)
	r.Points([3]math3d.Vec4{math3d.V4(-0.7, 3.2, 0, 1), math3d.V4(-0.7, -0.4, 0, 1), math3d.V4(5, -0.9, 0, 1)})
	if n := countColor(fb, ColorWhite); n != 0 {
		t.Errorf("%d pixels plotted, want 0", n)
	}
}

func TestLinesSkipNegativeSubpixel(t *testing.T) {
	r, fb, _ := newTestRasterizer(10, 10, DepthLess)
	r.Lines([3]math3d.Vec4{math3d.V4(-0.7, 1, 0, 1), math3d.V4(-0.7, 8, 0, 1), math3d.V4(-0.2, 5, 0, 1)})
	if n := countColor(fb, ColorWhite); n != 0 {
		t.Errorf("%d pixels plotted, want 0", n)
	}
}

func TestLines(t *testing.T) {
	r, fb, _ := newTestRasterizer(64, 64, DepthLess)
	r.Lines([3]math3d.Vec4{math3d.V4(2, 2, 0, 1), math3d.V4(60, 2, 0, 1), math3d.V4(2, 60, 0, 1)})
	for x := 2; x <= 60; x++ {
		if fb.GetPixel(x, 2) != ColorWhite {
			t.Fatalf("bottom edge missing pixel at x=%d", x)
		}
	}
	for y := 2; y <= 60; y++ {
		if fb.GetPixel(2, y) != ColorWhite {
			t.Fatalf("left edge missing pixel at y=%d", y)
		}
	}
	if fb.GetPixel(30, 30) == ColorWhite {
		t.Error("interior should stay empty")
	}
}

func TestLinesFixedStepsLeaveGaps(t *testing.T) {
	r, fb, _ := newTestRasterizer(1000, 4, DepthLess)
	r.Lines([3]math3d.Vec4{math3d.V4(0, 1, 0, 1), math3d.V4(999, 1, 0, 1), math3d.V4(0, 1, 0, 1)})
	if fb.GetPixel(0, 1) != ColorWhite || fb.GetPixel(999, 1) != ColorWhite {
		t.Error("endpoints not plotted")
	}
	if fb.GetPixel(5, 1) == ColorWhite {
		t.Error("expected a gap between fixed steps")
	}
}

func BenchmarkTriangle(b *testing.B) {
	r, _, zb := newTestRasterizer(512, 512, DepthLess)
	sh := &flatShader{color: ColorRed}
	pts := screenTri(math3d.V3(10, 10, 0.5), math3d.V3(500, 40, 0.5), math3d.V3(200, 480, 0.5))
	for b.Loop() {
		zb.Clear()
		r.Triangle(pts, sh, true)
	}
}
