package render

import (
	"fmt"

	"github.com/taigrr/tinyrender/pkg/math3d"
	"github.com/taigrr/tinyrender/pkg/tga"
)

// Mode selects the primitive interpolator a pass dispatches to. All modes
// share the vertex stage and transform chain.
type Mode int

const (
	ModePoints    Mode = iota // plot projected corners
	ModeLines                 // fixed-step edges
	ModeWireframe             // rasterize, white fill
	ModeShaded                // rasterize, shaded fill
)

var modeNames = [...]string{"points", "lines", "wireframe", "shaded"}

// Output names written by the CLI, one per mode.
var modeOutputs = [...]string{"vertex.tga", "line.tga", "triangle.tga", "framebuffer.tga"}

// String returns the name accepted by ParseMode.
func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// OutputName returns the default file name for the mode's image.
func (m Mode) OutputName() string {
	if m < 0 || int(m) >= len(modeOutputs) {
		return m.String() + ".tga"
	}
	return modeOutputs[m]
}

// ParseMode maps a mode name to its Mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown render mode %q", s)
}

// AllModes lists every mode in pass order.
func AllModes() []Mode {
	return []Mode{ModePoints, ModeLines, ModeWireframe, ModeShaded}
}

// DrawModel runs the vertex stage for each face of m, maps the corners to
// the screen, and hands them to the interpolator selected by mode.
func DrawModel(m Model, sh Shader, viewport math3d.Mat4, r *Rasterizer, mode Mode) {
	if ms, ok := sh.(ModelSetter); ok {
		ms.SetModel(m)
	}

	for face := range m.NumFaces() {
		var pts [3]math3d.Vec4
		for nth := range 3 {
			clip := sh.Vertex(face, nth)
			s := viewport.MulVec3(clip.PerspectiveDivide())
			pts[nth] = math3d.V4(s.X, s.Y, s.Z, clip.W)
		}

		switch mode {
		case ModePoints:
			r.Points(pts)
		case ModeLines:
			r.Lines(pts)
		case ModeWireframe:
			r.Triangle(pts, sh, false)
		default:
			r.Triangle(pts, sh, true)
		}
	}
}

// Pass describes one render pass. Each pass owns its framebuffer and depth
// buffer for the duration of Render.
type Pass struct {
	Mode       Mode
	Width      int
	Height     int
	Format     tga.Format
	Camera     *Camera
	Shader     ShaderKind
	Light      math3d.Vec3
	Background Color
}

// Viewport maps NDC onto the central three quarters of the image.
func (p *Pass) Viewport() math3d.Mat4 {
	return math3d.Viewport(p.Width/8, p.Height/8, p.Width*3/4, p.Height*3/4)
}

// Render draws every model into a new framebuffer sharing one depth
// buffer. The result has y pointing up; flip it before writing.
func (p *Pass) Render(models ...Model) (*Framebuffer, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("render %s pass: invalid size %dx%d", p.Mode, p.Width, p.Height)
	}
	sh, err := NewShader(p.Shader, p.Light)
	if err != nil {
		return nil, fmt.Errorf("render %s pass: %w", p.Mode, err)
	}
	if ts, ok := sh.(TransformSetter); ok {
		ts.SetTransform(p.Camera.ViewProjectionMatrix())
	}

	fb := NewFramebuffer(p.Width, p.Height, p.Format)
	fb.Clear(p.Background)
	zb := NewDepthBuffer(p.Width, p.Height, p.Camera.DepthTest())

	r := NewRasterizer(fb, zb)
	for _, m := range models {
		DrawModel(m, sh, p.Viewport(), r, p.Mode)
	}
	return fb, nil
}

// Visible reports whether a model with the given bounds can reach the image.
func (p *Pass) Visible(bounds AABB) bool {
	return p.Camera.ViewVolume().IntersectsAABB(bounds)
}
