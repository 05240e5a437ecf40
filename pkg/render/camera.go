package render

import (
	"fmt"
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/tinyrender/pkg/math3d"
)

// ProjectionKind selects how the camera projects view space to clip space.
type ProjectionKind int

const (
	// ProjectionFrustum is an off-center perspective frustum with near and
	// far planes. Depth grows away from the eye.
	ProjectionFrustum ProjectionKind = iota
	// ProjectionPinhole divides by a w that depends only on distance from
	// the target plane. No clipping planes. Depth grows toward the eye.
	ProjectionPinhole
)

// String returns the name accepted by ParseProjection.
func (p ProjectionKind) String() string {
	switch p {
	case ProjectionFrustum:
		return "frustum"
	case ProjectionPinhole:
		return "pinhole"
	default:
		return fmt.Sprintf("ProjectionKind(%d)", int(p))
	}
}

// ParseProjection maps "frustum" or "pinhole" to a ProjectionKind.
func ParseProjection(s string) (ProjectionKind, error) {
	switch s {
	case "frustum":
		return ProjectionFrustum, nil
	case "pinhole":
		return ProjectionPinhole, nil
	default:
		return 0, fmt.Errorf("unknown projection %q", s)
	}
}

// Camera is the per-pass view state: where the eye sits, what it looks at,
// and which projection it uses. Matrices are computed on demand and cached.
type Camera struct {
	Eye    math3d.Vec3
	Center math3d.Vec3
	Up     math3d.Vec3

	Projection  ProjectionKind
	Near        float64 // frustum only; zero means distance/10
	Far         float64 // frustum only; zero means distance*10
	AspectRatio float64 // width / height

	viewMatrix math3d.Mat4
	projMatrix math3d.Mat4
	viewDirty  bool
	projDirty  bool
}

// NewCamera creates a camera at (1, 1, 3) looking at the origin.
func NewCamera() *Camera {
	return &Camera{
		Eye:         math3d.V3(1, 1, 3),
		Center:      math3d.Zero3(),
		Up:          math3d.Up(),
		Projection:  ProjectionFrustum,
		AspectRatio: 1,
		viewDirty:   true,
		projDirty:   true,
	}
}

// SetEye moves the eye.
func (c *Camera) SetEye(eye math3d.Vec3) {
	c.Eye = eye
	c.viewDirty = true
	c.projDirty = true
}

// SetCenter changes the point the camera looks at.
func (c *Camera) SetCenter(center math3d.Vec3) {
	c.Center = center
	c.viewDirty = true
	c.projDirty = true
}

// SetUp changes the up hint.
func (c *Camera) SetUp(up math3d.Vec3) {
	c.Up = up
	c.viewDirty = true
}

// SetProjection switches projection kind.
func (c *Camera) SetProjection(p ProjectionKind) {
	c.Projection = p
	c.viewDirty = true
	c.projDirty = true
}

// SetClipPlanes sets the frustum's near and far distances.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
	c.projDirty = true
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.AspectRatio = aspect
	c.projDirty = true
}

// Distance returns the distance from eye to center.
func (c *Camera) Distance() float64 {
	return c.Eye.Distance(c.Center)
}

// DepthTest returns the depth comparison matching the projection.
func (c *Camera) DepthTest() DepthTest {
	if c.Projection == ProjectionPinhole {
		return DepthGreater
	}
	return DepthLess
}

// ViewMatrix returns the view matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		c.computeViewMatrix()
		c.viewDirty = false
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.computeProjectionMatrix()
		c.projDirty = false
	}
	return c.projMatrix
}

// ViewProjectionMatrix returns projection * view.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

func (c *Camera) computeViewMatrix() {
	view := math3d.LookAt(c.Eye, c.Center, c.Up)
	if c.Projection == ProjectionPinhole {
		// Recentre on the target plane.
		view = math3d.Translate(math3d.V3(0, 0, c.Distance())).Mul(view)
	}
	c.viewMatrix = view
}

func (c *Camera) computeProjectionMatrix() {
	d := c.Distance()
	if c.Projection == ProjectionPinhole {
		c.projMatrix = math3d.Projection(-1 / d)
		return
	}

	n, f := c.Near, c.Far
	if n <= 0 {
		n = d / 10
	}
	if f <= n {
		f = d * 10
	}
	aspect := c.AspectRatio
	if aspect <= 0 {
		aspect = 1
	}
	// Scale so the plane through Center spans [-1, 1] vertically.
	half := n / d
	c.projMatrix = math3d.Frustum(-half*aspect, half*aspect, -half, half, n, f)
}

// WorldToScreen projects a world point through the camera and viewport.
// Returns (screenX, screenY, depth, visible); visible is false behind the eye.
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, viewport math3d.Mat4) (x, y, depth float64, visible bool) {
	clip := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))
	if clip.W <= 0 {
		return 0, 0, 0, false
	}
	s := viewport.MulVec3(clip.PerspectiveDivide())
	return s.X, s.Y, s.Z, true
}

// Orbit turns the eye around the camera's center about its up axis. The
// angle follows a critically damped spring toward a full revolution, so a
// turntable eases in and settles.
type Orbit struct {
	spring   harmonica.Spring
	angle    float64
	velocity float64
	target   float64
	frame    int
	frames   int
}

// NewOrbit creates an orbit that covers one revolution in frames steps.
func NewOrbit(frames int) *Orbit {
	if frames < 1 {
		frames = 1
	}
	return &Orbit{
		spring: harmonica.NewSpring(harmonica.FPS(frames), 6.0, 1.0),
		target: 2 * math.Pi,
		frames: frames,
	}
}

// Done reports whether every frame has been produced.
func (o *Orbit) Done() bool {
	return o.frame >= o.frames
}

// Angle returns the current angle in radians.
func (o *Orbit) Angle() float64 {
	return o.angle
}

// Step advances the spring one frame and returns the new angle.
func (o *Orbit) Step() float64 {
	o.angle, o.velocity = o.spring.Update(o.angle, o.velocity, o.target)
	o.frame++
	return o.angle
}

// Apply places cam's eye at the orbit's current angle, starting from base.
func (o *Orbit) Apply(cam *Camera, base math3d.Vec3) {
	rot := math3d.Rotate(cam.Up, o.angle)
	cam.SetEye(cam.Center.Add(rot.MulVec3Dir(base.Sub(cam.Center))))
}
