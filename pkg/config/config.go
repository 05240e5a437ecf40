// Package config holds the render settings shared by every pass: a JSON
// file, overridden by command-line flags, with defaults for the rest.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/taigrr/tinyrender/pkg/math3d"
	"github.com/taigrr/tinyrender/pkg/render"
	"github.com/taigrr/tinyrender/pkg/tga"
)

// Config holds all configurable render settings.
type Config struct {
	// Image
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Format     string   `json:"format"`
	Extension  string   `json:"extension"`
	RLE        *bool    `json:"rle"`
	Background [3]uint8 `json:"background"`
	OutputDir  string   `json:"output_dir"`

	// Camera and lighting. A zero Eye, Up or Light means the default.
	Eye        [3]float64 `json:"eye"`
	Center     [3]float64 `json:"center"`
	Up         [3]float64 `json:"up"`
	Light      [3]float64 `json:"light"`
	Projection string     `json:"projection"`
	Near       float64    `json:"near"` // frustum clip planes; zero picks one from the eye distance
	Far        float64    `json:"far"`

	// Passes
	Shader    string   `json:"shader"`
	Modes     []string `json:"modes"`
	Fit       float64  `json:"fit"`
	Turntable int      `json:"turntable"`
}

// Flags holds CLI flag values that override config file settings.
// Zero values and nil pointers leave the file's value alone.
type Flags struct {
	Width      int
	Height     int
	Format     string
	Extension  string
	RLE        *bool
	OutputDir  string
	Projection string
	Near       float64
	Far        float64
	Shader     string
	Modes      string // comma separated
	Fit        float64
	Turntable  int
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve applies flag overrides, then fills any empty field with its
// default.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.Extension != "" {
		c.Extension = flags.Extension
	}
	if flags.RLE != nil {
		c.RLE = flags.RLE
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Projection != "" {
		c.Projection = flags.Projection
	}
	if flags.Near > 0 {
		c.Near = flags.Near
	}
	if flags.Far > 0 {
		c.Far = flags.Far
	}
	if flags.Shader != "" {
		c.Shader = flags.Shader
	}
	if flags.Modes != "" {
		c.Modes = splitList(flags.Modes)
	}
	if flags.Fit > 0 {
		c.Fit = flags.Fit
	}
	if flags.Turntable > 0 {
		c.Turntable = flags.Turntable
	}

	// Defaults
	if c.Width <= 0 {
		c.Width = 800
	}
	if c.Height <= 0 {
		c.Height = 800
	}
	if c.Format == "" {
		c.Format = tga.RGB.String()
	}
	if c.Extension == "" {
		c.Extension = ".tga"
	} else if !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
	if c.RLE == nil {
		rle := true
		c.RLE = &rle
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Eye == [3]float64{} {
		c.Eye = [3]float64{1, 1, 3}
	}
	if c.Up == [3]float64{} {
		c.Up = [3]float64{0, 1, 0}
	}
	if c.Light == [3]float64{} {
		c.Light = [3]float64{1, 1, 1}
	}
	if c.Projection == "" {
		c.Projection = render.ProjectionFrustum.String()
	}
	if c.Shader == "" {
		c.Shader = render.ShaderPhong.String()
	}
	if len(c.Modes) == 0 {
		for _, m := range render.AllModes() {
			c.Modes = append(c.Modes, m.String())
		}
	}
}

// Validate checks that every named setting is known and that the camera
// is usable.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: invalid size %dx%d", c.Width, c.Height)
	}
	if _, err := tga.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(c.Extension) {
	case ".tga", ".png", ".webp":
	default:
		return fmt.Errorf("config: unsupported output extension %q", c.Extension)
	}
	if _, err := render.ParseProjection(c.Projection); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := render.ParseShaderKind(c.Shader); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.RenderModes(); err != nil {
		return err
	}
	eye, center, up := vec(c.Eye), vec(c.Center), vec(c.Up)
	if eye == center {
		return fmt.Errorf("config: eye and center coincide at %v", eye)
	}
	if up.Cross(eye.Sub(center)).Len() < 1e-9 {
		return fmt.Errorf("config: up %v is parallel to the view direction", up)
	}
	if c.Near < 0 || c.Far < 0 {
		return fmt.Errorf("config: negative clip plane near=%g far=%g", c.Near, c.Far)
	}
	if c.Near > 0 && c.Far > 0 && c.Far <= c.Near {
		return fmt.Errorf("config: far clip plane %g is not beyond near %g", c.Far, c.Near)
	}
	if c.Fit < 0 {
		return fmt.Errorf("config: negative fit size %g", c.Fit)
	}
	if c.Turntable < 0 {
		return fmt.Errorf("config: negative turntable frame count %d", c.Turntable)
	}
	return nil
}

// RenderModes parses Modes in order.
func (c *Config) RenderModes() ([]render.Mode, error) {
	modes := make([]render.Mode, 0, len(c.Modes))
	for _, name := range c.Modes {
		m, err := render.ParseMode(name)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// Camera builds the camera described by the config. Call Validate first.
func (c *Config) Camera() *render.Camera {
	cam := render.NewCamera()
	cam.SetEye(vec(c.Eye))
	cam.SetCenter(vec(c.Center))
	cam.SetUp(vec(c.Up))
	if p, err := render.ParseProjection(c.Projection); err == nil {
		cam.SetProjection(p)
	}
	cam.SetClipPlanes(c.Near, c.Far)
	cam.SetAspectRatio(float64(c.Width) / float64(c.Height))
	return cam
}

// Pass builds the render pass for mode using cam. Call Validate first.
func (c *Config) Pass(mode render.Mode, cam *render.Camera) *render.Pass {
	format, _ := tga.ParseFormat(c.Format)
	shader, _ := render.ParseShaderKind(c.Shader)
	return &render.Pass{
		Mode:       mode,
		Width:      c.Width,
		Height:     c.Height,
		Format:     format,
		Camera:     cam,
		Shader:     shader,
		Light:      vec(c.Light),
		Background: render.RGB(c.Background[0], c.Background[1], c.Background[2]),
	}
}

// OutputPath returns where an image named name (e.g. "framebuffer.tga")
// is written, with the configured extension.
func (c *Config) OutputPath(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name)) + c.Extension
	return filepath.Join(c.OutputDir, name)
}

func vec(a [3]float64) math3d.Vec3 {
	return math3d.V3(a[0], a[1], a[2])
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
