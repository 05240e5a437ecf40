// tinyrender - software rasterizer
// Renders OBJ and glTF meshes to image files without a graphics API.
//
// Each enabled pass writes one image into the output directory:
//
//	vertex.tga       - projected vertices
//	line.tga         - triangle edges
//	triangle.tga     - filled triangles, white
//	framebuffer.tga  - shaded triangles
//
// With no model arguments a built-in checkered cube is rendered.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/tinyrender/pkg/config"
	"github.com/taigrr/tinyrender/pkg/models"
	"github.com/taigrr/tinyrender/pkg/render"
)

//go:embed assets/cube.obj
var cubeOBJ []byte

var (
	configPath = flag.String("config", "", "JSON config file")
	outputDir  = flag.String("o", "", "Output directory (default .)")
	width      = flag.Int("width", 0, "Image width (default 800)")
	height     = flag.Int("height", 0, "Image height (default 800)")
	projection = flag.String("projection", "", "Projection: frustum or pinhole")
	near       = flag.Float64("near", 0, "Frustum near plane distance (default eye distance / 10)")
	far        = flag.Float64("far", 0, "Frustum far plane distance (default eye distance * 10)")
	shader     = flag.String("shader", "", "Shader: unlit, gouraud, phong or bump")
	modes      = flag.String("modes", "", "Comma separated passes: points,lines,wireframe,shaded")
	format     = flag.String("format", "", "TGA pixel format: grayscale, rgb or rgba")
	extension  = flag.String("ext", "", "Output file type: .tga, .png or .webp")
	rle        = flag.Bool("rle", true, "RLE-compress TGA output")
	fitSize    = flag.Float64("fit", 0, "Centre each model and scale its longest side to this size")
	turntable  = flag.Int("turntable", 0, "Also write N shaded frames orbiting the model")
	preview    = flag.Bool("preview", false, "Show the last image in the terminal")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tinyrender - software rasterizer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tinyrender [options] [model.obj|model.glb ...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nOBJ textures are read from <name>_diffuse.tga and <name>_nm_tangent.tga.\n")
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
	}

	if err := run(paths, cliFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags collects the flags that override the config file. -rle only
// overrides when given explicitly, since its default is true.
func cliFlags() config.Flags {
	f := config.Flags{
		Width:      *width,
		Height:     *height,
		Format:     *format,
		Extension:  *extension,
		OutputDir:  *outputDir,
		Projection: *projection,
		Near:       *near,
		Far:        *far,
		Shader:     *shader,
		Modes:      *modes,
		Fit:        *fitSize,
		Turntable:  *turntable,
	}
	flag.Visit(func(fl *flag.Flag) {
		if fl.Name == "rle" {
			f.RLE = rle
		}
	})
	return f
}

func run(paths []string, flags config.Flags) error {
	var cfg config.Config
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return err
	}
	passModes, err := cfg.RenderModes()
	if err != nil {
		return err
	}

	meshes, err := loadMeshes(paths, cfg.Fit)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	cam := cfg.Camera()
	scene := make([]render.Model, len(meshes))
	for i, m := range meshes {
		scene[i] = m
		if !cfg.Pass(render.ModeShaded, cam).Visible(m.Bounds) {
			warnf("%s lies outside the view volume", m.Name)
		}
	}

	var last *render.Framebuffer
	for _, mode := range passModes {
		fb, err := renderPass(cfg.Pass(mode, cam), scene, cfg.OutputPath(mode.OutputName()), *cfg.RLE)
		if err != nil {
			return err
		}
		last = fb
	}

	if cfg.Turntable > 0 {
		fb, err := writeTurntable(&cfg, cam, scene)
		if err != nil {
			return err
		}
		last = fb
	}

	if *preview && last != nil {
		return showPreview(last)
	}
	return nil
}

// renderPass renders one pass, flips it to top-down order and writes it.
func renderPass(pass *render.Pass, scene []render.Model, out string, rle bool) (*render.Framebuffer, error) {
	fb, err := pass.Render(scene...)
	if err != nil {
		return nil, err
	}
	fb.FlipVertically()
	if err := fb.WriteFile(out, rle); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	logf("Wrote %s (%s, %dx%d)", out, pass.Mode, fb.Width, fb.Height)
	return fb, nil
}

// writeTurntable writes cfg.Turntable shaded frames with the eye orbiting
// the camera center.
func writeTurntable(cfg *config.Config, cam *render.Camera, scene []render.Model) (*render.Framebuffer, error) {
	orbit := render.NewOrbit(cfg.Turntable)
	base := cam.Eye
	pass := cfg.Pass(render.ModeShaded, cam)

	var fb *render.Framebuffer
	for frame := 0; !orbit.Done(); frame++ {
		orbit.Step()
		orbit.Apply(cam, base)
		var err error
		fb, err = renderPass(pass, scene, cfg.OutputPath(fmt.Sprintf("frame_%03d.tga", frame)), *cfg.RLE)
		if err != nil {
			return nil, err
		}
	}
	cam.SetEye(base)
	return fb, nil
}

// loadMeshes loads every model path, or the built-in cube when there are
// none. A positive fit rescales each mesh.
func loadMeshes(paths []string, fit float64) ([]*models.Mesh, error) {
	var meshes []*models.Mesh
	if len(paths) == 0 {
		cube, err := defaultMesh()
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, cube)
	}
	for _, path := range paths {
		mesh, err := loadMesh(path)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		meshes = append(meshes, mesh)
	}

	for _, m := range meshes {
		if fit > 0 {
			m.Fit(fit)
		}
		logf("Loaded: %s (%d vertices, %d triangles, %d materials)", m.Name, m.VertexCount(), m.TriangleCount(), m.MaterialCount())
	}
	return meshes, nil
}

func loadMesh(path string) (*models.Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		loader := models.NewOBJLoader()
		loader.Warnf = warnf
		return loader.Load(path)
	case ".glb", ".gltf":
		loader := models.NewGLTFLoader()
		loader.Warnf = warnf
		return loader.Load(path)
	default:
		return nil, fmt.Errorf("unsupported format: %s (use .obj, .gltf or .glb)", ext)
	}
}

// defaultMesh is the embedded cube with a checker texture.
func defaultMesh() (*models.Mesh, error) {
	mesh, err := models.ParseOBJ(bytes.NewReader(cubeOBJ), "cube.obj")
	if err != nil {
		return nil, fmt.Errorf("load built-in cube: %w", err)
	}
	mesh.Materials[0].Diffuse = render.NewCheckerTexture(64, 64, 8, render.RGB(200, 200, 200), render.RGB(100, 100, 100))
	return mesh, nil
}

// showPreview draws fb into the terminal and waits for a key press.
func showPreview(fb *render.Framebuffer) error {
	term := uv.DefaultTerminal()

	cols, rows, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(cols, rows)
	defer func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}()

	w, h := fb.FitCells(cols, rows)
	fb.Thumbnail(w, h).Draw(term, uv.Rect(0, 0, cols, rows))
	if err := term.Display(); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-term.Events():
			if !ok {
				return nil
			}
			if _, ok := ev.(uv.KeyPressEvent); ok {
				return nil
			}
		}
	}
}

func logf(format string, args ...any) {
	if !*quiet {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}
