// Package render implements the software rasterization pipeline: buffers,
// the triangle rasterizer, shading programs and the per-pass driver.
package render

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	xdraw "golang.org/x/image/draw"

	"github.com/taigrr/tinyrender/pkg/tga"
)

// Framebuffer is a row-major grid of pixels with its origin at the top-left.
// Rendering treats y as pointing up, so callers flip before writing.
type Framebuffer struct {
	Width  int
	Height int
	Format tga.Format // channel layout used when the image is written
	Pixels []Color
}

// NewFramebuffer creates a framebuffer cleared to transparent black.
func NewFramebuffer(width, height int, format tga.Format) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Format: format,
		Pixels: make([]Color, width*height),
	}
}

// Clear fills the framebuffer with a solid color.
func (fb *Framebuffer) Clear(c Color) {
	for i := range fb.Pixels {
		fb.Pixels[i] = c
	}
}

// SetPixel sets a pixel at (x, y). Out-of-bounds writes are ignored.
func (fb *Framebuffer) SetPixel(x, y int, c Color) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// GetPixel returns the color at (x, y), or transparent black if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) Color {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return Color{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// FlipVertically swaps rows top to bottom in place.
func (fb *Framebuffer) FlipVertically() {
	w := fb.Width
	for top, bot := 0, fb.Height-1; top < bot; top, bot = top+1, bot-1 {
		a := fb.Pixels[top*w : (top+1)*w]
		b := fb.Pixels[bot*w : (bot+1)*w]
		for i := range a {
			a[i], b[i] = b[i], a[i]
		}
	}
}

// ToImage converts the framebuffer to an image.NRGBA.
func (fb *Framebuffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for i, c := range fb.Pixels {
		img.Pix[i*4+0] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = c.A
	}
	return img
}

// encodable returns the framebuffer in the channel layout named by Format.
func (fb *Framebuffer) encodable() image.Image {
	img := fb.ToImage()
	if fb.Format != tga.Grayscale {
		return img
	}
	gray := image.NewGray(img.Bounds())
	xdraw.Draw(gray, gray.Bounds(), img, image.Point{}, xdraw.Src)
	return gray
}

// WriteFile writes the framebuffer as it is stored. The encoder is chosen by
// extension: .png, .webp, anything else is TGA (RLE when rle is set).
func (fb *Framebuffer) WriteFile(path string, rle bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, fb.encodable())
	case ".webp":
		err = nativewebp.Encode(f, fb.ToImage(), nil)
	default:
		err = tga.Encode(f, fb.ToImage(), &tga.Options{Format: fb.Format, RLE: rle})
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// Thumbnail returns a bilinearly scaled copy of the framebuffer.
func (fb *Framebuffer) Thumbnail(width, height int) *Framebuffer {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), fb.ToImage(), image.Rect(0, 0, fb.Width, fb.Height), xdraw.Src, nil)

	out := NewFramebuffer(width, height, fb.Format)
	for i := range out.Pixels {
		p := dst.Pix[i*4 : i*4+4]
		out.Pixels[i] = Color{R: p[0], G: p[1], B: p[2], A: p[3]}
	}
	return out
}
