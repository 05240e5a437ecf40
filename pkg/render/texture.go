package render

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/taigrr/tinyrender/pkg/math3d"
)

// WrapMode determines how texture coordinates outside [0,1] are handled.
type WrapMode int

const (
	WrapRepeat WrapMode = iota // Tile the texture
	WrapClamp                  // Clamp to edge
)

// FilterMode determines how texture sampling is performed.
type FilterMode int

const (
	FilterNearest  FilterMode = iota // Nearest-neighbor (pixelated)
	FilterBilinear                   // Bilinear interpolation (smooth)
)

// Texture holds a 2D image for texture mapping.
type Texture struct {
	Width      int
	Height     int
	Pixels     []Color    // Row-major pixel data
	WrapU      WrapMode   // Horizontal wrap mode
	WrapV      WrapMode   // Vertical wrap mode
	FilterMode FilterMode // Sampling filter mode
}

// NewTexture creates an empty texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:      width,
		Height:     height,
		Pixels:     make([]Color, width*height),
		WrapU:      WrapRepeat,
		WrapV:      WrapRepeat,
		FilterMode: FilterNearest,
	}
}

// LoadTexture loads a texture from an image file. TGA, PNG, JPEG, BMP and
// TIFF are recognised by extension.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer f.Close()

	img, err := DecodeImage(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", path, err)
	}
	return TextureFromImage(img), nil
}

// DecodeImage decodes r using the decoder for format, which may be a file
// extension (".tga") or a MIME type ("image/png"). TGA has no magic number,
// so formats are never sniffed.
func DecodeImage(r io.Reader, format string) (image.Image, error) {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	format = strings.TrimPrefix(format, "image/")
	switch format {
	case "tga", "x-tga", "x-targa":
		return tga.Decode(r)
	case "png":
		return png.Decode(r)
	case "jpg", "jpeg":
		return jpeg.Decode(r)
	case "bmp":
		return bmp.Decode(r)
	case "tif", "tiff":
		return tiff.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
}

// TextureFromImage creates a texture from an image.Image. Row 0 of the image
// is the top of the texture.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, xdraw.Src)

	tex := NewTexture(bounds.Dx(), bounds.Dy())
	for i := range tex.Pixels {
		p := nrgba.Pix[i*4 : i*4+4]
		tex.Pixels[i] = Color{R: p[0], G: p[1], B: p[2], A: p[3]}
	}
	return tex
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 Color) *Texture {
	tex := NewTexture(width, height)
	for i := range tex.Pixels {
		x, y := i%width, i/width
		if (x/checkSize+y/checkSize)%2 == 0 {
			tex.Pixels[i] = c1
		} else {
			tex.Pixels[i] = c2
		}
	}
	return tex
}

// SetPixel sets a pixel in the texture. Row 0 is the top.
func (t *Texture) SetPixel(x, y int, c Color) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}

// GetPixel returns the pixel at (x, y) with bounds checking.
func (t *Texture) GetPixel(x, y int) Color {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return Color{}
	}
	return t.Pixels[y*t.Width+x]
}

// Sample returns the color at uv. U runs left to right and V bottom to top.
func (t *Texture) Sample(uv math3d.Vec2) Color {
	if len(t.Pixels) == 0 {
		return Color{}
	}
	x := uv.X * float64(t.Width)
	y := uv.Y * float64(t.Height)
	if t.FilterMode != FilterBilinear {
		return t.texel(int(math.Floor(x)), int(math.Floor(y)))
	}

	// Texel centres sit at half-integer coordinates.
	x, y = x-0.5, y-0.5
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	var r, g, b, a float64
	blend := func(c Color, w float64) {
		r += float64(c.R) * w
		g += float64(c.G) * w
		b += float64(c.B) * w
		a += float64(c.A) * w
	}
	blend(t.texel(ix, iy), (1-fx)*(1-fy))
	blend(t.texel(ix+1, iy), fx*(1-fy))
	blend(t.texel(ix, iy+1), (1-fx)*fy)
	blend(t.texel(ix+1, iy+1), fx*fy)
	return Color{R: round8(r), G: round8(g), B: round8(b), A: round8(a)}
}

// SampleNormal decodes a normal-map texel: each channel maps [0, 255] to
// [-1, 1].
func (t *Texture) SampleNormal(uv math3d.Vec2) math3d.Vec3 {
	c := t.Sample(uv)
	return math3d.V3(
		float64(c.R)/255*2-1,
		float64(c.G)/255*2-1,
		float64(c.B)/255*2-1,
	)
}

// texel returns the pixel in column x and row y, with rows counted from
// the bottom of the image, after applying the wrap modes.
func (t *Texture) texel(x, y int) Color {
	x = wrapIndex(x, t.Width, t.WrapU)
	y = t.Height - 1 - wrapIndex(y, t.Height, t.WrapV)
	return t.Pixels[y*t.Width+x]
}

func wrapIndex(i, n int, mode WrapMode) int {
	if mode == WrapClamp {
		return min(max(i, 0), n-1)
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func round8(v float64) uint8 {
	return uint8(min(max(v+0.5, 0), 255))
}
