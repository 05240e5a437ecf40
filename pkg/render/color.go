package render

import (
	"image/color"
	"math"
)

// Color is an alias for color.RGBA. Channels are stored straight (not
// premultiplied) throughout the pipeline.
type Color = color.RGBA

var (
	ColorBlack = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	ColorWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ColorRed   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	ColorGreen = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	ColorBlue  = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	ColorGray  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// RGB creates an opaque color.
func RGB(r, g, b uint8) Color {
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// RGBA creates a color from RGBA values.
func RGBA(r, g, b, a uint8) Color {
	return color.RGBA{R: r, G: g, B: b, A: a}
}

// MultiplyColor scales the RGB channels by intensity, clamped to [0, 255].
// Alpha is kept.
func MultiplyColor(c Color, intensity float64) Color {
	scale := func(v uint8) uint8 {
		return uint8(math.Max(0, math.Min(255, float64(v)*intensity)))
	}
	return Color{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// ModulateColor multiplies two colors channel by channel.
func ModulateColor(a, b Color) Color {
	return Color{
		R: uint8((int(a.R) * int(b.R)) / 255),
		G: uint8((int(a.G) * int(b.G)) / 255),
		B: uint8((int(a.B) * int(b.B)) / 255),
		A: uint8((int(a.A) * int(b.A)) / 255),
	}
}
