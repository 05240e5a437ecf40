package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// halfBlock draws the top pixel as foreground and the bottom as background.
const halfBlock = "▀"

// Draw paints the framebuffer into area of scr, two pixel rows per cell row.
// The framebuffer should be stored top-down (flipped) and at most
// as wide as area and twice as tall; use Thumbnail to fit it.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	cols, rows := area.Max.X-area.Min.X, area.Max.Y-area.Min.Y
	for row := 0; row < rows; row++ {
		topY := row * 2
		if topY >= fb.Height {
			break
		}
		for col := 0; col < cols && col < fb.Width; col++ {
			cell := &uv.Cell{
				Content: halfBlock,
				Width:   1,
				Style: uv.Style{
					Fg: termColor(fb.GetPixel(col, topY)),
					Bg: termColor(fb.GetPixel(col, topY+1)),
				},
			}
			scr.SetCell(area.Min.X+col, area.Min.Y+row, cell)
		}
	}
}

// FitCells returns the largest thumbnail size, in pixels, that fits a
// cols x rows cell area while keeping the framebuffer's aspect ratio.
func (fb *Framebuffer) FitCells(cols, rows int) (width, height int) {
	if fb.Width == 0 || fb.Height == 0 || cols <= 0 || rows <= 0 {
		return 0, 0
	}
	width, height = cols, cols*fb.Height/fb.Width
	if height > rows*2 {
		height = rows * 2
		width = height * fb.Width / fb.Height
	}
	return max(width, 1), max(height, 1)
}

// termColor converts a pixel to a cell color; transparent means default.
func termColor(c Color) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}
