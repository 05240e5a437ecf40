// Package tga writes Truevision TGA images, uncompressed or run-length encoded.
//
// Decoding is left to github.com/ftrvxmtrx/tga, which registers itself with
// the standard image package.
package tga

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// Format is the number of bytes stored per pixel.
type Format int

const (
	Grayscale Format = 1
	RGB       Format = 3
	RGBA      Format = 4
)

// String returns the lower-case name used in configuration files.
func (f Format) String() string {
	switch f {
	case Grayscale:
		return "grayscale"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps a configuration name to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "grayscale", "gray":
		return Grayscale, nil
	case "rgb", "":
		return RGB, nil
	case "rgba":
		return RGBA, nil
	default:
		return 0, fmt.Errorf("tga: unknown format %q", s)
	}
}

// Image type codes from the TGA header.
const (
	typeTrueColor    = 2
	typeGrayscale    = 3
	typeRLETrueColor = 10
	typeRLEGrayscale = 11
)

const (
	headerSize      = 18
	maxPacket       = 128
	descTopLeft     = 0x20
	footerSignature = "TRUEVISION-XFILE.\x00"
)

// ErrTooLarge is returned for images wider or taller than the 16-bit header allows.
var ErrTooLarge = errors.New("tga: image dimensions exceed 65535")

// Options controls how an image is written. A nil *Options means RGB, RLE.
type Options struct {
	Format Format
	RLE    bool
}

type header struct {
	IDLength     uint8
	ColorMapType uint8
	ImageType    uint8
	ColorMap     [5]uint8
	XOrigin      uint16
	YOrigin      uint16
	Width        uint16
	Height       uint16
	BitsPerPixel uint8
	Descriptor   uint8
}

type footer struct {
	ExtensionOffset uint32
	DeveloperOffset uint32
	Signature       [18]byte
}

// Encode writes img to w. Rows are written top to bottom and the header
// carries the top-left origin flag, so readers need not flip.
func Encode(w io.Writer, img image.Image, o *Options) error {
	opts := Options{Format: RGB, RLE: true}
	if o != nil {
		opts = *o
	}
	if opts.Format != Grayscale && opts.Format != RGB && opts.Format != RGBA {
		return fmt.Errorf("tga: unsupported format %v", opts.Format)
	}

	b := img.Bounds()
	if b.Dx() > 0xffff || b.Dy() > 0xffff {
		return ErrTooLarge
	}

	h := header{
		Width:        uint16(b.Dx()),
		Height:       uint16(b.Dy()),
		BitsPerPixel: uint8(opts.Format * 8),
		Descriptor:   descTopLeft,
	}
	switch {
	case opts.Format == Grayscale && opts.RLE:
		h.ImageType = typeRLEGrayscale
	case opts.Format == Grayscale:
		h.ImageType = typeGrayscale
	case opts.RLE:
		h.ImageType = typeRLETrueColor
	default:
		h.ImageType = typeTrueColor
	}
	if opts.Format == RGBA {
		h.Descriptor |= 8 // alpha bits
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("tga: write header: %w", err)
	}

	bpp := int(opts.Format)
	row := make([]byte, b.Dx()*bpp)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			packPixel(row[(x-b.Min.X)*bpp:], img.At(x, y), opts.Format)
		}
		var err error
		if opts.RLE {
			err = writeRLERow(bw, row, bpp)
		} else {
			_, err = bw.Write(row)
		}
		if err != nil {
			return fmt.Errorf("tga: write pixels: %w", err)
		}
	}

	f := footer{}
	copy(f.Signature[:], footerSignature)
	if err := binary.Write(bw, binary.LittleEndian, f); err != nil {
		return fmt.Errorf("tga: write footer: %w", err)
	}
	return bw.Flush()
}

// packPixel stores c in TGA byte order (BGR[A] or a single luma byte).
func packPixel(dst []byte, c color.Color, f Format) {
	if f == Grayscale {
		dst[0] = color.GrayModel.Convert(c).(color.Gray).Y
		return
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	dst[0], dst[1], dst[2] = n.B, n.G, n.R
	if f == RGBA {
		dst[3] = n.A
	}
}

// writeRLERow encodes one scanline as a sequence of run and raw packets.
// Packets never span scanlines.
func writeRLERow(w io.Writer, row []byte, bpp int) error {
	n := len(row) / bpp
	px := func(i int) []byte { return row[i*bpp : (i+1)*bpp] }
	same := func(i, j int) bool {
		a, b := px(i), px(j)
		for k := range a {
			if a[k] != b[k] {
				return false
			}
		}
		return true
	}

	for i := 0; i < n; {
		run := 1
		for i+run < n && run < maxPacket && same(i, i+run) {
			run++
		}
		if run > 1 {
			if _, err := w.Write([]byte{0x80 | byte(run-1)}); err != nil {
				return err
			}
			if _, err := w.Write(px(i)); err != nil {
				return err
			}
			i += run
			continue
		}

		raw := 1
		for i+raw < n && raw < maxPacket {
			if i+raw+1 < n && same(i+raw, i+raw+1) {
				break
			}
			raw++
		}
		if _, err := w.Write([]byte{byte(raw - 1)}); err != nil {
			return err
		}
		if _, err := w.Write(row[i*bpp : (i+raw)*bpp]); err != nil {
			return err
		}
		i += raw
	}
	return nil
}
