package inkmatrix

import (
	"fmt"
	"image"
	"image/color"
)

// Encoding describes how a gray level is laid out in a display's pixel
// memory. Both of its tables are built once, when the encoding is created.
type Encoding struct {
	name string
	bpp  int
	lut  [256][2]byte
	// nibbles holds four pixels per nibble, leftmost pixel first, bpp bytes each.
	nibbles [16][4 * 2]byte
	decode  func(px []byte) uint8
}

func newEncoding(name string, bpp int, encode func(y uint8) [2]byte, decode func(px []byte) uint8) *Encoding {
	e := &Encoding{name: name, bpp: bpp, decode: decode}
	for y := 0; y < 256; y++ {
		e.lut[y] = encode(uint8(y))
	}
	on, off := e.lut[0xFF], e.lut[0x00]
	for n := range e.nibbles {
		for i := 0; i < 4; i++ {
			px := off
			if n&(0x8>>uint(i)) != 0 {
				px = on
			}
			copy(e.nibbles[n][i*bpp:], px[:bpp])
		}
	}
	return e
}

var (
	// Gray8 stores one byte per pixel, 0x00 for black and 0xFF for white.
	Gray8 = newEncoding("gray8", 1,
		func(y uint8) [2]byte { return [2]byte{y} },
		func(px []byte) uint8 { return px[0] },
	)

	// RGB565 stores the gray level as a little-endian RGB565 word, the layout
	// of the e-ink framebuffer.
	RGB565 = newEncoding("rgb565", 2,
		func(y uint8) [2]byte {
			p := uint16(y>>3)<<11 | uint16(y>>2)<<5 | uint16(y>>3)
			return [2]byte{byte(p), byte(p >> 8)}
		},
		func(px []byte) uint8 {
			g := (uint16(px[0]) | uint16(px[1])<<8) >> 5 & 0x3F
			return uint8(g<<2 | g>>4)
		},
	)
)

var encodings = map[string]*Encoding{
	Gray8.name:  Gray8,
	RGB565.name: RGB565,
}

// ParseEncoding returns the encoding with the given name.
func ParseEncoding(name string) (*Encoding, error) {
	if e, ok := encodings[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("inkmatrix: unknown encoding %q", name)
}

func (e *Encoding) String() string { return e.name }

// BytesPerPixel returns the size of one encoded pixel.
func (e *Encoding) BytesPerPixel() int { return e.bpp }

// Encode returns the native bytes of gray level y.
func (e *Encoding) Encode(y uint8) []byte {
	px := e.lut[y]
	return px[:e.bpp]
}

// Packed is a dithered image in a display's native encoding.
type Packed struct {
	Pix      []byte
	Stride   int
	Rect     image.Rectangle
	Encoding *Encoding
}

// NewPacked returns a black image with bounds r.
func NewPacked(r image.Rectangle, enc *Encoding) *Packed {
	stride := r.Dx() * enc.bpp
	p := &Packed{
		Pix:      make([]byte, stride*r.Dy()),
		Stride:   stride,
		Rect:     r,
		Encoding: enc,
	}
	if black := enc.Encode(0); black[0] != 0 || (enc.bpp > 1 && black[1] != 0) {
		for i := 0; i < len(p.Pix); i += enc.bpp {
			copy(p.Pix[i:], black)
		}
	}
	return p
}

func (p *Packed) ColorModel() color.Model { return color.GrayModel }

func (p *Packed) Bounds() image.Rectangle { return p.Rect }

func (p *Packed) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.Gray{}
	}
	i := p.PixOffset(x, y)
	return color.Gray{Y: p.Encoding.decode(p.Pix[i : i+p.Encoding.bpp])}
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (p *Packed) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*p.Encoding.bpp
}

// SubImage returns the part of p visible through r, sharing pixels with p.
func (p *Packed) SubImage(r image.Rectangle) *Packed {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &Packed{Encoding: p.Encoding}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &Packed{
		Pix:      p.Pix[i:],
		Stride:   p.Stride,
		Rect:     r,
		Encoding: p.Encoding,
	}
}
