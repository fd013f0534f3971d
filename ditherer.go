package inkmatrix

import (
	"errors"
	"fmt"
	"image"
)

// ErrGridMismatch is returned when a frame does not fit the cache grid or the
// destination buffer.
var ErrGridMismatch = errors.New("inkmatrix: grid mismatch")

type Option func(d *Ditherer)

// WithEncoding sets the pixel layout of the destination buffer. The default
// is Gray8.
func WithEncoding(enc *Encoding) Option {
	return func(d *Ditherer) {
		d.enc = enc
	}
}

// Ditherer expands gray frames into 4x4 dithered blocks by table lookup. It
// keeps scratch space between calls and must not be shared between
// goroutines; the Cache it reads may be.
type Ditherer struct {
	cache   *Cache
	enc     *Encoding
	scratch []BlockPattern
}

func NewDitherer(c *Cache, opts ...Option) *Ditherer {
	d := Ditherer{
		cache:   c,
		enc:     Gray8,
		scratch: make([]BlockPattern, c.Width()),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return &d
}

// Cache returns the table d reads from.
func (d *Ditherer) Cache() *Cache { return d.cache }

// Encoding returns the destination pixel layout.
func (d *Ditherer) Encoding() *Encoding { return d.enc }

// Dither returns a new buffer four times the size of src in each axis.
func (d *Ditherer) Dither(src *image.Gray) (*Packed, error) {
	r := src.Bounds()
	dst := NewPacked(image.Rect(0, 0, r.Dx()*BlockSize, r.Dy()*BlockSize), d.enc)
	if err := d.DitherInto(dst, src); err != nil {
		return nil, err
	}
	return dst, nil
}

// DitherInto writes the dithered src into dst. Source pixel (x, y), counted
// from the top-left of src's bounds, becomes block (x, y) of the grid and
// fills dst pixels [4x, 4x+4) x [4y, 4y+4).
func (d *Ditherer) DitherInto(dst *Packed, src *image.Gray) error {
	sr := src.Bounds()
	sw, sh := sr.Dx(), sr.Dy()
	if sw > d.cache.Width() || sh > d.cache.Height() {
		return fmt.Errorf("%w: %dx%d frame exceeds %dx%d cache", ErrGridMismatch, sw, sh, d.cache.Width(), d.cache.Height())
	}
	dr := dst.Rect
	if dr.Dx() != sw*BlockSize || dr.Dy() != sh*BlockSize {
		return fmt.Errorf("%w: %dx%d buffer for %dx%d frame", ErrGridMismatch, dr.Dx(), dr.Dy(), sw, sh)
	}
	if dst.Encoding != d.enc {
		return fmt.Errorf("%w: %v buffer for %v ditherer", ErrGridMismatch, dst.Encoding, d.enc)
	}

	bpp := d.enc.bpp
	run := BlockSize * bpp
	nibbles := &d.enc.nibbles
	patterns := d.scratch[:sw]
	for y := 0; y < sh; y++ {
		srow := src.Pix[y*src.Stride : y*src.Stride+sw]
		table := d.cache.row(y)
		for x, v := range srow {
			patterns[x] = table[x<<8|int(v)]
		}
		for dy := 0; dy < BlockSize; dy++ {
			off := (y*BlockSize + dy) * dst.Stride
			out := dst.Pix[off : off+sw*run]
			shift := uint(12 - 4*dy)
			for x, p := range patterns {
				copy(out[x*run:], nibbles[(p>>shift)&0x0F][:run])
			}
		}
	}
	return nil
}
