package inkmatrix

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
)

// defaultNoisePNG is a 64x64 void-and-cluster blue noise threshold map. Its
// thresholds span 0..254, so full intensity turns every sub-pixel on.
//
//go:embed noise.png
var defaultNoisePNG []byte

// NoiseTexture is an immutable grid of dither thresholds. Reads wrap around
// both axes so any destination size tiles it.
type NoiseTexture struct {
	w, h int
	pix  []uint8
	id   string
}

// NewNoiseTexture copies pix, a row-major w*h grid, into a new texture.
func NewNoiseTexture(w, h int, pix []uint8) (*NoiseTexture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("inkmatrix: noise texture must not be empty, got %dx%d", w, h)
	}
	if len(pix) != w*h {
		return nil, fmt.Errorf("inkmatrix: noise texture has %d samples, want %d", len(pix), w*h)
	}
	n := &NoiseTexture{w: w, h: h, pix: make([]uint8, len(pix))}
	copy(n.pix, pix)

	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:], uint32(w))
	binary.LittleEndian.PutUint32(dims[4:], uint32(h))
	sum := crc32.Update(crc32.ChecksumIEEE(dims[:]), crc32.IEEETable, n.pix)
	n.id = fmt.Sprintf("%08x", sum)
	return n, nil
}

// LoadNoise decodes a texture from any registered image format. Color images
// are reduced to luma.
func LoadNoise(r io.Reader) (*NoiseTexture, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("inkmatrix: decode noise texture: %w", err)
	}
	gray := toGray(img)
	return NewNoiseTexture(gray.Rect.Dx(), gray.Rect.Dy(), gray.Pix)
}

// LoadNoiseFile loads a texture from path.
func LoadNoiseFile(path string) (*NoiseTexture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("inkmatrix: open noise texture: %w", err)
	}
	defer f.Close()
	return LoadNoise(f)
}

// DefaultNoise returns the bundled blue noise texture.
func DefaultNoise() (*NoiseTexture, error) {
	if len(defaultNoisePNG) == 0 {
		return nil, errors.New("inkmatrix: bundled noise texture is missing")
	}
	return LoadNoise(bytes.NewReader(defaultNoisePNG))
}

// Size returns the texture dimensions.
func (n *NoiseTexture) Size() (w, h int) {
	return n.w, n.h
}

// At returns the threshold at (x, y) wrapped into the texture. x and y must
// not be negative.
func (n *NoiseTexture) At(x, y int) uint8 {
	return n.pix[(y%n.h)*n.w+x%n.w]
}

// Fingerprint identifies the texture's size and thresholds. Caches built
// from different textures never share a fingerprint in practice.
func (n *NoiseTexture) Fingerprint() string {
	return n.id
}

// Max returns the largest threshold in the texture.
func (n *NoiseTexture) Max() uint8 {
	var m uint8
	for _, v := range n.pix {
		if v > m {
			m = v
		}
	}
	return m
}

// toGray returns img as a tightly packed *image.Gray with bounds at the origin.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) && g.Stride == b.Dx() {
		return g
	}
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
