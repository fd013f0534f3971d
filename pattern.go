package inkmatrix

// BlockSize is the edge length, in output pixels, of the block that one
// source pixel expands into.
const BlockSize = 4

// Levels is the number of distinct source intensities.
const Levels = 256

// BlockPattern is a dithered 4x4 block packed into 16 bits. Sub-pixels are
// numbered row-major and stored most significant bit first:
//
//	+---------------------------+
//	|0x8000 0x4000 0x2000 0x1000|
//	|0x0800 0x0400 0x0200 0x0100|
//	|0x0080 0x0040 0x0020 0x0010|
//	|0x0008 0x0004 0x0002 0x0001|
//	+---------------------------+
//
// A set bit is a white (on) sub-pixel.
type BlockPattern uint16

// Mask returns the bit that holds sub-pixel (dx, dy).
func Mask(dx, dy int) BlockPattern {
	return 0x8000 >> uint(dy*BlockSize+dx)
}

// Row returns row dy as a nibble whose high bit is the leftmost sub-pixel.
func (p BlockPattern) Row(dy int) uint8 {
	return uint8(p>>uint(12-4*dy)) & 0x0F
}

// On reports whether sub-pixel (dx, dy) is white.
func (p BlockPattern) On(dx, dy int) bool {
	return p&Mask(dx, dy) != 0
}

// Count returns the number of white sub-pixels.
func (p BlockPattern) Count() int {
	n := 0
	for v := p; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// grayNibbles expands a nibble into four 0x00/0xFF bytes, high bit first.
var grayNibbles = func() (t [16][4]byte) {
	for n := range t {
		for i := 0; i < 4; i++ {
			if n&(0x8>>uint(i)) != 0 {
				t[n][i] = 0xFF
			}
		}
	}
	return
}()

// Unpack expands the pattern into 16 gray bytes in row-major order, 0xFF for
// a set bit and 0x00 otherwise.
func (p BlockPattern) Unpack() (out [16]byte) {
	for dy := 0; dy < BlockSize; dy++ {
		copy(out[dy*BlockSize:], grayNibbles[p.Row(dy)][:])
	}
	return
}

// Braille renders the block as two braille cells, left half first. Dots are
// raised where the sub-pixel is black (off), matching ink on paper.
func (p BlockPattern) Braille() [2]Braille {
	var cells [2]Braille
	for dy := 0; dy < BlockSize; dy++ {
		for dx := 0; dx < BlockSize; dx++ {
			if !p.On(dx, dy) {
				cells[dx/2][dx%2][dy] = 1
			}
		}
	}
	return cells
}

// String returns the braille rendition of the block.
func (p BlockPattern) String() string {
	cells := p.Braille()
	return cells[0].String() + cells[1].String()
}
