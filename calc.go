package inkmatrix

import "fmt"

// FormatRevision identifies the index formula and bit convention of the
// cache. Bump it whenever either changes.
const FormatRevision = 1

// Brightening is a fixed intensity boost applied before thresholding. It
// compensates for e-ink rendering dark tones too dark. Each policy yields a
// distinct cache version.
type Brightening uint8

const (
	// NoBrightening compares the source intensity as is.
	NoBrightening Brightening = iota
	// Brighten150 multiplies intensity by 1.5, saturating at 255.
	Brighten150
)

var brighteningNames = map[Brightening]string{
	NoBrightening: "none",
	Brighten150:   "1.5x",
}

// ParseBrightening returns the policy with the given name.
func ParseBrightening(s string) (Brightening, error) {
	for b, name := range brighteningNames {
		if name == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("inkmatrix: unknown brightening %q", s)
}

func (b Brightening) String() string {
	if name, ok := brighteningNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Brightening(%d)", uint8(b))
}

// Apply returns v after brightening.
func (b Brightening) Apply(v uint8) uint8 {
	switch b {
	case Brighten150:
		boosted := int(v) * 3 / 2
		if boosted > 255 {
			return 255
		}
		return uint8(boosted)
	default:
		return v
	}
}

// Calculator computes block patterns straight from a noise texture.
type Calculator struct {
	noise       *NoiseTexture
	brightening Brightening
}

// NewCalculator returns a calculator over noise with the given policy.
func NewCalculator(noise *NoiseTexture, b Brightening) *Calculator {
	if noise == nil {
		panic("inkmatrix: nil noise texture")
	}
	if _, ok := brighteningNames[b]; !ok {
		panic(fmt.Sprintf("inkmatrix: unknown brightening %d", uint8(b)))
	}
	return &Calculator{noise: noise, brightening: b}
}

// Brightening returns the calculator's policy.
func (c *Calculator) Brightening() Brightening {
	return c.brightening
}

// Version returns the cache version byte for patterns produced by c.
func (c *Calculator) Version() byte {
	return FormatRevision<<4 | byte(c.brightening)
}

// Key returns the key of the table c builds for a width x height grid.
func (c *Calculator) Key(width, height int) CacheKey {
	return CacheKey{
		Version: c.Version(),
		Noise:   c.noise.Fingerprint(),
		Width:   width,
		Height:  height,
	}
}

// Compute returns the pattern for intensity v at block (bx, by). A sub-pixel
// is on when the brightened intensity is strictly greater than its noise
// threshold.
func (c *Calculator) Compute(v uint8, bx, by int) BlockPattern {
	v = c.brightening.Apply(v)
	var p BlockPattern
	x0, y0 := bx*BlockSize, by*BlockSize
	for dy := 0; dy < BlockSize; dy++ {
		for dx := 0; dx < BlockSize; dx++ {
			if v > c.noise.At(x0+dx, y0+dy) {
				p |= Mask(dx, dy)
			}
		}
	}
	return p
}
