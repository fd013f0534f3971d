package inkmatrix

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Default grid, in blocks: the game's 640x400 frame subsampled by two.
const (
	DefaultGridWidth  = 320
	DefaultGridHeight = 200
)

// Cache is a precomputed table holding the pattern of every (block, intensity)
// pair of a grid. It is read-only once built and safe for concurrent readers.
type Cache struct {
	width, height int
	version       byte
	noise         string
	entries       []BlockPattern
}

// CacheKey identifies a table: the calculator's version byte, the
// fingerprint of its noise texture and the grid size. A stored table is only
// reused under an identical key.
type CacheKey struct {
	Version       byte
	Noise         string
	Width, Height int
}

func (k CacheKey) valid() bool {
	return k.Width > 0 && k.Height > 0
}

// CacheLen returns the number of entries of a width x height grid.
func CacheLen(width, height int) int {
	return width * height * Levels
}

// Index returns the position of (x, y, v) in the flat table of a grid that is
// width blocks wide.
func Index(x, y int, v uint8, width int) int {
	return (y*width+x)*Levels + int(v)
}

func newCache(width, height int, version byte) *Cache {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("inkmatrix: invalid cache grid %dx%d", width, height))
	}
	return &Cache{
		width:   width,
		height:  height,
		version: version,
		entries: make([]BlockPattern, CacheLen(width, height)),
	}
}

// Width returns the grid width in blocks.
func (c *Cache) Width() int { return c.width }

// Height returns the grid height in blocks.
func (c *Cache) Height() int { return c.height }

// Version returns the version byte of the calculator that built the table.
func (c *Cache) Version() byte { return c.version }

// Key returns the key the table was built or loaded under.
func (c *Cache) Key() CacheKey {
	return CacheKey{Version: c.version, Noise: c.noise, Width: c.width, Height: c.height}
}

// Len returns the number of entries.
func (c *Cache) Len() int { return len(c.entries) }

// Entries exposes the flat table. Callers must not modify it.
func (c *Cache) Entries() []BlockPattern { return c.entries }

// Index returns the position of (x, y, v) in Entries.
func (c *Cache) Index(x, y int, v uint8) int {
	return Index(x, y, v, c.width)
}

// Lookup returns the pattern for intensity v at block (x, y). It panics when
// the block lies outside the grid.
func (c *Cache) Lookup(x, y int, v uint8) BlockPattern {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		panic(fmt.Sprintf("inkmatrix: block (%d,%d) outside %dx%d grid", x, y, c.width, c.height))
	}
	return c.entries[c.Index(x, y, v)]
}

// row returns the entries of block row y, indexed by x<<8 | v.
func (c *Cache) row(y int) []BlockPattern {
	n := c.width * Levels
	return c.entries[y*n : (y+1)*n]
}

// SizeBytes returns the serialized size of the table, without the version byte.
func (c *Cache) SizeBytes() int {
	return len(c.entries) * 2
}

// Build enumerates every block of a width x height grid and every intensity.
func Build(calc *Calculator, width, height int) *Cache {
	c, _ := BuildContext(context.Background(), calc, width, height)
	return c
}

// BuildContext is Build with cancellation. Rows are computed concurrently,
// one goroutine per row up to GOMAXPROCS at a time.
func BuildContext(ctx context.Context, calc *Calculator, width, height int) (*Cache, error) {
	c := newCache(width, height, calc.Version())
	c.noise = calc.noise.Fingerprint()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y := 0; y < height; y++ {
		y := y
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := c.row(y)
			for x := 0; x < width; x++ {
				for v := 0; v < Levels; v++ {
					row[x*Levels+v] = calc.Compute(uint8(v), x, y)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}
