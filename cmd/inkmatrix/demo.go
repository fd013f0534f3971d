package main

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/kevin-cantwell/inkmatrix"
)

// demoTick matches the game engine's 35Hz tic rate.
const demoTick = time.Second / 35

// demo is a stand-in game: a drifting plasma with a bouncing ball, rendered
// into a 0x00RRGGBB frame buffer the way the engine hands frames over.
type demo struct {
	w, h   int
	noise  opensimplex.Noise
	canvas *image.RGBA
	buf    []uint32

	x, y, dx, dy float64
}

func newDemo(w, h int) *demo {
	return &demo{
		w:      w,
		h:      h,
		noise:  opensimplex.NewNormalized(0),
		canvas: image.NewRGBA(image.Rect(0, 0, w, h)),
		buf:    make([]uint32, w*h),
		x:      float64(w) / 3,
		y:      float64(h) / 2,
		dx:     float64(w) / 90,
		dy:     float64(h) / 70,
	}
}

func (d *demo) step(t float64) []uint32 {
	const scale = 1.0 / 48
	for y := 0; y < d.h; y++ {
		for x := 0; x < d.w; x++ {
			n := d.noise.Eval3(float64(x)*scale, float64(y)*scale, t/2)
			v := uint8(n * 255)
			i := d.canvas.PixOffset(x, y)
			d.canvas.Pix[i+0] = v
			d.canvas.Pix[i+1] = v / 2
			d.canvas.Pix[i+2] = 255 - v
			d.canvas.Pix[i+3] = 0xFF
		}
	}

	r := float64(d.h) / 8
	d.x, d.dx = bounce(d.x+d.dx, d.dx, r, float64(d.w)-r)
	d.y, d.dy = bounce(d.y+d.dy, d.dy, r, float64(d.h)-r)

	gc := draw2dimg.NewGraphicContext(d.canvas)
	gc.SetFillColor(color.White)
	gc.SetStrokeColor(color.Black)
	gc.SetLineWidth(r / 6)
	draw2dkit.Circle(gc, d.x, d.y, r)
	gc.FillStroke()

	for i := range d.buf {
		p := d.canvas.Pix[i*4 : i*4+3]
		d.buf[i] = uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
	}
	return d.buf
}

func bounce(pos, vel, lo, hi float64) (float64, float64) {
	if pos < lo {
		return lo + (lo - pos), math.Abs(vel)
	}
	if pos > hi {
		return hi - (pos - hi), -math.Abs(vel)
	}
	return pos, vel
}

func runDemo(ctx context.Context, dst *inkmatrix.LatestFrame, w, h int) error {
	d := newDemo(w, h)
	frame := image.NewGray(image.Rect(0, 0, w, h))
	start := time.Now()
	ticker := time.NewTicker(demoTick)
	defer ticker.Stop()
	for {
		inkmatrix.FromXRGBInto(frame, d.step(time.Since(start).Seconds()))
		dst.Store(frame)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
