package inkmatrix

import (
	"context"
	"errors"
	"image"
	"log"
	"time"
)

// DefaultFPS is the refresh rate used when Renderer.FPS is unset.
const DefaultFPS = 10

// Renderer is the refresh loop: it samples the latest game frame at a fixed
// rate, dithers it and hands it to the display.
type Renderer struct {
	Frames   *LatestFrame
	Ditherer *Ditherer
	Display  Display
	FPS      int
	Waveform Waveform
	// Origin is where the top-left of the dithered frame lands on the display.
	Origin image.Point
	// Downscale subsamples frames by this factor before dithering; 0 or 1
	// keeps every pixel.
	Downscale int
	Log       *log.Logger

	frame  *image.Gray
	packed *Packed
	seq    uint64
	drawn  bool
}

// Run refreshes the display until ctx is done or a frame fails to render.
// Frames that have not changed since the last refresh are skipped.
func (r *Renderer) Run(ctx context.Context) error {
	fps := r.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	interval := time.Second / time.Duration(fps)
	for {
		delay := time.NewTimer(interval)
		if err := r.Step(); err != nil {
			delay.Stop()
			return err
		}
		select {
		case <-ctx.Done():
			delay.Stop()
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-delay.C:
		}
	}
}

// Step performs one iteration of the loop and reports nothing when there is
// no new frame.
func (r *Renderer) Step() error {
	var (
		seq uint64
		ok  bool
	)
	r.frame, seq, ok = r.Frames.Snapshot(r.frame)
	if !ok || (r.drawn && seq == r.seq) {
		return nil
	}

	src := r.frame
	if r.Downscale > 1 {
		src = Subsample(src, r.Downscale)
	}
	b := src.Bounds()
	size := image.Pt(b.Dx()*BlockSize, b.Dy()*BlockSize)
	if r.packed == nil || r.packed.Rect.Size() != size {
		r.packed = NewPacked(image.Rectangle{Max: size}, r.Ditherer.Encoding())
	}

	start := time.Now()
	if err := r.Ditherer.DitherInto(r.packed, src); err != nil {
		return err
	}
	region := r.packed.Rect.Add(r.Origin)
	if err := r.Display.Refresh(region, r.packed, r.Waveform); err != nil {
		return err
	}
	if !r.drawn {
		logf(r.Log, "first frame %v dithered and refreshed in %v", region, time.Since(start))
	}
	r.seq, r.drawn = seq, true
	return nil
}
