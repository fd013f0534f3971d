package inkmatrix

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"time"
)

// FitFunc turns a decoded image into a frame for the refresh loop.
type FitFunc func(image.Image) *image.Gray

/*
PlayGIF feeds each frame of a gif into dst, standing in for a game engine.
Delays and disposal methods are respected. It returns when the gif's loop
count is exhausted or ctx is done.
*/
func PlayGIF(ctx context.Context, dst *LatestFrame, giff *gif.GIF, fit FitFunc) error {
	if len(giff.Image) == 0 {
		return nil
	}
	screen := image.NewRGBA(image.Rect(0, 0, giff.Config.Width, giff.Config.Height))
	if screen.Rect.Empty() {
		screen = image.NewRGBA(giff.Image[0].Bounds())
	}

	for c := 0; giff.LoopCount <= 0 || c <= giff.LoopCount; c++ {
		for i, frame := range giff.Image {
			delay := time.NewTimer(frameDelay(giff, i))

			var disposal byte
			if i < len(giff.Disposal) {
				disposal = giff.Disposal[i]
			}

			switch disposal {
			// Dispose previous essentially means draw then undo
			case gif.DisposalPrevious:
				previous := image.NewRGBA(screen.Rect)
				copy(previous.Pix, screen.Pix)
				drawFrame(screen, frame)
				dst.Store(fit(screen))
				screen = previous
			// Dispose background clears the frame's area once it has been shown
			case gif.DisposalBackground:
				drawFrame(screen, frame)
				dst.Store(fit(screen))
			// Dispose none or undefined means we just draw what we got over top
			default:
				drawFrame(screen, frame)
				dst.Store(fit(screen))
			}

			select {
			case <-ctx.Done():
				delay.Stop()
				return ctx.Err()
			case <-delay.C:
			}
			if disposal == gif.DisposalBackground {
				draw.Draw(screen, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
			}
		}
		if giff.LoopCount < 0 {
			break
		}
	}
	return nil
}

func frameDelay(giff *gif.GIF, i int) time.Duration {
	if i >= len(giff.Delay) || giff.Delay[i] <= 0 {
		return time.Second / DefaultFPS
	}
	return time.Duration(giff.Delay[i]) * time.Second / 100
}

func drawFrame(target draw.Image, source *image.Paletted) {
	bounds := source.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := source.At(x, y)
			if _, _, _, a := c.RGBA(); a == 0 {
				continue
			}
			target.Set(x, y, color.RGBAModel.Convert(c))
		}
	}
}
