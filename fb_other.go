//go:build !linux

package inkmatrix

import (
	"errors"
	"image"
)

// Framebuffer drives an mxcfb e-ink panel. It is only available on linux.
type Framebuffer struct {
	Full bool
}

func OpenFramebuffer(device string) (*Framebuffer, error) {
	return nil, errors.New("inkmatrix: framebuffer displays require linux")
}

func (fb *Framebuffer) Encoding() *Encoding { return RGB565 }

func (fb *Framebuffer) Bounds() image.Rectangle { return image.Rectangle{} }

func (fb *Framebuffer) Refresh(image.Rectangle, *Packed, Waveform) error {
	return errors.New("inkmatrix: framebuffer displays require linux")
}

func (fb *Framebuffer) Close() error { return nil }
