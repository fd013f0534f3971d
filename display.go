package inkmatrix

import (
	"fmt"
	"image"
	"strings"

	"periph.io/x/conn/v3/display"
)

// Waveform selects the e-ink update waveform. Values match the mxcfb driver.
type Waveform uint32

const (
	WaveformInit     Waveform = 0x0
	WaveformDU       Waveform = 0x1
	WaveformGC16     Waveform = 0x2
	WaveformGC16Fast Waveform = 0x3
	WaveformA2       Waveform = 0x4
	WaveformGL16     Waveform = 0x5
	WaveformGL16Fast Waveform = 0x6
	WaveformDU4      Waveform = 0x7
	WaveformREAGL    Waveform = 0x8
	WaveformREAGLD   Waveform = 0x9
	WaveformGL4      Waveform = 0xA
	WaveformGL16Inv  Waveform = 0xB
	WaveformAuto     Waveform = 0x101
)

var waveformNames = map[Waveform]string{
	WaveformInit:     "init",
	WaveformDU:       "du",
	WaveformGC16:     "gc16",
	WaveformGC16Fast: "gc16_fast",
	WaveformA2:       "a2",
	WaveformGL16:     "gl16",
	WaveformGL16Fast: "gl16_fast",
	WaveformDU4:      "du4",
	WaveformREAGL:    "reagl",
	WaveformREAGLD:   "reagld",
	WaveformGL4:      "gl4",
	WaveformGL16Inv:  "gl16_inv",
	WaveformAuto:     "auto",
}

// ParseWaveform returns the waveform with the given name, case-insensitively.
func ParseWaveform(s string) (Waveform, error) {
	s = strings.ToLower(s)
	for w, name := range waveformNames {
		if name == s {
			return w, nil
		}
	}
	return 0, fmt.Errorf("inkmatrix: unknown waveform %q", s)
}

func (w Waveform) String() string {
	if name, ok := waveformNames[w]; ok {
		return name
	}
	return fmt.Sprintf("Waveform(%#x)", uint32(w))
}

// Display is an output that accepts dithered frames. Refresh pushes p to the
// screen region r (in display coordinates, the size of p) using mode.
type Display interface {
	Bounds() image.Rectangle
	Refresh(r image.Rectangle, p *Packed, mode Waveform) error
}

// DrawerDisplay adapts a periph display.Drawer. The drawer does its own
// pixel conversion, so the waveform is ignored.
type DrawerDisplay struct {
	Drawer display.Drawer
}

func (d *DrawerDisplay) Bounds() image.Rectangle {
	return d.Drawer.Bounds()
}

func (d *DrawerDisplay) Refresh(r image.Rectangle, p *Packed, _ Waveform) error {
	if !r.In(d.Drawer.Bounds()) {
		return fmt.Errorf("%w: region %v outside display %v", ErrGridMismatch, r, d.Drawer.Bounds())
	}
	return d.Drawer.Draw(r, p, p.Rect.Min)
}

func (d *DrawerDisplay) String() string {
	return d.Drawer.String()
}
