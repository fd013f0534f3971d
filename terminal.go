package inkmatrix

import (
	"fmt"
	"image"
	"io"
	"sync"
)

type Terminal interface {
	ResetCursor(rows int)
	ShowCursor(show bool)
}

type Xterm struct {
	Writer io.Writer
}

// Move the cursor to the beginning of the line and up rows
func (term *Xterm) ResetCursor(rows int) {
	if rows > 0 {
		fmt.Fprintf(term.Writer, "\033[999D\033[%dA", rows)
	}
}

func (term *Xterm) ShowCursor(show bool) {
	if show {
		io.WriteString(term.Writer, "\033[?12l\033[?25h")
	} else {
		io.WriteString(term.Writer, "\033[?25l")
	}
}

// TerminalDisplay previews frames as braille text, redrawing in place. Each
// refresh redraws the whole screen; the region and waveform are ignored
// beyond bounds checking.
type TerminalDisplay struct {
	Writer   io.Writer
	Terminal Terminal
	Size     image.Rectangle

	mu     sync.Mutex
	screen *Packed
	rows   int
}

// NewTerminalDisplay returns a preview of a w x h pixel screen written to w.
func NewTerminalDisplay(w io.Writer, width, height int) *TerminalDisplay {
	return &TerminalDisplay{
		Writer:   w,
		Terminal: &Xterm{Writer: w},
		Size:     image.Rect(0, 0, width, height),
	}
}

func (t *TerminalDisplay) Bounds() image.Rectangle { return t.Size }

func (t *TerminalDisplay) Refresh(r image.Rectangle, p *Packed, _ Waveform) error {
	if !r.In(t.Size) || r.Dx() != p.Rect.Dx() || r.Dy() != p.Rect.Dy() {
		return fmt.Errorf("%w: region %v outside display %v", ErrGridMismatch, r, t.Size)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.screen == nil || t.screen.Encoding != p.Encoding {
		t.screen = NewPacked(t.Size, p.Encoding)
	}
	dst := t.screen.SubImage(r)
	n := r.Dx() * p.Encoding.bpp
	for y := 0; y < r.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+n], p.Pix[y*p.Stride:y*p.Stride+n])
	}

	t.Terminal.ResetCursor(t.rows)
	rows, err := BrailleFlusher{}.Flush(t.Writer, t.screen)
	t.rows = rows
	return err
}

// Open hides the cursor.
func (t *TerminalDisplay) Open() {
	t.Terminal.ShowCursor(false)
}

// Close restores the cursor.
func (t *TerminalDisplay) Close() error {
	t.Terminal.ShowCursor(true)
	return nil
}
