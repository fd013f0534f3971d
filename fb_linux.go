package inkmatrix

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	fbioGetVScreenInfo = 0x4600
	mxcfbSendUpdate    = 0x4048462E

	updateModePartial = 0x0
	updateModeFull    = 0x1

	tempUseRemarkableDraw = 0x0018
)

type fbVarScreenInfo struct {
	XRes, YRes               uint32
	XResVirtual, YResVirtual uint32
	XOffset, YOffset         uint32
	BitsPerPixel, Grayscale  uint32
	_                        [128]byte
}

type mxcfbRect struct {
	Top, Left, Width, Height uint32
}

type mxcfbAltBufferData struct {
	PhysAddr      uint32
	Width, Height uint32
	Region        mxcfbRect
}

type mxcfbUpdateData struct {
	Region       mxcfbRect
	WaveformMode uint32
	UpdateMode   uint32
	UpdateMarker uint32
	Temp         int32
	Flags        uint32
	DitherMode   int32
	QuantBit     int32
	AltBuffer    mxcfbAltBufferData
}

// Framebuffer drives an mxcfb e-ink panel through its memory-mapped frame
// buffer device.
type Framebuffer struct {
	// Full forces full instead of partial updates.
	Full bool

	mu     sync.Mutex
	f      *os.File
	mem    []byte
	info   fbVarScreenInfo
	stride int
	enc    *Encoding
	marker uint32
}

// OpenFramebuffer maps device, usually /dev/fb0.
func OpenFramebuffer(device string) (*Framebuffer, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	fb := &Framebuffer{f: f}
	if err := ioctl(f, fbioGetVScreenInfo, unsafe.Pointer(&fb.info)); err != nil {
		f.Close()
		return nil, fmt.Errorf("inkmatrix: %s: screen info: %w", device, err)
	}
	switch fb.info.BitsPerPixel {
	case 8:
		fb.enc = Gray8
	case 16:
		fb.enc = RGB565
	default:
		f.Close()
		return nil, fmt.Errorf("inkmatrix: %s: unsupported depth %d", device, fb.info.BitsPerPixel)
	}
	fb.stride = int(fb.info.XResVirtual) * int(fb.info.BitsPerPixel) / 8
	size := fb.stride * int(fb.info.YResVirtual)
	fb.mem, err = unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("inkmatrix: %s: mmap: %w", device, err)
	}
	return fb, nil
}

// Encoding returns the pixel layout of the mapped memory.
func (fb *Framebuffer) Encoding() *Encoding { return fb.enc }

func (fb *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(fb.info.XRes), int(fb.info.YRes))
}

// Refresh copies p into the mapped memory at r and asks the controller to
// update that region.
func (fb *Framebuffer) Refresh(r image.Rectangle, p *Packed, mode Waveform) error {
	if p.Encoding != fb.enc {
		return fmt.Errorf("%w: %v frame for %v framebuffer", ErrGridMismatch, p.Encoding, fb.enc)
	}
	if !r.In(fb.Bounds()) || r.Dx() != p.Rect.Dx() || r.Dy() != p.Rect.Dy() {
		return fmt.Errorf("%w: region %v outside display %v", ErrGridMismatch, r, fb.Bounds())
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.mem == nil {
		return errors.New("inkmatrix: framebuffer closed")
	}
	bpp := fb.enc.bpp
	n := r.Dx() * bpp
	for y := 0; y < r.Dy(); y++ {
		off := (r.Min.Y+y)*fb.stride + r.Min.X*bpp
		copy(fb.mem[off:off+n], p.Pix[y*p.Stride:y*p.Stride+n])
	}

	fb.marker++
	update := mxcfbUpdateData{
		Region: mxcfbRect{
			Top:    uint32(r.Min.Y),
			Left:   uint32(r.Min.X),
			Width:  uint32(r.Dx()),
			Height: uint32(r.Dy()),
		},
		WaveformMode: uint32(mode),
		UpdateMode:   updateModePartial,
		UpdateMarker: fb.marker,
		Temp:         tempUseRemarkableDraw,
	}
	if fb.Full {
		update.UpdateMode = updateModeFull
	}
	return ioctl(fb.f, mxcfbSendUpdate, unsafe.Pointer(&update))
}

func (fb *Framebuffer) Close() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.mem == nil {
		return nil
	}
	err := unix.Munmap(fb.mem)
	fb.mem = nil
	if cerr := fb.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (fb *Framebuffer) String() string {
	return "framebuffer:" + fb.f.Name()
}

func ioctl(f *os.File, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
