package inkmatrix

import (
	"image"
	"image/draw"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// FromXRGB converts a packed 0x00RRGGBB frame, w pixels per row, into gray
// using the same weights as color.GrayModel.
func FromXRGB(buf []uint32, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	FromXRGBInto(img, buf)
	return img
}

// FromXRGBInto is FromXRGB writing into an existing image of the frame's size.
func FromXRGBInto(dst *image.Gray, buf []uint32) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	for y := 0; y < h; y++ {
		src := buf[y*w : (y+1)*w]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x, p := range src {
			r, g, b := (p>>16)&0xFF, (p>>8)&0xFF, p&0xFF
			row[x] = uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
		}
	}
}

// Subsample keeps every factor-th pixel of every factor-th row, starting at
// the top-left corner.
func Subsample(src *image.Gray, factor int) *image.Gray {
	if factor <= 1 {
		return src
	}
	r := src.Bounds()
	w, h := (r.Dx()+factor-1)/factor, (r.Dy()+factor-1)/factor
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srow := src.Pix[y*factor*src.Stride:]
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range drow {
			drow[x] = srow[x*factor]
		}
	}
	return dst
}

// Adjustments are tone corrections applied before dithering. The zero value
// changes nothing.
type Adjustments struct {
	Gamma      float64 `yaml:"gamma"`
	Brightness float64 `yaml:"brightness"`
	Contrast   float64 `yaml:"contrast"`
	Sharpen    float64 `yaml:"sharpen"`
	Invert     bool    `yaml:"invert"`
}

// Apply returns img with the adjustments applied, in the order gamma,
// brightness, sharpen, contrast, invert.
func (a Adjustments) Apply(img image.Image) image.Image {
	if a.Gamma != 0 && a.Gamma != 1 {
		img = imaging.AdjustGamma(img, a.Gamma)
	}
	if a.Brightness != 0 {
		img = imaging.AdjustBrightness(img, a.Brightness)
	}
	if a.Sharpen != 0 {
		img = imaging.Sharpen(img, a.Sharpen)
	}
	if a.Contrast != 0 {
		img = imaging.AdjustContrast(img, a.Contrast)
	}
	if a.Invert {
		img = imaging.Invert(img)
	}
	return img
}

// Fit scales img down to fit w x h, keeping its aspect ratio, applies adj and
// returns the result as gray, anchored at the origin.
func Fit(img image.Image, w, h int, adj Adjustments) *image.Gray {
	b := img.Bounds()
	if b.Dx() > w || b.Dy() > h {
		img = resize.Thumbnail(uint(w), uint(h), img, resize.NearestNeighbor)
	}
	img = adj.Apply(img)
	gray := image.NewGray(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(gray, gray.Rect, img, img.Bounds().Min, draw.Src)
	return gray
}

// LatestFrame is a single-slot mailbox between a frame producer and the
// refresh loop. The last stored frame wins; older ones are dropped unseen.
type LatestFrame struct {
	mu  sync.Mutex
	img *image.Gray
	seq uint64
}

// Store copies img into the slot.
func (f *LatestFrame) Store(img *image.Gray) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.img = copyGray(f.img, img)
	f.seq++
}

// Snapshot copies the current frame into dst, reallocating it when its
// size differs, and returns the copy with its sequence number. ok is false
// until the first Store.
func (f *LatestFrame) Snapshot(dst *image.Gray) (img *image.Gray, seq uint64, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.img == nil {
		return dst, 0, false
	}
	return copyGray(dst, f.img), f.seq, true
}

// Seq returns the number of frames stored so far.
func (f *LatestFrame) Seq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

func copyGray(dst, src *image.Gray) *image.Gray {
	r := src.Bounds()
	w, h := r.Dx(), r.Dy()
	if dst == nil || dst.Rect.Dx() != w || dst.Rect.Dy() != h {
		dst = image.NewGray(image.Rect(0, 0, w, h))
	}
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
	return dst
}
