package inkmatrix

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func fitTo(w, h int) FitFunc {
	return func(img image.Image) *image.Gray {
		return Fit(img, w, h, Adjustments{})
	}
}

func paletted(r image.Rectangle, index uint8) *image.Paletted {
	img := image.NewPaletted(r, color.Palette{color.Black, color.White, color.Transparent})
	for i := range img.Pix {
		img.Pix[i] = index
	}
	return img
}

func TestPlayGIF(t *testing.T) {
	g := NewWithT(t)
	giff := &gif.GIF{
		Image: []*image.Paletted{
			paletted(image.Rect(0, 0, 4, 4), 1),
			paletted(image.Rect(0, 0, 2, 2), 0),
			paletted(image.Rect(2, 2, 4, 4), 2),
		},
		Delay:     []int{1, 1, 1},
		Disposal:  []byte{gif.DisposalNone, gif.DisposalPrevious, gif.DisposalNone},
		LoopCount: -1,
		Config:    image.Config{Width: 4, Height: 4},
	}

	var frames LatestFrame
	g.Expect(PlayGIF(context.Background(), &frames, giff, fitTo(4, 4))).To(Succeed())
	g.Expect(frames.Seq()).To(Equal(uint64(3)))

	// The second frame was disposed and the third is fully transparent.
	last, _, _ := frames.Snapshot(nil)
	g.Expect(last.Pix).To(Equal(bytes.Repeat([]byte{0xFF}, 16)))
}

func TestPlayGIFLoopsUntilCanceled(t *testing.T) {
	g := NewWithT(t)
	giff := &gif.GIF{
		Image:  []*image.Paletted{paletted(image.Rect(0, 0, 2, 2), 1)},
		Delay:  []int{1},
		Config: image.Config{Width: 2, Height: 2},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var frames LatestFrame
	g.Expect(PlayGIF(ctx, &frames, giff, fitTo(2, 2))).To(MatchError(context.DeadlineExceeded))
	g.Expect(frames.Seq()).To(BeNumerically(">", 1))
}

func TestStreamMJPEG(t *testing.T) {
	g := NewWithT(t)
	var stream bytes.Buffer
	for _, v := range []uint8{0, 255} {
		img := fill(image.NewGray(image.Rect(0, 0, 16, 8)), v)
		g.Expect(jpeg.Encode(&stream, img, nil)).To(Succeed())
	}

	var frames LatestFrame
	g.Expect(StreamMJPEG(context.Background(), &frames, &stream, fitTo(8, 8))).To(Succeed())
	g.Expect(frames.Seq()).To(Equal(uint64(2)))

	last, _, _ := frames.Snapshot(nil)
	g.Expect(last.Bounds()).To(Equal(image.Rect(0, 0, 8, 4)))
	g.Expect(last.GrayAt(3, 2).Y).To(BeNumerically(">", 250))
}

func TestStreamMJPEGCorrupt(t *testing.T) {
	g := NewWithT(t)
	stream := bytes.NewReader([]byte{0x00, 0x01, 0xff, 0xd9})
	var frames LatestFrame
	g.Expect(StreamMJPEG(context.Background(), &frames, stream, fitTo(8, 8))).NotTo(Succeed())
	g.Expect(frames.Seq()).To(BeZero())
}

func TestMJPEGReaderStopsWhenCanceled(t *testing.T) {
	g := NewWithT(t)
	var stream bytes.Buffer
	for i := 0; i < 3; i++ {
		g.Expect(jpeg.Encode(&stream, fill(image.NewGray(image.Rect(0, 0, 8, 8)), 128), nil)).To(Succeed())
	}

	ctx, cancel := context.WithCancel(context.Background())
	frames := (&mjpegReader{Reader: &stream}).readAll(ctx)
	first := <-frames
	g.Expect(first.err).NotTo(HaveOccurred())
	g.Expect(first.img.Bounds()).To(Equal(image.Rect(0, 0, 8, 8)))
	cancel()

	done := make(chan int)
	go func() {
		n := 0
		for range frames {
			n++
		}
		done <- n
	}()
	var rest int
	g.Eventually(done).Should(Receive(&rest))
	g.Expect(rest).To(BeNumerically("<=", 2))
}
