package inkmatrix

import (
	"bufio"
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"
)

type mjpegFrame struct {
	img image.Image
	err error
}

// mjpegReader splits a stream of concatenated JPEG images, as served by
// webcams and ffmpeg's mjpeg muxer.
type mjpegReader struct {
	Reader io.Reader
}

// readAll decodes frames in the background until the stream ends or ctx is
// done. A decoding or read error is delivered as the last value before the
// channel closes.
func (mjpeg *mjpegReader) readAll(ctx context.Context) <-chan mjpegFrame {
	frames := make(chan mjpegFrame)
	go func() {
		defer close(frames)

		var buf bytes.Buffer
		br := bufio.NewReader(mjpeg.Reader)
		for {
			c, err := br.ReadByte()
			if err != nil {
				if err != io.EOF {
					select {
					case frames <- mjpegFrame{err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
			buf.WriteByte(c)

			// A frame ends with the EOI marker.
			data := buf.Bytes()
			if len(data) < 2 || data[len(data)-2] != 0xff || data[len(data)-1] != 0xd9 {
				continue
			}
			img, err := jpeg.Decode(&buf)
			buf.Reset()
			if err != nil {
				select {
				case frames <- mjpegFrame{err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case frames <- mjpegFrame{img: img}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return frames
}

// StreamMJPEG feeds every frame of r into dst until the stream ends or ctx
// is done.
func StreamMJPEG(ctx context.Context, dst *LatestFrame, r io.Reader, fit FitFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reader := mjpegReader{Reader: r}
	for frame := range reader.readAll(ctx) {
		if frame.err != nil {
			return frame.err
		}
		dst.Store(fit(frame.img))
	}
	return ctx.Err()
}
