package inkmatrix

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Artifact layout:
//
//	+---------+----------------------------------------+
//	| version | entry 0 | entry 1 | ... | entry w*h*256-1 |
//	|  1 byte |  u16 little-endian, (y, x, v) order     |
//	+---------+----------------------------------------+
//
// The whole artifact may be wrapped in a single zstd stream.

var (
	ErrStaleVersion = errors.New("inkmatrix: artifact version mismatch")
	ErrTruncated    = errors.New("inkmatrix: artifact truncated")
	ErrTrailingData = errors.New("inkmatrix: artifact has trailing data")
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

const artifactChunk = 64 << 10

// WriteArtifact serializes c uncompressed.
func WriteArtifact(w io.Writer, c *Cache) error {
	bw := bufio.NewWriterSize(w, artifactChunk)
	if err := bw.WriteByte(c.version); err != nil {
		return err
	}
	var buf [2]byte
	for _, e := range c.entries {
		binary.LittleEndian.PutUint16(buf[:], uint16(e))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteCompressedArtifact serializes c inside a zstd stream.
func WriteCompressedArtifact(w io.Writer, c *Cache) error {
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return err
	}
	if err := WriteArtifact(enc, c); err != nil {
		enc.Close()
		return fmt.Errorf("zstd encode: %w", err)
	}
	return enc.Close()
}

// ReadArtifact parses an uncompressed artifact for a width x height grid. The
// version byte and the exact body length are checked; nothing is returned
// unless both match.
func ReadArtifact(r io.Reader, version byte, width, height int) (*Cache, error) {
	br := bufio.NewReaderSize(r, artifactChunk)
	got, err := br.ReadByte()
	if err == io.EOF {
		return nil, ErrTruncated
	}
	if err != nil {
		return nil, err
	}
	if got != version {
		return nil, fmt.Errorf("%w: got %#02x, want %#02x", ErrStaleVersion, got, version)
	}

	c := newCache(width, height, version)
	chunk := make([]byte, artifactChunk)
	for i := 0; i < len(c.entries); {
		n := (len(c.entries) - i) * 2
		if n > len(chunk) {
			n = len(chunk)
		}
		if _, err := io.ReadFull(br, chunk[:n]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("%w: %d of %d entries", ErrTruncated, i, len(c.entries))
			}
			return nil, err
		}
		for j := 0; j < n; j += 2 {
			c.entries[i] = BlockPattern(binary.LittleEndian.Uint16(chunk[j:]))
			i++
		}
	}
	if _, err := br.ReadByte(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, ErrTrailingData
	}
	return c, nil
}

// OpenArtifact parses an artifact that may or may not be zstd compressed.
// Decompression happens before any version or length check.
func OpenArtifact(r io.Reader, version byte, width, height int) (*Cache, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}
	if !bytes.Equal(head, zstdMagic) {
		return ReadArtifact(br, version, width, height)
	}

	dec, err := zstd.NewReader(br,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	defer dec.Close()
	return ReadArtifact(dec, version, width, height)
}
