// Package embedded decodes the three embedded-image frame formats (spec.md
// §4.4): JPEG sequences (formats 31/42) and embedded animated GIF/WebP
// (format 43).
package embedded

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/fabkury/servoom/internal/transform"
)

var (
	// ErrDimensionMismatch means two frames of an embedded sequence did not
	// share pixel dimensions.
	ErrDimensionMismatch = errors.New("embedded: frame dimension mismatch")
	// ErrDecodeFailed means an underlying JPEG/GIF/WebP decoder rejected
	// the payload.
	ErrDecodeFailed = errors.New("embedded: image decode failed")
	// ErrTruncated means a JPEG sequence's length-prefixed framing ran out
	// of bytes mid-record.
	ErrTruncated = errors.New("embedded: truncated frame sequence")
)

// Sequence is one decoded embedded-image frame: its delay and RGB buffer,
// plus the width/height it was decoded at.
type Sequence struct {
	DelayMS int
	RGB     []byte
	Width   int
	Height  int
}

// DecodeJPEGSequence decodes format 31: `[u16 delay][JPEG bytes]` records
// concatenated until plaintext is exhausted. JPEG carries no length prefix,
// so each record's JPEG is taken to end at the first EOI marker (FF D9)
// after its start, or at the end of input when none follows; a JPEG holding
// that byte pair inside one of its header segments (an embedded thumbnail,
// for instance) is cut short there. image/jpeg reads ahead past EOI, so the
// boundary is not taken from how much the decoder consumed.
func DecodeJPEGSequence(plaintext []byte) ([]Sequence, error) {
	var out []Sequence
	pos := 0
	for pos < len(plaintext) {
		if pos+2 > len(plaintext) {
			return nil, ErrTruncated
		}
		delay := int(binary.LittleEndian.Uint16(plaintext[pos : pos+2]))
		pos += 2

		n := len(plaintext) - pos
		if i := bytes.Index(plaintext[pos:], []byte{0xFF, 0xD9}); i >= 0 {
			n = i + 2
		}
		img, err := jpeg.Decode(bytes.NewReader(plaintext[pos : pos+n]))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		pos += n

		rgb, w, h := toRGB(img)
		out = append(out, Sequence{DelayMS: delay, RGB: rgb, Width: w, Height: h})
	}
	if err := checkDimensions(out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeZstdJPEGSequence decodes format 42: a Zstd frame that unwraps to a
// format-31 JPEG sequence.
func DecodeZstdJPEGSequence(compressed []byte) ([]Sequence, error) {
	plaintext, err := transform.DecompressZstd(compressed)
	if err != nil {
		return nil, err
	}
	return DecodeJPEGSequence(plaintext)
}

// checkDimensions verifies every sequence entry shares the first entry's
// width/height (spec.md §4.4, DimensionMismatch).
func checkDimensions(seq []Sequence) error {
	if len(seq) == 0 {
		return nil
	}
	w, h := seq[0].Width, seq[0].Height
	for _, s := range seq[1:] {
		if s.Width != w || s.Height != h {
			return ErrDimensionMismatch
		}
	}
	return nil
}

// toRGB flattens an image.Image into a row-major R,G,B byte buffer.
func toRGB(img image.Image) ([]byte, int, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgb := make([]byte, w*h*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			rgb[i] = byte(r >> 8)
			rgb[i+1] = byte(g >> 8)
			rgb[i+2] = byte(b >> 8)
			i += 3
		}
	}
	return rgb, w, h
}
