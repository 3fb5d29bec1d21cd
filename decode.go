package servoom

import (
	"encoding/binary"

	"github.com/fabkury/servoom/internal/embedded"
	"github.com/fabkury/servoom/internal/palette"
	"github.com/fabkury/servoom/internal/transform"
)

const preambleSize = 5 // 4-byte BE length + 1-byte format tag

// Decode parses a pixel-bean container and returns its canonical PixelBean
// value (spec.md §4.1). It dispatches on a one-byte format tag to exactly
// one of seven codecs; no codec falls through to another.
func Decode(payload []byte) (*PixelBean, error) {
	if len(payload) < preambleSize {
		return nil, ErrTruncatedHeader
	}
	declaredLen := binary.BigEndian.Uint32(payload[0:4])
	if declaredLen < 1 || uint64(declaredLen) > uint64(len(payload)-4) {
		return nil, ErrTruncatedHeader
	}
	tag := payload[4]
	body := payload[5 : 5+int(declaredLen)-1]

	switch tag {
	case 9:
		return decodePaletteFormat(body, tag, 16, aesOnly)
	case 17:
		return decodePaletteFormat(body, tag, 16, noTransform)
	case 18:
		return decodePaletteFormat(body, tag, 32, aesThenLZO)
	case 26:
		return decodeFormat26(body)
	case 31:
		return decodeEmbedded(embedded.DecodeJPEGSequence(body))
	case 42:
		plaintext, err := transform.DecompressZstd(body)
		if err != nil {
			return nil, zstdDecodeFailed(err)
		}
		return decodeEmbedded(embedded.DecodeJPEGSequence(plaintext))
	case 43:
		return decodeFormat43(body)
	default:
		return nil, unsupportedFormat(tag)
	}
}

// pipeline is one tag's transform chain, run over the format's raw body
// before the §4.3 palette-bitstream skeleton takes over.
type pipeline func(body []byte) ([]byte, error)

func noTransform(body []byte) ([]byte, error) { return body, nil }

func aesOnly(body []byte) ([]byte, error) {
	pt, err := transform.AESDecrypt(body)
	if err != nil {
		return nil, ErrCryptoAlignment
	}
	return pt, nil
}

func aesThenLZO(body []byte) ([]byte, error) {
	// The LZO-compressed payload is itself preceded by a 4-byte
	// little-endian expected-plaintext-length field, written by the same
	// encoder that applies AES-CBC over the whole thing.
	cipherPart, err := transform.AESDecrypt(body)
	if err != nil {
		return nil, ErrCryptoAlignment
	}
	if len(cipherPart) < 4 {
		return nil, ErrTruncatedFrame
	}
	expectedLen := int(binary.LittleEndian.Uint32(cipherPart[0:4]))
	out, err := transform.Decompress1X(cipherPart[4:], expectedLen)
	if err != nil {
		return nil, ErrLzoLength
	}
	return out, nil
}

// decodePaletteFormat runs a tag's transform pipeline, then the shared
// flat-bitstream frame decoder (formats 9/17/18), then builds a PixelBean.
func decodePaletteFormat(body []byte, tag byte, gridSize int, pl pipeline) (*PixelBean, error) {
	plaintext, err := pl(body)
	if err != nil {
		return nil, err
	}
	frames, err := palette.DecodeStream(plaintext, gridSize)
	if err != nil {
		return nil, translatePaletteErr(err)
	}
	return buildBean(gridSize, frames)
}

// decodeFormat26 runs AES-CBC -> LZO, then the hierarchical tile decoder.
func decodeFormat26(body []byte) (*PixelBean, error) {
	plaintext, err := aesThenLZO(body)
	if err != nil {
		return nil, err
	}
	if len(plaintext) < 1 {
		return nil, ErrTruncatedFrame
	}
	gridSize := tileGridSize(plaintext)
	frames, err := palette.DecodeTileStream(plaintext[1:], gridSize)
	if err != nil {
		return nil, translatePaletteErr(err)
	}
	return buildBean(gridSize, frames)
}

// tileGridSize reads format 26's outer 1-byte grid-size selector (1 = 128,
// any other value = 64), returning 64 on an empty plaintext (decodeFormat26
// rejects an empty plaintext before calling it).
func tileGridSize(plaintext []byte) int {
	if len(plaintext) > 0 && plaintext[0] == 1 {
		return 128
	}
	return 64
}

// translatePaletteErr maps internal/palette's local sentinel errors (it
// cannot import the root package without an import cycle) to this
// package's public error kinds.
func translatePaletteErr(err error) error {
	switch err {
	case palette.ErrTruncatedFrame:
		return ErrTruncatedFrame
	case palette.ErrBitstreamOverrun:
		return ErrBitstreamOverrun
	case palette.ErrIndexOutOfRange:
		return invariantViolation("palette index out of range")
	case palette.ErrMalformedTree:
		return ErrMalformedTree
	default:
		return err
	}
}

// buildBean converts a list of equal-size Frame values (each gridSize x
// gridSize) into a PixelBean. All frames in a palette-bitstream stream
// share one uniform delay in the public model, so the first frame's delay
// is used (matching the rolling single-stream "speed" field).
func buildBean(gridSize int, frames []palette.Frame) (*PixelBean, error) {
	steps := gridSize / 16
	rgbFrames := make([][]byte, len(frames))
	for i, f := range frames {
		rgbFrames[i] = f.RGB
	}
	return newPixelBean(steps, steps, frames[0].DelayMS, rgbFrames)
}

// decodeEmbedded adapts an embedded.Sequence decode (formats 31/42) into a
// PixelBean, using the first frame's pixel dimensions for the grid steps
// and requiring they be a multiple of 16 (spec.md §3).
func decodeEmbedded(seqs []embedded.Sequence, err error) (*PixelBean, error) {
	if err != nil {
		return nil, translateEmbeddedErr(err)
	}
	if len(seqs) == 0 {
		return nil, invariantViolation("zero embedded frames")
	}
	w, h := seqs[0].Width, seqs[0].Height
	if w%16 != 0 || h%16 != 0 {
		return nil, invariantViolation("embedded image dimensions not a multiple of 16")
	}
	rgbFrames := make([][]byte, len(seqs))
	for i, s := range seqs {
		rgbFrames[i] = s.RGB
	}
	return newPixelBean(h/16, w/16, seqs[0].DelayMS, rgbFrames)
}

func decodeFormat43(body []byte) (*PixelBean, error) {
	seqs, delayMS, err := embedded.DecodeContainer43(body)
	if err != nil {
		return nil, translateEmbeddedErr(err)
	}
	if len(seqs) == 0 {
		return nil, invariantViolation("zero embedded frames")
	}
	w, h := seqs[0].Width, seqs[0].Height
	if w%16 != 0 || h%16 != 0 {
		return nil, invariantViolation("embedded image dimensions not a multiple of 16")
	}
	rgbFrames := make([][]byte, len(seqs))
	for i, s := range seqs {
		rgbFrames[i] = s.RGB
	}
	return newPixelBean(h/16, w/16, delayMS, rgbFrames)
}

func translateEmbeddedErr(err error) error {
	switch err {
	case embedded.ErrDimensionMismatch:
		return ErrDimensionMismatch
	case embedded.ErrDecodeFailed, embedded.ErrUnknownContainer:
		return embeddedDecodeFailed(err)
	case embedded.ErrTruncated:
		return ErrTruncatedFrame
	default:
		return embeddedDecodeFailed(err)
	}
}
