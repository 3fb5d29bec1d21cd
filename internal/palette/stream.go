package palette

import "errors"

// Decoded frame-decoder errors. The root package wraps these into its own
// public error kinds (errors.go); they are defined here so this package has
// no dependency on the root package (avoiding an import cycle) while still
// being distinguishable with errors.Is by callers that import palette
// directly (e.g. the container43 embedded decoder never does, but tests do).
var (
	ErrTruncatedFrame   = errors.New("palette: truncated frame")
	ErrBitstreamOverrun = errors.New("palette: bitstream overrun")
	ErrIndexOutOfRange  = errors.New("palette: index out of range")
)

// frameHeaderSize is the fixed 5-byte per-frame header (subtype, u16 size,
// u16 delay), per spec.md §6.
const frameHeaderSize = 5

const hasPaletteDeltaBit = 0x01

// Frame is one decoded palette-bitstream frame.
type Frame struct {
	RGB     []byte // width*height*3, row-major, top-left origin
	DelayMS int
}

// DecodeStream runs the shared formats-9/17/18 skeleton (spec.md §4.3) over
// an already-transformed plaintext: read a 5-byte frame header, apply a
// full or delta palette update, unpack a ceil(log2(paletteSize))-bit index
// bitstream in raster order, advance by the frame's declared size, and
// repeat until the plaintext is exhausted.
//
// gridSize is the frame's pixel width and height (16 for formats 9/17, 32
// for format 18).
func DecodeStream(plaintext []byte, gridSize int) ([]Frame, error) {
	return decodeStream(plaintext, gridSize, decodeBitstream)
}

// bodyDecoder turns one frame's body bytes (everything after the header and
// any palette delta) into a gridSize*gridSize RGB buffer, given the rolling
// palette as of this frame.
type bodyDecoder func(body []byte, pal *Rolling, gridSize int) ([]byte, error)

// decodeStream is the shared header/palette loop used by both the flat
// bitstream formats (9/17/18, via DecodeStream) and format 26's
// hierarchical tile tree (via DecodeTileStream), which only differs in how
// a frame's body bytes become pixels.
func decodeStream(plaintext []byte, gridSize int, decode bodyDecoder) ([]Frame, error) {
	var frames []Frame
	var pal Rolling
	cursor := 0
	first := true

	for {
		remaining := len(plaintext) - cursor
		if remaining < frameHeaderSize {
			if remaining <= 1 {
				break
			}
			return nil, ErrBitstreamOverrun
		}

		header := plaintext[cursor : cursor+frameHeaderSize]
		subtype := header[0]
		frameSize := int(header[1]) | int(header[2])<<8
		delayMS := int(header[3]) | int(header[4])<<8
		pos := cursor + frameHeaderSize

		hasDelta := subtype&hasPaletteDeltaBit != 0
		if first || hasDelta {
			if pos >= len(plaintext) {
				return nil, ErrTruncatedFrame
			}
			count := int(plaintext[pos])
			pos++
			if pos+count*3 > len(plaintext) {
				return nil, ErrTruncatedFrame
			}
			entries := make([]RGB, count)
			for i := 0; i < count; i++ {
				entries[i] = RGB{plaintext[pos], plaintext[pos+1], plaintext[pos+2]}
				pos += 3
			}
			if first {
				pal.SetFull(entries)
			} else {
				pal.AppendDelta(entries)
			}
		}

		frameEnd := cursor + frameSize
		if frameEnd > len(plaintext) {
			if frameEnd-len(plaintext) <= 1 {
				break
			}
			return nil, ErrTruncatedFrame
		}

		rgb, err := decode(plaintext[pos:frameEnd], &pal, gridSize)
		if err != nil {
			return nil, err
		}
		frames = append(frames, Frame{RGB: rgb, DelayMS: delayMS})

		cursor = frameEnd
		first = false
	}

	if len(frames) == 0 {
		return nil, ErrTruncatedFrame
	}
	return frames, nil
}

// decodeBitstream unpacks gridSize*gridSize palette indices, LSB-first, at
// the current rolling-palette bit width, and resolves each to its RGB
// triple.
func decodeBitstream(body []byte, pal *Rolling, gridSize int) ([]byte, error) {
	w := BitWidthForPaletteSize(pal.Size())
	br := NewBitReader(body)
	pixelCount := gridSize * gridSize
	rgb := make([]byte, pixelCount*3)
	for i := 0; i < pixelCount; i++ {
		if br.BitsRemaining() < w {
			return nil, ErrBitstreamOverrun
		}
		idx := br.ReadBits(w)
		if idx >= pal.Size() {
			return nil, ErrIndexOutOfRange
		}
		c := pal.At(idx)
		rgb[i*3], rgb[i*3+1], rgb[i*3+2] = c.R, c.G, c.B
	}
	return rgb, nil
}
