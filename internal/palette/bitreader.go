// Package palette implements the palette-bitstream frame decoders shared by
// container formats 9, 17, 18 and 26: a little-endian, LSB-first bit
// reader, a fixed-capacity rolling palette, the common frame-header/
// palette-delta/bitstream loop, and format 26's hierarchical tile decoder.
package palette

// BitReader extracts LSB-first, variable-width (<=8 bit) integers from a
// byte buffer, matching the unpacking rule in spec.md §4.3: read the low
// (8 - o%8) bits of the current byte, then if more bits are needed read the
// low (w - (8 - o%8)) bits of the next byte and shift them above the first
// chunk.
//
// Because widths never exceed 8 bits, it reads straight from the byte slice
// at the current bit position, with no accumulator register.
type BitReader struct {
	buf    []byte
	bitPos int // absolute bit offset from the start of buf
}

// NewBitReader creates a BitReader positioned at the start of buf.
func NewBitReader(buf []byte) *BitReader {
	return &BitReader{buf: buf}
}

// BitsRemaining returns the number of whole bits left to read.
func (r *BitReader) BitsRemaining() int {
	total := len(r.buf) * 8
	return total - r.bitPos
}

// BytePos returns the current byte offset (bit position rounded down).
func (r *BitReader) BytePos() int {
	return r.bitPos / 8
}

// ReadBits reads w (0..8) bits and returns them as a little-endian integer
// in [0, 2^w). It does not bounds-check beyond what's needed to avoid a
// panic; callers are responsible for checking BitsRemaining against the
// frame's declared size before reading (the shared stream skeleton in
// stream.go does this).
func (r *BitReader) ReadBits(w int) int {
	if w <= 0 {
		return 0
	}
	byteIdx := r.bitPos / 8
	bitOff := r.bitPos % 8

	firstChunkBits := 8 - bitOff
	var val int
	if firstChunkBits >= w {
		val = int(r.buf[byteIdx]>>uint(bitOff)) & ((1 << uint(w)) - 1)
	} else {
		low := int(r.buf[byteIdx] >> uint(bitOff))
		remaining := w - firstChunkBits
		var high int
		if byteIdx+1 < len(r.buf) {
			high = int(r.buf[byteIdx+1]) & ((1 << uint(remaining)) - 1)
		}
		val = (low & ((1 << uint(firstChunkBits)) - 1)) | (high << uint(firstChunkBits))
	}
	r.bitPos += w
	return val
}

// BitWidthForPaletteSize implements the format-26 bits_table smoothing from
// spec.md §9: 1->1, 2->1, 3-4->2, 5-8->3, 9-16->4, 17-32->5, 33-64->6,
// 65-128->7, 129-256->8. This also governs the formats-9/17/18 index width
// (ceil(log2(paletteSize)), with the size-1 and size-2 edge cases spelled
// out explicitly in spec.md §4.3).
func BitWidthForPaletteSize(size int) int {
	switch {
	case size <= 1:
		return 1
	case size <= 2:
		return 1
	case size <= 4:
		return 2
	case size <= 8:
		return 3
	case size <= 16:
		return 4
	case size <= 32:
		return 5
	case size <= 64:
		return 6
	case size <= 128:
		return 7
	default:
		return 8
	}
}
