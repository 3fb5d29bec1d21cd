package mux

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fabkury/servoom/internal/webpcodec/container"
)

// FrameOptions specifies per-frame parameters for animated WebP.
//
// Pixel-bean frames never carry a canvas offset (every frame is the full
// canvas) and never carry alpha (every pixel-bean pixel is opaque), so
// unlike a general-purpose muxer this type has no OffsetX/OffsetY and the
// assembler never looks for an ALPH sub-chunk.
type FrameOptions struct {
	Duration    int
	DisposeMode DisposeMode
	BlendMode   BlendMode
}

type muxFrame struct {
	data []byte // Raw VP8/VP8L bitstream.
	opts FrameOptions
}

// Muxer assembles a WebP RIFF container from frames.
type Muxer struct {
	frames []muxFrame
	// ANIM parameters.
	loopCount int
	// Explicit canvas dimensions (VP8X). When set (>0), these take priority
	// over the canvas size computed from frame extents. This matches the C
	// libwebp behavior where the VP8X canvas size is authoritative.
	canvasWidth  int
	canvasHeight int
}

// maxDuration is the maximum frame duration in milliseconds (24-bit max).
// This matches the C libwebp MAX_DURATION constant.
const maxDuration = 0xFFFFFF // 16777215

// maxLoopCount is the maximum animation loop count (16-bit max).
// This matches the C libwebp MAX_LOOP_COUNT constant.
const maxLoopCount = 0xFFFF // 65535

var (
	ErrNoFrames      = errors.New("mux: no frames to assemble")
	ErrFrameEmpty    = errors.New("mux: frame data is empty")
	ErrMuxValidation = errors.New("mux: validation failed")
)

// NewMuxer creates a new Muxer.
func NewMuxer() *Muxer {
	return &Muxer{}
}

// SetLoopCount sets the animation loop count (0 = infinite).
// Values are clamped to [0, maxLoopCount] (65535).
func (m *Muxer) SetLoopCount(count int) {
	if count < 0 {
		count = 0
	} else if count > maxLoopCount {
		count = maxLoopCount
	}
	m.loopCount = count
}

// SetCanvasSize explicitly sets the canvas dimensions. When set (both > 0),
// these values take priority over the canvas size computed from frame extents.
// This matches the C libwebp behavior where the VP8X canvas size is
// authoritative. Values are stored as-is; the VP8X chunk will encode them
// as (width-1, height-1) in 24-bit LE.
func (m *Muxer) SetCanvasSize(width, height int) {
	m.canvasWidth = width
	m.canvasHeight = height
}

// clampDuration clamps a frame duration in milliseconds to [0, maxDuration].
func clampDuration(d int) int {
	if d < 0 {
		return 0
	}
	if d > maxDuration {
		return maxDuration
	}
	return d
}

// AddFrame adds a frame. data is the raw VP8/VP8L bitstream, always the full
// canvas at offset (0,0). opts may be nil for a still (single-frame) image.
// Duration is clamped to [0, maxDuration].
func (m *Muxer) AddFrame(data []byte, opts *FrameOptions) error {
	if len(data) == 0 {
		return ErrFrameEmpty
	}
	fo := FrameOptions{}
	if opts != nil {
		fo = *opts
	}
	fo.Duration = clampDuration(fo.Duration)
	m.frames = append(m.frames, muxFrame{data: data, opts: fo})
	return nil
}

// NumFrames returns the number of frames added so far.
func (m *Muxer) NumFrames() int {
	return len(m.frames)
}

// isAnimated returns true if the muxer has multiple frames or any frame has a non-zero duration.
func (m *Muxer) isAnimated() bool {
	if len(m.frames) > 1 {
		return true
	}
	for _, f := range m.frames {
		if f.opts.Duration > 0 {
			return true
		}
	}
	return false
}

// Assemble writes the complete WebP file to w.
func (m *Muxer) Assemble(w io.Writer) error {
	if err := m.validate(); err != nil {
		return err
	}

	// If single frame, write the simple (non-extended) format. Pixel-bean
	// output never carries ICC/EXIF/XMP, so the only reason to need the
	// VP8X-extended form at all is an animation.
	if !m.isAnimated() {
		return m.assembleSimple(w)
	}
	return m.assembleExtended(w)
}

// validate checks the muxer state for consistency before assembling. Every
// pixel-bean frame occupies the full canvas at offset (0,0), so this only
// has to check that each frame's bitstream dimensions fit the canvas, not
// the general offset-overflow arithmetic a per-frame-offset muxer needs.
func (m *Muxer) validate() error {
	if len(m.frames) == 0 {
		return ErrNoFrames
	}
	canvasW, canvasH := m.canvasSize()
	for i, f := range m.frames {
		fw, fh := frameDimensions(f.data)
		if fw == 0 || fh == 0 {
			continue // could not parse dimensions, skip check
		}
		if fw > canvasW || fh > canvasH {
			return fmt.Errorf("%w: frame %d (%dx%d) exceeds canvas (%dx%d)",
				ErrMuxValidation, i, fw, fh, canvasW, canvasH)
		}
	}
	return nil
}

// assembleSimple writes a simple (non-extended) WebP file.
func (m *Muxer) assembleSimple(w io.Writer) error {
	frame := m.frames[0]
	chunkID := detectBitstreamType(frame.data)
	chunkSize := uint32(len(frame.data))
	paddedChunkSize := chunkSize
	if chunkSize%2 != 0 {
		paddedChunkSize++
	}

	// Total RIFF payload = "WEBP" (4) + chunk header (8) + padded payload.
	riffPayload := 4 + container.ChunkHeaderSize + paddedChunkSize
	buf := make([]byte, container.RIFFHeaderSize+container.ChunkHeaderSize)

	// RIFF header.
	binary.LittleEndian.PutUint32(buf[0:4], FourCCRIFF)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(riffPayload))
	binary.LittleEndian.PutUint32(buf[8:12], FourCCWEBP)

	// Chunk header.
	writeChunkHeader(buf[12:20], chunkID, chunkSize)

	if _, err := w.Write(buf); err != nil {
		return err
	}
	if _, err := w.Write(frame.data); err != nil {
		return err
	}
	if chunkSize%2 != 0 {
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}
	return nil
}

// assembleExtended writes an extended (VP8X) animated WebP file. Every
// pixel-bean frame is opaque, so the alpha flag is never set and no frame
// ever carries an ALPH sub-chunk.
func (m *Muxer) assembleExtended(w io.Writer) error {
	flags := byte(flagAnimation)

	canvasW, canvasH := m.canvasSize()

	// Calculate total RIFF payload size.
	riffPayload := uint32(4) // "WEBP"

	// VP8X chunk: header + 10 bytes.
	riffPayload += container.ChunkHeaderSize + container.VP8XChunkSize

	// ANIM chunk.
	riffPayload += container.ChunkHeaderSize + container.ANIMChunkSize

	// Frames.
	for _, f := range m.frames {
		// ANMF chunk: header + 16 bytes ANMF header + one VP8/VP8L sub-chunk.
		subSize := chunkTotalSize(uint32(len(f.data)))
		anmfPayload := uint32(container.ANMFChunkSize) + subSize
		riffPayload += container.ChunkHeaderSize + anmfPayload
		if anmfPayload%2 != 0 {
			riffPayload++
		}
	}

	// Write RIFF header.
	header := make([]byte, container.RIFFHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], FourCCRIFF)
	binary.LittleEndian.PutUint32(header[4:8], riffPayload)
	binary.LittleEndian.PutUint32(header[8:12], FourCCWEBP)
	if _, err := w.Write(header); err != nil {
		return err
	}

	// Write VP8X chunk.
	vp8xBuf := make([]byte, container.ChunkHeaderSize+container.VP8XChunkSize)
	writeChunkHeader(vp8xBuf[0:8], FourCCVP8X, container.VP8XChunkSize)
	vp8xBuf[8] = flags
	// Bytes 9-11 reserved (already zero).
	// Canvas width-1 as 24-bit LE at offset 12..14.
	putLE24(vp8xBuf[12:15], canvasW-1)
	// Canvas height-1 as 24-bit LE at offset 15..17.
	putLE24(vp8xBuf[15:18], canvasH-1)
	if _, err := w.Write(vp8xBuf); err != nil {
		return err
	}

	// Write ANIM chunk. bgColor is always 0: pixel-bean frames always cover
	// the full canvas, so the background color is never actually visible.
	animBuf := make([]byte, container.ChunkHeaderSize+container.ANIMChunkSize)
	writeChunkHeader(animBuf[0:8], FourCCANIM, container.ANIMChunkSize)
	binary.LittleEndian.PutUint16(animBuf[12:14], uint16(m.loopCount))
	if _, err := w.Write(animBuf); err != nil {
		return err
	}

	// Write frames.
	for _, f := range m.frames {
		if err := m.writeANMFChunk(w, f); err != nil {
			return err
		}
	}

	return nil
}

// writeANMFChunk writes an ANMF wrapper around a frame's VP8/VP8L bitstream
// (never an ALPH sub-chunk, and never an offset other than (0,0)).
func (m *Muxer) writeANMFChunk(w io.Writer, f muxFrame) error {
	subSize := chunkTotalSize(uint32(len(f.data)))
	anmfPayload := uint32(container.ANMFChunkSize) + subSize

	// ANMF chunk header.
	hdr := make([]byte, container.ChunkHeaderSize+container.ANMFChunkSize)
	writeChunkHeader(hdr[0:8], FourCCANMF, anmfPayload)

	// ANMF frame header (16 bytes): offset is always (0,0).

	// Parse frame dimensions from bitstream.
	fw, fh := frameDimensions(f.data)
	if fw > 0 && fh > 0 {
		putLE24(hdr[14:17], fw-1)
		putLE24(hdr[17:20], fh-1)
	}
	putLE24(hdr[20:23], f.opts.Duration)

	var flagByte byte
	if f.opts.DisposeMode == DisposeBackground {
		flagByte |= 0x01
	}
	if f.opts.BlendMode == BlendNone {
		flagByte |= 0x02
	}
	hdr[23] = flagByte

	if _, err := w.Write(hdr); err != nil {
		return err
	}

	// Write VP8/VP8L sub-chunk.
	chunkID := detectBitstreamType(f.data)
	if err := writeDataChunk(w, chunkID, f.data); err != nil {
		return err
	}

	// Padding for ANMF chunk as a whole.
	if anmfPayload%2 != 0 {
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}
	return nil
}

// canvasSize determines the canvas dimensions.
// If explicit canvas dimensions were set via SetCanvasSize (both > 0), those
// are returned directly. This matches the C libwebp behavior where the VP8X
// canvas size from the container header is authoritative, even if it differs
// from the extent of the contained frames.
// Otherwise, the canvas size is computed from the first frame's dimensions
// (every pixel-bean frame shares one canvas, so there is no need to scan
// for a maximum extent across offset frames).
func (m *Muxer) canvasSize() (int, int) {
	if m.canvasWidth > 0 && m.canvasHeight > 0 {
		return m.canvasWidth, m.canvasHeight
	}
	if len(m.frames) == 0 {
		return 1, 1
	}
	fw, fh := frameDimensions(m.frames[0].data)
	if fw == 0 {
		fw = 1
	}
	if fh == 0 {
		fh = 1
	}
	return fw, fh
}

// frameDimensions attempts to read width/height from a bitstream.
func frameDimensions(data []byte) (int, int) {
	if len(data) >= 5 && data[0] == container.VP8LMagicByte {
		w, h, _, err := parseVP8LDimensions(data)
		if err == nil {
			return w, h
		}
	}
	if len(data) >= 10 {
		w, h, err := parseVP8Dimensions(data)
		if err == nil {
			return w, h
		}
	}
	return 0, 0
}

// detectBitstreamType returns the chunk ID for the given bitstream data.
func detectBitstreamType(data []byte) ChunkID {
	if len(data) > 0 && data[0] == container.VP8LMagicByte {
		return FourCCVP8L
	}
	return FourCCVP8
}

// chunkTotalSize returns header + payload + optional padding byte.
func chunkTotalSize(payloadSize uint32) uint32 {
	total := uint32(container.ChunkHeaderSize) + payloadSize
	if payloadSize%2 != 0 {
		total++
	}
	return total
}

// writeDataChunk writes a chunk header + data + optional padding.
func writeDataChunk(w io.Writer, id ChunkID, data []byte) error {
	hdr := make([]byte, container.ChunkHeaderSize)
	writeChunkHeader(hdr, id, uint32(len(data)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if len(data)%2 != 0 {
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}
	return nil
}

// putLE24 writes a 24-bit little-endian value into buf[0:3].
func putLE24(buf []byte, v int) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
}
