package mux

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fabkury/servoom/internal/webpcodec/container"
)

// BlendMode specifies how a frame is blended with the previous canvas.
type BlendMode int

const (
	BlendAlpha BlendMode = 0 // Alpha-blend with previous canvas.
	BlendNone  BlendMode = 1 // Do not blend; overwrite.
)

// DisposeMode specifies how the frame area is treated after rendering.
type DisposeMode int

const (
	DisposeNone       DisposeMode = 0 // Leave as-is.
	DisposeBackground DisposeMode = 1 // Fill with background color.
)

// flagAnimation is the one VP8X flag bit this package tests. An embedded
// format-43 payload is always handed straight to golang.org/x/image/webp
// one frame at a time, which reads ICC/EXIF/XMP/alpha itself, so this
// demuxer never needs to extract that metadata.
const flagAnimation = 1 << 1

// FrameInfo holds the raw bitstream and duration for a single animation
// frame (or the sole image). Pixel-bean embedding never needs per-frame
// offset, blend, or alpha metadata: every re-wrapped frame goes through
// Muxer.AddFrame with nil FrameOptions and is decoded by a general-purpose
// WebP decoder that reads those bits itself from the bitstream it receives.
type FrameInfo struct {
	Data     []byte // VP8/VP8L bitstream data.
	Duration int    // Milliseconds (0 for still images).
}

// Demuxer parses a WebP RIFF container down to its animation frames.
type Demuxer struct {
	frames []FrameInfo
}

// maxFrames is the maximum number of animation frames allowed to prevent
// memory exhaustion from malicious inputs.
const maxFrames = 10000

var (
	ErrInvalidRIFF   = errors.New("mux: not a valid WebP file (bad RIFF header)")
	ErrNoImage       = errors.New("mux: no image data found")
	ErrInvalidVP8X   = errors.New("mux: invalid VP8X chunk")
	ErrInvalidANMF   = errors.New("mux: invalid ANMF chunk")
	ErrInvalidFrame  = errors.New("mux: invalid frame bitstream")
	ErrFrameOutRange = errors.New("mux: frame index out of range")
	ErrTooManyFrames = errors.New("mux: too many frames")
)

// NewDemuxer parses a WebP file from data and returns a Demuxer.
func NewDemuxer(data []byte) (*Demuxer, error) {
	d := &Demuxer{}
	if err := d.parse(data); err != nil {
		return nil, err
	}
	return d, nil
}

// NumFrames returns the number of frames.
func (d *Demuxer) NumFrames() int {
	return len(d.frames)
}

// FrameIterator provides streaming access to frames.
type FrameIterator struct {
	d   *Demuxer
	pos int
}

// NewFrameIterator returns a new iterator starting at frame 0.
func (d *Demuxer) NewFrameIterator() *FrameIterator {
	return &FrameIterator{d: d, pos: 0}
}

// HasNext reports whether more frames are available.
func (it *FrameIterator) HasNext() bool {
	return it.pos < len(it.d.frames)
}

// Next returns the next frame and advances the iterator.
func (it *FrameIterator) Next() (*FrameInfo, error) {
	if !it.HasNext() {
		return nil, ErrFrameOutRange
	}
	fi := it.d.frames[it.pos]
	it.pos++
	return &fi, nil
}

// parse validates the RIFF header and iterates through all chunks.
func (d *Demuxer) parse(data []byte) error {
	if len(data) < container.RIFFHeaderSize {
		return ErrInvalidRIFF
	}
	riffTag := binary.LittleEndian.Uint32(data[0:4])
	if riffTag != FourCCRIFF {
		return ErrInvalidRIFF
	}
	fileSize := binary.LittleEndian.Uint32(data[4:8])
	webpTag := binary.LittleEndian.Uint32(data[8:12])
	if webpTag != FourCCWEBP {
		return ErrInvalidRIFF
	}
	// fileSize is the size after the first 8 bytes (RIFF + size field).
	totalSize := int(fileSize) + 8
	if totalSize > len(data) {
		// Allow truncated data — work with what we have.
		totalSize = len(data)
	}
	payload := data[container.RIFFHeaderSize:totalSize]

	if len(payload) < container.ChunkHeaderSize {
		return ErrNoImage
	}
	firstTag := binary.LittleEndian.Uint32(payload[0:4])

	switch firstTag {
	case FourCCVP8X:
		return d.parseExtended(payload)
	case FourCCVP8, FourCCVP8L:
		return d.parseSimple(payload)
	default:
		return fmt.Errorf("mux: unknown first chunk %s", fourCCString(firstTag))
	}
}

// parseSimple handles a non-extended (single-frame, no VP8X) WebP file.
func (d *Demuxer) parseSimple(payload []byte) error {
	c, _, err := ReadChunk(payload)
	if err != nil {
		return err
	}
	d.frames = []FrameInfo{{Data: c.Data}}
	return nil
}

// parseExtended handles VP8X-extended WebP files, collecting each ANMF
// frame's bitstream and duration (or, for a non-animated VP8X file, the
// sole image) and skipping every other chunk (ICCP/EXIF/XMP/ALPH at the
// top level) without extracting its payload.
func (d *Demuxer) parseExtended(payload []byte) error {
	vp8x, consumed, err := ReadChunk(payload)
	if err != nil {
		return err
	}
	if vp8x.Size < container.VP8XChunkSize {
		return ErrInvalidVP8X
	}
	animated := vp8x.Data[0]&flagAnimation != 0

	pos := consumed
	for pos+container.ChunkHeaderSize <= len(payload) {
		c, n, err := ReadChunk(payload[pos:])
		if err != nil {
			break
		}
		switch c.ID {
		case FourCCANMF:
			if err := d.parseANMF(c.Data); err != nil {
				return err
			}
		case FourCCVP8, FourCCVP8L:
			if !animated && len(d.frames) == 0 {
				d.frames = []FrameInfo{{Data: c.Data}}
			}
		}
		pos += n
	}

	if len(d.frames) == 0 {
		return ErrNoImage
	}
	return nil
}

// parseANMF extracts a single animation frame's bitstream and duration from
// an ANMF chunk payload.
func (d *Demuxer) parseANMF(data []byte) error {
	if len(data) < container.ANMFChunkSize {
		return ErrInvalidANMF
	}
	duration := int(data[12]) | int(data[13])<<8 | int(data[14])<<16

	// The rest of the ANMF payload contains the frame's image sub-chunk(s);
	// an ALPH sub-chunk may precede the VP8/VP8L one, but pixel-bean embeds
	// never carry alpha so it is skipped without being extracted.
	framePayload := data[container.ANMFChunkSize:]
	var imageData []byte

	pos := 0
	for pos+container.ChunkHeaderSize <= len(framePayload) {
		subID, subSize, err := ReadChunkHeader(framePayload[pos:])
		if err != nil {
			break
		}
		subEnd := container.ChunkHeaderSize + int(subSize)
		if subEnd > len(framePayload[pos:]) {
			break
		}
		subData := framePayload[pos+container.ChunkHeaderSize : pos+subEnd]
		if subID == FourCCVP8 || subID == FourCCVP8L {
			imageData = subData
		}
		advance := subEnd
		if subSize%2 != 0 && pos+advance < len(framePayload) {
			advance++
		}
		pos += advance
	}

	if len(d.frames) >= maxFrames {
		return fmt.Errorf("%w: exceeded limit of %d", ErrTooManyFrames, maxFrames)
	}
	d.frames = append(d.frames, FrameInfo{Data: imageData, Duration: duration})
	return nil
}

// parseVP8Dimensions extracts width/height from a VP8 bitstream header.
func parseVP8Dimensions(data []byte) (int, int, error) {
	// VP8 keyframe: 3-byte frame tag, then 7 bytes of header.
	if len(data) < 10 {
		return 0, 0, ErrInvalidFrame
	}
	// Frame tag: byte 0 bit 0 = keyframe (0), bytes 1-2 ignored here.
	// Bytes 3-5: VP8 signature 0x9d 0x01 0x2a.
	if data[3] != 0x9d || data[4] != 0x01 || data[5] != 0x2a {
		return 0, 0, ErrInvalidFrame
	}
	width := int(binary.LittleEndian.Uint16(data[6:8])) & 0x3fff
	height := int(binary.LittleEndian.Uint16(data[8:10])) & 0x3fff
	return width, height, nil
}

// parseVP8LDimensions extracts width/height/alpha from a VP8L bitstream header.
func parseVP8LDimensions(data []byte) (int, int, bool, error) {
	// VP8L header: 1-byte signature (0x2f), then 4 bytes of packed width/height/alpha/version.
	if len(data) < 5 {
		return 0, 0, false, ErrInvalidFrame
	}
	if data[0] != container.VP8LMagicByte {
		return 0, 0, false, ErrInvalidFrame
	}
	bits := binary.LittleEndian.Uint32(data[1:5])
	width := int(bits&0x3fff) + 1
	height := int((bits>>14)&0x3fff) + 1
	hasAlpha := (bits >> 28) & 0x1
	return width, height, hasAlpha != 0, nil
}
