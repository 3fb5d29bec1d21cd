package servoom

import "strconv"

// PixelBean is the canonical decoded-animation value: an ordered sequence
// of same-size RGB frames on a square grid, plus a uniform per-frame delay.
//
// A PixelBean is constructed exactly once by Decode and has no mutable
// methods; it is fully owned by the caller once returned.
type PixelBean struct {
	rowCount    int
	columnCount int
	speedMS     int
	frames      [][]byte
}

// gridSteps enumerates the legal rowCount/columnCount values (spec.md §3).
var gridSteps = map[int]bool{1: true, 2: true, 4: true, 8: true, 16: true}

// newPixelBean validates and constructs a PixelBean. frames must already be
// width*height*3-byte RGB buffers of identical length.
func newPixelBean(rowCount, columnCount int, speedMS int, frames [][]byte) (*PixelBean, error) {
	if len(frames) == 0 {
		return nil, invariantViolation("zero frames")
	}
	if !gridSteps[rowCount] || !gridSteps[columnCount] {
		return nil, invariantViolation("rowCount/columnCount must be one of 1, 2, 4, 8, 16")
	}
	width, height := columnCount*16, rowCount*16
	wantLen := width * height * 3
	for i, f := range frames {
		if len(f) != wantLen {
			return nil, invariantViolation("frame length mismatch at index " + strconv.Itoa(i))
		}
	}
	if speedMS < 10 {
		speedMS = 10
	}
	return &PixelBean{
		rowCount:    rowCount,
		columnCount: columnCount,
		speedMS:     speedMS,
		frames:      frames,
	}, nil
}

// RowCount returns the number of 16px tile rows (frame height = RowCount*16).
func (p *PixelBean) RowCount() int { return p.rowCount }

// ColumnCount returns the number of 16px tile columns (frame width =
// ColumnCount*16).
func (p *PixelBean) ColumnCount() int { return p.columnCount }

// Width returns the frame width in pixels.
func (p *PixelBean) Width() int { return p.columnCount * 16 }

// Height returns the frame height in pixels.
func (p *PixelBean) Height() int { return p.rowCount * 16 }

// TotalFrames returns the number of frames, equal to len(Frame(i) range).
func (p *PixelBean) TotalFrames() int { return len(p.frames) }

// SpeedMS returns the uniform per-frame delay in milliseconds (>= 10).
func (p *PixelBean) SpeedMS() int { return p.speedMS }

// Frame returns the row-major, top-left-origin R,G,B buffer for frame i.
// The returned slice must not be mutated by the caller.
func (p *PixelBean) Frame(i int) []byte { return p.frames[i] }
