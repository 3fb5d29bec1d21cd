package palette

import "errors"

// ErrMalformedTree means a format-26 block tree exceeded its recursion
// depth or contained a block-mode byte outside {0, 1, 2}.
var ErrMalformedTree = errors.New("palette: malformed tile tree")

// Block modes (spec.md §4.3, "Format 26"). Packed into one header byte
// together with an auxiliary field: bits [0:2) hold the mode, bits [2:8)
// hold the literal-mode bit depth (this layout is this implementation's
// resolution of an underspecified detail; see DESIGN.md "Open Question
// decisions").
const (
	blockModeLiteral = 0
	blockModeRecurse = 1
	blockModeSubset  = 2
)

// maxDepthFor bounds recursion at the number of halvings from gridSize down
// to the 8x8 leaf floor (spec.md §3, §4.3): 128 -> 64 -> 32 -> 16 -> 8 is 4
// halvings, 64 -> 32 -> 16 -> 8 is 3. The bound must track the stream's own
// grid size rather than a single fixed constant, or a 64x64 stream accepts
// one recurse too many and produces illegal 4x4 sub-blocks.
func maxDepthFor(gridSize int) int {
	depth := 0
	for gridSize > 8 {
		gridSize /= 2
		depth++
	}
	return depth
}

// tileTask is one pending block in the explicit work queue, avoiding
// unbounded recursion depth concerns (spec.md §9 design notes).
type tileTask struct {
	x, y, size int
	depth      int
}

// DecodeTileStream decodes a format-26 stream: the shared header/palette
// loop from stream.go, with each frame's body parsed as a recursive block
// tree instead of a flat bitstream.
func DecodeTileStream(plaintext []byte, gridSize int) ([]Frame, error) {
	return decodeStream(plaintext, gridSize, decodeTileTree)
}

// decodeTileTree decodes one frame's block tree into a gridSize*gridSize
// RGB buffer using an explicit queue of (x, y, size, depth) tasks. No
// per-task palette source is carried: literal blocks always index the
// frame's rolling palette and subset blocks a bitmap-selected part of it.
func decodeTileTree(body []byte, globalPal *Rolling, gridSize int) ([]byte, error) {
	rgb := make([]byte, gridSize*gridSize*3)
	br := NewBitReader(body)

	maxDepth := maxDepthFor(gridSize)
	queue := []tileTask{{x: 0, y: 0, size: gridSize, depth: 0}}
	for len(queue) > 0 {
		task := queue[0]
		queue = queue[1:]

		if br.BitsRemaining() < 8 {
			return nil, ErrBitstreamOverrun
		}
		header := br.ReadBits(8)
		mode := header & 0x03
		aux := header >> 2

		switch mode {
		case blockModeRecurse:
			if task.depth >= maxDepth {
				return nil, ErrMalformedTree
			}
			half := task.size / 2
			queue = append(queue,
				tileTask{x: task.x, y: task.y, size: half, depth: task.depth + 1},
				tileTask{x: task.x + half, y: task.y, size: half, depth: task.depth + 1},
				tileTask{x: task.x, y: task.y + half, size: half, depth: task.depth + 1},
				tileTask{x: task.x + half, y: task.y + half, size: half, depth: task.depth + 1},
			)

		case blockModeLiteral:
			bitDepth := aux
			if bitDepth < 1 || bitDepth > 8 {
				return nil, ErrMalformedTree
			}
			if err := fillBlock(rgb, gridSize, br, task, bitDepth, globalPal); err != nil {
				return nil, err
			}

		case blockModeSubset:
			local, err := readSubsetPalette(br, globalPal)
			if err != nil {
				return nil, err
			}
			bitDepth := BitWidthForPaletteSize(len(local))
			if err := fillBlock(rgb, gridSize, br, task, bitDepth, newRollingFromSlice(local)); err != nil {
				return nil, err
			}

		default:
			return nil, ErrMalformedTree
		}
	}
	return rgb, nil
}

// newRollingFromSlice builds a Rolling from an already-resolved entry
// slice (used for a subset block's local palette).
func newRollingFromSlice(entries []RGB) *Rolling {
	var r Rolling
	r.SetFull(entries)
	return &r
}

// readSubsetPalette reads a 32-byte (256-bit) bitmap selecting global
// palette entries, in index order, as a subset block's local palette.
func readSubsetPalette(br *BitReader, globalPal *Rolling) ([]RGB, error) {
	var local []RGB
	for i := 0; i < 256; i++ {
		if br.BitsRemaining() < 1 {
			return nil, ErrBitstreamOverrun
		}
		bit := br.ReadBits(1)
		if bit == 1 {
			if i >= globalPal.Size() {
				return nil, ErrIndexOutOfRange
			}
			local = append(local, globalPal.At(i))
		}
	}
	return local, nil
}

// fillBlock unpacks a size*size grid of bitDepth-bit indices in raster
// order into rgb at the block's (x, y) origin within a gridSize-wide frame.
func fillBlock(rgb []byte, gridSize int, br *BitReader, task tileTask, bitDepth int, pal *Rolling) error {
	for row := 0; row < task.size; row++ {
		for col := 0; col < task.size; col++ {
			if br.BitsRemaining() < bitDepth {
				return ErrBitstreamOverrun
			}
			idx := br.ReadBits(bitDepth)
			if idx >= pal.Size() {
				return ErrIndexOutOfRange
			}
			c := pal.At(idx)
			px := (task.y+row)*gridSize + (task.x + col)
			rgb[px*3], rgb[px*3+1], rgb[px*3+2] = c.R, c.G, c.B
		}
	}
	return nil
}
