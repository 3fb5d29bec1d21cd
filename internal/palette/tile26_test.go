package palette

import "testing"

// buildTileFrame builds one format-26 frame: a 5-byte header, an optional
// palette section, and a pre-packed block-tree body.
func buildTileFrame(hasPaletteDelta bool, delayMS int, pal []RGB, body []byte) []byte {
	var b []byte
	if hasPaletteDelta {
		b = append(b, byte(len(pal)))
		for _, c := range pal {
			b = append(b, c.R, c.G, c.B)
		}
	}
	b = append(b, body...)

	frameSize := frameHeaderSize + len(b)
	header := []byte{0, byte(frameSize), byte(frameSize >> 8), byte(delayMS), byte(delayMS >> 8)}
	if hasPaletteDelta {
		header[0] |= hasPaletteDeltaBit
	}
	return append(header, b...)
}

func TestDecodeTileStreamSingleLiteralBlock(t *testing.T) {
	red := RGB{255, 0, 0}
	green := RGB{0, 255, 0}

	w := &testBitWriter{}
	w.WriteBits(blockModeLiteral|(1<<2), 8) // mode=literal, bit depth=1
	// 16*16 = 256 one-bit indices, all 0 (red) except pixel 0 (green).
	w.WriteBits(1, 1)
	for i := 1; i < 256; i++ {
		w.WriteBits(0, 1)
	}

	frame := buildTileFrame(true, 25, []RGB{red, green}, w.Bytes())
	frames, err := DecodeTileStream(frame, 16)
	if err != nil {
		t.Fatalf("DecodeTileStream: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	f := frames[0]
	if f.RGB[0] != 0 || f.RGB[1] != 255 || f.RGB[2] != 0 {
		t.Fatalf("pixel 0 = %v, want green", f.RGB[0:3])
	}
	if f.RGB[3] != 255 || f.RGB[4] != 0 || f.RGB[5] != 0 {
		t.Fatalf("pixel 1 = %v, want red", f.RGB[3:6])
	}
}

func TestDecodeTileStreamRecurseIntoFourLiterals(t *testing.T) {
	red := RGB{255, 0, 0}

	// gridSize 16 allows exactly one recurse down to the 8x8 leaf floor
	// (maxDepthFor(16) == 1); this is the smallest grid size that can
	// exercise blockModeRecurse at all under the now grid-size-derived
	// depth bound.
	w := &testBitWriter{}
	w.WriteBits(blockModeRecurse, 8) // splits 16x16 into four 8x8 quadrants
	for q := 0; q < 4; q++ {
		w.WriteBits(blockModeLiteral|(1<<2), 8)
		for i := 0; i < 64; i++ {
			w.WriteBits(0, 1) // all red
		}
	}

	frame := buildTileFrame(true, 10, []RGB{red}, w.Bytes())
	frames, err := DecodeTileStream(frame, 16)
	if err != nil {
		t.Fatalf("DecodeTileStream: %v", err)
	}
	f := frames[0]
	for px := 0; px < 16*16; px++ {
		if f.RGB[px*3] != 255 || f.RGB[px*3+1] != 0 || f.RGB[px*3+2] != 0 {
			t.Fatalf("pixel %d not red: %v", px, f.RGB[px*3:px*3+3])
		}
	}
}

func TestDecodeTileStreamSubsetBlock(t *testing.T) {
	red := RGB{255, 0, 0}
	green := RGB{0, 255, 0}
	blue := RGB{0, 0, 255}

	w := &testBitWriter{}
	w.WriteBits(blockModeSubset, 8)
	// 256-bit bitmap selecting global indices 0 (red) and 2 (blue) into a
	// 2-entry local palette; index 1 (green) excluded.
	w.WriteBits(1, 1)
	w.WriteBits(0, 1)
	w.WriteBits(1, 1)
	for i := 3; i < 256; i++ {
		w.WriteBits(0, 1)
	}
	// local palette has 2 entries -> bit depth 1; fill 4x4 block, all local
	// index 1 (blue).
	for i := 0; i < 16; i++ {
		w.WriteBits(1, 1)
	}

	frame := buildTileFrame(true, 10, []RGB{red, green, blue}, w.Bytes())
	frames, err := DecodeTileStream(frame, 4)
	if err != nil {
		t.Fatalf("DecodeTileStream: %v", err)
	}
	f := frames[0]
	for px := 0; px < 4*4; px++ {
		if f.RGB[px*3] != 0 || f.RGB[px*3+1] != 0 || f.RGB[px*3+2] != 255 {
			t.Fatalf("pixel %d not blue: %v", px, f.RGB[px*3:px*3+3])
		}
	}
}

// writeRecurse and writeLiteralZeros build a format-26 block-tree bitstream
// by hand, in decodeTileTree's own breadth-first (FIFO) work-queue pop
// order rather than depth-first recursion order.
func writeRecurse(w *testBitWriter) { w.WriteBits(blockModeRecurse, 8) }

func writeLiteralZeros(w *testBitWriter, size int) {
	w.WriteBits(blockModeLiteral|(1<<2), 8)
	for i := 0; i < size*size; i++ {
		w.WriteBits(0, 1)
	}
}

func TestDecodeTileStreamExceedsMaxDepthAt128(t *testing.T) {
	red := RGB{255, 0, 0}

	// gridSize 128 bounds recursion at depth 4 (128->64->32->16->8, the
	// documented 8x8 leaf floor). Only the left-most branch recurses all
	// the way down; every sibling is a cheap all-zero literal block.
	// Sequence (root=128x128):
	//   recurse(128) ; recurse(A,64) ; literal(B,64) ; literal(C,64) ; literal(D,64)
	//   recurse(A1,32) ; literal(A2,32) ; literal(A3,32) ; literal(A4,32)
	//   recurse(A1a,16) ; literal(A1b,16) ; literal(A1c,16) ; literal(A1d,16)
	//   recurse(depth4) <- exceeds maxDepthFor(128)=4, fails immediately
	w := &testBitWriter{}
	writeRecurse(w)          // root, size 128, depth 0 -> 1
	writeRecurse(w)          // A, size 64, depth 1 -> 2
	writeLiteralZeros(w, 64) // B
	writeLiteralZeros(w, 64) // C
	writeLiteralZeros(w, 64) // D
	writeRecurse(w)          // A1, size 32, depth 2 -> 3
	writeLiteralZeros(w, 32) // A2
	writeLiteralZeros(w, 32) // A3
	writeLiteralZeros(w, 32) // A4
	writeRecurse(w)          // A1a, size 16, depth 3 -> 4
	writeLiteralZeros(w, 16) // A1b
	writeLiteralZeros(w, 16) // A1c
	writeLiteralZeros(w, 16) // A1d
	writeRecurse(w)          // depth-4 task attempts to recurse again

	frame := buildTileFrame(true, 10, []RGB{red}, w.Bytes())
	_, err := DecodeTileStream(frame, 128)
	if err != ErrMalformedTree {
		t.Fatalf("err = %v, want ErrMalformedTree", err)
	}
}

func TestDecodeTileStreamExceedsMaxDepthAt64(t *testing.T) {
	red := RGB{255, 0, 0}

	// gridSize 64 bounds recursion at depth 3 (64->32->16->8), one halving
	// shallower than the 128 case. This is exactly the case the fixed
	// maxTileDepth=4 constant used to get wrong: it let a depth-3 block
	// recurse once more than it should, producing illegal 4x4 sub-blocks
	// below the 8x8 leaf floor instead of failing MalformedTree.
	w := &testBitWriter{}
	writeRecurse(w)          // root, size 64, depth 0 -> 1
	writeRecurse(w)          // A, size 32, depth 1 -> 2
	writeLiteralZeros(w, 32) // B
	writeLiteralZeros(w, 32) // C
	writeLiteralZeros(w, 32) // D
	writeRecurse(w)          // A1, size 16, depth 2 -> 3
	writeLiteralZeros(w, 16) // A2
	writeLiteralZeros(w, 16) // A3
	writeLiteralZeros(w, 16) // A4
	writeRecurse(w)          // A1a (depth 3) attempts to recurse again

	frame := buildTileFrame(true, 10, []RGB{red}, w.Bytes())
	_, err := DecodeTileStream(frame, 64)
	if err != ErrMalformedTree {
		t.Fatalf("err = %v, want ErrMalformedTree", err)
	}
}

func TestDecodeTileStreamBadBlockMode(t *testing.T) {
	red := RGB{255, 0, 0}

	w := &testBitWriter{}
	w.WriteBits(3, 8) // mode 3 is undefined

	frame := buildTileFrame(true, 10, []RGB{red}, w.Bytes())
	_, err := DecodeTileStream(frame, 8)
	if err != ErrMalformedTree {
		t.Fatalf("err = %v, want ErrMalformedTree", err)
	}
}
