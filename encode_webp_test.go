package servoom

import (
	"bytes"
	"testing"

	xwebp "golang.org/x/image/webp"

	"github.com/fabkury/servoom/internal/webpcodec/mux"
)

func TestEncodeWebPProducesRIFFHeader(t *testing.T) {
	bean, err := newPixelBean(1, 1, 40, makeFrames(2, 16, 16))
	if err != nil {
		t.Fatalf("newPixelBean: %v", err)
	}

	out, err := EncodeWebP(bean)
	if err != nil {
		t.Fatalf("EncodeWebP: %v", err)
	}
	if len(out) < 12 {
		t.Fatalf("output too short: %d bytes", len(out))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WEBP" {
		t.Fatalf("missing RIFF/WEBP magic: %q %q", out[0:4], out[8:12])
	}
}

// checkerboard builds a width*height RGB buffer alternating between two
// colors in a checkerboard pattern, so consecutive frames built from
// different color orderings still share the identical 2-color palette.
func checkerboard(width, height int, a, b [3]byte) []byte {
	buf := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := a
			if (x+y)%2 == 1 {
				c = b
			}
			px := (y*width + x) * 3
			buf[px], buf[px+1], buf[px+2] = c[0], c[1], c[2]
		}
	}
	return buf
}

// decodeWebPFrame pulls one ANMF frame back out of an animated WebP, using
// this repo's own mux package (re-wrapping the bare ANMF bitstream as a
// standalone single-frame WebP, the same trick internal/embedded uses for
// format 43) and golang.org/x/image/webp to decode it.
func decodeWebPFrame(t *testing.T, out []byte, index int) []byte {
	t.Helper()
	d, err := mux.NewDemuxer(out)
	if err != nil {
		t.Fatalf("mux.NewDemuxer: %v", err)
	}
	it := d.NewFrameIterator()
	var fi *mux.FrameInfo
	for i := 0; it.HasNext(); i++ {
		f, err := it.Next()
		if err != nil {
			t.Fatalf("iterator.Next: %v", err)
		}
		if i == index {
			fi = f
		}
	}
	if fi == nil {
		t.Fatalf("frame %d not found", index)
	}

	m := mux.NewMuxer()
	if err := m.AddFrame(fi.Data, nil); err != nil {
		t.Fatalf("AddFrame: %v", err)
	}
	var buf bytes.Buffer
	if err := m.Assemble(&buf); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	img, err := xwebp.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("xwebp.Decode: %v", err)
	}
	b := img.Bounds()
	rgb := make([]byte, b.Dx()*b.Dy()*3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			rgb[i], rgb[i+1], rgb[i+2] = byte(r>>8), byte(g>>8), byte(bl>>8)
			i += 3
		}
	}
	return rgb
}

func rgbEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEncodeWebPReusesPaletteAcrossIdenticalColorSets(t *testing.T) {
	red := [3]byte{255, 0, 0}
	green := [3]byte{0, 255, 0}
	blue := [3]byte{0, 0, 255}

	frames := [][]byte{
		checkerboard(16, 16, red, green),
		checkerboard(16, 16, green, red), // same 2-color set, different arrangement
		checkerboard(16, 16, red, blue),  // different color set
	}
	bean, err := newPixelBean(1, 1, 50, frames)
	if err != nil {
		t.Fatalf("newPixelBean: %v", err)
	}

	out, err := EncodeWebP(bean)
	if err != nil {
		t.Fatalf("EncodeWebP: %v", err)
	}

	for i, want := range frames {
		got := decodeWebPFrame(t, out, i)
		if !rgbEqual(got, want) {
			t.Fatalf("frame %d round-trip mismatch", i)
		}
	}
}

func TestRGBToARGBOpaque(t *testing.T) {
	rgb := []byte{10, 20, 30, 40, 50, 60}
	argb := rgbToARGB(rgb)
	if len(argb) != 2 {
		t.Fatalf("len(argb) = %d, want 2", len(argb))
	}
	want0 := uint32(0xFF000000) | 10<<16 | 20<<8 | 30
	if argb[0] != want0 {
		t.Fatalf("argb[0] = %08x, want %08x", argb[0], want0)
	}
}
