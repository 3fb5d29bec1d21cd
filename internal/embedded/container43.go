package embedded

import (
	"bytes"
	"errors"
	"fmt"
	"image/gif"

	xwebp "golang.org/x/image/webp"

	"github.com/fabkury/servoom/internal/webpcodec/mux"
)

// ErrUnknownContainer means a format-43 payload matched neither the GIF nor
// the WebP magic bytes.
var ErrUnknownContainer = errors.New("embedded: payload is neither GIF nor WebP")

// DecodeContainer43 decodes format 43: a complete embedded GIF or WebP file
// (discriminated by magic bytes), returning one Sequence per contained
// frame plus the uniform delay to use for the whole PixelBean (the mean of
// the embedded per-frame delays, rounded to the nearest ms, per spec.md
// §4.4).
func DecodeContainer43(payload []byte) (frames []Sequence, uniformDelayMS int, err error) {
	switch {
	case len(payload) >= 4 && string(payload[0:4]) == "GIF8":
		frames, err = decodeEmbeddedGIF(payload)
	case len(payload) >= 12 && string(payload[0:4]) == "RIFF" && string(payload[8:12]) == "WEBP":
		frames, err = decodeEmbeddedWebP(payload)
	default:
		return nil, 0, ErrUnknownContainer
	}
	if err != nil {
		return nil, 0, err
	}
	if err := checkDimensions(frames); err != nil {
		return nil, 0, err
	}
	return frames, meanDelay(frames), nil
}

func decodeEmbeddedGIF(payload []byte) ([]Sequence, error) {
	g, err := gif.DecodeAll(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	out := make([]Sequence, len(g.Image))
	for i, frame := range g.Image {
		rgb, w, h := toRGB(frame)
		delayMS := g.Delay[i] * 10 // GIF delays are centiseconds
		out[i] = Sequence{DelayMS: delayMS, RGB: rgb, Width: w, Height: h}
	}
	return out, nil
}

// decodeEmbeddedWebP demuxes an animated WebP into its ANMF frames, then
// re-wraps each frame's raw VP8/VP8L bitstream as a standalone single-frame
// WebP file so it can be handed to golang.org/x/image/webp, which only
// understands whole WebP files rather than bare bitstreams.
func decodeEmbeddedWebP(payload []byte) ([]Sequence, error) {
	d, err := mux.NewDemuxer(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	out := make([]Sequence, d.NumFrames())
	it := d.NewFrameIterator()
	for i := 0; it.HasNext(); i++ {
		fi, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}

		m := mux.NewMuxer()
		if err := m.AddFrame(fi.Data, nil); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		var buf bytes.Buffer
		if err := m.Assemble(&buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}

		img, err := xwebp.Decode(bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		rgb, w, h := toRGB(img)
		out[i] = Sequence{DelayMS: fi.Duration, RGB: rgb, Width: w, Height: h}
	}
	return out, nil
}

// meanDelay rounds the arithmetic mean of each frame's delay to the nearest
// millisecond (spec.md §4.4, §9: the reference's documented but unverified
// handling of heterogeneous per-frame delays in an embedded container).
func meanDelay(frames []Sequence) int {
	if len(frames) == 0 {
		return 0
	}
	total := 0
	for _, f := range frames {
		total += f.DelayMS
	}
	return (total + len(frames)/2) / len(frames)
}
