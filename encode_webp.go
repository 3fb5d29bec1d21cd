package servoom

import (
	"bytes"
	"sort"

	"github.com/fabkury/servoom/internal/webpcodec/lossless"
	"github.com/fabkury/servoom/internal/webpcodec/mux"
)

// EncodeWebP renders bean as a lossless animated WebP: RIFF + VP8X + ANIM,
// one ANMF per frame holding a VP8L bitstream, per spec.md §4.5. Duration
// is bean's uniform speed on every frame, dispose is background, blend is
// none, and the loop count is 0 (infinite).
//
// A pixel-bean animation frequently reuses one small palette across many
// consecutive frames (that reuse is exactly what the rolling/delta palette
// bitstream formats, spec.md §4.3-§4.4, are built to exploit). This encoder
// carries that same assumption into the WebP round-trip: it tracks the
// previous frame's exact color set and, when the next frame's set is
// identical, hands the lossless encoder that already-known palette via
// EncoderConfig.KnownPalette instead of letting it rediscover the palette
// from scratch with a fresh full-image scan.
func EncodeWebP(bean *PixelBean) ([]byte, error) {
	w, h := bean.Width(), bean.Height()
	baseConfig := lossless.DefaultEncoderConfig()
	baseConfig.NearLosslessQuality = 100 // true lossless, no quantization

	m := mux.NewMuxer()
	m.SetLoopCount(0)
	m.SetCanvasSize(w, h)

	var cachedPalette []uint32
	var cachedSet map[uint32]struct{}

	for i := 0; i < bean.TotalFrames(); i++ {
		argb := rgbToARGB(bean.Frame(i))

		config := *baseConfig
		framePalette, frameSet, small := distinctARGBColors(argb)
		switch {
		case small && colorSetsEqual(frameSet, cachedSet):
			config.KnownPalette = cachedPalette
		case small:
			config.KnownPalette = framePalette
			cachedPalette, cachedSet = framePalette, frameSet
		default:
			cachedPalette, cachedSet = nil, nil
		}

		bitstream, err := lossless.Encode(argb, w, h, &config)
		if err != nil {
			return nil, err
		}
		err = m.AddFrame(bitstream, &mux.FrameOptions{
			Duration:    bean.SpeedMS(),
			DisposeMode: mux.DisposeBackground,
			BlendMode:   mux.BlendNone,
		})
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := m.Assemble(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// distinctARGBColors enumerates argb's distinct colors in ascending order
// (matching lossless.ColorIndexBuild's own convention), reporting small=false
// once the count exceeds lossless.MaxPaletteSize rather than building a
// palette no encoder frame would ever use.
func distinctARGBColors(argb []uint32) (palette []uint32, set map[uint32]struct{}, small bool) {
	set = make(map[uint32]struct{}, lossless.MaxPaletteSize+1)
	for _, c := range argb {
		set[c] = struct{}{}
		if len(set) > lossless.MaxPaletteSize {
			return nil, set, false
		}
	}
	palette = make([]uint32, 0, len(set))
	for c := range set {
		palette = append(palette, c)
	}
	sort.Slice(palette, func(i, j int) bool { return palette[i] < palette[j] })
	return palette, set, true
}

// colorSetsEqual reports whether two frames' distinct-color sets are
// identical (same palette, any pixel arrangement).
func colorSetsEqual(a, b map[uint32]struct{}) bool {
	if a == nil || b == nil || len(a) != len(b) {
		return false
	}
	for c := range a {
		if _, ok := b[c]; !ok {
			return false
		}
	}
	return true
}

// rgbToARGB expands a row-major R,G,B byte buffer into the fully-opaque
// 32-bit ARGB pixels the lossless encoder operates on.
func rgbToARGB(rgb []byte) []uint32 {
	pixelCount := len(rgb) / 3
	argb := make([]uint32, pixelCount)
	for i := 0; i < pixelCount; i++ {
		r, g, b := rgb[i*3], rgb[i*3+1], rgb[i*3+2]
		argb[i] = 0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	}
	return argb
}
