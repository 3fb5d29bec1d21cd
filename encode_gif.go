package servoom

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"

	"github.com/fabkury/servoom/internal/palette"
)

// EncodeGIF renders bean as an animated GIF89a: a global or per-frame
// palette of at most 256 colors, NETSCAPE loop count 0 (infinite),
// disposal method 2 (restore to background), and per-frame delay
// max(2, round(speed/10)) centiseconds (spec.md §4.6).
func EncodeGIF(bean *PixelBean) ([]byte, error) {
	delayCS := bean.SpeedMS() / 10
	if bean.SpeedMS()%10 >= 5 {
		delayCS++
	}
	if delayCS < 2 {
		delayCS = 2
	}

	g := &gif.GIF{LoopCount: 0}
	for i := 0; i < bean.TotalFrames(); i++ {
		paletted := quantizeFrame(bean.Frame(i), bean.Width(), bean.Height())
		g.Image = append(g.Image, paletted)
		g.Delay = append(g.Delay, delayCS)
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// quantizeFrame converts one RGB frame buffer into an image.Paletted,
// using palette.Quantize's median-cut reduction only when the frame's true
// color count exceeds 256 (no quantization loss otherwise, spec.md §4.6).
func quantizeFrame(rgb []byte, width, height int) *image.Paletted {
	colors, indices := palette.Quantize(rgb, 256)

	pal := make(color.Palette, len(colors))
	for i, c := range colors {
		pal[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
	}

	img := image.NewPaletted(image.Rect(0, 0, width, height), pal)
	for i, idx := range indices {
		img.Pix[i] = byte(idx)
	}
	return img
}
