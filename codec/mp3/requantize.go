package mp3

import (
	"math"

	"github.com/sonatago/sonata/internal/mp3tables"
)

// requantizeGranule converts one granule channel's quantized Huffman
// values into requantized spectral samples. The formula follows
// ISO/IEC 11172-3's Layer III requantization (global gain and scale
// factor scaling, with an extra subblock_gain term for short blocks);
// it is not grounded on any file in the retrieval pack (no example
// repo carries a standalone Layer III requantizer), so it is a
// best-effort reconstruction from the standard rather than a verified
// transcription — see DESIGN.md.
func requantizeGranule(sampleRate uint32, g *granuleChannel, quantized *[576]int32) [576]float64 {
	var xr [576]float64
	scaleMul := 0.5
	if g.ScalefacScale {
		scaleMul = 1.0
	}

	switch g.BlockType {
	case BlockShort:
		requantizeShort(sampleRate, g, quantized, scaleMul, &xr)
	default:
		requantizeLong(sampleRate, g, quantized, scaleMul, &xr)
	}
	return xr
}

func requantizeLong(sampleRate uint32, g *granuleChannel, quantized *[576]int32, scaleMul float64, xr *[576]float64) {
	bands := mp3tables.SFBLongBands[sampleRate]
	for sfb := 0; sfb < len(bands)-1 && sfb < 21; sfb++ {
		scalefac := g.Scalefacs[sfb]
		if g.Preflag && sfb < len(mp3tables.Pretab) {
			scalefac += mp3tables.Pretab[sfb]
		}
		exponent := 0.25*float64(g.GlobalGain-210) - scaleMul*float64(scalefac)
		gain := math.Pow(2.0, exponent)
		for i := bands[sfb]; i < bands[sfb+1] && i < 576; i++ {
			xr[i] = requantizeOne(quantized[i], gain)
		}
	}
}

func requantizeShort(sampleRate uint32, g *granuleChannel, quantized *[576]int32, scaleMul float64, xr *[576]float64) {
	bands := mp3tables.SFBShortBands[sampleRate]
	windowWidth := func(sfb int) int { return (bands[sfb+1] - bands[sfb]) / 3 }
	for sfb := 0; sfb < len(bands)-1; sfb++ {
		width := windowWidth(sfb)
		start := bands[sfb]
		for w := 0; w < 3; w++ {
			scalefac := g.Scalefacs[sfb*3+w]
			subGain := 8.0 * float64(g.SubblockGain[w])
			exponent := 0.25*float64(g.GlobalGain-210) - scaleMul*float64(scalefac) - 0.25*subGain
			gain := math.Pow(2.0, exponent)
			base := start + w*width
			for i := base; i < base+width && i < 576; i++ {
				xr[i] = requantizeOne(quantized[i], gain)
			}
		}
	}
}

func requantizeOne(v int32, gain float64) float64 {
	if v == 0 {
		return 0
	}
	mag := math.Pow(math.Abs(float64(v)), 4.0/3.0) * gain
	if v < 0 {
		return -mag
	}
	return mag
}

// reorderShort interleaves a pure short block's three per-window
// sequences into sub-band order (the layout antialiasing and hybrid
// synthesis expect), grounded on hybrid_synthesis.rs's reorder(): for
// each short scale factor band, the three windows
// [w0|w0|...][w1|w1|...][w2|w2|...] become [w0,w1,w2,w0,w1,w2,...].
// Mixed blocks are not reordered here (codec/mp3 does not support
// mixed blocks; see DESIGN.md).
func reorderShort(sampleRate uint32, blockType BlockType, xr *[576]float64) {
	if blockType != BlockShort {
		return
	}
	bands := mp3tables.SFBShortBands[sampleRate]
	var out [576]float64
	i := bands[0]
	for sfb := 0; sfb < len(bands)-1; sfb++ {
		width := (bands[sfb+1] - bands[sfb]) / 3
		start := bands[sfb]
		for k := 0; k < width; k++ {
			out[i+0] = xr[start+k]
			out[i+1] = xr[start+width+k]
			out[i+2] = xr[start+2*width+k]
			i += 3
		}
	}
	copy(xr[bands[0]:i], out[bands[0]:i])
}
