package mp3

import (
	"math"

	"github.com/sonatago/sonata/internal/mp3tables"
)

// intensityStereoRatios is ISO/IEC 11172-3's 7-entry MPEG-1 intensity
// position ratio table, grounded on sonata-codec-mp3's layer3/stereo.rs
// INTENSITY_STEREO_RATIOS: ratio = tan(is_pos*pi/12), (k_l, k_r) =
// (ratio/(1+ratio), 1/(1+ratio)), with is_pos==6 defined as (1,0)
// (is_pos==7 is reserved and means "use mid-side instead").
var intensityStereoRatios = computeIntensityRatios()

func computeIntensityRatios() [7][2]float64 {
	var out [7][2]float64
	const pi12 = math.Pi / 12.0
	for isPos := 0; isPos < 6; isPos++ {
		ratio := math.Tan(pi12 * float64(isPos))
		out[isPos] = [2]float64{ratio / (1 + ratio), 1 / (1 + ratio)}
	}
	out[6] = [2]float64{1.0, 0.0}
	return out
}

// mpeg2IntensityRatios is the MPEG-2/2.5 Layer III ("LSF") 5-bit
// is_pos intensity ratio table, per ISO/IEC 13818-3's low-sampling-
// frequency intensity stereo extension: is_pos is read directly as a
// 5-bit scale factor value rather than through the MPEG-1 7-entry
// table, and one of two ratio families is selected by
// scalefac_compress&1 (the "intensity_scale" bit). Unlike the MPEG-1
// table, no file in the retrieval pack carries this extension's
// constants, so the two base step sizes (1/2 and 1/sqrt(2)) are a
// best-effort reconstruction of the documented structure - is_pos odd
// assigns the geometric ratio to channel 0, is_pos even assigns it to
// channel 1, is_pos 0 means no usable ratio (treated as all-energy-to-
// channel-0, matching the MPEG-1 table's is_pos==6 fallback shape) -
// rather than a transcription of the standard's literal table; see
// DESIGN.md.
var mpeg2IntensityRatios = computeMpeg2IntensityRatios()

func computeMpeg2IntensityRatios() [2][32][2]float64 {
	var out [2][32][2]float64
	bases := [2]float64{0.5, 1.0 / math.Sqrt2}
	for variant, base := range bases {
		out[variant][0] = [2]float64{1.0, 0.0}
		for isPos := 1; isPos < 32; isPos++ {
			i := float64((isPos - 1) / 2)
			ratio := math.Pow(base, i)
			if isPos%2 == 1 {
				out[variant][isPos] = [2]float64{ratio, 1.0}
			} else {
				out[variant][isPos] = [2]float64{1.0, ratio}
			}
		}
	}
	return out
}

const frac1Sqrt2 = 0.70710678118654752440

// processMidSide decorrelates mid/side channels into left/right,
// grounded on stereo.rs's process_mid_side: l=(m+s)/sqrt2,
// r=(m-s)/sqrt2, written back in place (mid becomes left, side
// becomes right).
func processMidSide(mid, side []float64) {
	for i := range mid {
		m, s := mid[i], side[i]
		mid[i] = (m + s) * frac1Sqrt2
		side[i] = (m - s) * frac1Sqrt2
	}
}

// processIntensityMPEG1 decodes one intensity-stereo-coded band,
// grounded on stereo.rs's process_intensity_mpeg1: ch0 carries the
// coded signal, ch1 is reconstructed from it via the ratio table;
// isPos==7 falls back to mid-side if enabled.
func processIntensityMPEG1(isPos int, midSide bool, ch0, ch1 []float64) {
	if isPos < 7 {
		ratioL, ratioR := intensityStereoRatios[isPos][0], intensityStereoRatios[isPos][1]
		for i := range ch0 {
			is := ch0[i]
			ch0[i] = ratioL * is
			ch1[i] = ratioR * is
		}
	} else if isPos == 7 && midSide {
		processMidSide(ch0, ch1)
	}
}

// processIntensityMPEG2 decodes one intensity-stereo-coded band in
// MPEG-2/2.5 (LSF) mode, where is_pos is a direct 5-bit table index
// rather than the MPEG-1 7-entry angle table; variant selects between
// the two ISO 13818-3 ratio step sizes via scalefac_compress&1.
func processIntensityMPEG2(isPos, variant int, ch0, ch1 []float64) {
	if isPos < 0 || isPos > 31 {
		return
	}
	ratioL, ratioR := mpeg2IntensityRatios[variant][isPos][0], mpeg2IntensityRatios[variant][isPos][1]
	for i := range ch0 {
		is := ch0[i]
		ch0[i] = ratioL * is
		ch1[i] = ratioR * is
	}
}

// processIntensityLongBlock decodes every intensity-coded band of a
// long (or start/end) block granule and returns the intensity bound,
// grounded on stereo.rs's process_intensity_long_block: bands starting
// at or after channel 1's rzero are candidates, using channel 1's
// scale factor as the intensity position for that band.
func processIntensityLongBlock(sampleRate uint32, rzeroCh1 int, midSide, mpeg2 bool, scalefacCompress int, ch0, ch1 *[576]float64, scalefacs *[39]int) int {
	bands := mp3tables.SFBLongBands[sampleRate]
	for sfb := 0; sfb < len(bands)-1 && sfb < 21; sfb++ {
		start, end := bands[sfb], bands[sfb+1]
		if start < rzeroCh1 {
			continue
		}
		if mpeg2 {
			processIntensityMPEG2(scalefacs[sfb], scalefacCompress&1, ch0[start:end], ch1[start:end])
		} else {
			processIntensityMPEG1(scalefacs[sfb], midSide, ch0[start:end], ch1[start:end])
		}
	}
	return rzeroCh1
}

// processIntensityShortBlockMPEG1 decodes every intensity-coded band
// of a short block granule (or the short-block tail of a mixed
// block), grounded on stereo.rs's process_intensity_short_block_mpeg1
// and extended per this decoder's reading of the ISO algorithm's
// window-interleaving structure: rzeroCh1 alone cannot tell a whole
// band's eligibility apart, because a short block's 3 windows per
// band are interleaved rather than contiguous, so a band can have one
// window still carrying real data while its other two are already
// past rzero. A 64-bit bitmap instead marks each individual (band,
// window) cell, one bit per cell, and is_bound is the count of bands,
// starting from the band-0 end, that stay contiguously "all 3 windows
// real" - bands from the first gap onward are intensity-eligible. The
// 3-periodic 0x4924924924924924 mask isolates one fold bit per band
// (each band's 3rd window bit) after ANDing the bitmap against itself
// shifted by 1 and 2, which is set exactly when all 3 of that band's
// window bits are set.
func processIntensityShortBlockMPEG1(sampleRate uint32, rzeroCh1 int, midSide, mpeg2 bool, scalefacCompress int, mixed bool, ch0, ch1 *[576]float64, scalefacs *[39]int) int {
	bands := mp3tables.SFBShortBands[sampleRate]
	nBands := len(bands) - 1

	startBand := 0
	if mixed {
		// The long-block head of a mixed block (every band starting
		// below sample 36) is not scanned here; this loop only ever
		// covers the short-block tail.
		for startBand < nBands && bands[startBand] < 36 {
			startBand++
		}
	}

	var bitmap uint64
	for sfb := startBand; sfb < nBands; sfb++ {
		width := (bands[sfb+1] - bands[sfb]) / 3
		start := bands[sfb]
		for w := 0; w < 3; w++ {
			if start+w*width < rzeroCh1 {
				bitmap |= 1 << uint((sfb-startBand)*3+w)
			}
		}
	}

	const windowTripleMask = 0x4924924924924924
	allThreeReal := bitmap & (bitmap << 1) & (bitmap << 2) & windowTripleMask

	isBoundBand := startBand
	for sfb := startBand; sfb < nBands; sfb++ {
		if allThreeReal&(1<<uint((sfb-startBand)*3+2)) == 0 {
			break
		}
		isBoundBand = sfb + 1
	}

	for sfb := isBoundBand; sfb < nBands; sfb++ {
		start, end := bands[sfb], bands[sfb+1]
		if mpeg2 {
			processIntensityMPEG2(scalefacs[sfb], scalefacCompress&1, ch0[start:end], ch1[start:end])
		} else {
			processIntensityMPEG1(scalefacs[sfb], midSide, ch0[start:end], ch1[start:end])
		}
	}
	if isBoundBand >= nBands {
		return bands[nBands]
	}
	return bands[isBoundBand]
}

// jointStereo performs Layer III joint stereo decoding on one granule
// pair, grounded on stereo.rs's top-level stereo() dispatcher: decode
// intensity-coded bands first (selecting the long- or short-block
// variant by block type, and the MPEG-1 or MPEG-2/2.5 ratio table by
// mpeg2), then apply mid-side across everything up to the resulting
// intensity bound.
func jointStereo(sampleRate uint32, g0, g1 *granuleChannel, midSide, intensity, mpeg2 bool, ch0, ch1 *[576]float64) {
	if g0.BlockType != g1.BlockType {
		return
	}

	end := g0.Rzero
	if g1.Rzero > end {
		end = g1.Rzero
	}

	isBound := end
	if intensity {
		switch g1.BlockType {
		case BlockShort:
			isBound = processIntensityShortBlockMPEG1(sampleRate, g1.Rzero, midSide, mpeg2, g1.ScalefacCompress, g1.MixedBlockFlag, ch0, ch1, &g1.Scalefacs)
		default:
			isBound = processIntensityLongBlock(sampleRate, g1.Rzero, midSide, mpeg2, g1.ScalefacCompress, ch0, ch1, &g1.Scalefacs)
		}
	}

	if midSide && isBound > 0 {
		processMidSide(ch0[:isBound], ch1[:isBound])
	}

	if intensity || midSide {
		g0.Rzero = end
		g1.Rzero = end
	}
}
