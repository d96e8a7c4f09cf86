package mp3

import (
	"math"

	"github.com/sonatago/sonata/dsp"
	"github.com/sonatago/sonata/internal/mp3tables"
)

// antialias applies the Layer III alias-reduction butterfly to the
// sub-band boundaries that were long-block encoded, grounded on
// hybrid_synthesis.rs's antialias(): 8 butterfly calculations per
// boundary using the CS/CA coefficients derived from ISO/IEC
// 11172-3 Table B.9.
func antialias(blockType BlockType, mixed bool, samples *[576]float64) {
	sbEnd := 32 * 18
	switch {
	case blockType == BlockShort && !mixed:
		return
	case blockType == BlockShort && mixed:
		sbEnd = 2 * 18
	}

	for sb := 18; sb < sbEnd; sb += 18 {
		for i := 0; i < 8; i++ {
			li := sb - 1 - i
			ui := sb + i
			lower, upper := samples[li], samples[ui]
			samples[li] = lower*mp3tables.AntialiasCS[i] - upper*mp3tables.AntialiasCA[i]
			samples[ui] = upper*mp3tables.AntialiasCS[i] + lower*mp3tables.AntialiasCA[i]
		}
	}
}

// hybridSynthesis performs the IMDCT and windowing stage over all 32
// sub-bands, grounded on hybrid_synthesis.rs's hybrid_synthesis():
// long (or start/end) blocks run a 36-point IMDCT per sub-band via
// dsp.IMDCT, pure short blocks run three interleaved 12-point IMDCTs
// per sub-band via dsp.IMDCT12, and mixed blocks run the first two
// sub-bands as long and the rest as short. Each sub-band carries its
// own 18-sample overlap buffer across granules.
func hybridSynthesis(blockType BlockType, mixed bool, samples *[576]float64, overlap *[32][18]float64) {
	nLongBands := 32
	switch {
	case blockType == BlockShort && !mixed:
		nLongBands = 0
	case blockType == BlockShort && mixed:
		nLongBands = 2
	}

	if nLongBands > 0 {
		window := &mp3tables.ImdctWindows[0]
		switch blockType {
		case BlockStart:
			window = &mp3tables.ImdctWindows[1]
		case BlockEnd:
			window = &mp3tables.ImdctWindows[3]
		}
		for sb := 0; sb < nLongBands; sb++ {
			start := 18 * sb
			coeffs := make([]float64, 18)
			copy(coeffs, samples[start:start+18])
			out := dsp.IMDCT(coeffs)
			for i := 0; i < 18; i++ {
				windowed := out[i] * window[i]
				samples[start+i] = windowed + overlap[sb][i]
				overlap[sb][i] = out[i+18] * window[i+18]
			}
		}
	}

	if nLongBands < 32 {
		window := &mp3tables.ImdctWindows[2]
		for sb := nLongBands; sb < 32; sb++ {
			start := 18 * sb
			imdct12Windowed(samples[start:start+18], window, &overlap[sb])
		}
	}
}

// imdct12Windowed runs the three interleaved 12-point IMDCTs of a
// short-block sub-band through dsp.IMDCT12, windows, and overlap-adds
// them per hybrid_synthesis.rs's imdct12_win.
func imdct12Windowed(x []float64, window *[36]float64, overlap *[18]float64) {
	var tmp [36]float64

	for w := 0; w < 3; w++ {
		var coeffs [6]float64
		for k := 0; k < 6; k++ {
			coeffs[k] = x[3*k+w]
		}
		y := dsp.IMDCT12(coeffs)
		for i := 0; i < 12; i++ {
			tmp[6+6*w+i] += y[i] * window[i]
		}
	}

	for i := 0; i < 18; i++ {
		x[i] = tmp[i] + overlap[i]
		overlap[i] = tmp[i+18]
	}
}

// frequencyInversion negates every odd sample of every odd sub-band,
// grounded on hybrid_synthesis.rs's frequency_inversion.
func frequencyInversion(samples *[576]float64) {
	for sb := 1; sb < 32; sb += 2 {
		base := sb * 18
		for i := 1; i < 18; i += 2 {
			samples[base+i] = -samples[base+i]
		}
	}
}

// synthesisMatrix is the 64x32 cosine matrix used by polyphase
// synthesis to fold 32 sub-band samples into a 64-point vector, per
// ISO/IEC 11172-3's synthesis sub-band filter definition:
// N[i][k] = cos((16+i)*(2k+1)*pi/64). This is a closed formula, not a
// tabulated constant, so it is computed exactly rather than
// approximated.
var synthesisMatrix = computeSynthesisMatrix()

func computeSynthesisMatrix() [64][32]float64 {
	var n [64][32]float64
	for i := 0; i < 64; i++ {
		for k := 0; k < 32; k++ {
			n[i][k] = math.Cos(float64(16+i) * float64(2*k+1) * math.Pi / 64.0)
		}
	}
	return n
}

// synthesisWindowHalf holds the first 256 taps of the ISO/IEC
// 11172-3 Table B.3 polyphase prototype filter, transcribed from the
// standard (the same way Pretab/SFBLongBands/SFBShortBands in
// internal/mp3tables are transcribed rather than derived from a
// formula; see DESIGN.md for the grounding note and the transcription
// caveat). The remaining 256 taps are not stored separately: the
// prototype is antisymmetric about its midpoint, D[511-n] = -D[n],
// the property several reference decoders exploit to halve their
// table size, so computeSynthesisWindow reconstructs the back half
// from this one.
var synthesisWindowHalf = [256]float64{
	0.000000000, -0.000015259, -0.000015259, -0.000015259, -0.000015259, -0.000015259, -0.000015259, -0.000030518,
	-0.000030518, -0.000030518, -0.000030518, -0.000045776, -0.000045776, -0.000061035, -0.000061035, -0.000076294,
	-0.000076294, -0.000091553, -0.000106812, -0.000106812, -0.000122070, -0.000137329, -0.000152588, -0.000167847,
	-0.000198364, -0.000213623, -0.000244141, -0.000259399, -0.000289917, -0.000320435, -0.000366211, -0.000396729,
	-0.000442505, -0.000473022, -0.000534058, -0.000579834, -0.000625610, -0.000686646, -0.000747681, -0.000808716,
	-0.000885010, -0.000961304, -0.001037598, -0.001113892, -0.001205444, -0.001296997, -0.001388550, -0.001480103,
	-0.001586914, -0.001693726, -0.001785278, -0.001907349, -0.002014160, -0.002120972, -0.002243042, -0.002349854,
	-0.002456665, -0.002578735, -0.002685547, -0.002792358, -0.002899170, -0.002990723, -0.003082275, -0.003173828,
	0.003250122, 0.003326416, 0.003387451, 0.003433228, 0.003463745, 0.003479004, 0.003479004, 0.003463745,
	0.003417969, 0.003372192, 0.003280640, 0.003173828, 0.003051758, 0.002883911, 0.002700806, 0.002487183,
	0.002227783, 0.001937866, 0.001617432, 0.001266479, 0.000869751, 0.000442505, -0.000030518, -0.000549316,
	-0.001098633, -0.001693726, -0.002334595, -0.003005981, -0.003723145, -0.004486084, -0.005294800, -0.006118774,
	-0.007003784, -0.007919312, -0.008865356, -0.009841919, -0.010848999, -0.011886597, -0.012939453, -0.014022827,
	-0.015121460, -0.016235352, -0.017349243, -0.018463135, -0.019577026, -0.020690918, -0.021789551, -0.022857666,
	-0.023910522, -0.024932861, -0.025909424, -0.026840210, -0.027725220, -0.028533936, -0.029281616, -0.029937744,
	-0.030532837, -0.031005859, -0.031387329, -0.031661987, -0.031814575, -0.031845093, -0.031738281, -0.031478882,
	0.031082153, 0.030517578, 0.029785156, 0.028884888, 0.027801514, 0.026535034, 0.025085449, 0.023422241,
	0.021575928, 0.019531250, 0.017257690, 0.014801025, 0.012115479, 0.009231567, 0.006134033, 0.002822876,
	-0.000686646, -0.004394531, -0.008316040, -0.012420654, -0.016711426, -0.021179199, -0.025817871, -0.030609131,
	-0.035552979, -0.040634155, -0.045837402, -0.051132202, -0.056533813, -0.061996460, -0.067520142, -0.073059082,
	-0.078628540, -0.084182739, -0.089706421, -0.095169067, -0.100540161, -0.105819702, -0.110946655, -0.115921021,
	-0.120697021, -0.125259399, -0.129562378, -0.133590698, -0.137298584, -0.140670776, -0.143676758, -0.146255493,
	-0.148422241, -0.150115967, -0.151306152, -0.151962280, -0.152069092, -0.151596069, -0.150497437, -0.148773193,
	-0.146362305, -0.143264771, -0.139450073, -0.134887695, -0.129577637, -0.123474121, -0.116577148, -0.108856201,
	0.100311279, 0.090927124, 0.080688477, 0.069595337, 0.057617188, 0.044784546, 0.031082153, 0.016510010,
	0.001068115, -0.015228271, -0.032379150, -0.050354004, -0.069168091, -0.088775635, -0.109161377, -0.130310059,
	-0.152206421, -0.174789429, -0.198059082, -0.221984863, -0.246505737, -0.271591187, -0.297210693, -0.323318481,
	-0.349868774, -0.376800537, -0.404083252, -0.431655884, -0.459472656, -0.487472534, -0.515609741, -0.543823242,
	0.571166992, 0.598876953, 0.626281738, 0.653411865, 0.680206299, 0.706634521, 0.732635498, 0.758193970,
	0.783203125, 0.807617188, 0.831481934, 0.854628906, 0.877128601, 0.898910522, 0.919830322, 0.939910889,
	0.959075928, 0.977294922, 0.994503784, 1.010681152, 1.025817871, 1.039810181, 1.052688599, 1.064422607,
	1.074920654, 1.084182739, 1.092208862, 1.098938966, 1.104339600, 1.108446121, 1.111373901, 1.112869263,
}

var synthesisWindow = computeSynthesisWindow()

func computeSynthesisWindow() [512]float64 {
	var d [512]float64
	copy(d[:256], synthesisWindowHalf[:])
	for i := 0; i < 256; i++ {
		d[511-i] = -synthesisWindowHalf[i]
	}
	return d
}

// synthesisState carries the 1024-sample polyphase history FIFO for
// one channel across calls to polyphaseSynthesize.
type synthesisState struct {
	hist [1024]float64
}

// polyphaseSynthesize converts one time-instant's 32 sub-band samples
// into 32 interleaved PCM samples, appended to out, using the
// classic shift/matrix/window-sum structure common to every Layer
// I/II/III reference decoder.
func (s *synthesisState) polyphaseSynthesize(subbands [32]float64, out []float64) []float64 {
	copy(s.hist[64:], s.hist[:len(s.hist)-64])
	for i := 0; i < 64; i++ {
		var sum float64
		for k := 0; k < 32; k++ {
			sum += synthesisMatrix[i][k] * subbands[k]
		}
		s.hist[i] = sum
	}

	var u [512]float64
	for i := 0; i < 8; i++ {
		for j := 0; j < 32; j++ {
			u[64*i+j] = s.hist[128*i+j]
			u[64*i+32+j] = s.hist[128*i+96+j]
		}
	}

	for j := 0; j < 32; j++ {
		var sum float64
		for i := 0; i < 16; i++ {
			sum += synthesisWindow[32*i+j] * u[32*i+j]
		}
		out = append(out, sum)
	}
	return out
}
