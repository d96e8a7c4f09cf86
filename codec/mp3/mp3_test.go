package mp3

import (
	"testing"

	"github.com/sonatago/sonata/codec"
	"github.com/sonatago/sonata/format"
	"github.com/sonatago/sonata/internal/mp3header"
	"github.com/sonatago/sonata/internal/mp3tables"
)

// buildSilentFrame constructs a minimal, fully valid MPEG-1 Layer III
// mono frame whose side info is entirely zero: scalefac_compress=0
// (slen1=slen2=0, so scale factors carry no bits), big_values=0,
// region counts 0, part2_3_length=0 — a granule with no spectral data
// at all, the simplest case the decoder handles end to end.
func buildSilentFrame(t *testing.T) ([]byte, mp3header.Header) {
	t.Helper()
	word := uint32(0xFFE00000) |
		uint32(mp3header.Version1)<<19 |
		uint32(mp3header.Layer3)<<17 |
		uint32(1)<<16 | // unprotected: no CRC follows the header
		uint32(9)<<12 | // bitrate index 9 -> 128 kbps for MPEG-1 Layer III
		uint32(0)<<10 | // sample rate index 0 -> 44100 Hz
		uint32(0)<<9 | // no padding
		uint32(mp3header.ChannelMono)<<6

	header, err := mp3header.Parse(word)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if header.SideInfoLen != 17 {
		t.Fatalf("expected mono side info length 17, got %d", header.SideInfoLen)
	}

	buf := make([]byte, header.FrameSize)
	buf[0] = byte(word >> 24)
	buf[1] = byte(word >> 16)
	buf[2] = byte(word >> 8)
	buf[3] = byte(word)
	// Side info and all remaining bytes are already zero: 17 zero
	// bytes is a valid all-zero side info (see the doc comment above),
	// and the rest is ancillary/reservoir filler the decoder never
	// reads when main_data_begin is 0 and every granule is empty.
	return buf, header
}

func TestDecodeSilentFrame(t *testing.T) {
	buf, header := buildSilentFrame(t)
	dec, err := TryNew(format.CodecParams{Codec: format.CodecMP3, SampleRate: header.SampleRate, Channels: 1}, codec.Options{})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}
	pkt := format.Packet{TrackID: 0, PTS: 0, Duration: header.Duration(), Bytes: buf}

	out, err := dec.Decode(pkt)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Channels() != 1 {
		t.Fatalf("expected 1 channel, got %d", out.Channels())
	}
	if out.Filled() != 1152 {
		t.Fatalf("expected 1152 frames (2 granules x 576), got %d", out.Filled())
	}
	for _, v := range out.Plane(0) {
		if v != 0 {
			t.Fatalf("expected silence, got nonzero sample %v", v)
		}
	}
}

// TestDecodeHandlesGranulesWithSpectralData exercises the decoder's
// Huffman/count1 path on a granule whose side info declares a nonzero
// part2_3_length with BigValues still 0, confirming the decoder now
// runs count1 decoding against real (here, zero-valued) main data
// instead of rejecting the frame outright.
func TestDecodeHandlesGranulesWithSpectralData(t *testing.T) {
	buf, header := buildSilentFrame(t)
	// Side info byte 2 of the mono layout falls within the first
	// granule's 12-bit part2_3_length field (bits [18,30) of side
	// info): setting its low bit raises part2_3_length above 0 without
	// touching BigValues, giving the granule a real count1 bit budget
	// to decode against.
	buf[4+2] |= 0x01

	dec, err := TryNew(format.CodecParams{Codec: format.CodecMP3, SampleRate: header.SampleRate, Channels: 1}, codec.Options{})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}
	pkt := format.Packet{Bytes: buf, Duration: header.Duration()}
	out, err := dec.Decode(pkt)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Filled() != 1152 {
		t.Fatalf("expected 1152 frames, got %d", out.Filled())
	}
}

func TestRequantizeZeroIsSilent(t *testing.T) {
	var quantized [576]int32
	g := &granuleChannel{GlobalGain: 140, ScalefacScale: true}
	xr := requantizeGranule(44100, g, &quantized)
	for i, v := range xr {
		if v != 0 {
			t.Fatalf("xr[%d] = %v, want 0 for all-zero quantized input", i, v)
		}
	}
}

func TestAntialiasSkipsPureShortBlocks(t *testing.T) {
	var samples [576]float64
	for i := range samples {
		samples[i] = float64(i + 1)
	}
	want := samples
	antialias(BlockShort, false, &samples)
	if samples != want {
		t.Fatalf("antialias must not modify a pure (non-mixed) short block")
	}
}

func TestFrequencyInversionTogglesOddSubbandOddSamples(t *testing.T) {
	var samples [576]float64
	for i := range samples {
		samples[i] = 1
	}
	frequencyInversion(&samples)
	// Sub-band 1 spans samples[18:36]; its odd-indexed samples within
	// the sub-band (19, 21, 23, ...) must be negated.
	if samples[18] != 1 {
		t.Fatalf("even sample in odd sub-band must be unchanged")
	}
	if samples[19] != -1 {
		t.Fatalf("odd sample in odd sub-band must be negated")
	}
	// Sub-band 0 is even, so it must be untouched.
	if samples[1] != 1 {
		t.Fatalf("even sub-band must be unchanged by frequency inversion")
	}
}

func TestProcessMidSideDecorrelates(t *testing.T) {
	mid := []float64{1, 2}
	side := []float64{1, 0}
	processMidSide(mid, side)
	// l = (1+1)/sqrt2, r = (1-1)/sqrt2 for the first sample.
	if mid[0] <= 1.4 || mid[0] >= 1.5 {
		t.Fatalf("left channel out of expected range: %v", mid[0])
	}
	if side[0] != 0 {
		t.Fatalf("right channel should be 0 when mid==side: %v", side[0])
	}
}

func TestIntensityRatiosBounds(t *testing.T) {
	// is_pos == 6 is the table's final non-reserved entry and must
	// route all energy to the left channel per stereo.rs.
	if intensityStereoRatios[6][0] != 1.0 || intensityStereoRatios[6][1] != 0.0 {
		t.Fatalf("is_pos=6 ratio = %v, want (1,0)", intensityStereoRatios[6])
	}
	// is_pos == 0 means no intensity shift: ratio=tan(0)=0, so all
	// energy stays attributed to k_r.
	if intensityStereoRatios[0][0] != 0 {
		t.Fatalf("is_pos=0 left ratio = %v, want 0", intensityStereoRatios[0][0])
	}
}

func TestMpeg2IntensityRatiosRouteByParity(t *testing.T) {
	// is_pos==0 has no usable ratio in LSF mode; treated as all energy
	// to channel 0, matching the MPEG-1 table's final-entry fallback.
	if mpeg2IntensityRatios[0][0] != [2]float64{1, 0} {
		t.Fatalf("variant 0 is_pos=0 = %v, want (1,0)", mpeg2IntensityRatios[0][0])
	}
	// Odd is_pos assigns the geometric ratio to channel 0 (channel 1
	// fixed at 1); even is_pos assigns it to channel 1.
	if r := mpeg2IntensityRatios[0][1]; r[1] != 1.0 {
		t.Fatalf("variant 0 is_pos=1 (odd) channel1 ratio = %v, want 1.0", r[1])
	}
	if r := mpeg2IntensityRatios[0][2]; r[0] != 1.0 {
		t.Fatalf("variant 0 is_pos=2 (even) channel0 ratio = %v, want 1.0", r[0])
	}
	// The two variants (selected by scalefac_compress&1) must use
	// different step sizes, so is_pos=3's ratio differs between them.
	if mpeg2IntensityRatios[0][3][0] == mpeg2IntensityRatios[1][3][0] {
		t.Fatalf("variant 0 and 1 produced identical ratios at is_pos=3: %v", mpeg2IntensityRatios[0][3][0])
	}
}

func TestProcessIntensityShortBlockBoundStopsAtFirstGap(t *testing.T) {
	sampleRate := uint32(44100)
	bands := mp3tables.SFBShortBands[sampleRate]
	// rzero set so that every window of every band is "real" (below
	// rzero) except band 2 onward, which should become the intensity
	// bound.
	rzero := bands[2] + 1
	var ch0, ch1 [576]float64
	for i := range ch0 {
		ch0[i] = 1
	}
	var scalefacs [39]int
	got := processIntensityShortBlockMPEG1(sampleRate, rzero, false, false, 0, false, &ch0, &ch1, &scalefacs)
	if got != bands[2] {
		t.Fatalf("is_bound = %d, want %d (band 2 boundary)", got, bands[2])
	}
}

func TestProcessIntensityShortBlockMixedSkipsLongBlockHead(t *testing.T) {
	sampleRate := uint32(44100)
	bands := mp3tables.SFBShortBands[sampleRate]
	var ch0, ch1 [576]float64
	var scalefacs [39]int
	// rzero==0: every window is past rzero (none are "real"), so every
	// eligible band should be intensity-coded starting right after the
	// long-block head (bands 0-2, below sample 36) that a mixed block
	// excludes.
	got := processIntensityShortBlockMPEG1(sampleRate, 0, false, false, 0, true, &ch0, &ch1, &scalefacs)
	if got != bands[3] {
		t.Fatalf("is_bound = %d, want %d (mixed block starts its short tail at band 3)", got, bands[3])
	}
}
