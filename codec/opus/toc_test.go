package opus

import "testing"

func TestParseEmitRoundTrips(t *testing.T) {
	for b := 0; b < 256; b++ {
		toc := ParseTOC(byte(b))
		if got := toc.Emit(); got != byte(b) {
			t.Fatalf("byte %d: Emit() = %d, want %d (round trip broken)", b, got, b)
		}
	}
}

func TestParseTOCFields(t *testing.T) {
	// config=16 (CELT, NB, 2.5ms), stereo=1, frame_count_code=2.
	b := byte(16<<3 | 1<<2 | 2)
	toc := ParseTOC(b)
	if toc.Mode != ModeCELT {
		t.Fatalf("Mode = %v, want ModeCELT", toc.Mode)
	}
	if toc.Bandwidth != BandwidthNarrow {
		t.Fatalf("Bandwidth = %v, want BandwidthNarrow", toc.Bandwidth)
	}
	if toc.FrameDuration != 2.5 {
		t.Fatalf("FrameDuration = %v, want 2.5", toc.FrameDuration)
	}
	if !toc.Stereo {
		t.Fatalf("Stereo = false, want true")
	}
	if toc.FrameCount != FrameCountTwoDifferent {
		t.Fatalf("FrameCount = %v, want FrameCountTwoDifferent", toc.FrameCount)
	}
}

func TestFrameSizesCodeOne(t *testing.T) {
	toc := TOC{FrameCount: FrameCountOne}
	sizes, err := FrameSizes(toc, make([]byte, 40))
	if err != nil {
		t.Fatalf("FrameSizes: %v", err)
	}
	if len(sizes) != 1 || sizes[0] != 40 {
		t.Fatalf("sizes = %v, want [40]", sizes)
	}
}

func TestFrameSizesCodeTwoEqual(t *testing.T) {
	toc := TOC{FrameCount: FrameCountTwoEqual}
	sizes, err := FrameSizes(toc, make([]byte, 40))
	if err != nil {
		t.Fatalf("FrameSizes: %v", err)
	}
	if len(sizes) != 2 || sizes[0] != 20 || sizes[1] != 20 {
		t.Fatalf("sizes = %v, want [20 20]", sizes)
	}
}

func TestFrameSizesCodeTwoEqualOddRejected(t *testing.T) {
	toc := TOC{FrameCount: FrameCountTwoEqual}
	if _, err := FrameSizes(toc, make([]byte, 41)); err == nil {
		t.Fatalf("expected an error for an odd-length code-1 payload")
	}
}

func TestFrameSizesCodeTwoDifferent(t *testing.T) {
	toc := TOC{FrameCount: FrameCountTwoDifferent}
	payload := append([]byte{10}, make([]byte, 30)...)
	sizes, err := FrameSizes(toc, payload)
	if err != nil {
		t.Fatalf("FrameSizes: %v", err)
	}
	if len(sizes) != 2 || sizes[0] != 10 || sizes[1] != 20 {
		t.Fatalf("sizes = %v, want [10 20]", sizes)
	}
}
