package dsp

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestIMDCTMatchesDirectForm(t *testing.T) {
	for _, m := range []int{6, 18, 32} {
		coeffs := make([]float64, m)
		for i := range coeffs {
			coeffs[i] = math.Sin(float64(i+1)) * 0.37
		}
		fast := IMDCT(coeffs)
		direct := IMDCTDirect(coeffs)
		if len(fast) != len(direct) {
			t.Fatalf("m=%d: length mismatch: %d vs %d", m, len(fast), len(direct))
		}
		for i := range fast {
			if !almostEqual(fast[i], direct[i], 1e-5) {
				t.Errorf("m=%d: sample %d: fast=%v direct=%v", m, i, fast[i], direct[i])
			}
		}
	}
}

func TestDCT2MatchesDirectForm(t *testing.T) {
	for _, n := range []int{2, 4, 8, 32} {
		x := make([]float64, n)
		for i := range x {
			x[i] = math.Cos(float64(i)) * 0.91
		}
		fast := DCT2(x)
		direct := DCT2Direct(x)
		if diff := cmp.Diff(direct, fast, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
			t.Errorf("n=%d: DCT2 vs DCT2Direct mismatch (-direct +fast):\n%s", n, diff)
		}
	}
}

// TestDCT2MatchesGonum cross-checks DCT2 against gonum's independent
// FFT-backed dsp/fourier.DCT implementation, a second oracle alongside
// the defining-sum DCT2Direct.
func TestDCT2MatchesGonum(t *testing.T) {
	for _, n := range []int{2, 4, 8, 32} {
		x := make([]float64, n)
		for i := range x {
			x[i] = math.Cos(float64(i)) * 0.91
		}
		fast := DCT2(x)
		gonumOut := DCT2Gonum(x)
		scaled := make([]float64, n)
		for i, v := range gonumOut {
			scaled[i] = v * 0.5
		}
		if diff := cmp.Diff(scaled, fast, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
			t.Errorf("n=%d: DCT2 vs 0.5*DCT2Gonum mismatch (-gonum +fast):\n%s", n, diff)
		}
	}
}

func TestIMDCT12MatchesAnalyticalReference(t *testing.T) {
	// One 6-coefficient short window transformed by the 12-point IMDCT
	// and compared against the general-purpose direct IMDCT with M=6.
	// Windowing and the overlap-add of three windows are not exercised.
	var coeffs [6]float64
	for i := range coeffs {
		coeffs[i] = 0.1 * float64(i+1)
	}
	got := IMDCT12(coeffs)
	want := IMDCTDirect(coeffs[:])
	for i := range got {
		if !almostEqual(got[i], want[i], 1e-5) {
			t.Errorf("sample %d: IMDCT12=%v, reference=%v", i, got[i], want[i])
		}
	}
}
