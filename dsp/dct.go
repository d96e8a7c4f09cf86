package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DCT2 computes the N-point DCT-II of x (N a power of two) using Lee's
// recursive decimation: split into a sum/difference pair scaled by
// half-cosine weights, recurse on each half, then interleave.
//
//	y[k] = sum_{i=0}^{N-1} x[i] * cos( pi/N * (i+0.5) * k ),  k=0..N-1
//
// ref: B. G. Lee, "A new algorithm to compute the discrete cosine
// transform", IEEE Trans. ASSP, 1984.
func DCT2(x []float64) []float64 {
	n := len(x)
	if n == 1 {
		return []float64{x[0]}
	}
	if n%2 != 0 {
		panic("dsp: DCT2 requires a power-of-two length")
	}
	half := n / 2
	a := make([]float64, half)
	b := make([]float64, half)
	for i := 0; i < half; i++ {
		a[i] = x[i] + x[n-1-i]
		denom := 2 * math.Cos(math.Pi*float64(2*i+1)/float64(2*n))
		b[i] = (x[i] - x[n-1-i]) / denom
	}
	evenOut := DCT2(a) // out[2i]   = evenOut[i]
	oddIn := DCT2(b)   // out[2i+1] = oddIn[i] + oddIn[i+1], oddIn[half] := 0

	out := make([]float64, n)
	for i := 0; i < half; i++ {
		out[2*i] = evenOut[i]
		next := 0.0
		if i+1 < half {
			next = oddIn[i+1]
		}
		out[2*i+1] = oddIn[i] + next
	}
	return out
}

// DCT2Gonum computes the same N-point DCT-II via gonum's FFT-backed
// dsp/fourier.DCT, a second, independently-implemented oracle for
// DCT2's recursive fast path alongside DCT2Direct. gonum's convention
// carries an extra factor of 2 relative to the defining sum used by
// DCT2/DCT2Direct (matching FFTW's REDFT10), so callers comparing
// against DCT2/DCT2Direct must scale this result by 0.5.
func DCT2Gonum(x []float64) []float64 {
	t := fourier.NewDCT(len(x))
	dst := make([]float64, len(x))
	return t.Transform(dst, x)
}

// DCT2Direct computes the same transform via the defining double sum; a
// correctness oracle for DCT2's recursive fast path in tests.
func DCT2Direct(x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x[i] * math.Cos(math.Pi/float64(n)*(float64(i)+0.5)*float64(k))
		}
		out[k] = sum
	}
	return out
}
