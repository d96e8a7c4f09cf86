// Package dsp provides the fixed-size transform kernels shared by the
// codecs: a fast, FFT-based N-point IMDCT and a DCT-II computed via Lee's
// recursive decimation. The IMDCT leans on the FFT backend ausocean-av
// already pulls into this pack (github.com/mjibson/go-dsp/fft) rather
// than hand-rolling a radix-2 FFT, matching ausocean-av/codec/pcm/filters.go's
// use of fft.FFTReal/fft.IFFT for spectral work. The DCT-II recursion
// uses no FFT; DCT2Gonum computes the same transform through gonum's
// dsp/fourier package for cross-checking.
package dsp

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

// imdctTwiddles caches, per input length M, the pre-twiddle factors
// Z_k-prefactor = exp(i*(pi*k*(M+1)/(2M) + pi/4)) used by IMDCT, and the
// post-twiddle factors exp(i*pi*(2n+1)/(4M)) used to recombine the IFFT
// output. Large lookup tables are process-wide and lazily initialized
// once, per the design note that big cosine/window tables are
// process-wide and read-only after first use.
type imdctTwiddles struct {
	pre  []complex128 // length M
	post []complex128 // length 2M
}

var (
	imdctCacheMu sync.Mutex
	imdctCache   = map[int]*imdctTwiddles{}
)

func getIMDCTTwiddles(m int) *imdctTwiddles {
	imdctCacheMu.Lock()
	defer imdctCacheMu.Unlock()
	if t, ok := imdctCache[m]; ok {
		return t
	}
	n := 2 * m
	t := &imdctTwiddles{pre: make([]complex128, m), post: make([]complex128, n)}
	for k := 0; k < m; k++ {
		angle := math.Pi * float64(k) * float64(m+1) / float64(n)
		t.pre[k] = cmplx.Exp(complex(0, angle+math.Pi/4))
	}
	for nn := 0; nn < n; nn++ {
		angle := math.Pi * float64(2*nn+1) / float64(2*n)
		t.post[nn] = cmplx.Exp(complex(0, angle))
	}
	imdctCache[m] = t
	return t
}

// IMDCT computes the fast N-point inverse modified discrete cosine
// transform of a real coefficient vector of length M = N/2, returning N
// time-domain samples:
//
//	x[n] = sum_{k=0}^{M-1} X[k] * cos( (pi/M)*(n+0.5+M/2)*(k+0.5) ), n=0..2M-1
//
// computed by packing X into a length-N complex sequence with a
// per-k pre-twiddle, taking one N-point inverse FFT, and applying a
// per-n post-twiddle to the real part of the result. This is the
// standard DFT-based IMDCT factorization: one complex FFT of the output
// size replaces the O(M*N) direct double sum.
func IMDCT(coeffs []float64) []float64 {
	m := len(coeffs)
	n := 2 * m
	tw := getIMDCTTwiddles(m)

	z := make([]complex128, n)
	for k := 0; k < m; k++ {
		z[k] = complex(coeffs[k], 0) * tw.pre[k]
	}
	// z[m:] stays zero: the coefficient vector is conceptually
	// zero-padded to the full output length before the inverse FFT.
	y := fft.IFFT(z)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = real(complex(float64(n), 0) * y[i] * tw.post[i])
	}
	return out
}

// IMDCTDirect computes the same transform as IMDCT via the defining
// double summation. It exists purely as a correctness oracle for tests:
// it is asymptotically worse (O(M*N)) but has no room for a twiddle-sign
// mistake to hide in, so IMDCT is checked against it rather than trusted
// on its own derivation.
func IMDCTDirect(coeffs []float64) []float64 {
	m := len(coeffs)
	n := 2 * m
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for k := 0; k < m; k++ {
			angle := (math.Pi / float64(m)) * (float64(i)+0.5+float64(m)/2) * (float64(k) + 0.5)
			sum += coeffs[k] * math.Cos(angle)
		}
		out[i] = sum
	}
	return out
}

// imdct12TableOnce lazily builds the fixed 6-tap half-cosine table used by
// IMDCT12. Each of the 12 outputs is a combination of at most 6 distinct
// cosine values (cos(pi/6 * (2k+1)) for k=0..5), so the table is indexed
// [output][tap] rather than recomputed per call.
var imdct12TableOnce = sync.OnceValue(func() [12][6]float64 {
	var t [12][6]float64
	for i := 0; i < 12; i++ {
		for k := 0; k < 6; k++ {
			angle := (math.Pi / 6) * (float64(i) + 0.5 + 3) * (float64(k) + 0.5)
			t[i][k] = math.Cos(angle)
		}
	}
	return t
})

// IMDCT12 computes the 12-point IMDCT (6 input coefficients, 12 output
// samples) via the precomputed 6-tap half-cosine table above, as MP3
// short blocks require.
func IMDCT12(coeffs [6]float64) [12]float64 {
	table := imdct12TableOnce()
	var out [12]float64
	for i := 0; i < 12; i++ {
		var sum float64
		row := table[i]
		for k := 0; k < 6; k++ {
			sum += coeffs[k] * row[k]
		}
		out[i] = sum
	}
	return out
}
