package sample

import "github.com/sonatago/sonata/sonataerr"

// ChannelLayout is a bitmask of present channel positions; its population
// count gives the channel count.
type ChannelLayout uint32

const (
	FrontLeft ChannelLayout = 1 << iota
	FrontRight
	FrontCenter
	LowFrequency
	RearLeft
	RearRight
	SideLeft
	SideRight
)

// LayoutForCount returns a layout with the first n positional flags set,
// in FrontLeft..SideRight declaration order. It is used by decoders (FLAC
// in particular) that only know a raw channel count from the bitstream,
// not a positional assignment.
func LayoutForCount(n int) ChannelLayout {
	var l ChannelLayout
	for i := 0; i < n; i++ {
		l |= 1 << uint(i)
	}
	return l
}

// Count returns the number of channels in the layout.
func (l ChannelLayout) Count() int {
	n := 0
	for l != 0 {
		n += int(l & 1)
		l >>= 1
	}
	return n
}

// Buffer is a planar, column-major audio buffer of float64 samples: one
// contiguous slice per channel, each of length Capacity, of which the
// first Filled entries hold valid samples. float64 is used as the
// internal working precision (decoders accumulate in wider types and
// store through sample.I32FromF64 et al. only at the buffer boundary) so
// that repeated render/transform passes do not compound rounding error.
type Buffer struct {
	SampleRate uint32
	Layout     ChannelLayout
	planes     [][]float64
	capacity   int
	filled     int
}

// NewBuffer allocates a buffer for the given layout with room for
// capacity frames.
func NewBuffer(sampleRate uint32, layout ChannelLayout, capacity int) *Buffer {
	n := layout.Count()
	planes := make([][]float64, n)
	for i := range planes {
		planes[i] = make([]float64, capacity)
	}
	return &Buffer{SampleRate: sampleRate, Layout: layout, planes: planes, capacity: capacity}
}

// Channels returns the number of channels.
func (b *Buffer) Channels() int { return len(b.planes) }

// Capacity returns the buffer's frame capacity.
func (b *Buffer) Capacity() int { return b.capacity }

// Filled returns the number of valid frames currently held.
func (b *Buffer) Filled() int { return b.filled }

// Clear resets the filled length to zero without releasing capacity.
func (b *Buffer) Clear() { b.filled = 0 }

// Plane returns a mutable borrow of one channel's samples, up to the
// filled length. It panics if ch is out of range, matching the teacher's
// habit of treating channel-index misuse as a programmer error rather
// than a recoverable one (see frame.SubFrame indexing in mewkiz/flac).
func (b *Buffer) Plane(ch int) []float64 {
	return b.planes[ch][:b.filled]
}

// PlanePair returns mutable borrows of two distinct channels, for
// joint-stereo and inter-channel decorrelation passes. It returns an
// error if the indices are not distinct, per the invariant that a
// channel-pair borrow requires two distinct channel indices.
func (b *Buffer) PlanePair(a, c int) ([]float64, []float64, error) {
	if a == c {
		return nil, nil, sonataerr.Decodef("sample: channel-pair borrow requires distinct channels, got %d twice", a)
	}
	return b.planes[a][:b.filled], b.planes[c][:b.filled], nil
}

// Render grows Filled by n frames (zero-initialized), returning an error
// if that would exceed Capacity.
func (b *Buffer) Render(n int) error {
	if b.filled+n > b.capacity {
		return sonataerr.Decodef("sample: render would exceed buffer capacity (%d+%d > %d)", b.filled, n, b.capacity)
	}
	for _, p := range b.planes {
		for i := b.filled; i < b.filled+n; i++ {
			p[i] = 0
		}
	}
	b.filled += n
	return nil
}

// Truncate shrinks Filled to n frames; n must be <= Filled.
func (b *Buffer) Truncate(n int) error {
	if n > b.filled {
		return sonataerr.Decodef("sample: truncate(%d) exceeds filled length %d", n, b.filled)
	}
	b.filled = n
	return nil
}

// TrimStart discards the first n frames, shifting the remainder down.
// Used to implement gapless encoder-delay removal.
func (b *Buffer) TrimStart(n int) error {
	if n > b.filled {
		return sonataerr.Decodef("sample: trim-start(%d) exceeds filled length %d", n, b.filled)
	}
	for _, p := range b.planes {
		copy(p, p[n:b.filled])
	}
	b.filled -= n
	return nil
}

// TrimEnd discards the last n frames.
func (b *Buffer) TrimEnd(n int) error {
	return b.Truncate(b.filled - n)
}

// Shift discards the first n frames. It is an alias of TrimStart and
// compacts the remainder downward the same way; there is no separate
// non-compacting offset path. Shift is kept for API-surface parity with
// Symphonia's AudioBuffer::shift.
func (b *Buffer) Shift(n int) error { return b.TrimStart(n) }

// Transform applies fn to every sample of every channel in place.
func (b *Buffer) Transform(fn func(float64) float64) {
	for _, p := range b.planes {
		for i := 0; i < b.filled; i++ {
			p[i] = fn(p[i])
		}
	}
}

// CopyInterleavedI16 copies the filled region out as interleaved 16-bit
// samples, converting from the internal float64 representation.
func (b *Buffer) CopyInterleavedI16(dst []int16) {
	ch := len(b.planes)
	for i := 0; i < b.filled; i++ {
		for c := 0; c < ch; c++ {
			dst[i*ch+c] = f64ToI16(b.planes[c][i])
		}
	}
}

// CopyPlanarI32 copies each channel's filled region out as 32-bit samples
// into the corresponding destination slice.
func (b *Buffer) CopyPlanarI32(dst [][]int32) {
	for c, p := range b.planes {
		for i := 0; i < b.filled; i++ {
			dst[c][i] = f64ToI32(p[i])
		}
	}
}
