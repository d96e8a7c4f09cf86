package flac

import "github.com/sonatago/sonata/internal/flacheader"

// undecorrelate converts the two physically-coded channel arrays back
// into left/right, per the inter-channel decorrelation mode named in
// the frame header. The "side" channel (raw[1] for left/side and
// mid/side, raw[0] for right/side) is decoded at bps+1 bits by the caller, matching the spec's exact
// integer reconstruction requirement: no rounding is introduced,
// mid/side uses the standard (2*mid + (side&1) +- side) >> 1 identity.
func undecorrelate(order flacheader.ChannelOrder, raw [][]int32) [][]int32 {
	switch order {
	case flacheader.ChannelLeftSide:
		left, side := raw[0], raw[1]
		right := make([]int32, len(left))
		for i := range left {
			right[i] = left[i] - side[i]
		}
		return [][]int32{left, right}
	case flacheader.ChannelRightSide:
		side, right := raw[0], raw[1]
		left := make([]int32, len(right))
		for i := range right {
			left[i] = right[i] + side[i]
		}
		return [][]int32{left, right}
	case flacheader.ChannelMidSide:
		mid, side := raw[0], raw[1]
		left := make([]int32, len(mid))
		right := make([]int32, len(mid))
		for i := range mid {
			m := mid[i]<<1 | (side[i] & 1)
			left[i] = (m + side[i]) >> 1
			right[i] = (m - side[i]) >> 1
		}
		return [][]int32{left, right}
	default:
		return raw
	}
}

// subframeBitDepths returns the bits-per-sample each subframe is coded
// at: the side channel of a decorrelated stereo mode carries one extra
// bit of range, per the FLAC format's documented Side channel widening.
func subframeBitDepths(order flacheader.ChannelOrder, bps int) []int {
	n := order.Count()
	depths := make([]int, n)
	for i := range depths {
		depths[i] = bps
	}
	switch order {
	case flacheader.ChannelLeftSide, flacheader.ChannelMidSide:
		depths[1] = bps + 1
	case flacheader.ChannelRightSide:
		depths[0] = bps + 1
	}
	return depths
}
