// Package opus implements the Opus codec harness: TOC byte parsing and
// emission, and per-packet frame-count-code framing into individual
// Opus frames. Per spec.md §4.J and SPEC_FULL.md's Non-goals, the
// SILK/CELT decode internals themselves are out of harness scope; this
// package stops at the contract plumbing shared across codecs
// (TOC/header parsing, packet framing, channel mapping) and reports
// codec.Decoder.Decode as Unsupported. Adapted from codec/flac's
// Decoder shape; the TOC/frame-count table is grounded directly on
// RFC 6716 §3.1, which spec.md quotes verbatim.
package opus

import (
	"github.com/sonatago/sonata/sonataerr"
)

// AudioMode is the coarse codec family a TOC config number selects.
type AudioMode uint8

const (
	ModeSILK AudioMode = iota
	ModeHybrid
	ModeCELT
)

// Bandwidth is the audio bandwidth a TOC config number selects.
type Bandwidth uint8

const (
	BandwidthNarrow Bandwidth = iota // NB
	BandwidthMedium                  // MB
	BandwidthWide                    // WB
	BandwidthSuperWide               // SWB
	BandwidthFull                    // FB
)

// FrameCountCode is the 2-bit "c" field of the TOC byte, naming how
// many frames the packet carries and how their lengths are coded.
type FrameCountCode uint8

const (
	FrameCountOne FrameCountCode = iota
	FrameCountTwoEqual
	FrameCountTwoDifferent
	FrameCountArbitrary
)

// TOC is the decoded form of an Opus packet's single leading TOC byte
// (RFC 6716 §3.1): `config[5] | stereo[1] | frame_count_code[2]`.
type TOC struct {
	Mode          AudioMode
	Bandwidth     Bandwidth
	FrameDuration float64 // milliseconds: one of 2.5, 5, 10, 20, 40, 60
	Stereo        bool
	FrameCount    FrameCountCode
	config        uint8 // retained verbatim so Emit round-trips exactly
}

// configTable is RFC 6716 Table 2, indexed by the 5-bit config number.
var configTable = [32]struct {
	mode     AudioMode
	bw       Bandwidth
	duration float64
}{
	// SILK-only, NB/MB/WB, 10/20/40/60ms each.
	0: {ModeSILK, BandwidthNarrow, 10}, 1: {ModeSILK, BandwidthNarrow, 20},
	2: {ModeSILK, BandwidthNarrow, 40}, 3: {ModeSILK, BandwidthNarrow, 60},
	4: {ModeSILK, BandwidthMedium, 10}, 5: {ModeSILK, BandwidthMedium, 20},
	6: {ModeSILK, BandwidthMedium, 40}, 7: {ModeSILK, BandwidthMedium, 60},
	8: {ModeSILK, BandwidthWide, 10}, 9: {ModeSILK, BandwidthWide, 20},
	10: {ModeSILK, BandwidthWide, 40}, 11: {ModeSILK, BandwidthWide, 60},
	// Hybrid, SWB/FB, 10/20ms.
	12: {ModeHybrid, BandwidthSuperWide, 10}, 13: {ModeHybrid, BandwidthSuperWide, 20},
	14: {ModeHybrid, BandwidthFull, 10}, 15: {ModeHybrid, BandwidthFull, 20},
	// CELT-only, NB/WB/SWB/FB, 2.5/5/10/20ms each.
	16: {ModeCELT, BandwidthNarrow, 2.5}, 17: {ModeCELT, BandwidthNarrow, 5},
	18: {ModeCELT, BandwidthNarrow, 10}, 19: {ModeCELT, BandwidthNarrow, 20},
	20: {ModeCELT, BandwidthWide, 2.5}, 21: {ModeCELT, BandwidthWide, 5},
	22: {ModeCELT, BandwidthWide, 10}, 23: {ModeCELT, BandwidthWide, 20},
	24: {ModeCELT, BandwidthSuperWide, 2.5}, 25: {ModeCELT, BandwidthSuperWide, 5},
	26: {ModeCELT, BandwidthSuperWide, 10}, 27: {ModeCELT, BandwidthSuperWide, 20},
	28: {ModeCELT, BandwidthFull, 2.5}, 29: {ModeCELT, BandwidthFull, 5},
	30: {ModeCELT, BandwidthFull, 10}, 31: {ModeCELT, BandwidthFull, 20},
}

// ParseTOC decodes an Opus packet's leading byte.
func ParseTOC(b byte) TOC {
	config := b >> 3
	entry := configTable[config]
	return TOC{
		Mode:          entry.mode,
		Bandwidth:     entry.bw,
		FrameDuration: entry.duration,
		Stereo:        b&0x04 != 0,
		FrameCount:    FrameCountCode(b & 0x03),
		config:        config,
	}
}

// Emit re-encodes t to its original TOC byte. ParseTOC and Emit round
// trip to the identity on every valid byte, since both operate purely
// on the same bit-exact config/stereo/frame-count-code fields with no
// lossy intermediate representation.
func (t TOC) Emit() byte {
	b := t.config << 3
	if t.Stereo {
		b |= 0x04
	}
	b |= byte(t.FrameCount)
	return b
}

// FrameSizes reports the length in bytes of each frame in a packet
// whose TOC's frame count code and remaining payload are given, per
// RFC 6716 §3.2's four framing cases. Codes 0 and 1 are fixed
// arithmetic on len(payload), and code 2 reads the first frame's
// length prefix; the "arbitrary" case (code 3) is not parsed and
// returns an Unsupported error.
func FrameSizes(toc TOC, payload []byte) ([]int, error) {
	switch toc.FrameCount {
	case FrameCountOne:
		return []int{len(payload)}, nil
	case FrameCountTwoEqual:
		if len(payload)%2 != 0 {
			return nil, sonataerr.Decodef("opus: code 1 packet payload length %d is not even", len(payload))
		}
		half := len(payload) / 2
		return []int{half, half}, nil
	case FrameCountTwoDifferent:
		n, consumed, err := readFrameLength(payload)
		if err != nil {
			return nil, err
		}
		rest := payload[consumed:]
		if n > len(rest) {
			return nil, sonataerr.Decodef("opus: code 2 first frame length %d exceeds payload", n)
		}
		return []int{n, len(rest) - n}, nil
	case FrameCountArbitrary:
		return frameSizesArbitrary(payload)
	default:
		return nil, sonataerr.Decodef("opus: invalid frame count code %d", toc.FrameCount)
	}
}

// readFrameLength decodes one RFC 6716 §3.2.1 frame length: a single
// byte 0-251 is the length directly; 252-255 combine with a second
// byte to cover 252-1275.
func readFrameLength(b []byte) (n int, consumed int, err error) {
	if len(b) == 0 {
		return 0, 0, sonataerr.Decodef("opus: truncated frame length")
	}
	first := int(b[0])
	if first < 252 {
		return first, 1, nil
	}
	if len(b) < 2 {
		return 0, 0, sonataerr.Decodef("opus: truncated two-byte frame length")
	}
	return first + 4*int(b[1]), 2, nil
}

func frameSizesArbitrary(payload []byte) ([]int, error) {
	return nil, sonataerr.Unsupportedf("opus: code 3 (arbitrary frame count) packet framing is beyond the harness contract")
}
