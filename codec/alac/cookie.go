// Package alac implements the ALAC codec harness: magic cookie
// (ALACSpecificConfig) parsing and channel layout mapping. Per
// spec.md §4.J and SPEC_FULL.md's Non-goals, the SCE/CPE/LFE element
// bitstream decode (Rice-coded residuals, adaptive LPC prediction) is
// out of harness scope; codec.Decoder.Decode reports it as
// Unsupported once the cookie and element framing are understood.
// Adapted from codec/flac's Decoder shape; the cookie layout is
// grounded directly on spec.md §4.J's field list, which matches
// Apple's published ALACSpecificConfig struct layout.
package alac

import (
	"encoding/binary"

	"github.com/sonatago/sonata/sonataerr"
)

// ChannelLayoutTag identifies a channel layout per Apple's
// kALACChannelLayoutTag_* constants; only the common mappings needed
// to route decoded channels to output positions are named here.
type ChannelLayoutTag uint32

const (
	ChannelLayoutMono   ChannelLayoutTag = 100 << 16 | 1
	ChannelLayoutStereo ChannelLayoutTag = 101 << 16 | 2
)

// MagicCookie is the parsed form of ALAC's "magic cookie" atom: an
// ALACSpecificConfig, optionally followed by a 24-byte channel-layout
// ("chan") atom for >2-channel streams.
type MagicCookie struct {
	FrameLength       uint32
	CompatibleVersion uint8
	BitDepth          uint8
	PB                uint8 // Rice "tuning" parameter: initial history
	MB                uint8 // Rice "tuning" parameter: max run-length escape threshold
	KB                uint8 // Rice "tuning" parameter: initial k
	Channels          uint8
	MaxRun            uint16
	MaxFrameBytes     uint32
	AvgBitRate        uint32
	SampleRate        uint32
	ChannelLayoutTag  ChannelLayoutTag // zero if no chan atom was present
}

const cookieLen = 24

// ParseMagicCookie decodes an ALACSpecificConfig (24 bytes, all
// big-endian fields) and, if present, a trailing 24-byte channel
// layout atom (tag, bitmap, num channel descriptions == 0 for the
// layouts this harness maps).
func ParseMagicCookie(b []byte) (MagicCookie, error) {
	if len(b) < cookieLen {
		return MagicCookie{}, sonataerr.Decodef("alac: magic cookie too short: %d bytes", len(b))
	}
	c := MagicCookie{
		FrameLength:       binary.BigEndian.Uint32(b[0:4]),
		CompatibleVersion: b[4],
		BitDepth:          b[5],
		PB:                b[6],
		MB:                b[7],
		KB:                b[8],
		Channels:          b[9],
		MaxRun:            binary.BigEndian.Uint16(b[10:12]),
		MaxFrameBytes:     binary.BigEndian.Uint32(b[12:16]),
		AvgBitRate:        binary.BigEndian.Uint32(b[16:20]),
		SampleRate:        binary.BigEndian.Uint32(b[20:24]),
	}
	if rest := b[cookieLen:]; len(rest) >= 12 {
		// A full "chan" atom is {size(4), "chan"(4), version/flags(4),
		// tag(4), bitmap(4), numDescriptions(4)}; its 12-byte header is
		// skipped here. Trailing bytes without that header are read as
		// the bare {tag, bitmap, numDescriptions} payload.
		if len(rest) >= 24 && string(rest[4:8]) == "chan" {
			rest = rest[12:]
		}
		c.ChannelLayoutTag = ChannelLayoutTag(binary.BigEndian.Uint32(rest[0:4]))
	}
	return c, nil
}
