// Package mp3header parses an MPEG-1/2/2.5 audio frame header, shared
// by format/mp3 (which needs it to locate frame boundaries, resync,
// and size packets) and codec/mp3 (which needs the full decoded
// fields to drive Huffman/requantization). Adapted from
// internal/flacheader's shape (a byte-oriented Parse returning a flat
// Header struct plus a sync scanner) generalized to MPEG's fixed
// 32-bit header instead of FLAC's variable-width one.
package mp3header

import (
	"github.com/sonatago/sonata/sonataerr"
)

// Version is the MPEG version signaled by a frame header's 2-bit
// version field.
type Version uint8

const (
	Version25 Version = iota // MPEG 2.5 (unofficial extension)
	VersionReserved
	Version2
	Version1
)

// Layer is the MPEG layer signaled by a frame header's 2-bit layer
// field. Only Layer3 is decoded by codec/mp3; Layer1/Layer2 frames are
// still parsed and demuxed by format/mp3 so mixed-layer streams are at
// least correctly chunked.
type Layer uint8

const (
	LayerReserved Layer = iota
	Layer3
	Layer2
	Layer1
)

// ChannelMode is the frame header's 2-bit channel mode field.
type ChannelMode uint8

const (
	ChannelStereo ChannelMode = iota
	ChannelJointStereo
	ChannelDualChannel
	ChannelMono
)

// Channels reports how many audio channels this mode carries.
func (m ChannelMode) Channels() int {
	if m == ChannelMono {
		return 1
	}
	return 2
}

// HeaderLen is the fixed size, in bytes, of an MPEG audio frame
// header (the leading 32-bit sync+parameters word).
const HeaderLen = 4

// MaxFrameSize bounds the largest possible Layer 1/2/3 frame at any
// bitrate/sample-rate combination, used to size lookahead buffers.
const MaxFrameSize = 2881

// Header is a fully decoded MPEG audio frame header.
type Header struct {
	Version       Version
	Layer         Layer
	Protected     bool // true if a CRC-16 follows the header
	BitrateKbps   int
	SampleRate    uint32
	Padding       bool
	ChannelMode   ChannelMode
	ModeExtension uint8
	FrameSize     int // total bytes, header included
	SideInfoLen   int // bytes of side info following the (optional CRC after) the header
	SamplesPerFrame int
}

// bitrateTableV1L1 etc. are the ISO/IEC 11172-3 & 13818-3 bitrate
// tables in kbit/s, indexed by the header's 4-bit bitrate index
// (index 0 is "free format", index 15 is reserved/invalid).
var bitrateTableV1L1 = [16]int{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, -1}
var bitrateTableV1L2 = [16]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, -1}
var bitrateTableV1L3 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, -1}
var bitrateTableV2L1 = [16]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, -1}
var bitrateTableV2L23 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1}

var sampleRateTableV1 = [4]uint32{44100, 48000, 32000, 0}
var sampleRateTableV2 = [4]uint32{22050, 24000, 16000, 0}
var sampleRateTableV25 = [4]uint32{11025, 12000, 8000, 0}

// Parse decodes a 32-bit MPEG audio frame header word already known to
// carry a valid 11-bit sync (the caller, format/mp3's sync scanner,
// finds the sync pattern before calling Parse).
func Parse(word uint32) (Header, error) {
	if word&0xFFE00000 != 0xFFE00000 {
		return Header{}, sonataerr.Decodef("mp3: frame header missing sync pattern")
	}
	h := Header{}
	h.Version = Version((word >> 19) & 0x3)
	if h.Version == VersionReserved {
		return Header{}, sonataerr.Decodef("mp3: reserved MPEG version")
	}
	h.Layer = Layer((word >> 17) & 0x3)
	if h.Layer == LayerReserved {
		return Header{}, sonataerr.Decodef("mp3: reserved MPEG layer")
	}
	h.Protected = (word>>16)&0x1 == 0
	bitrateIdx := int((word >> 12) & 0xF)
	sampleRateIdx := (word >> 10) & 0x3
	h.Padding = (word>>9)&0x1 != 0
	h.ChannelMode = ChannelMode((word >> 6) & 0x3)
	h.ModeExtension = uint8((word >> 4) & 0x3)

	switch h.Version {
	case Version1:
		if sampleRateIdx == 3 {
			return Header{}, sonataerr.Decodef("mp3: reserved sample rate index")
		}
		h.SampleRate = sampleRateTableV1[sampleRateIdx]
	case Version2:
		if sampleRateIdx == 3 {
			return Header{}, sonataerr.Decodef("mp3: reserved sample rate index")
		}
		h.SampleRate = sampleRateTableV2[sampleRateIdx]
	default: // Version25
		if sampleRateIdx == 3 {
			return Header{}, sonataerr.Decodef("mp3: reserved sample rate index")
		}
		h.SampleRate = sampleRateTableV25[sampleRateIdx]
	}

	var table *[16]int
	switch {
	case h.Version == Version1 && h.Layer == Layer1:
		table = &bitrateTableV1L1
	case h.Version == Version1 && h.Layer == Layer2:
		table = &bitrateTableV1L2
	case h.Version == Version1 && h.Layer == Layer3:
		table = &bitrateTableV1L3
	case h.Layer == Layer1:
		table = &bitrateTableV2L1
	default:
		table = &bitrateTableV2L23
	}
	h.BitrateKbps = table[bitrateIdx]
	if h.BitrateKbps < 0 {
		return Header{}, sonataerr.Decodef("mp3: reserved bitrate index")
	}
	if h.BitrateKbps == 0 {
		return Header{}, sonataerr.Unsupportedf("mp3: free-format bitrate is not supported")
	}

	switch {
	case h.Layer == Layer1:
		h.SamplesPerFrame = 384
	case h.Version == Version1 || h.Layer == Layer2:
		h.SamplesPerFrame = 1152
	default:
		h.SamplesPerFrame = 576
	}

	switch h.Layer {
	case Layer1:
		pad := 0
		if h.Padding {
			pad = 4
		}
		h.FrameSize = (12*h.BitrateKbps*1000/int(h.SampleRate) + pad) * 4
	default:
		pad := 0
		if h.Padding {
			pad = 1
		}
		slotDiv := 144
		if h.Version != Version1 && h.Layer == Layer3 {
			slotDiv = 72
		}
		h.FrameSize = slotDiv*h.BitrateKbps*1000/int(h.SampleRate) + pad
	}

	if h.Version == Version1 {
		if h.ChannelMode == ChannelMono {
			h.SideInfoLen = 17
		} else {
			h.SideInfoLen = 32
		}
	} else {
		if h.ChannelMode == ChannelMono {
			h.SideInfoLen = 9
		} else {
			h.SideInfoLen = 17
		}
	}

	return h, nil
}

// Similar reports whether other is consistent with h for the purposes
// of validating a resync candidate: same version, layer, sample rate,
// and channel count (bitrate and padding may legitimately vary frame
// to frame in a VBR stream).
func (h Header) Similar(other Header) bool {
	return h.Version == other.Version &&
		h.Layer == other.Layer &&
		h.SampleRate == other.SampleRate &&
		h.ChannelMode.Channels() == other.ChannelMode.Channels()
}

// Duration reports the number of decoded audio samples this frame
// contributes to the track's timeline; identical to SamplesPerFrame,
// named separately to match format/mp3's call-site vocabulary.
func (h Header) Duration() uint64 { return uint64(h.SamplesPerFrame) }
