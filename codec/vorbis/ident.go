// Package vorbis implements the Vorbis codec harness: identification
// and setup header parsing (codebooks, floors, residues, mappings,
// modes) and channel mapping. Per spec.md §4.J and SPEC_FULL.md's
// Non-goals, the per-packet floor decode, inverse coupling, residue
// decode, and windowed IMDCT-with-overlap-add are out of harness
// scope; codec.Decoder.Decode reports them as Unsupported once header
// parsing and channel mapping succeed. Adapted from codec/flac's
// Decoder shape; header field layouts are grounded directly on the
// Vorbis I specification's headers described in spec.md §4.J/§6 (not
// present verbatim in the retrieval pack, so reconstructed from the
// standard rather than a pack file — see DESIGN.md). Uses
// bitreader.LSBReader (this module's own LSB-first bit reader,
// purpose-built for Vorbis per its doc comment) rather than anything
// hand-rolled here.
package vorbis

import (
	"bytes"

	"github.com/sonatago/sonata/bitreader"
	"github.com/sonatago/sonata/sonataerr"
)

// PacketType identifies one of Vorbis's three header packet types, or
// an audio packet.
type PacketType uint8

const (
	PacketIdentification PacketType = 1
	PacketComment        PacketType = 3
	PacketSetup          PacketType = 5
	PacketAudio          PacketType = 0
)

var vorbisSignature = []byte("vorbis")

// IdentificationHeader is Vorbis's first header packet: stream
// version, channel/sample-rate, bitrate hints, and the two power-of-2
// block sizes used by the IMDCT (blocksize_0 for short windows,
// blocksize_1 for long).
type IdentificationHeader struct {
	VorbisVersion uint32
	Channels      uint8
	SampleRate    uint32
	BitrateMax    int32
	BitrateNom    int32
	BitrateMin    int32
	Blocksize0    uint32 // 2^n, n in [6,13]
	Blocksize1    uint32
}

// ParsePacketType reads the 1-byte packet type and validates the
// 6-byte "vorbis" signature that follows it in every header packet.
func ParsePacketType(b []byte) (PacketType, []byte, error) {
	if len(b) < 7 {
		return 0, nil, sonataerr.Decodef("vorbis: header packet too short")
	}
	if !bytes.Equal(b[1:7], vorbisSignature) {
		return 0, nil, sonataerr.Decodef("vorbis: missing \"vorbis\" signature")
	}
	return PacketType(b[0]), b[7:], nil
}

// ParseIdentificationHeader decodes the body following the packet
// type byte and "vorbis" signature.
func ParseIdentificationHeader(body []byte) (IdentificationHeader, error) {
	br := bitreader.NewLSB(bytes.NewReader(body))
	var h IdentificationHeader

	version, err := br.ReadBitsLEQ32(32)
	if err != nil {
		return h, sonataerr.Decodef("vorbis: reading vorbis_version: %v", err)
	}
	if version != 0 {
		return h, sonataerr.Unsupportedf("vorbis: stream version %d is not Vorbis I", version)
	}
	h.VorbisVersion = version

	channels, err := br.ReadBitsLEQ32(8)
	if err != nil {
		return h, sonataerr.Decodef("vorbis: reading audio_channels: %v", err)
	}
	if channels == 0 {
		return h, sonataerr.Decodef("vorbis: audio_channels must be nonzero")
	}
	h.Channels = uint8(channels)

	sampleRate, err := br.ReadBitsLEQ32(32)
	if err != nil {
		return h, sonataerr.Decodef("vorbis: reading audio_sample_rate: %v", err)
	}
	if sampleRate == 0 {
		return h, sonataerr.Decodef("vorbis: audio_sample_rate must be nonzero")
	}
	h.SampleRate = sampleRate

	bmax, err := br.ReadBitsLEQ32Signed(32)
	if err != nil {
		return h, err
	}
	h.BitrateMax = bmax
	bnom, err := br.ReadBitsLEQ32Signed(32)
	if err != nil {
		return h, err
	}
	h.BitrateNom = bnom
	bmin, err := br.ReadBitsLEQ32Signed(32)
	if err != nil {
		return h, err
	}
	h.BitrateMin = bmin

	bs0, err := br.ReadBitsLEQ32(4)
	if err != nil {
		return h, err
	}
	bs1, err := br.ReadBitsLEQ32(4)
	if err != nil {
		return h, err
	}
	if bs0 > bs1 {
		return h, sonataerr.Decodef("vorbis: blocksize_0 exponent %d exceeds blocksize_1 exponent %d", bs0, bs1)
	}
	h.Blocksize0 = 1 << bs0
	h.Blocksize1 = 1 << bs1

	framingBit, err := br.ReadBitsLEQ32(1)
	if err != nil {
		return h, err
	}
	if framingBit != 1 {
		return h, sonataerr.Decodef("vorbis: identification header framing bit not set")
	}
	return h, nil
}
