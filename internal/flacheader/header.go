// Package flacheader parses a FLAC frame header, shared by format/flac
// (which only needs the header to locate frame boundaries and validate
// sync) and codec/flac (which needs the full decoded fields). Adapted
// from mewkiz/flac's frame.NewHeader: same bit layout, but every
// "not yet implemented" panic in the original is replaced with the
// STREAMINFO fallback the format actually specifies (sample_size_spec
// 000 and sample_rate_spec 0000 both mean "read it from STREAMINFO").
package flacheader

import (
	"github.com/icza/bitio"

	"github.com/mewkiz/pkg/hashutil/crc8"

	"github.com/sonatago/sonata/sonataerr"
)

// SyncCode is the 14-bit frame sync pattern, 11111111111110.
const SyncCode = 0x3FFE

// ChannelOrder mirrors the frame header's 4-bit channel assignment
// field, including the three inter-channel decorrelation mappings
// (LeftSide/RightSide/MidSide) codec/flac must undo before returning
// samples.
type ChannelOrder uint8

const (
	ChannelMono ChannelOrder = iota
	ChannelLR
	ChannelLRC
	ChannelLRLsRs
	ChannelLRCLsRs
	ChannelLRCLfeLsRs
	Channel7
	Channel8
	ChannelLeftSide
	ChannelRightSide
	ChannelMidSide
)

var channelCounts = map[ChannelOrder]int{
	ChannelMono: 1, ChannelLR: 2, ChannelLRC: 3, ChannelLRLsRs: 4,
	ChannelLRCLsRs: 5, ChannelLRCLfeLsRs: 6, Channel7: 7, Channel8: 8,
	ChannelLeftSide: 2, ChannelRightSide: 2, ChannelMidSide: 2,
}

// Count returns the number of channels physically encoded in the frame
// (2 for every stereo decorrelation mode, regardless of L/R vs M/S).
func (o ChannelOrder) Count() int { return channelCounts[o] }

// Header is a fully decoded FLAC frame header.
type Header struct {
	HasVariableSampleCount bool
	SampleCount            uint32
	SampleRate             uint32 // 0 if the STREAMINFO rate applies
	ChannelOrder           ChannelOrder
	BitsPerSample          uint8 // 0 if the STREAMINFO depth applies
	SampleNum              uint64
	FrameNum               uint32
	// HeaderLen is the number of bytes consumed by the header
	// (including the trailing CRC-8), used by format/flac to know
	// where subframe data begins without re-reading.
	HeaderLen int
}

// countingReader tees every byte read through a running CRC-8 (ATM
// polynomial, per the FLAC spec) and counts bytes consumed.
type countingReader struct {
	r    byteReader
	h    *crc8.Hash
	n    int
}

type byteReader interface {
	ReadByte() (byte, error)
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err != nil {
		return 0, err
	}
	c.n++
	c.h.Write([]byte{b})
	return b, nil
}

// Read satisfies io.Reader for bitio.NewReader, which only ever calls
// ReadByte internally but requires the interface.
func (c *countingReader) Read(p []byte) (int, error) {
	for i := range p {
		b, err := c.ReadByte()
		if err != nil {
			return i, err
		}
		p[i] = b
	}
	return len(p), nil
}

// Parse reads one frame header from r, verifying its CRC-8 trailer.
func Parse(r byteReader) (Header, error) {
	cr := &countingReader{r: r, h: crc8.NewATM()}
	br := bitio.NewReader(cr)

	sync, err := br.ReadBits(14)
	if err != nil {
		return Header{}, wrapIO(err)
	}
	if uint64(sync) != SyncCode {
		return Header{}, sonataerr.Decodef("flac: invalid frame sync code: got %014b", sync)
	}
	reserved1, err := br.ReadBits(1)
	if err != nil {
		return Header{}, wrapIO(err)
	}
	if reserved1 != 0 {
		return Header{}, sonataerr.Decodef("flac: reserved frame header bit must be 0")
	}
	variable, err := br.ReadBool()
	if err != nil {
		return Header{}, wrapIO(err)
	}
	sampleCountSpec, err := br.ReadBits(4)
	if err != nil {
		return Header{}, wrapIO(err)
	}
	sampleRateSpec, err := br.ReadBits(4)
	if err != nil {
		return Header{}, wrapIO(err)
	}
	chanField, err := br.ReadBits(4)
	if err != nil {
		return Header{}, wrapIO(err)
	}
	if chanField > 10 {
		return Header{}, sonataerr.Decodef("flac: reserved channel assignment: %04b", chanField)
	}
	sampleSizeSpec, err := br.ReadBits(3)
	if err != nil {
		return Header{}, wrapIO(err)
	}
	if sampleSizeSpec == 3 || sampleSizeSpec == 7 {
		return Header{}, sonataerr.Decodef("flac: reserved sample size: %03b", sampleSizeSpec)
	}
	reserved2, err := br.ReadBits(1)
	if err != nil {
		return Header{}, wrapIO(err)
	}
	if reserved2 != 0 {
		return Header{}, sonataerr.Decodef("flac: reserved frame header bit must be 0")
	}

	hdr := Header{
		HasVariableSampleCount: variable,
		ChannelOrder:           ChannelOrder(chanField),
	}

	switch sampleSizeSpec {
	case 0:
		hdr.BitsPerSample = 0 // inherit from STREAMINFO
	case 1:
		hdr.BitsPerSample = 8
	case 2:
		hdr.BitsPerSample = 12
	case 4:
		hdr.BitsPerSample = 16
	case 5:
		hdr.BitsPerSample = 20
	case 6:
		hdr.BitsPerSample = 24
	}

	n, err := decodeUTF8Int(cr)
	if err != nil {
		return Header{}, err
	}
	if variable {
		hdr.SampleNum = n
	} else {
		hdr.FrameNum = uint32(n)
	}

	switch {
	case sampleCountSpec == 0:
		return Header{}, sonataerr.Decodef("flac: reserved block size spec 0000")
	case sampleCountSpec == 1:
		hdr.SampleCount = 192
	case sampleCountSpec >= 2 && sampleCountSpec <= 5:
		hdr.SampleCount = 576 << (sampleCountSpec - 2)
	case sampleCountSpec == 6:
		x, err := br.ReadBits(8)
		if err != nil {
			return Header{}, wrapIO(err)
		}
		hdr.SampleCount = uint32(x) + 1
	case sampleCountSpec == 7:
		x, err := br.ReadBits(16)
		if err != nil {
			return Header{}, wrapIO(err)
		}
		hdr.SampleCount = uint32(x) + 1
	default:
		hdr.SampleCount = 256 << (sampleCountSpec - 8)
	}

	switch {
	case sampleRateSpec == 0:
		hdr.SampleRate = 0 // inherit from STREAMINFO
	case sampleRateSpec == 1:
		hdr.SampleRate = 88200
	case sampleRateSpec == 2:
		hdr.SampleRate = 176400
	case sampleRateSpec == 3:
		hdr.SampleRate = 192000
	case sampleRateSpec == 4:
		hdr.SampleRate = 8000
	case sampleRateSpec == 5:
		hdr.SampleRate = 16000
	case sampleRateSpec == 6:
		hdr.SampleRate = 22050
	case sampleRateSpec == 7:
		hdr.SampleRate = 24000
	case sampleRateSpec == 8:
		hdr.SampleRate = 32000
	case sampleRateSpec == 9:
		hdr.SampleRate = 44100
	case sampleRateSpec == 10:
		hdr.SampleRate = 48000
	case sampleRateSpec == 11:
		hdr.SampleRate = 96000
	case sampleRateSpec == 12:
		x, err := br.ReadBits(8)
		if err != nil {
			return Header{}, wrapIO(err)
		}
		hdr.SampleRate = uint32(x) * 1000
	case sampleRateSpec == 13:
		x, err := br.ReadBits(16)
		if err != nil {
			return Header{}, wrapIO(err)
		}
		hdr.SampleRate = uint32(x)
	case sampleRateSpec == 14:
		x, err := br.ReadBits(16)
		if err != nil {
			return Header{}, wrapIO(err)
		}
		hdr.SampleRate = uint32(x) * 10
	case sampleRateSpec == 15:
		return Header{}, sonataerr.Decodef("flac: invalid sample rate spec 1111")
	}

	got := cr.h.Sum8()
	want, err := br.ReadByte()
	if err != nil {
		return Header{}, wrapIO(err)
	}
	if got != want {
		return Header{}, sonataerr.Decodef("flac: frame header CRC-8 mismatch: want %02x got %02x", want, got)
	}
	hdr.HeaderLen = cr.n
	return hdr, nil
}

func wrapIO(err error) *sonataerr.Error {
	return sonataerr.WrapIO(err, "flac: truncated frame header")
}

// decodeUTF8Int decodes FLAC's "UTF-8-like" coded integer (same coding
// shape as UTF-8 continuation bytes but carrying up to 36 bits).
func decodeUTF8Int(r byteReader) (uint64, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return 0, wrapIO(err)
	}
	var n int
	var v uint64
	switch {
	case b0&0x80 == 0:
		return uint64(b0), nil
	case b0&0xE0 == 0xC0:
		n, v = 1, uint64(b0&0x1F)
	case b0&0xF0 == 0xE0:
		n, v = 2, uint64(b0&0x0F)
	case b0&0xF8 == 0xF0:
		n, v = 3, uint64(b0&0x07)
	case b0&0xFC == 0xF8:
		n, v = 4, uint64(b0&0x03)
	case b0&0xFE == 0xFC:
		n, v = 5, uint64(b0&0x01)
	case b0 == 0xFE:
		n, v = 6, 0
	default:
		return 0, sonataerr.Decodef("flac: invalid UTF-8-coded integer lead byte 0x%02x", b0)
	}
	for i := 0; i < n; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, wrapIO(err)
		}
		if b&0xC0 != 0x80 {
			return 0, sonataerr.Decodef("flac: invalid UTF-8-coded integer continuation byte 0x%02x", b)
		}
		v = v<<6 | uint64(b&0x3F)
	}
	return v, nil
}
