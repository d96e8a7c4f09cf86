package flac

import (
	"github.com/sonatago/sonata/bstream"
	"github.com/sonatago/sonata/sonataerr"
)

// StreamInfo mirrors FLAC's mandatory STREAMINFO metadata block: the
// only block every stream carries, and the one format/flac needs to
// build a Track before the first frame is seen.
type StreamInfo struct {
	MinBlockSize  uint16
	MaxBlockSize  uint16
	MinFrameSize  uint32 // 0 means unknown
	MaxFrameSize  uint32
	SampleRate    uint32
	Channels      uint8 // 1-8
	BitsPerSample uint8 // 4-32
	TotalSamples  uint64
	MD5           [16]byte
}

// readStreamInfo parses a STREAMINFO block body (34 bytes, not
// including the 4-byte metadata block header), per the teacher's
// bit-field layout in frame/header.go adapted to the metadata block.
func readStreamInfo(s *bstream.Stream) (StreamInfo, error) {
	var si StreamInfo
	hi, err := s.ReadU16BE()
	if err != nil {
		return si, err
	}
	si.MinBlockSize = hi
	lo, err := s.ReadU16BE()
	if err != nil {
		return si, err
	}
	si.MaxBlockSize = lo

	minFrame, err := s.ReadU24BE()
	if err != nil {
		return si, err
	}
	si.MinFrameSize = minFrame
	maxFrame, err := s.ReadU24BE()
	if err != nil {
		return si, err
	}
	si.MaxFrameSize = maxFrame

	// sample_rate(20) channels-1(3) bps-1(5) total_samples(36), packed
	// big-endian across 8 bytes.
	var packed [8]byte
	if err := s.ReadFull(packed[:]); err != nil {
		return si, err
	}
	bits := newBitView(packed[:])
	si.SampleRate = uint32(bits.read(20))
	si.Channels = uint8(bits.read(3)) + 1
	si.BitsPerSample = uint8(bits.read(5)) + 1
	si.TotalSamples = bits.read(36)

	if err := s.ReadFull(si.MD5[:]); err != nil {
		return si, err
	}
	if si.SampleRate == 0 {
		return si, sonataerr.Decodef("flac: STREAMINFO sample rate must not be zero")
	}
	return si, nil
}

// bitView is a read-only MSB-first bit cursor over an in-memory byte
// slice, used for STREAMINFO's odd-width packed fields where pulling in
// a full bitreader.Reader would be overkill for one-shot parsing.
type bitView struct {
	b   []byte
	pos int // bit offset from start of b
}

func newBitView(b []byte) *bitView { return &bitView{b: b} }

func (v *bitView) read(n int) uint64 {
	var out uint64
	for i := 0; i < n; i++ {
		byteIdx := v.pos / 8
		bitIdx := 7 - (v.pos % 8)
		bit := (v.b[byteIdx] >> bitIdx) & 1
		out = out<<1 | uint64(bit)
		v.pos++
	}
	return out
}
