package riff

import (
	"github.com/sonatago/sonata/bstream"
	"github.com/sonatago/sonata/format"
	"github.com/sonatago/sonata/sonataerr"
)

// WAVE format tag values, from the Microsoft WAVEFORMATEX table.
const (
	tagPCM        = 0x0001
	tagIEEEFloat  = 0x0003
	tagALaw       = 0x0006
	tagMuLaw      = 0x0007
	tagADPCM      = 0x0002
	tagIMAADPCM   = 0x0011
	tagExtensible = 0xFFFE
)

// subFormatPCM and subFormatFloat are the first two bytes of the
// KSDATAFORMAT_SUBTYPE_PCM / _IEEE_FLOAT GUIDs that follow a
// WAVE_FORMAT_EXTENSIBLE fmt chunk's cbSize field.
const (
	subFormatPCM   = 0x0001
	subFormatFloat = 0x0003
)

// fmtChunk is the parsed "fmt " chunk, covering the canonical
// 16-byte PCMWAVEFORMAT, the 18-byte WAVEFORMATEX, and the 40-byte
// WAVEFORMATEXTENSIBLE variants.
type fmtChunk struct {
	tag           uint16
	channels      int
	sampleRate    uint32
	bytesPerSec   uint32
	blockAlign    uint16
	bitsPerSample uint8
}

func parseFmtChunk(s *bstream.Stream, size uint32) (fmtChunk, error) {
	if size < 16 {
		return fmtChunk{}, sonataerr.Decodef("riff: fmt chunk too small (%d bytes)", size)
	}
	body := make([]byte, size)
	if err := s.ReadFull(body); err != nil {
		return fmtChunk{}, err
	}
	fc := fmtChunk{
		tag:           leU16(body[0:2]),
		channels:      int(leU16(body[2:4])),
		sampleRate:    leU32(body[4:8]),
		bytesPerSec:   leU32(body[8:12]),
		blockAlign:    leU16(body[12:14]),
		bitsPerSample: uint8(leU16(body[14:16])),
	}
	if fc.tag == tagExtensible && size >= 40 {
		// cbSize is body[16:18]; the valid-bits-per-sample (body[18:20])
		// and channel mask (body[20:24]) fields are not needed, only
		// the subformat GUID's first two bytes at body[24:26].
		sub := leU16(body[24:26])
		switch sub {
		case subFormatFloat:
			fc.tag = tagIEEEFloat
		default:
			fc.tag = tagPCM
		}
	}
	return fc, nil
}

// sampleFormat maps the fmt chunk's format tag to format.SampleFormat,
// the way format.CodecParams expects a PCM track to report it.
func (fc fmtChunk) sampleFormat() format.SampleFormat {
	switch fc.tag {
	case tagPCM:
		return format.SampleFormatSignedInt
	case tagIEEEFloat:
		return format.SampleFormatFloat
	case tagALaw:
		return format.SampleFormatALaw
	case tagMuLaw:
		return format.SampleFormatMuLaw
	case tagADPCM:
		return format.SampleFormatMSADPCM
	case tagIMAADPCM:
		return format.SampleFormatIMAADPCM
	default:
		return format.SampleFormatUnknown
	}
}

func leU16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
