package alac

import (
	"github.com/sonatago/sonata/codec"
	"github.com/sonatago/sonata/format"
	"github.com/sonatago/sonata/sample"
	"github.com/sonatago/sonata/sonataerr"
)

// elementTag is the 3-bit tag that precedes each ALAC bitstream
// element (SCE/CPE/LFE/DSE/FIL/END), per spec.md §4.J.
type elementTag uint8

const (
	elementSCE elementTag = iota
	elementCPE
	elementCCE
	elementLFE
	elementDSE
	elementPCE
	elementFIL
	elementEND
)

// Decoder implements codec.Decoder for ALAC at the harness level: it
// parses the magic cookie once (in TryNew, from the track's
// ExtraData) and identifies the leading element tag of each
// packet, but does not run the per-element LPC/Rice decode pipeline —
// that is explicitly out of harness scope (SPEC_FULL.md Non-goals).
type Decoder struct {
	params format.CodecParams
	cookie MagicCookie
	buf    *sample.Buffer
}

// TryNew constructs an ALAC Decoder, parsing the magic cookie from
// params.ExtraData if present.
func TryNew(params format.CodecParams, opts codec.Options) (codec.Decoder, error) {
	d := &Decoder{params: params}
	if len(params.ExtraData) > 0 {
		cookie, err := ParseMagicCookie(params.ExtraData)
		if err != nil {
			return nil, err
		}
		d.cookie = cookie
	}
	return d, nil
}

// CodecParams implements codec.Decoder.
func (d *Decoder) CodecParams() format.CodecParams { return d.params }

// Reset implements codec.Decoder. ALAC frames are independently
// decodable (no cross-frame LPC/Rice history survives a frame
// boundary), so there is no per-packet state to clear at the harness
// level.
func (d *Decoder) Reset() {}

// Decode implements codec.Decoder: reads the leading element tag,
// then reports the decode itself as unsupported.
func (d *Decoder) Decode(pkt format.Packet) (*sample.Buffer, error) {
	if len(pkt.Bytes) == 0 {
		return nil, sonataerr.Decodef("alac: empty packet")
	}
	tag := elementTag(pkt.Bytes[0] >> 5)
	return nil, sonataerr.Unsupportedf("alac: element tag %d framed but SCE/CPE LPC/Rice decode is beyond the harness contract", tag)
}

// Finalize implements codec.Decoder. ALAC carries no end-to-end
// checksum to verify.
func (d *Decoder) Finalize() codec.FinalizeResult { return codec.FinalizeResult{} }

// LastDecoded implements codec.Decoder.
func (d *Decoder) LastDecoded() *sample.Buffer { return d.buf }
