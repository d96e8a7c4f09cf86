package opus

import (
	"github.com/sonatago/sonata/codec"
	"github.com/sonatago/sonata/format"
	"github.com/sonatago/sonata/sample"
	"github.com/sonatago/sonata/sonataerr"
)

// Decoder implements codec.Decoder for Opus packets at the harness
// level: it parses the TOC byte and splits the packet into its
// constituent frames (channel-mapping/packet-framing, per spec.md
// §4.J), but does not run the SILK or CELT decode pipelines — those
// are explicitly out of harness scope (SPEC_FULL.md Non-goals).
// Decode always returns sonataerr.Unsupportedf once framing succeeds,
// naming the frame count and mode it identified.
type Decoder struct {
	params format.CodecParams
	buf    *sample.Buffer
}

// TryNew constructs an Opus Decoder. Registered under format.CodecOpus.
func TryNew(params format.CodecParams, opts codec.Options) (codec.Decoder, error) {
	return &Decoder{params: params}, nil
}

// CodecParams implements codec.Decoder.
func (d *Decoder) CodecParams() format.CodecParams { return d.params }

// Reset implements codec.Decoder. Opus carries no cross-packet decode
// state at the harness level (SILK/CELT history is out of scope).
func (d *Decoder) Reset() {}

// Decode implements codec.Decoder: parses the TOC and frames the
// packet, then reports the decode itself as unsupported.
func (d *Decoder) Decode(pkt format.Packet) (*sample.Buffer, error) {
	if len(pkt.Bytes) == 0 {
		return nil, sonataerr.Decodef("opus: empty packet")
	}
	toc := ParseTOC(pkt.Bytes[0])
	sizes, err := FrameSizes(toc, pkt.Bytes[1:])
	if err != nil {
		return nil, err
	}
	return nil, sonataerr.Unsupportedf("opus: TOC parsed (%d frame(s), mode %v, %.1fms) but SILK/CELT decode is beyond the harness contract", len(sizes), toc.Mode, toc.FrameDuration)
}

// Finalize implements codec.Decoder. Opus carries no end-to-end
// checksum to verify.
func (d *Decoder) Finalize() codec.FinalizeResult { return codec.FinalizeResult{} }

// LastDecoded implements codec.Decoder.
func (d *Decoder) LastDecoded() *sample.Buffer { return d.buf }
