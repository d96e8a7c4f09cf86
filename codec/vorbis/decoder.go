package vorbis

import (
	"github.com/sonatago/sonata/codec"
	"github.com/sonatago/sonata/format"
	"github.com/sonatago/sonata/sample"
	"github.com/sonatago/sonata/sonataerr"
)

// Decoder implements codec.Decoder for Vorbis at the harness level:
// it parses the identification and setup headers (fed from the
// track's ExtraData, which a container reader concatenates as
// three length-prefixed packets per the Vorbis-in-Ogg mapping) and
// selects a mode per audio packet, but does not run the per-packet
// floor decode, inverse coupling, residue decode, or IMDCT — those
// are explicitly out of harness scope (SPEC_FULL.md Non-goals).
type Decoder struct {
	params format.CodecParams
	ident  IdentificationHeader
	setup  SetupHeader
	buf    *sample.Buffer
}

// headerPacket locates one header packet inside a codec-private blob.
// ParseExtraData reads the blob in Xiph lacing, as Matroska/WebM store
// Vorbis headers: one byte holding the packet count minus one, the
// lengths of every packet but the last (each a run of bytes summed up
// to and including the first byte below 0xFF), then the packets
// (ident, comment, setup) back to back.
type headerPacket struct {
	offset int
	length int
}

// ParseExtraData splits a Vorbis codec-private blob into its three
// header packets via the Xiph lacing described above.
func ParseExtraData(b []byte) (identBody, setupBody []byte, err error) {
	if len(b) < 1 {
		return nil, nil, sonataerr.Decodef("vorbis: empty codec private data")
	}
	numPackets := int(b[0]) + 1
	if numPackets < 2 {
		return nil, nil, sonataerr.Decodef("vorbis: codec private data header count %d < 2", numPackets)
	}
	lens := make([]int, numPackets)
	pos := 1
	total := 0
	for i := 0; i < numPackets-1; i++ {
		n := 0
		for {
			if pos >= len(b) {
				return nil, nil, sonataerr.Decodef("vorbis: truncated codec private data length")
			}
			n += int(b[pos])
			pos++
			if b[pos-1] != 0xFF {
				break
			}
		}
		lens[i] = n
		total += n
	}
	dataStart := pos
	// The final packet's length is implied by what remains.
	lens[numPackets-1] = len(b) - dataStart - total
	if lens[numPackets-1] < 0 {
		return nil, nil, sonataerr.Decodef("vorbis: codec private data shorter than its declared header lengths")
	}

	off := dataStart
	packets := make([]headerPacket, numPackets)
	for i, n := range lens {
		packets[i] = headerPacket{offset: off, length: n}
		off += n
	}
	ident := b[packets[0].offset : packets[0].offset+packets[0].length]
	setup := b[packets[numPackets-1].offset : packets[numPackets-1].offset+packets[numPackets-1].length]
	return ident, setup, nil
}

// TryNew constructs a Vorbis Decoder, parsing the identification and
// setup headers from params.ExtraData if present; when it is absent,
// every Decode call fails with Unsupported.
func TryNew(params format.CodecParams, opts codec.Options) (codec.Decoder, error) {
	d := &Decoder{params: params}
	if len(params.ExtraData) == 0 {
		return d, nil
	}
	identBlob, setupBlob, err := ParseExtraData(params.ExtraData)
	if err != nil {
		return nil, err
	}
	identType, identBody, err := ParsePacketType(identBlob)
	if err != nil {
		return nil, err
	}
	if identType != PacketIdentification {
		return nil, sonataerr.Decodef("vorbis: expected identification packet, got type %d", identType)
	}
	ident, err := ParseIdentificationHeader(identBody)
	if err != nil {
		return nil, err
	}
	d.ident = ident

	setupType, setupBody, err := ParsePacketType(setupBlob)
	if err != nil {
		return nil, err
	}
	if setupType != PacketSetup {
		return nil, sonataerr.Decodef("vorbis: expected setup packet, got type %d", setupType)
	}
	setup, err := ParseSetupHeader(setupBody, ident.Channels)
	if err != nil {
		return nil, err
	}
	d.setup = setup
	return d, nil
}

// CodecParams implements codec.Decoder.
func (d *Decoder) CodecParams() format.CodecParams { return d.params }

// Reset implements codec.Decoder. The per-packet IMDCT overlap-add
// state this would need to clear lives entirely inside the decode
// pipeline this harness does not implement.
func (d *Decoder) Reset() {}

// Decode implements codec.Decoder: selects the packet's mode (and
// thus its block size and channel mapping), then reports the decode
// itself as unsupported.
func (d *Decoder) Decode(pkt format.Packet) (*sample.Buffer, error) {
	if len(d.setup.Modes) == 0 {
		return nil, sonataerr.Unsupportedf("vorbis: no setup header parsed; cannot select a mode")
	}
	modeBits := ilog(uint32(len(d.setup.Modes)) - 1)
	if modeBits == 0 {
		modeBits = 1
	}
	if len(pkt.Bytes) == 0 {
		return nil, sonataerr.Decodef("vorbis: empty audio packet")
	}
	modeNum := int(pkt.Bytes[0]) & ((1 << modeBits) - 1)
	if modeNum >= len(d.setup.Modes) {
		return nil, sonataerr.Decodef("vorbis: packet selects mode %d, only %d configured", modeNum, len(d.setup.Modes))
	}
	mode := d.setup.Modes[modeNum]
	blockSize := d.ident.Blocksize0
	if mode.BlockFlag != 0 {
		blockSize = d.ident.Blocksize1
	}
	return nil, sonataerr.Unsupportedf("vorbis: mode %d selected (block size %d, mapping %d) but floor/residue/IMDCT decode is beyond the harness contract", modeNum, blockSize, mode.Mapping)
}

// Finalize implements codec.Decoder. Vorbis carries no end-to-end
// checksum to verify.
func (d *Decoder) Finalize() codec.FinalizeResult { return codec.FinalizeResult{} }

// LastDecoded implements codec.Decoder.
func (d *Decoder) LastDecoded() *sample.Buffer { return d.buf }
