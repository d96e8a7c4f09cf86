package vorbis

import "testing"

// bitWriter packs bits LSB-first within each byte, the mirror image of
// bitreader.LSBReader, so tests can hand-build minimal Vorbis header
// packets without needing a production bit writer.
type bitWriter struct {
	bytes []byte
	cur   byte
	nbit  uint
}

func (w *bitWriter) writeBits(v uint32, n uint) {
	for i := uint(0); i < n; i++ {
		bit := byte((v >> i) & 1)
		w.cur |= bit << w.nbit
		w.nbit++
		if w.nbit == 8 {
			w.bytes = append(w.bytes, w.cur)
			w.cur = 0
			w.nbit = 0
		}
	}
}

func (w *bitWriter) finish() []byte {
	if w.nbit > 0 {
		w.bytes = append(w.bytes, w.cur)
		w.cur = 0
		w.nbit = 0
	}
	return w.bytes
}

func buildIdentBody(t *testing.T) []byte {
	t.Helper()
	var w bitWriter
	w.writeBits(0, 32)       // vorbis_version
	w.writeBits(2, 8)        // audio_channels
	w.writeBits(44100, 32)   // audio_sample_rate
	w.writeBits(0, 32)       // bitrate_maximum (signed, 0 is fine)
	w.writeBits(128000, 32)  // bitrate_nominal
	w.writeBits(0, 32)       // bitrate_minimum
	w.writeBits(8, 4)        // blocksize_0 exponent -> 256
	w.writeBits(11, 4)       // blocksize_1 exponent -> 2048
	w.writeBits(1, 1)        // framing bit
	return w.finish()
}

func TestParseIdentificationHeader(t *testing.T) {
	body := buildIdentBody(t)
	h, err := ParseIdentificationHeader(body)
	if err != nil {
		t.Fatalf("ParseIdentificationHeader: %v", err)
	}
	if h.Channels != 2 {
		t.Fatalf("Channels = %d, want 2", h.Channels)
	}
	if h.SampleRate != 44100 {
		t.Fatalf("SampleRate = %d, want 44100", h.SampleRate)
	}
	if h.Blocksize0 != 256 || h.Blocksize1 != 2048 {
		t.Fatalf("Blocksize0/1 = %d/%d, want 256/2048", h.Blocksize0, h.Blocksize1)
	}
}

func TestParsePacketTypeRejectsBadSignature(t *testing.T) {
	b := append([]byte{1}, []byte("wrongs")...)
	if _, _, err := ParsePacketType(b); err == nil {
		t.Fatalf("expected an error for a bad signature")
	}
}

// buildSetupBody constructs the smallest legal setup header: one
// codebook with no VQ lookup table, one floor0 (no further fields
// depend on codebook count at the harness level), one residue, one
// mapping with a single submap and no coupling, and one mode.
func buildSetupBody(t *testing.T) []byte {
	t.Helper()
	var w bitWriter

	// codebook count - 1 = 0 -> exactly one codebook.
	w.writeBits(0, 8)
	// Codebook 0: sync, dims=1, entries=2, unordered+non-sparse, 2 codeword lengths.
	w.writeBits(0x564342, 24)
	w.writeBits(1, 16) // dimensions
	w.writeBits(2, 24) // entries
	w.writeBits(0, 1)  // ordered = false
	w.writeBits(0, 1)  // sparse = false
	w.writeBits(0, 5)  // length[0]-1 = 0 -> length 1
	w.writeBits(0, 5)  // length[1]-1 = 0 -> length 1
	w.writeBits(0, 4)  // lookup type 0: no VQ table

	// vorbis_time_count - 1 = 0, one zero placeholder.
	w.writeBits(0, 6)
	w.writeBits(0, 16)

	// floor count - 1 = 0, one floor0.
	w.writeBits(0, 6)
	w.writeBits(0, 16) // floor type 0
	w.writeBits(8, 8)  // order
	w.writeBits(1, 16) // rate
	w.writeBits(2, 16) // bark_map_size
	w.writeBits(0, 6)  // amplitude_bits
	w.writeBits(0, 8)  // amplitude_offset
	w.writeBits(0, 4)  // number_of_books - 1 = 0
	w.writeBits(0, 8)  // book 0

	// residue count - 1 = 0, one residue type 0.
	w.writeBits(0, 6)
	w.writeBits(0, 16) // residue type
	w.writeBits(0, 24) // begin
	w.writeBits(0, 24) // end
	w.writeBits(1, 24) // partition_size
	w.writeBits(0, 6)  // classifications - 1 = 0 -> 1 classification
	w.writeBits(0, 8)  // classbook
	// one cascade entry: low=0, bitflag=0
	w.writeBits(0, 3)
	w.writeBits(0, 1)

	// mapping count - 1 = 0, one mapping.
	w.writeBits(0, 6)
	w.writeBits(0, 16) // mapping type 0
	w.writeBits(0, 1)  // submap flag = false -> 1 submap
	w.writeBits(0, 1)  // coupling flag = false
	w.writeBits(0, 2)  // reserved
	w.writeBits(0, 8)  // time configuration placeholder for submap 0
	w.writeBits(0, 8)  // floor number for submap 0
	w.writeBits(0, 8)  // residue number for submap 0

	// mode count - 1 = 0, one mode.
	w.writeBits(0, 6)
	w.writeBits(0, 1)  // block flag
	w.writeBits(0, 16) // windowtype
	w.writeBits(0, 16) // transformtype
	w.writeBits(0, 8)  // mapping

	w.writeBits(1, 1) // framing bit
	return w.finish()
}

func TestParseSetupHeader(t *testing.T) {
	body := buildSetupBody(t)
	h, err := ParseSetupHeader(body, 2)
	if err != nil {
		t.Fatalf("ParseSetupHeader: %v", err)
	}
	if len(h.Codebooks) != 1 {
		t.Fatalf("Codebooks = %d, want 1", len(h.Codebooks))
	}
	if h.Codebooks[0].Entries != 2 || h.Codebooks[0].Dimensions != 1 {
		t.Fatalf("codebook 0 = %+v, want dims=1 entries=2", h.Codebooks[0])
	}
	if len(h.Floors) != 1 || h.Floors[0].Type != 0 {
		t.Fatalf("Floors = %+v, want one type-0 floor", h.Floors)
	}
	if len(h.Residues) != 1 || h.Residues[0].Type != 0 {
		t.Fatalf("Residues = %+v, want one type-0 residue", h.Residues)
	}
	if len(h.Mappings) != 1 || h.Mappings[0].Submaps != 1 {
		t.Fatalf("Mappings = %+v, want one 1-submap mapping", h.Mappings)
	}
	if len(h.Modes) != 1 {
		t.Fatalf("Modes = %d, want 1", len(h.Modes))
	}
}
