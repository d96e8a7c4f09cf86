package vorbis

import (
	"bytes"

	"github.com/sonatago/sonata/bitreader"
	"github.com/sonatago/sonata/sonataerr"
)

// Codebook is the header-level shape of one Vorbis codebook (the
// entropy-coding tables the per-packet decode would build a Huffman
// tree from). The codeword lengths themselves are captured so channel
// mapping/mode selection can validate dimension/entry counts; building
// the actual decode tree is beyond the harness contract.
type Codebook struct {
	Dimensions  uint16
	Entries     uint32
	Lengths     []uint8 // per-entry codeword length, 0 meaning "unused" (sparse)
	LookupType  uint8   // 0 = no VQ lookup table, 1 = lattice, 2 = explicit
}

// Floor is the header-level shape of one Vorbis floor configuration:
// just its type (0 or 1), since the per-type curve parameters are
// only needed by the per-packet floor decode this harness does not
// implement.
type Floor struct {
	Type uint16
}

// Residue is the header-level shape of one Vorbis residue
// configuration: type plus the partition/classification geometry
// needed to know how many raw values a packet's residue vectors cover.
type Residue struct {
	Type       uint16
	Begin      uint32
	End        uint32
	PartitionSize uint32
	Classifications uint8
	Classbook  uint8
}

// Mapping is the header-level shape of one channel mapping: which
// floor and residue configuration each channel submap uses, and which
// channel pairs (if any) use inverse coupling.
type Mapping struct {
	Submaps      uint8
	CouplingSteps uint16
	Magnitude    []uint8
	Angle        []uint8
	FloorSubmap   []uint8
	ResidueSubmap []uint8
}

// Mode is one Vorbis mode: which block size (0 or 1) and channel
// mapping a packet selects via its 1-bit (or more) mode number.
type Mode struct {
	BlockFlag uint8 // 0 selects blocksize_0, 1 selects blocksize_1
	Mapping   uint8
}

// SetupHeader is the fully-parsed structural shape of Vorbis's third
// header packet.
type SetupHeader struct {
	Codebooks []Codebook
	Floors    []Floor
	Residues  []Residue
	Mappings  []Mapping
	Modes     []Mode
}

// ParseSetupHeader decodes the body following the packet type byte
// and "vorbis" signature, reading every codebook, floor, residue,
// mapping, and mode header in full per the Vorbis I specification.
// It does not construct codebook Huffman decode trees or floor curve
// lookup tables — those belong to the per-packet decode path, out of
// harness scope.
func ParseSetupHeader(body []byte, channels uint8) (SetupHeader, error) {
	br := bitreader.NewLSB(bytes.NewReader(body))
	var h SetupHeader

	cbCount, err := br.ReadBitsLEQ32(8)
	if err != nil {
		return h, err
	}
	h.Codebooks = make([]Codebook, cbCount+1)
	for i := range h.Codebooks {
		cb, err := parseCodebook(br)
		if err != nil {
			return h, sonataerr.Decodef("vorbis: codebook %d: %v", i, err)
		}
		h.Codebooks[i] = cb
	}

	timeCount, err := br.ReadBitsLEQ32(6)
	if err != nil {
		return h, err
	}
	for i := uint32(0); i <= timeCount; i++ {
		// vorbis_time_count placeholder values must all be zero.
		v, err := br.ReadBitsLEQ32(16)
		if err != nil {
			return h, err
		}
		if v != 0 {
			return h, sonataerr.Decodef("vorbis: nonzero time-domain transform placeholder %d", v)
		}
	}

	floorCount, err := br.ReadBitsLEQ32(6)
	if err != nil {
		return h, err
	}
	h.Floors = make([]Floor, floorCount+1)
	for i := range h.Floors {
		typ, err := br.ReadBitsLEQ32(16)
		if err != nil {
			return h, err
		}
		if typ != 0 && typ != 1 {
			return h, sonataerr.Decodef("vorbis: floor %d has invalid type %d", i, typ)
		}
		h.Floors[i] = Floor{Type: uint16(typ)}
		if err := skipFloorBody(br, uint16(typ), uint32(len(h.Codebooks))); err != nil {
			return h, sonataerr.Decodef("vorbis: floor %d body: %v", i, err)
		}
	}

	residueCount, err := br.ReadBitsLEQ32(6)
	if err != nil {
		return h, err
	}
	h.Residues = make([]Residue, residueCount+1)
	for i := range h.Residues {
		r, err := parseResidue(br)
		if err != nil {
			return h, sonataerr.Decodef("vorbis: residue %d: %v", i, err)
		}
		h.Residues[i] = r
	}

	mappingCount, err := br.ReadBitsLEQ32(6)
	if err != nil {
		return h, err
	}
	h.Mappings = make([]Mapping, mappingCount+1)
	for i := range h.Mappings {
		m, err := parseMapping(br, channels)
		if err != nil {
			return h, sonataerr.Decodef("vorbis: mapping %d: %v", i, err)
		}
		h.Mappings[i] = m
	}

	modeCount, err := br.ReadBitsLEQ32(6)
	if err != nil {
		return h, err
	}
	h.Modes = make([]Mode, modeCount+1)
	for i := range h.Modes {
		blockFlag, err := br.ReadBitsLEQ32(1)
		if err != nil {
			return h, err
		}
		// windowtype and transformtype are both always 0 in Vorbis I.
		if _, err := br.ReadBitsLEQ32(16); err != nil {
			return h, err
		}
		if _, err := br.ReadBitsLEQ32(16); err != nil {
			return h, err
		}
		mapping, err := br.ReadBitsLEQ32(8)
		if err != nil {
			return h, err
		}
		h.Modes[i] = Mode{BlockFlag: uint8(blockFlag), Mapping: uint8(mapping)}
	}

	framingBit, err := br.ReadBitsLEQ32(1)
	if err != nil {
		return h, err
	}
	if framingBit != 1 {
		return h, sonataerr.Decodef("vorbis: setup header framing bit not set")
	}
	return h, nil
}

func parseCodebook(br *bitreader.LSBReader) (Codebook, error) {
	var cb Codebook
	sync, err := br.ReadBitsLEQ32(24)
	if err != nil {
		return cb, err
	}
	if sync != 0x564342 {
		return cb, sonataerr.Decodef("bad codebook sync pattern 0x%06x", sync)
	}
	dims, err := br.ReadBitsLEQ32(16)
	if err != nil {
		return cb, err
	}
	entries, err := br.ReadBitsLEQ32(24)
	if err != nil {
		return cb, err
	}
	cb.Dimensions = uint16(dims)
	cb.Entries = entries

	ordered, err := br.ReadBitsLEQ32(1)
	if err != nil {
		return cb, err
	}
	cb.Lengths = make([]uint8, entries)
	if ordered != 0 {
		curLen, err := br.ReadBitsLEQ32(5)
		if err != nil {
			return cb, err
		}
		curLen++
		var entry uint32
		for entry < entries {
			numBits := ilog(entries - entry)
			num, err := br.ReadBitsLEQ32(numBits)
			if err != nil {
				return cb, err
			}
			for j := uint32(0); j < num && entry < entries; j++ {
				cb.Lengths[entry] = uint8(curLen)
				entry++
			}
			curLen++
		}
	} else {
		sparse, err := br.ReadBitsLEQ32(1)
		if err != nil {
			return cb, err
		}
		for i := uint32(0); i < entries; i++ {
			used := uint32(1)
			if sparse != 0 {
				used, err = br.ReadBitsLEQ32(1)
				if err != nil {
					return cb, err
				}
			}
			if used == 0 {
				continue
			}
			length, err := br.ReadBitsLEQ32(5)
			if err != nil {
				return cb, err
			}
			cb.Lengths[i] = uint8(length + 1)
		}
	}

	lookupType, err := br.ReadBitsLEQ32(4)
	if err != nil {
		return cb, err
	}
	cb.LookupType = uint8(lookupType)
	if lookupType == 0 {
		return cb, nil
	}
	if lookupType > 2 {
		return cb, sonataerr.Decodef("codebook lookup type %d is invalid", lookupType)
	}
	// VQ lookup table values (min/delta/sequence_p/value_bits and the
	// value list itself) are only needed by per-packet VQ decode, out
	// of harness scope — skip the remaining fixed+variable-length
	// fields structurally rather than building the table.
	if _, err := br.ReadBitsLEQ32(32); err != nil { // minimum_value
		return cb, err
	}
	if _, err := br.ReadBitsLEQ32(32); err != nil { // delta_value
		return cb, err
	}
	valueBits, err := br.ReadBitsLEQ32(4)
	if err != nil {
		return cb, err
	}
	valueBits++
	sequenceFlag, err := br.ReadBitsLEQ32(1)
	if err != nil {
		return cb, err
	}
	quantVals := lookupQuantValues(lookupType, entries, uint32(cb.Dimensions))
	for i := uint32(0); i < quantVals; i++ {
		if _, err := br.ReadBitsLEQ32(valueBits); err != nil {
			return cb, err
		}
	}
	_ = sequenceFlag
	return cb, nil
}

// ilog returns the position of the highest set bit of n (the number
// of bits needed to represent n itself, i.e. values 0..n), per Vorbis
// I's ilog().
func ilog(n uint32) uint {
	var bits uint
	for n > 0 {
		bits++
		n >>= 1
	}
	return bits
}

// lookupQuantValues is Vorbis I §9.2.1's book_maptype1_quantvals: the
// number of scalar quantization values a type-1 (lattice) VQ lookup
// table needs; type 2 uses one value per (entry*dimension) codeword
// component directly.
func lookupQuantValues(lookupType uint8, entries uint32, dims uint32) uint32 {
	if lookupType == 2 {
		return entries * dims
	}
	if dims == 0 {
		return 0
	}
	var vals uint32
	for {
		next := vals + 1
		acc := uint64(1)
		for i := uint32(0); i < dims; i++ {
			acc *= uint64(next)
		}
		if acc > uint64(entries) {
			break
		}
		vals = next
	}
	return vals
}

func skipFloorBody(br *bitreader.LSBReader, typ uint16, numCodebooks uint32) error {
	if typ == 0 {
		// floor0: order, rate, bark_map_size, amplitude_bits,
		// amplitude_offset, number_of_books - 1, then one 8-bit
		// codebook number per book.
		for _, width := range []uint{8, 16, 16, 6, 8} {
			if _, err := br.ReadBitsLEQ32(width); err != nil {
				return err
			}
		}
		nBooks, err := br.ReadBitsLEQ32(4) // number_of_books - 1
		if err != nil {
			return err
		}
		for i := uint32(0); i <= nBooks; i++ {
			if _, err := br.ReadBitsLEQ32(8); err != nil {
				return err
			}
		}
		return nil
	}
	// floor1: partitions, then a class index per partition, then per
	// distinct class its dimension/subclass/masterbook/subclass books,
	// then the X-value list (read in full so the header consumes
	// exactly as many bits as the real format, even though the curve
	// values themselves are only needed by per-packet floor decode,
	// out of harness scope).
	partitions, err := br.ReadBitsLEQ32(5)
	if err != nil {
		return err
	}
	maxClass := -1
	classOf := make([]uint32, partitions)
	for i := range classOf {
		c, err := br.ReadBitsLEQ32(4)
		if err != nil {
			return err
		}
		classOf[i] = c
		if int(c) > maxClass {
			maxClass = int(c)
		}
	}
	classDims := make([]uint32, maxClass+1)
	for c := 0; c <= maxClass; c++ {
		dim, err := br.ReadBitsLEQ32(3)
		if err != nil {
			return err
		}
		classDims[c] = dim + 1
		subclassBits, err := br.ReadBitsLEQ32(2)
		if err != nil {
			return err
		}
		if subclassBits != 0 {
			if _, err := br.ReadBitsLEQ32(8); err != nil { // masterbook
				return err
			}
		}
		n := uint32(1) << subclassBits
		for j := uint32(0); j < n; j++ {
			if _, err := br.ReadBitsLEQ32(8); err != nil { // subclass book + 1, or 0 meaning none
				return err
			}
		}
	}
	if _, err := br.ReadBitsLEQ32(2); err != nil { // floor1_multiplier - 1
		return err
	}
	rangeBits, err := br.ReadBitsLEQ32(4)
	if err != nil {
		return err
	}
	for _, c := range classOf {
		for k := uint32(0); k < classDims[c]; k++ {
			if _, err := br.ReadBitsLEQ32(rangeBits); err != nil {
				return err
			}
		}
	}
	_ = numCodebooks
	return nil
}

func parseResidue(br *bitreader.LSBReader) (Residue, error) {
	var r Residue
	typ, err := br.ReadBitsLEQ32(16)
	if err != nil {
		return r, err
	}
	if typ > 2 {
		return r, sonataerr.Decodef("invalid residue type %d", typ)
	}
	r.Type = uint16(typ)
	begin, err := br.ReadBitsLEQ32(24)
	if err != nil {
		return r, err
	}
	end, err := br.ReadBitsLEQ32(24)
	if err != nil {
		return r, err
	}
	partitionSize, err := br.ReadBitsLEQ32(24)
	if err != nil {
		return r, err
	}
	classifications, err := br.ReadBitsLEQ32(6)
	if err != nil {
		return r, err
	}
	classbook, err := br.ReadBitsLEQ32(8)
	if err != nil {
		return r, err
	}
	r.Begin, r.End, r.PartitionSize = begin, end, partitionSize
	r.Classifications = uint8(classifications + 1)
	r.Classbook = uint8(classbook)

	cascade := make([]uint8, r.Classifications)
	for i := range cascade {
		low, err := br.ReadBitsLEQ32(3)
		if err != nil {
			return r, err
		}
		bitflag, err := br.ReadBitsLEQ32(1)
		if err != nil {
			return r, err
		}
		hi := uint32(0)
		if bitflag != 0 {
			hi, err = br.ReadBitsLEQ32(5)
			if err != nil {
				return r, err
			}
		}
		cascade[i] = uint8(low | hi<<3)
	}
	for _, c := range cascade {
		for bit := 0; bit < 8; bit++ {
			if c&(1<<uint(bit)) != 0 {
				if _, err := br.ReadBitsLEQ32(8); err != nil { // residue book for this cascade bit
					return r, err
				}
			}
		}
	}
	return r, nil
}

func parseMapping(br *bitreader.LSBReader, channels uint8) (Mapping, error) {
	var m Mapping
	mappingType, err := br.ReadBitsLEQ32(16)
	if err != nil {
		return m, err
	}
	if mappingType != 0 {
		return m, sonataerr.Decodef("invalid mapping type %d", mappingType)
	}

	submapFlag, err := br.ReadBitsLEQ32(1)
	if err != nil {
		return m, err
	}
	submaps := uint8(1)
	if submapFlag != 0 {
		v, err := br.ReadBitsLEQ32(4)
		if err != nil {
			return m, err
		}
		submaps = uint8(v + 1)
	}
	m.Submaps = submaps

	couplingFlag, err := br.ReadBitsLEQ32(1)
	if err != nil {
		return m, err
	}
	if couplingFlag != 0 {
		steps, err := br.ReadBitsLEQ32(8)
		if err != nil {
			return m, err
		}
		m.CouplingSteps = uint16(steps + 1)
		bits := ilog(uint32(channels) - 1)
		m.Magnitude = make([]uint8, m.CouplingSteps)
		m.Angle = make([]uint8, m.CouplingSteps)
		for i := range m.Magnitude {
			mag, err := br.ReadBitsLEQ32(bits)
			if err != nil {
				return m, err
			}
			ang, err := br.ReadBitsLEQ32(bits)
			if err != nil {
				return m, err
			}
			m.Magnitude[i] = uint8(mag)
			m.Angle[i] = uint8(ang)
		}
	}

	reserved, err := br.ReadBitsLEQ32(2)
	if err != nil {
		return m, err
	}
	if reserved != 0 {
		return m, sonataerr.Decodef("mapping reserved field nonzero: %d", reserved)
	}

	m.FloorSubmap = make([]uint8, submaps)
	m.ResidueSubmap = make([]uint8, submaps)
	if submaps > 1 {
		for ch := 0; ch < int(channels); ch++ {
			if _, err := br.ReadBitsLEQ32(4); err != nil { // per-channel submap mux
				return m, err
			}
		}
	}
	for i := range m.FloorSubmap {
		if _, err := br.ReadBitsLEQ32(8); err != nil { // unused time configuration placeholder
			return m, err
		}
		floorNum, err := br.ReadBitsLEQ32(8)
		if err != nil {
			return m, err
		}
		residueNum, err := br.ReadBitsLEQ32(8)
		if err != nil {
			return m, err
		}
		m.FloorSubmap[i] = uint8(floorNum)
		m.ResidueSubmap[i] = uint8(residueNum)
	}
	return m, nil
}
