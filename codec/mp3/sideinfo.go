package mp3

import (
	"github.com/sonatago/sonata/bitreader"
)

// BlockType is a granule channel's window-switching block type. It is
// only meaningful when WindowSwitching is set; granules that don't
// switch windows are implicitly BlockLong.
type BlockType uint8

const (
	BlockLong BlockType = iota
	BlockStart
	BlockShort
	BlockEnd
)

// granuleChannel is one channel's side info for one granule, grounded
// on the MPEG-1 Layer III side info layout (ISO/IEC 11172-3 section
// 2.4.1.7): a fixed 59-bit run of part2_3_length/big_values/
// global_gain/scalefac_compress/window-switching fields, optionally
// branching into short-block (block_type/mixed/subblock_gain) or
// long-block (region0/region1 count) shapes.
type granuleChannel struct {
	Part23Length      int
	BigValues         int
	GlobalGain        int
	ScalefacCompress  int
	WindowSwitching   bool
	BlockType         BlockType
	MixedBlockFlag    bool
	TableSelect       [3]int
	SubblockGain      [3]int
	Region0Count      int
	Region1Count      int
	Preflag           bool
	ScalefacScale     bool
	Count1TableSelect int

	// Scalefacs holds the decoded scale factors: for long blocks (or
	// the long-block head of a mixed block) indexed by scale factor
	// band 0..20; for pure short blocks indexed [band*3+window].
	Scalefacs [39]int
	Rzero     int // sample index one past the last non-zero quantized value
}

// sideInfo is the full per-frame side info for MPEG-1 Layer III: the
// shared header (main_data_begin/private_bits/scfsi) plus 2 granules
// x up to 2 channels of granuleChannel.
type sideInfo struct {
	MainDataBegin int
	Scfsi         [2][4]bool // [channel][band group], shared scale factors across granules
	Granules      [2][2]granuleChannel
}

// parseSideInfo reads MPEG-1 Layer III side info (32 bytes stereo, 17
// bytes mono) immediately following the frame header (and optional
// CRC). nch is 1 for mono, 2 for stereo/joint-stereo/dual-channel.
func parseSideInfo(br *bitreader.Reader, nch int) (sideInfo, error) {
	var si sideInfo

	mdb, err := br.ReadBitsLEQ32(9)
	if err != nil {
		return si, err
	}
	si.MainDataBegin = int(mdb)

	privBits := 5
	if nch == 2 {
		privBits = 3
	}
	if err := br.Ignore(uint(privBits)); err != nil {
		return si, err
	}

	for ch := 0; ch < nch; ch++ {
		for band := 0; band < 4; band++ {
			b, err := br.ReadBool()
			if err != nil {
				return si, err
			}
			si.Scfsi[ch][band] = b
		}
	}

	for gr := 0; gr < 2; gr++ {
		for ch := 0; ch < nch; ch++ {
			g, err := parseGranuleChannel(br)
			if err != nil {
				return si, err
			}
			si.Granules[gr][ch] = g
		}
	}

	return si, nil
}

func parseGranuleChannel(br *bitreader.Reader) (granuleChannel, error) {
	var g granuleChannel

	part23, err := br.ReadBitsLEQ32(12)
	if err != nil {
		return g, err
	}
	g.Part23Length = int(part23)

	bigValues, err := br.ReadBitsLEQ32(9)
	if err != nil {
		return g, err
	}
	g.BigValues = int(bigValues)

	globalGain, err := br.ReadBitsLEQ32(8)
	if err != nil {
		return g, err
	}
	g.GlobalGain = int(globalGain)

	scalefacCompress, err := br.ReadBitsLEQ32(4)
	if err != nil {
		return g, err
	}
	g.ScalefacCompress = int(scalefacCompress)

	ws, err := br.ReadBool()
	if err != nil {
		return g, err
	}
	g.WindowSwitching = ws

	if ws {
		bt, err := br.ReadBitsLEQ32(2)
		if err != nil {
			return g, err
		}
		g.BlockType = BlockType(bt)

		mixed, err := br.ReadBool()
		if err != nil {
			return g, err
		}
		g.MixedBlockFlag = mixed

		for i := 0; i < 2; i++ {
			ts, err := br.ReadBitsLEQ32(5)
			if err != nil {
				return g, err
			}
			g.TableSelect[i] = int(ts)
		}
		for i := 0; i < 3; i++ {
			sg, err := br.ReadBitsLEQ32(3)
			if err != nil {
				return g, err
			}
			g.SubblockGain[i] = int(sg)
		}
		// Regions are implied by block type rather than signaled: a
		// short (or mixed) granule has no region0/region1 split, it is
		// instead governed by its scale factor bands directly.
	} else {
		g.BlockType = BlockLong
		for i := 0; i < 3; i++ {
			ts, err := br.ReadBitsLEQ32(5)
			if err != nil {
				return g, err
			}
			g.TableSelect[i] = int(ts)
		}
		r0, err := br.ReadBitsLEQ32(4)
		if err != nil {
			return g, err
		}
		g.Region0Count = int(r0)
		r1, err := br.ReadBitsLEQ32(3)
		if err != nil {
			return g, err
		}
		g.Region1Count = int(r1)
	}

	preflag, err := br.ReadBool()
	if err != nil {
		return g, err
	}
	g.Preflag = preflag

	scale, err := br.ReadBool()
	if err != nil {
		return g, err
	}
	g.ScalefacScale = scale

	c1, err := br.ReadBitsLEQ32(1)
	if err != nil {
		return g, err
	}
	g.Count1TableSelect = int(c1)

	return g, nil
}
