package mp3

import (
	"github.com/sonatago/sonata/bitreader"
	"github.com/sonatago/sonata/internal/mp3tables"
)

// scfsiGroupBounds is the fixed mapping from a granule 1 scfsi flag to
// the long-block scale factor bands it governs, per ISO/IEC 11172-3's
// scfsi_band table: group 0 covers sfb[0,6), group 1 sfb[6,11), group
// 2 sfb[11,16), group 3 sfb[16,21).
var scfsiGroupBounds = [4][2]int{{0, 6}, {6, 11}, {11, 16}, {16, 21}}

// readScalefactors reads a granule channel's scale factors and reports
// how many bits were consumed, so the caller can subtract them from
// Part23Length to get the Huffman-coded spectral data's bit budget.
// For granule 1 long blocks,
// a band group flagged in scfsi is not re-read; it is left at
// granule 0's already-decoded value.
func readScalefactors(br *bitreader.Reader, g *granuleChannel, prevGranule *granuleChannel, scfsi [4]bool, isGr1 bool) (int, error) {
	slen1, slen2 := mp3tables.ScalefacCompressSlen[g.ScalefacCompress][0], mp3tables.ScalefacCompressSlen[g.ScalefacCompress][1]
	bits := 0

	if g.BlockType == BlockShort {
		for sfb := 0; sfb < mp3tables.SFBShortSlenSplit; sfb++ {
			n := uint(slen1)
			for w := 0; w < 3; w++ {
				v, err := readOptionalBits(br, n)
				if err != nil {
					return bits, err
				}
				g.Scalefacs[sfb*3+w] = v
				bits += int(n)
			}
		}
		for sfb := mp3tables.SFBShortSlenSplit; sfb < 13; sfb++ {
			n := uint(slen2)
			for w := 0; w < 3; w++ {
				v, err := readOptionalBits(br, n)
				if err != nil {
					return bits, err
				}
				g.Scalefacs[sfb*3+w] = v
				bits += int(n)
			}
		}
		return bits, nil
	}

	for group, bounds := range scfsiGroupBounds {
		n := uint(slen1)
		if group >= 2 {
			n = uint(slen2)
		}
		if isGr1 && scfsi[group] {
			for sfb := bounds[0]; sfb < bounds[1]; sfb++ {
				g.Scalefacs[sfb] = prevGranule.Scalefacs[sfb]
			}
			continue
		}
		for sfb := bounds[0]; sfb < bounds[1]; sfb++ {
			v, err := readOptionalBits(br, n)
			if err != nil {
				return bits, err
			}
			g.Scalefacs[sfb] = v
			bits += int(n)
		}
	}
	return bits, nil
}

// readOptionalBits reads an n-bit scale factor, treating n==0 (a valid
// slen value meaning "this band group carries no scale factor bits at
// all") as a no-op read of value 0.
func readOptionalBits(br *bitreader.Reader, n uint) (int, error) {
	if n == 0 {
		return 0, nil
	}
	v, err := br.ReadBitsLEQ32(n)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
