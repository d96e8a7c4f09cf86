package mp3

import (
	"github.com/sonatago/sonata/bitreader"
	"github.com/sonatago/sonata/internal/mp3tables"
	"github.com/sonatago/sonata/sonataerr"
)

// decodeSpectrum reads one granule channel's big_values and count1
// Huffman-coded spectral data, grounded on go-mp3's read.go
// (readHuffman): region dispatch by table_select, escape/linbits
// extension, sign bits, then count1 quadruples until the granule's
// declared bit budget (part2_3_length minus the bits readScalefactors
// already consumed) runs out. It returns rzero, the sample index one
// past the last coefficient this granule may have touched (count1's
// final position). Any bits of the budget left unread (stuffing, or
// count1's deliberately-unread tail) are skipped before it returns, so
// br ends at the granule's declared bit boundary, ready for the next
// channel/granule.
func decodeSpectrum(br *bitreader.Reader, g *granuleChannel, sampleRate uint32, budget int, quantized *[576]int32) (rzero int, err error) {
	pos, bits, err := decodeBigValues(br, g, sampleRate, quantized)
	if err != nil {
		return pos, err
	}
	budget -= bits

	pos, used, err := decodeCount1(br, g, pos, budget, quantized)
	if err != nil {
		return pos, err
	}
	if left := budget - used; left > 0 {
		if err := br.Ignore(uint(left)); err != nil {
			return pos, err
		}
	}
	return pos, nil
}

// bigValuesRegionBounds computes the two region boundaries (in sample
// indices) that select between a granule's up-to-3 table_select
// values: window-switched granules use the fixed 36-sample split go-
// mp3's readHuffman uses for short blocks; long-block granules derive
// both boundaries from region0_count/region1_count against the scale
// factor band table, per ISO/IEC 11172-3 2.4.2.7.
func bigValuesRegionBounds(g *granuleChannel, sampleRate uint32) (region1, region2 int) {
	if g.WindowSwitching {
		return 36, 576
	}
	bands := mp3tables.SFBLongBands[sampleRate]
	r0 := g.Region0Count + 1
	if r0 > len(bands)-1 {
		r0 = len(bands) - 1
	}
	region1 = bands[r0]
	idx := r0 + g.Region1Count + 1
	if idx > len(bands)-1 {
		idx = len(bands) - 1
	}
	region2 = bands[idx]
	return region1, region2
}

// decodeBigValues decodes exactly BigValues*2 coefficients (the
// count is declared by side info, not bounded by a bit budget) and
// reports how many bits it consumed.
func decodeBigValues(br *bitreader.Reader, g *granuleChannel, sampleRate uint32, quantized *[576]int32) (pos, bits int, err error) {
	region1, region2 := bigValuesRegionBounds(g, sampleRate)
	total := g.BigValues * 2
	if total > 576 {
		total = 576
	}

	for pos < total {
		var tableIdx int
		switch {
		case pos < region1:
			tableIdx = g.TableSelect[0]
		case pos < region2:
			tableIdx = g.TableSelect[1]
		default:
			tableIdx = g.TableSelect[2]
		}

		if tableIdx == 0 {
			// table_select 0 means this region carries no coded bits:
			// every value in it is implicitly zero.
			quantized[pos] = 0
			quantized[pos+1] = 0
			pos += 2
			continue
		}

		tbl := bigValueTables[tableIdx]
		if tbl == nil {
			return pos, bits, sonataerr.Decodef("mp3: reserved huffman table_select value %d", tableIdx)
		}

		val, nbits, err := decodeNode(br, tbl.tree)
		if err != nil {
			return pos, bits, err
		}
		bits += nbits
		x, y := unpack2(val, tbl.xlen)

		if tbl.linbits > 0 && x == tbl.xlen-1 {
			extra, err := br.ReadBitsLEQ32(uint(tbl.linbits))
			if err != nil {
				return pos, bits, err
			}
			bits += tbl.linbits
			x += int(extra)
		}
		if tbl.linbits > 0 && y == tbl.xlen-1 {
			extra, err := br.ReadBitsLEQ32(uint(tbl.linbits))
			if err != nil {
				return pos, bits, err
			}
			bits += tbl.linbits
			y += int(extra)
		}

		sx, nb, err := readSignedMagnitude(br, x)
		if err != nil {
			return pos, bits, err
		}
		bits += nb
		sy, nb, err := readSignedMagnitude(br, y)
		if err != nil {
			return pos, bits, err
		}
		bits += nb

		quantized[pos] = int32(sx)
		quantized[pos+1] = int32(sy)
		pos += 2
	}
	return pos, bits, nil
}

// count1ATreeMaxBits and count1BMaxBits bound the worst-case bit cost
// of one count1 quadruple (codeword plus up to 4 sign bits), used by
// decodeCount1 to decide, before decoding, whether the remaining
// budget can possibly hold another quadruple. bitreader.Reader cannot
// seek backward, so decodeCount1 must never attempt a decode it might
// have to partially undo; checking the worst case up front instead of
// decoding-then-checking (the overrun-and-backtrack approach a
// seekable bit reader would use) trades away decoding a handful of
// genuinely-borderline trailing quadruples for a guarantee that this
// decoder never desynchronizes the bitstream for the rest of the
// frame.
var count1ATreeMaxBits = huffTreeMaxDepth(count1TableA)

const count1BMaxBits = 4

func huffTreeMaxDepth(n *huffNode) int {
	if n == nil || n.leaf {
		return 0
	}
	l := huffTreeMaxDepth(n.children[0])
	r := huffTreeMaxDepth(n.children[1])
	if l > r {
		return l + 1
	}
	return r + 1
}

// decodeCount1 decodes count1 quadruples (v, w, x, y, each magnitude
// 0 or 1) starting at pos until the remaining bit budget can no
// longer safely hold another quadruple, grounded on go-mp3's
// readHuffman count1 loop and its corresponding is_pos accounting.
func decodeCount1(br *bitreader.Reader, g *granuleChannel, startPos, budget int, quantized *[576]int32) (pos, bits int, err error) {
	pos = startPos
	useTableA := g.Count1TableSelect == 0
	worstCase := count1BMaxBits + 4
	if useTableA {
		worstCase = count1ATreeMaxBits + 4
	}

	for budget >= worstCase && pos+4 <= 576 {
		var vwxy [4]int
		var symBits int
		if useTableA {
			val, nbits, derr := decodeNode(br, count1TableA)
			if derr != nil {
				return pos, bits, derr
			}
			symBits = nbits
			vwxy[0], vwxy[1], vwxy[2], vwxy[3] = (val>>3)&1, (val>>2)&1, (val>>1)&1, val&1
		} else {
			raw, derr := br.ReadBitsLEQ32(4)
			if derr != nil {
				return pos, bits, derr
			}
			symBits = 4
			vwxy[0], vwxy[1], vwxy[2], vwxy[3] = int((raw>>3)&1), int((raw>>2)&1), int((raw>>1)&1), int(raw&1)
		}

		total := symBits
		var signed [4]int
		for i, v := range vwxy {
			s, nb, derr := readSignedMagnitude(br, v)
			if derr != nil {
				return pos, bits, derr
			}
			signed[i] = s
			total += nb
		}

		quantized[pos+0] = int32(signed[0])
		quantized[pos+1] = int32(signed[1])
		quantized[pos+2] = int32(signed[2])
		quantized[pos+3] = int32(signed[3])
		pos += 4
		bits += total
		budget -= total
	}
	return pos, bits, nil
}

// decodeNode descends a Huffman trie one bit at a time until it
// reaches a leaf, returning the leaf's payload and how many bits were
// consumed.
func decodeNode(br *bitreader.Reader, root *huffNode) (val, bits int, err error) {
	n := root
	for !n.leaf {
		b, err := br.ReadBool()
		if err != nil {
			return 0, bits, err
		}
		bits++
		idx := 0
		if b {
			idx = 1
		}
		next := n.children[idx]
		if next == nil {
			return 0, bits, sonataerr.Decodef("mp3: invalid huffman codeword")
		}
		n = next
	}
	return n.val, bits, nil
}

// readSignedMagnitude reads the sign bit that follows a nonzero
// Huffman-decoded magnitude (zero magnitudes carry no sign bit).
func readSignedMagnitude(br *bitreader.Reader, mag int) (int, int, error) {
	if mag == 0 {
		return 0, 0, nil
	}
	neg, err := br.ReadBool()
	if err != nil {
		return 0, 0, err
	}
	if neg {
		return -mag, 1, nil
	}
	return mag, 1, nil
}
