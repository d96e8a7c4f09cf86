package flac

import (
	"github.com/sonatago/sonata/bitreader"
	"github.com/sonatago/sonata/sonataerr"
)

// decodeResidual reads a RESIDUAL block (partitioned Rice coding, method
// 0 or 1) for a subframe of blockSize samples whose first predOrder
// samples are the unencoded warm-up, per mewkiz/flac's
// frame.Header.DecodeResidual, completed here with the escape-coded
// partition path (for any partition) and the 5-bit (Rice2) variant the teacher left as "not yet
// implemented".
func decodeResidual(br *bitreader.Reader, blockSize, predOrder int) ([]int32, error) {
	method, err := br.ReadBitsLEQ32(2)
	if err != nil {
		return nil, err
	}
	switch method {
	case 0:
		return decodePartitionedRice(br, blockSize, predOrder, 4, 0xF)
	case 1:
		return decodePartitionedRice(br, blockSize, predOrder, 5, 0x1F)
	default:
		return nil, sonataerr.Decodef("flac: reserved residual coding method %02b", method)
	}
}

// decodePartitionedRice implements both RESIDUAL_CODING_METHOD_PARTITIONED_RICE
// (paramBits=4, escape=0xF) and its _RICE2 sibling (paramBits=5, escape=0x1F).
func decodePartitionedRice(br *bitreader.Reader, blockSize, predOrder, paramBits int, escape uint32) ([]int32, error) {
	partOrderRaw, err := br.ReadBitsLEQ32(4)
	if err != nil {
		return nil, err
	}
	partOrder := int(partOrderRaw)
	partCount := 1 << uint(partOrder)
	if partCount == 0 || blockSize%partCount != 0 {
		return nil, sonataerr.Decodef("flac: partition order %d does not evenly divide block size %d", partOrder, blockSize)
	}

	residuals := make([]int32, 0, blockSize-predOrder)
	for part := 0; part < partCount; part++ {
		n := blockSize / partCount
		if part == 0 {
			n -= predOrder
		}
		param, err := br.ReadBitsLEQ32(uint(paramBits))
		if err != nil {
			return nil, err
		}
		if param == escape {
			rawBits, err := br.ReadBitsLEQ32(5)
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				v, err := br.ReadBitsLEQ32Signed(uint(rawBits))
				if err != nil {
					return nil, err
				}
				residuals = append(residuals, v)
			}
			continue
		}
		part, err := riceDecode(br, uint(param), n)
		if err != nil {
			return nil, err
		}
		residuals = append(residuals, part...)
	}
	return residuals, nil
}

// riceDecode decodes n Rice-coded residuals with parameter k: a unary
// quotient followed by a k-bit binary remainder, zig-zag folded back to
// signed.
func riceDecode(br *bitreader.Reader, k uint, n int) ([]int32, error) {
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		q, err := br.ReadUnaryZeros()
		if err != nil {
			return nil, err
		}
		var r uint32
		if k > 0 {
			r, err = br.ReadBitsLEQ32(k)
			if err != nil {
				return nil, err
			}
		}
		zz := q<<k | r
		out[i] = zigZagDecode(zz)
	}
	return out, nil
}

// zigZagDecode undoes FLAC's zig-zag mapping of signed residuals onto
// unsigned Rice codewords: 0,-1,1,-2,2,... <- 0,1,2,3,4,...
func zigZagDecode(u uint32) int32 {
	return int32(u>>1) ^ -int32(u&1)
}
