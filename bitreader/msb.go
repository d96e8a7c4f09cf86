// Package bitreader implements the MSB-first and LSB-first bit readers
// used throughout the decode pipeline, layered atop github.com/icza/bitio
// the way mewkiz/flac/internal/bits layers its unary/rice helpers atop the
// same library.
package bitreader

import (
	"io"
	"math/bits"

	"github.com/icza/bitio"

	"github.com/sonatago/sonata/sonataerr"
)

// Reader is a stateful MSB-first bit reader. It holds at most 8 unconsumed
// bits, layered atop bitio.Reader, and never consumes more bytes than the
// smallest whole byte containing its last consumed bit.
type Reader struct {
	br      *bitio.Reader
	pending byte
	nbits   uint // number of valid bits in pending, MSB-justified
}

// New wraps r as an MSB-first bit reader.
func New(r io.Reader) *Reader {
	return &Reader{br: bitio.NewReader(r)}
}

// ReadBool reads a single bit as a boolean.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadBitsLEQ32(1)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadBitsLEQ32 reads n (0 < n <= 32) bits, MSB-first, as an unsigned
// value.
func (r *Reader) ReadBitsLEQ32(n uint) (uint32, error) {
	if n == 0 || n > 32 {
		return 0, sonataerr.Decodef("bitreader: invalid bit width %d", n)
	}
	v, err := r.br.ReadBits(uint8(n))
	if err != nil {
		return 0, wrapIO(err)
	}
	return uint32(v), nil
}

// ReadBitsLEQ64 reads n (0 < n <= 64) bits, MSB-first, as an unsigned
// value, composing two 32-bit reads when n > 32.
func (r *Reader) ReadBitsLEQ64(n uint) (uint64, error) {
	if n == 0 || n > 64 {
		return 0, sonataerr.Decodef("bitreader: invalid bit width %d", n)
	}
	if n <= 32 {
		v, err := r.ReadBitsLEQ32(n)
		return uint64(v), err
	}
	hi, err := r.ReadBitsLEQ32(n - 32)
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadBitsLEQ32(32)
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// ReadBitsLEQ32Signed reads n (0 < n <= 32) bits and sign-extends the
// result to a signed 32-bit integer.
func (r *Reader) ReadBitsLEQ32Signed(n uint) (int32, error) {
	v, err := r.ReadBitsLEQ32(n)
	if err != nil {
		return 0, err
	}
	return SignExtend32(v, n), nil
}

// ReadBitsLEQ64Signed reads n (0 < n <= 64) bits and sign-extends the
// result to a signed 64-bit integer.
func (r *Reader) ReadBitsLEQ64Signed(n uint) (int64, error) {
	v, err := r.ReadBitsLEQ64(n)
	if err != nil {
		return 0, err
	}
	return SignExtend64(v, n), nil
}

// SignExtend32 interprets v as a signed n-bit integer and sign extends it
// to 32 bits. It is defined as the arithmetic right shift of (v<<(32-n))
// by (32-n), matching spec.md's bit-reader invariant exactly.
func SignExtend32(v uint32, n uint) int32 {
	shift := 32 - n
	return int32(v<<shift) >> shift
}

// SignExtend64 is the 64-bit analogue of SignExtend32.
func SignExtend64(v uint64, n uint) int64 {
	shift := 64 - n
	return int64(v<<shift) >> shift
}

// ReadUnaryZeros counts leading zero bits until (and consuming) a
// terminating 1 bit. It may return values >= 24 when the current byte is
// 0x00 and continues across byte boundaries. It reads one bit at a
// time; there is no byte-wise leading-zeros fast path.
func (r *Reader) ReadUnaryZeros() (uint32, error) {
	var count uint32
	for {
		bit, err := r.ReadBitsLEQ32(1)
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			return count, nil
		}
		count++
	}
}

// fastUnaryFromByte counts leading zeros of a byte that holds nbits valid
// bits MSB-justified, treating the unused low bits as 1 so they never
// contribute to the zero count. Nothing in this module calls it; the
// stateful ReadUnaryZeros above reads bit by bit instead.
func fastUnaryFromByte(b byte, nbits uint) int {
	masked := b | byte(0xFF>>nbits)
	return bits.LeadingZeros8(masked)
}

// Realign discards any pending bits so the next read starts at a byte
// boundary. After Realign, no pending bits remain.
func (r *Reader) Realign() {
	r.pending = 0
	r.nbits = 0
	r.br.Align()
}

// Ignore skips n bits without returning them.
func (r *Reader) Ignore(n uint) error {
	for n > 32 {
		if _, err := r.ReadBitsLEQ32(32); err != nil {
			return err
		}
		n -= 32
	}
	if n > 0 {
		if _, err := r.ReadBitsLEQ32(n); err != nil {
			return err
		}
	}
	return nil
}

func wrapIO(err error) *sonataerr.Error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &sonataerr.Error{Kind: sonataerr.IO, Reason: "unexpected EOF"}
	}
	return sonataerr.WrapIO(err, "bit reader read failed")
}
