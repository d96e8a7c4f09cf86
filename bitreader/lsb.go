package bitreader

import (
	"io"

	"github.com/sonatago/sonata/sonataerr"
)

// LSBReader is the LSB-first sister of Reader, required by codecs (Vorbis)
// that pack bits starting from the least-significant bit of each byte.
type LSBReader struct {
	r    io.Reader
	buf  byte
	nbit uint
}

// NewLSB wraps r as an LSB-first bit reader.
func NewLSB(r io.Reader) *LSBReader {
	return &LSBReader{r: r}
}

func (r *LSBReader) fill() error {
	var b [1]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &sonataerr.Error{Kind: sonataerr.IO, Reason: "unexpected EOF"}
		}
		return sonataerr.WrapIO(err, "lsb bit reader read failed")
	}
	r.buf = b[0]
	r.nbit = 8
	return nil
}

// ReadBitsLEQ32 reads n (0 < n <= 32) bits, each successive bit taken from
// the least-significant unread bit of the current byte, assembled so that
// earlier bits occupy lower-order positions of the result (Vorbis's
// packing convention).
func (r *LSBReader) ReadBitsLEQ32(n uint) (uint32, error) {
	if n == 0 || n > 32 {
		return 0, sonataerr.Decodef("bitreader: invalid bit width %d", n)
	}
	var out uint32
	var got uint
	for got < n {
		if r.nbit == 0 {
			if err := r.fill(); err != nil {
				return 0, err
			}
		}
		bit := r.buf & 1
		r.buf >>= 1
		r.nbit--
		out |= uint32(bit) << got
		got++
	}
	return out, nil
}

// ReadBitsLEQ32Signed reads n bits and sign-extends the result.
func (r *LSBReader) ReadBitsLEQ32Signed(n uint) (int32, error) {
	v, err := r.ReadBitsLEQ32(n)
	if err != nil {
		return 0, err
	}
	return SignExtend32(v, n), nil
}

// Realign discards any pending bits in the current byte.
func (r *LSBReader) Realign() {
	r.buf = 0
	r.nbit = 0
}
