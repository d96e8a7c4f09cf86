// Package bstream provides a buffered, seekable byte stream with typed
// endian reads, a caller-resizable rewind buffer, and pattern scanning. It
// generalizes the ring-buffer-plus-absolute-position design of
// mewkiz/flac's internal/bufseekio.ReadSeeker to the wider read surface the
// rest of the pipeline needs (all integer widths, both endians, floats,
// scan-until-pattern, ignore-n).
package bstream

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/sonatago/sonata/sonataerr"
)

const defaultBufSize = 4096
const minBufSize = 16

// Source is the minimal capability a byte source must offer. Seek and Len
// are optional; callers probe for them with the Seekable/Length methods.
type Source interface {
	io.Reader
}

// Stream wraps a Source, buffering reads and tracking an absolute byte
// position so that short backward seeks can be served from the buffer
// without touching the underlying source.
type Stream struct {
	buf  []byte
	pos  int64 // absolute stream offset of buf[0]
	rd   io.Reader
	seek io.Seeker // nil if rd does not support seeking
	r, w int       // read/write cursors within buf
	err  error
}

// New wraps rd with the default buffer size.
func New(rd io.Reader) *Stream {
	return NewSize(rd, defaultBufSize)
}

// NewSize wraps rd with a buffer of at least size bytes.
func NewSize(rd io.Reader, size int) *Stream {
	if size < minBufSize {
		size = minBufSize
	}
	s := &Stream{buf: make([]byte, size), rd: rd}
	if sk, ok := rd.(io.Seeker); ok {
		s.seek = sk
	}
	return s
}

// Seekable reports whether the underlying source supports byte-addressable
// seeking.
func (s *Stream) Seekable() bool { return s.seek != nil }

// Length reports the total stream length, if the underlying source can
// report one (by seeking to the end and back).
func (s *Stream) Length() (int64, bool) {
	if s.seek == nil {
		return 0, false
	}
	cur := s.Position()
	end, err := s.seek.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false
	}
	if _, err := s.seek.Seek(cur, io.SeekStart); err != nil {
		return 0, false
	}
	s.r, s.w, s.pos = 0, 0, cur
	return end, true
}

func (s *Stream) buffered() int { return s.w - s.r }

// Position returns the absolute offset of the next byte to be read.
func (s *Stream) Position() int64 { return s.pos + int64(s.r) }

// EnsureBuffered grows the internal buffer, if necessary, so that at least
// n bytes of lookahead/rewind are available without a new underlying read.
// Probe scoring and codec lookahead use this to guarantee enough rewind
// room before scanning ahead.
func (s *Stream) EnsureBuffered(n int) {
	if n <= len(s.buf) {
		return
	}
	buf := make([]byte, n)
	copy(buf, s.buf[s.r:s.w])
	s.w -= s.r
	s.r = 0
	s.buf = buf
}

func (s *Stream) fill() error {
	if s.err != nil {
		return s.err
	}
	if s.r > 0 {
		n := copy(s.buf, s.buf[s.r:s.w])
		s.pos += int64(s.r)
		s.r, s.w = 0, n
	}
	if s.w == len(s.buf) {
		// Buffer full of unread data past capacity; caller should have
		// grown it with EnsureBuffered. Grow defensively rather than
		// silently truncating.
		s.EnsureBuffered(len(s.buf) * 2)
	}
	n, err := s.rd.Read(s.buf[s.w:])
	s.w += n
	if n == 0 && err == nil {
		err = io.ErrNoProgress
	}
	if err != nil {
		s.err = err
	}
	return nil
}

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	for s.buffered() == 0 {
		if s.err != nil {
			return 0, ioErr(s.err)
		}
		if err := s.fill(); err != nil {
			return 0, ioErr(err)
		}
	}
	b := s.buf[s.r]
	s.r++
	return b, nil
}

// ReadFull reads exactly len(p) bytes into p, or returns an unexpected-EOF
// IO error; partial reads never succeed silently.
func (s *Stream) ReadFull(p []byte) error {
	n := 0
	for n < len(p) {
		if s.buffered() == 0 {
			if s.err != nil {
				if n > 0 && isEOF(s.err) {
					return unexpectedEOF()
				}
				return ioErr(s.err)
			}
			if err := s.fill(); err != nil {
				return ioErr(err)
			}
			continue
		}
		c := copy(p[n:], s.buf[s.r:s.w])
		s.r += c
		n += c
	}
	return nil
}

func isEOF(err error) bool { return err == io.EOF }

func unexpectedEOF() *sonataerr.Error {
	return &sonataerr.Error{Kind: sonataerr.IO, Reason: "unexpected EOF"}
}

func ioErr(err error) *sonataerr.Error {
	if isEOF(err) {
		return unexpectedEOF()
	}
	return sonataerr.WrapIO(err, "byte source read failed")
}

// Ignore advances the stream by n bytes without returning them.
func (s *Stream) Ignore(n int64) error {
	for n > 0 {
		if s.buffered() == 0 {
			if s.seek != nil && n > int64(len(s.buf)) {
				return s.seekRelative(n)
			}
			if err := s.fill(); err != nil {
				if s.buffered() == 0 {
					return ioErr(err)
				}
			}
		}
		c := int64(s.buffered())
		if c > n {
			c = n
		}
		s.r += int(c)
		n -= c
	}
	return nil
}

func (s *Stream) seekRelative(n int64) error {
	_, err := s.SeekAbs(s.Position() + n)
	return err
}

// SeekAbs seeks to an absolute byte offset. A forward or backward seek
// within the current buffer is served for free; otherwise the underlying
// source is asked to seek, which invalidates the buffer.
func (s *Stream) SeekAbs(abs int64) (int64, error) {
	if abs >= s.pos && abs <= s.pos+int64(s.w) {
		s.r = int(abs - s.pos)
		s.err = nil
		return abs, nil
	}
	if s.seek == nil {
		return 0, sonataerr.NewSeek(sonataerr.Unseekable, "byte source does not support seeking")
	}
	pos, err := s.seek.Seek(abs, io.SeekStart)
	if err != nil {
		return 0, sonataerr.WrapIO(err, "seek failed")
	}
	s.r, s.w, s.err = 0, 0, nil
	s.pos = pos
	return pos, nil
}

// ScanPattern advances the stream until the byte sequence pat is found,
// leaving the read head just past the end of the match; if align > 1 only
// matches starting at a multiple of align (relative to the stream's start)
// are considered. It returns the absolute offset of the match.
func (s *Stream) ScanPattern(pat []byte, align int) (int64, error) {
	if align < 1 {
		align = 1
	}
	s.EnsureBuffered(len(pat) + defaultBufSize)
	window := make([]byte, 0, len(pat))
	for {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		window = append(window, b)
		if len(window) > len(pat) {
			window = window[1:]
		}
		pos := s.Position() - int64(len(window))
		if len(window) == len(pat) && pos%int64(align) == 0 {
			match := true
			for i := range pat {
				if window[i] != pat[i] {
					match = false
					break
				}
			}
			if match {
				return pos, nil
			}
		}
	}
}

// --- typed reads ---

func (s *Stream) read(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := s.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadU8 reads an unsigned 8-bit integer.
func (s *Stream) ReadU8() (uint8, error) {
	b, err := s.ReadByte()
	return b, err
}

// ReadU16BE reads a big-endian unsigned 16-bit integer.
func (s *Stream) ReadU16BE() (uint16, error) {
	b, err := s.read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadU16LE reads a little-endian unsigned 16-bit integer.
func (s *Stream) ReadU16LE() (uint16, error) {
	b, err := s.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU24BE reads a big-endian unsigned 24-bit integer into the low 24 bits
// of a uint32.
func (s *Stream) ReadU24BE() (uint32, error) {
	b, err := s.read(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// ReadU24LE reads a little-endian unsigned 24-bit integer into the low 24
// bits of a uint32.
func (s *Stream) ReadU24LE() (uint32, error) {
	b, err := s.read(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

// ReadU32BE reads a big-endian unsigned 32-bit integer.
func (s *Stream) ReadU32BE() (uint32, error) {
	b, err := s.read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadU32LE reads a little-endian unsigned 32-bit integer.
func (s *Stream) ReadU32LE() (uint32, error) {
	b, err := s.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64BE reads a big-endian unsigned 64-bit integer.
func (s *Stream) ReadU64BE() (uint64, error) {
	b, err := s.read(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadU64LE reads a little-endian unsigned 64-bit integer.
func (s *Stream) ReadU64LE() (uint64, error) {
	b, err := s.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadF32BE reads a big-endian IEEE-754 32-bit float.
func (s *Stream) ReadF32BE() (float32, error) {
	u, err := s.ReadU32BE()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// ReadF64BE reads a big-endian IEEE-754 64-bit float.
func (s *Stream) ReadF64BE() (float64, error) {
	u, err := s.ReadU64BE()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// ReadSyncSafeU32 reads a base-128 big-endian integer whose top bit of
// every byte is reserved 0, as used by ID3v2/ID3v2.4 frame sizes.
func (s *Stream) ReadSyncSafeU32() (uint32, error) {
	b, err := s.read(4)
	if err != nil {
		return 0, err
	}
	var v uint32
	for _, x := range b {
		if x&0x80 != 0 {
			return 0, sonataerr.Decodef("sync-safe integer has reserved top bit set")
		}
		v = v<<7 | uint32(x&0x7F)
	}
	return v, nil
}

// Remaining reports the number of unread bytes remaining in a finite
// stream (when the length is known), and whether the length is known.
func (s *Stream) Remaining() (int64, bool) {
	length, ok := s.Length()
	if !ok {
		return 0, false
	}
	return length - s.Position(), true
}

var errShortPattern = errors.New("bstream: pattern must be non-empty")
