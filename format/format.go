// Package format defines the demuxer contract: tracks, packets, seek
// points/index, and the Reader interface every container implementation
// (format/mp3, format/flac, format/riff) satisfies. The probe package
// selects a Reader implementation; codec.Decoder instances are then
// constructed from the tracks it exposes.
package format

import (
	"github.com/sonatago/sonata/meta"
	"github.com/sonatago/sonata/sonataerr"
)

// CodecID identifies a coded audio format. It is a closed enum rather
// than a string so decoder registry lookups are cheap comparisons.
type CodecID int

const (
	CodecUnknown CodecID = iota
	CodecMP3
	CodecFLAC
	CodecALAC
	CodecOpus
	CodecVorbis
	CodecPCM
)

// SampleFormat names the PCM sample layout a RIFF/WAV-style reader found
// in its format chunk, when the codec is CodecPCM.
type SampleFormat int

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatSignedInt
	SampleFormatUnsignedInt
	SampleFormatFloat
	SampleFormatALaw
	SampleFormatMuLaw
	SampleFormatMSADPCM
	SampleFormatIMAADPCM
)

// CodecParams carries everything a Decoder needs to initialize itself,
// extracted from the container without decoding any packets.
type CodecParams struct {
	Codec         CodecID
	SampleRate    uint32
	Channels      int
	BitsPerSample uint8
	SampleFormat  SampleFormat
	ExtraData     []byte // codec-specific out-of-band data (e.g. ALAC magic cookie, Vorbis headers)
}

// TrackFlags is a bitmask of track role hints.
type TrackFlags uint32

const (
	FlagDefault TrackFlags = 1 << iota
	FlagForced
	FlagOriginalLanguage
)

// Track describes one elementary stream within a container.
type Track struct {
	ID        uint32
	Codec     CodecParams
	Language  string
	TimeBase  *TimeBase
	NumFrames *uint64
	StartTS   uint64
	Delay     uint32
	Padding   uint32
	Flags     TrackFlags
}

// TimeBase expresses a track's timestamp unit as Numerator/Denominator
// seconds per tick (e.g. 1/44100).
type TimeBase struct {
	Numerator   uint32
	Denominator uint32
}

// Seconds converts a tick count to seconds using this time base.
func (tb TimeBase) Seconds(ticks uint64) float64 {
	return float64(ticks) * float64(tb.Numerator) / float64(tb.Denominator)
}

// Packet is one coded access unit extracted from a track.
type Packet struct {
	TrackID   uint32
	PTS       uint64
	Duration  uint64
	TrimStart uint32
	TrimEnd   uint32
	Bytes     []byte
}

// SeekMode selects the seek strategy: Coarse estimates a byte offset from
// duration and accepts approximate results; Accurate always walks frames
// forward from a known position. Coarse falls back to Accurate on
// non-seekable sources.
type SeekMode int

const (
	SeekAccurate SeekMode = iota
	SeekCoarse
)

// SeekTo is the union of ways a caller may request a seek.
type SeekTo struct {
	// Exactly one of Time/TS is meaningful, selected by HasTime.
	HasTime bool
	Time    float64 // seconds, used when HasTime is true
	TS      uint64  // track ticks, used when HasTime is false
	TrackID uint32  // required when HasTime is false; optional (0 = default track) otherwise
}

// SeekedTo reports the outcome of a seek.
type SeekedTo struct {
	RequiredTS uint64
	ActualTS   uint64
	TrackID    uint32
}

// SeekPoint is one entry of a reader-internal seek index.
type SeekPoint struct {
	FrameTS    uint64
	ByteOffset int64
	NumFrames  uint64
}

// SeekIndex supports bisection search over a sorted slice of SeekPoints.
type SeekIndex struct {
	Points []SeekPoint
}

// SeekIndexResult classifies what Search found.
type SeekIndexResult int

const (
	// SeekIndexStream means the index is empty; the caller must fall
	// back to scanning the stream directly.
	SeekIndexStream SeekIndexResult = iota
	SeekIndexUpper
	SeekIndexLower
	SeekIndexRange
)

// Search bisects the index for ts, returning the bracketing point(s) and
// which case applied.
func (idx *SeekIndex) Search(ts uint64) (result SeekIndexResult, lower, upper SeekPoint) {
	if len(idx.Points) == 0 {
		return SeekIndexStream, SeekPoint{}, SeekPoint{}
	}
	if ts <= idx.Points[0].FrameTS {
		return SeekIndexLower, idx.Points[0], SeekPoint{}
	}
	last := idx.Points[len(idx.Points)-1]
	if ts >= last.FrameTS {
		return SeekIndexUpper, SeekPoint{}, last
	}
	lo, hi := 0, len(idx.Points)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if idx.Points[mid].FrameTS <= ts {
			lo = mid
		} else {
			hi = mid
		}
	}
	return SeekIndexRange, idx.Points[lo], idx.Points[hi]
}

// Options configures a Reader at construction time.
type Options struct {
	PrebuildSeekIndex  bool
	SeekIndexFillRate  float64 // seconds; default 20
	EnableGapless      bool
	ExternalMetadata   *meta.Revision
	ExternalChapters   []meta.Chapter
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{SeekIndexFillRate: 20}
}

// Info describes the container a Reader implements, mirroring what the
// probe's match table already knows about it.
type Info struct {
	ShortName   string
	LongName    string
	Extensions  []string
	MimeTypes   []string
}

// Reader is the contract every container implementation satisfies.
type Reader interface {
	FormatInfo() Info
	Metadata() *meta.Log
	Tracks() []Track
	NextPacket() (Packet, error)
	Seek(mode SeekMode, to SeekTo) (SeekedTo, error)
	IntoInner() (interface{}, error)
}

// ErrResetRequired is returned by NextPacket when the track list changed
// mid-stream (e.g. a chained Ogg/FLAC-in-Ogg stream); callers must rebuild
// every decoder before calling NextPacket again.
var ErrResetRequired = sonataerr.ResetRequiredErr
