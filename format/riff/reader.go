// Package riff implements format.Reader for RIFF/WAVE streams: it walks
// "RIFF....WAVE" chunks (fmt , data, fact, LIST/INFO), exposes the
// described PCM/ADPCM/float track, and feeds LIST/INFO sub-chunks into
// meta.Revision via meta.ParseRIFFInfo. Adapted from format/flac's
// Reader shape (probe-constructed, walk-then-pack-into-Track), the
// chunk structure itself grounded on the go-audio/wav dependency this
// module already carries for cmd/sonata-probe's PCM dump path.
package riff

import (
	"io"

	"github.com/sonatago/sonata/bstream"
	"github.com/sonatago/sonata/format"
	"github.com/sonatago/sonata/meta"
	"github.com/sonatago/sonata/sonataerr"
)

const riffSig = "RIFF"
const waveSig = "WAVE"

// defaultPacketFrames bounds how many sample frames one NextPacket call
// returns, since raw PCM data carries no inherent packet boundaries
// (mirroring Symphonia's PCM reader, which chunks arbitrarily for
// the same reason).
const defaultPacketFrames = 4096

// Reader implements format.Reader for a RIFF/WAVE stream.
type Reader struct {
	s         *bstream.Stream
	fc        fmtChunk
	track     format.Track
	metaLog   meta.Log
	trackID   uint32
	dataStart int64
	dataSize  int64
	pos       int64 // bytes consumed from the data chunk so far
	factSampleLen uint32
}

// Probe scores RIFF/WAVE streams. It is not itself a probe.ScoreFunc;
// the root package's DefaultProbeRegistry adapts its result to one.
func Probe(s *bstream.Stream, maxDepth int) (supported bool, confidence uint8, err error) {
	var hdr [12]byte
	if err := s.ReadFull(hdr[:]); err != nil {
		return false, 0, nil
	}
	if string(hdr[0:4]) != riffSig || string(hdr[8:12]) != waveSig {
		return false, 0, nil
	}
	return true, 255, nil
}

// New constructs a Reader, consuming the RIFF/WAVE header and every
// chunk up to and including "data" (trailing chunks after "data", if
// any, are also folded into metadata before the data chunk is seeked
// back into position for audio reads).
func New(s *bstream.Stream, opts format.Options) (*Reader, error) {
	var hdr [12]byte
	if err := s.ReadFull(hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != riffSig || string(hdr[8:12]) != waveSig {
		return nil, sonataerr.Decodef("riff: missing RIFF/WAVE header")
	}

	r := &Reader{s: s, trackID: 0, dataStart: -1}
	fields := make(map[string]string)
	haveFmt := false

	for {
		id, size, err := readChunkHeader(s)
		if err != nil {
			if sonataerr.IsUnexpectedEOF(err) || err == io.EOF {
				break
			}
			return nil, err
		}
		pad := int64(size & 1)
		switch id {
		case "fmt ":
			fc, err := parseFmtChunk(s, size)
			if err != nil {
				return nil, err
			}
			r.fc = fc
			haveFmt = true
			if err := s.Ignore(pad); err != nil {
				return nil, err
			}
		case "fact":
			body := make([]byte, size)
			if err := s.ReadFull(body); err != nil {
				return nil, err
			}
			if len(body) >= 4 {
				r.factSampleLen = leU32(body[0:4])
			}
			if err := s.Ignore(pad); err != nil {
				return nil, err
			}
		case "data":
			r.dataStart = s.Position()
			r.dataSize = int64(size)
			if err := s.Ignore(int64(size) + pad); err != nil {
				return nil, err
			}
		case "LIST":
			if err := r.readListChunk(size, fields); err != nil {
				return nil, err
			}
			if err := s.Ignore(pad); err != nil {
				return nil, err
			}
		default:
			if err := s.Ignore(int64(size) + pad); err != nil {
				return nil, err
			}
		}
	}

	if !haveFmt {
		return nil, sonataerr.Decodef("riff: stream is missing its fmt chunk")
	}
	if r.dataStart < 0 {
		return nil, sonataerr.Decodef("riff: stream is missing its data chunk")
	}

	if len(fields) > 0 {
		r.metaLog.Push(meta.ParseRIFFInfo(fields))
	}
	if opts.ExternalMetadata != nil {
		r.metaLog.Push(*opts.ExternalMetadata)
	}
	if r.metaLog.Len() == 0 {
		r.metaLog.Push(meta.Revision{})
	}

	var numFrames *uint64
	if r.fc.blockAlign > 0 {
		n := uint64(r.dataSize) / uint64(r.fc.blockAlign)
		numFrames = &n
	} else if r.factSampleLen > 0 {
		n := uint64(r.factSampleLen)
		numFrames = &n
	}

	r.track = format.Track{
		ID: r.trackID,
		Codec: format.CodecParams{
			Codec:         format.CodecPCM,
			SampleRate:    r.fc.sampleRate,
			Channels:      r.fc.channels,
			BitsPerSample: r.fc.bitsPerSample,
			SampleFormat:  r.fc.sampleFormat(),
		},
		TimeBase:  &format.TimeBase{Numerator: 1, Denominator: r.fc.sampleRate},
		NumFrames: numFrames,
	}

	if _, err := s.SeekAbs(r.dataStart); err != nil {
		return nil, err
	}
	return r, nil
}

func readChunkHeader(s *bstream.Stream) (id string, size uint32, err error) {
	var idBytes [4]byte
	if err := s.ReadFull(idBytes[:]); err != nil {
		return "", 0, err
	}
	size, err = s.ReadU32LE()
	if err != nil {
		return "", 0, err
	}
	return string(idBytes[:]), size, nil
}

// readListChunk consumes a LIST chunk of the given size; if its type
// ID is "INFO" its sub-chunks are folded into fields, otherwise it is
// skipped whole (e.g. an "adtl" associated-data-list chunk, out of
// scope per spec.md's metadata-ingestion, not playback-annotation,
// Non-goal).
func (r *Reader) readListChunk(size uint32, fields map[string]string) error {
	if size < 4 {
		return r.s.Ignore(int64(size))
	}
	var typeID [4]byte
	if err := r.s.ReadFull(typeID[:]); err != nil {
		return err
	}
	remaining := int64(size) - 4
	if string(typeID[:]) != "INFO" {
		return r.s.Ignore(remaining)
	}
	for remaining > 0 {
		id, subSize, err := readChunkHeader(r.s)
		if err != nil {
			return err
		}
		remaining -= 8
		body := make([]byte, subSize)
		if err := r.s.ReadFull(body); err != nil {
			return err
		}
		remaining -= int64(subSize)
		pad := int64(subSize & 1)
		if pad > 0 {
			if err := r.s.Ignore(pad); err != nil {
				return err
			}
			remaining -= pad
		}
		fields[id] = string(trimNUL(body))
	}
	return nil
}

func trimNUL(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// FormatInfo implements format.Reader.
func (r *Reader) FormatInfo() format.Info {
	return format.Info{
		ShortName:  "wav",
		LongName:   "Waveform Audio File Format",
		Extensions: []string{"wav", "wave"},
		MimeTypes:  []string{"audio/wav", "audio/x-wav", "audio/vnd.wave"},
	}
}

// Metadata implements format.Reader.
func (r *Reader) Metadata() *meta.Log { return &r.metaLog }

// Tracks implements format.Reader.
func (r *Reader) Tracks() []format.Track { return []format.Track{r.track} }

// IntoInner implements format.Reader.
func (r *Reader) IntoInner() (interface{}, error) { return r.s, nil }

// NextPacket implements format.Reader: returns up to defaultPacketFrames
// frames of raw PCM/ADPCM bytes from the data chunk per call.
func (r *Reader) NextPacket() (format.Packet, error) {
	if r.pos >= r.dataSize {
		return format.Packet{}, io.EOF
	}
	blockAlign := int64(r.fc.blockAlign)
	if blockAlign == 0 {
		blockAlign = 1
	}
	want := defaultPacketFrames * blockAlign
	remaining := r.dataSize - r.pos
	if want > remaining {
		want = remaining
	}
	buf := make([]byte, want)
	if err := r.s.ReadFull(buf); err != nil {
		return format.Packet{}, err
	}
	frames := uint64(want / blockAlign)
	pts := uint64(r.pos) / uint64(blockAlign)
	r.pos += want

	return format.Packet{
		TrackID:  r.trackID,
		PTS:      pts,
		Duration: frames,
		Bytes:    buf,
	}, nil
}

// Seek implements format.Reader: RIFF/WAVE PCM data is uniformly
// block-aligned, so every frame is directly addressable and seeking
// is always sample-accurate regardless of the requested SeekMode.
func (r *Reader) Seek(mode format.SeekMode, to format.SeekTo) (format.SeekedTo, error) {
	if !r.s.Seekable() {
		return format.SeekedTo{}, sonataerr.NewSeek(sonataerr.Unseekable, "riff: underlying source is not seekable")
	}
	blockAlign := int64(r.fc.blockAlign)
	if blockAlign == 0 {
		blockAlign = 1
	}
	targetTS := to.TS
	if to.HasTime {
		targetTS = uint64(to.Time * float64(r.fc.sampleRate))
	}
	byteOffset := int64(targetTS) * blockAlign
	if byteOffset > r.dataSize {
		byteOffset = r.dataSize
	}
	if _, err := r.s.SeekAbs(r.dataStart + byteOffset); err != nil {
		return format.SeekedTo{}, err
	}
	r.pos = byteOffset
	actualTS := uint64(byteOffset / blockAlign)
	return format.SeekedTo{RequiredTS: targetTS, ActualTS: actualTS, TrackID: r.trackID}, nil
}
