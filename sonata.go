// Package sonata ties the probe, format, and codec layers into one
// convenience entry point, the way mewkiz/flac's root package exposed
// Open/NewStream as a one-call way to get from a file to decoded
// frames. Here the same role is generalized across every registered
// container/codec pair instead of being FLAC-specific.
package sonata

import (
	"io"
	"os"

	"github.com/sonatago/sonata/bstream"
	"github.com/sonatago/sonata/codec"
	codecalac "github.com/sonatago/sonata/codec/alac"
	codecflac "github.com/sonatago/sonata/codec/flac"
	codecmp3 "github.com/sonatago/sonata/codec/mp3"
	codecopus "github.com/sonatago/sonata/codec/opus"
	codecvorbis "github.com/sonatago/sonata/codec/vorbis"
	"github.com/sonatago/sonata/format"
	formatflac "github.com/sonatago/sonata/format/flac"
	formatmp3 "github.com/sonatago/sonata/format/mp3"
	"github.com/sonatago/sonata/format/riff"
	"github.com/sonatago/sonata/meta"
	"github.com/sonatago/sonata/probe"
	"github.com/sonatago/sonata/sample"
)

// DefaultProbeRegistry builds a probe.Registry with every container
// format this module implements registered at the tier its own
// reliability warrants: FLAC's 4-byte signature is exclusive enough to
// be Preferred, RIFF/WAVE's "RIFF" marker needs its "WAVE" sub-type
// check (done inside riff.Probe) so it is Standard.
func DefaultProbeRegistry() *probe.Registry {
	reg := probe.NewRegistry(probe.DefaultOptions(), nil)
	reg.Register(probe.TierPreferred, probe.Descriptor{
		Name:       "flac",
		Extensions: []string{"flac"},
		MimeTypes:  []string{"audio/flac", "audio/x-flac"},
		Markers:    [][]byte{[]byte("fLaC")},
		Score:      flacScore,
		Format: func(s *bstream.Stream, opts format.Options) (format.Reader, error) {
			return formatflac.New(s, opts)
		},
	})
	reg.Register(probe.TierStandard, probe.Descriptor{
		Name:       "wav",
		Extensions: []string{"wav", "wave"},
		MimeTypes:  []string{"audio/wav", "audio/x-wav"},
		Markers:    [][]byte{[]byte("RIFF")},
		Score:      riffScore,
		Format: func(s *bstream.Stream, opts format.Options) (format.Reader, error) {
			return riff.New(s, opts)
		},
	})
	reg.Register(probe.TierStandard, probe.Descriptor{
		Name:       "mp3",
		Extensions: []string{"mp3"},
		MimeTypes:  []string{"audio/mpeg", "audio/mp3"},
		// Layer III frame sync words (MPEG-1, MPEG-2, MPEG-2.5; with and
		// without CRC): probe markers must be at least 2 bytes.
		Markers: [][]byte{[]byte("ID3"), {0xFF, 0xFB}, {0xFF, 0xFA}, {0xFF, 0xF3}, {0xFF, 0xF2}, {0xFF, 0xE3}, {0xFF, 0xE2}},
		Score:   mp3Score,
		Format: func(s *bstream.Stream, opts format.Options) (format.Reader, error) {
			return formatmp3.New(s, opts)
		},
	})
	return reg
}

func flacScore(s *bstream.Stream, maxDepth int) (probe.Score, error) {
	ok, confidence, err := formatflac.Probe(s, maxDepth)
	if err != nil {
		return probe.Score{}, err
	}
	if !ok {
		return probe.Unsupported, nil
	}
	return probe.Supported(confidence), nil
}

func riffScore(s *bstream.Stream, maxDepth int) (probe.Score, error) {
	ok, confidence, err := riff.Probe(s, maxDepth)
	if err != nil {
		return probe.Score{}, err
	}
	if !ok {
		return probe.Unsupported, nil
	}
	return probe.Supported(confidence), nil
}

func mp3Score(s *bstream.Stream, maxDepth int) (probe.Score, error) {
	ok, confidence, err := formatmp3.Probe(s, maxDepth)
	if err != nil {
		return probe.Score{}, err
	}
	if !ok {
		return probe.Unsupported, nil
	}
	return probe.Supported(confidence), nil
}

// DefaultCodecRegistry builds a codec.Registry with every decoder this
// module implements.
func DefaultCodecRegistry() *codec.Registry {
	reg := codec.NewRegistry()
	reg.Register(format.CodecFLAC, codecflac.TryNew)
	reg.Register(format.CodecMP3, codecmp3.TryNew)
	reg.Register(format.CodecALAC, codecalac.TryNew)
	reg.Register(format.CodecOpus, codecopus.TryNew)
	reg.Register(format.CodecVorbis, codecvorbis.TryNew)
	return reg
}

// Session drives one open media source end to end: probing its
// container, lazily constructing one decoder per track as packets for
// that track are first seen, and handing back decoded audio.
type Session struct {
	reader   format.Reader
	codecs   *codec.Registry
	opts     codec.Options
	decoders map[uint32]codec.Decoder
	closer   io.Closer
}

// Open opens the named file and probes it, per mewkiz/flac.Open's
// one-call file-to-stream convenience.
func Open(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	sess, err := NewSession(f, format.DefaultOptions(), codec.Options{})
	if err != nil {
		f.Close()
		return nil, err
	}
	sess.closer = f
	return sess, nil
}

// NewSession probes rc for its container format and returns a Session
// ready to decode. rc need not be seekable, but trailing-metadata
// anchors and accurate byte-offset seeking require it.
func NewSession(rc io.Reader, fmtOpts format.Options, codecOpts codec.Options) (*Session, error) {
	s := bstream.New(rc)
	reader, err := DefaultProbeRegistry().Probe(s, fmtOpts)
	if err != nil {
		return nil, err
	}
	return &Session{
		reader:   reader,
		codecs:   DefaultCodecRegistry(),
		opts:     codecOpts,
		decoders: make(map[uint32]codec.Decoder),
	}, nil
}

// Tracks reports the elementary streams the container exposes.
func (sess *Session) Tracks() []format.Track { return sess.reader.Tracks() }

// Metadata returns the revision log accumulated from the container and
// any sidecar/trailing metadata the probe matched.
func (sess *Session) Metadata() *meta.Log { return sess.reader.Metadata() }

// NextFrame reads the next packet and decodes it with the decoder for
// its track, constructing that decoder on first use.
func (sess *Session) NextFrame() (format.Packet, *sample.Buffer, error) {
	pkt, err := sess.reader.NextPacket()
	if err != nil {
		return format.Packet{}, nil, err
	}
	dec, ok := sess.decoders[pkt.TrackID]
	if !ok {
		track, ok := findTrack(sess.reader.Tracks(), pkt.TrackID)
		if !ok {
			return pkt, nil, format.ErrResetRequired
		}
		dec, err = sess.codecs.TryNew(track.Codec, sess.opts)
		if err != nil {
			return pkt, nil, err
		}
		sess.decoders[pkt.TrackID] = dec
	}
	buf, err := dec.Decode(pkt)
	return pkt, buf, err
}

func findTrack(tracks []format.Track, id uint32) (format.Track, bool) {
	for _, t := range tracks {
		if t.ID == id {
			return t, true
		}
	}
	return format.Track{}, false
}

// Seek seeks the underlying reader and resets every decoder built so
// far, so the next NextFrame call is not influenced by packets decoded
// before the seek.
func (sess *Session) Seek(mode format.SeekMode, to format.SeekTo) (format.SeekedTo, error) {
	result, err := sess.reader.Seek(mode, to)
	if err != nil {
		return format.SeekedTo{}, err
	}
	for _, dec := range sess.decoders {
		dec.Reset()
	}
	return result, nil
}

// Finalize runs end-of-stream verification (e.g. FLAC's MD5 check) on
// every decoder constructed so far.
func (sess *Session) Finalize() map[uint32]codec.FinalizeResult {
	out := make(map[uint32]codec.FinalizeResult, len(sess.decoders))
	for id, dec := range sess.decoders {
		out[id] = dec.Finalize()
	}
	return out
}

// Close releases the underlying file, if Open (rather than NewSession)
// was used to construct this Session.
func (sess *Session) Close() error {
	if sess.closer == nil {
		return nil
	}
	return sess.closer.Close()
}
