// Package probe auto-detects container and metadata formats from an
// arbitrary media byte stream: a stateless registry of declarative
// match descriptors, scored against a rolling 2-byte window that is
// first screened through a Bloom filter so the common case (a window
// that matches no registered marker) costs one hash and three bit
// tests rather than a full marker comparison.
package probe

import (
	"go.uber.org/zap"

	"github.com/sonatago/sonata/bstream"
	"github.com/sonatago/sonata/format"
	"github.com/sonatago/sonata/meta"
	"github.com/sonatago/sonata/sonataerr"
)

// Tier orders candidates within a probe pass: Preferred descriptors are
// tried before Standard, which are tried before Fallback.
type Tier int

const (
	TierPreferred Tier = iota
	TierStandard
	TierFallback
)

// Anchors describes where, relative to the end of a seekable stream, a
// metadata descriptor's markers may also be searched for.
type Anchors struct {
	// Kind selects the anchor behavior. Zero value is "no anchors".
	Kind AnchorKind
	// Offsets holds the byte offsets from end-of-stream to probe,
	// meaningful when Kind is AnchorExclusive or AnchorSupplemental.
	Offsets []uint32
}

// AnchorKind enumerates the three anchor behaviors.
type AnchorKind int

const (
	// AnchorNone descriptors are only tested during the forward,
	// head-of-stream probe.
	AnchorNone AnchorKind = iota
	// AnchorExclusive descriptors are only tested at their offsets
	// during the trailing probe, never during the forward scan.
	AnchorExclusive
	// AnchorSupplemental descriptors are tested both during the
	// trailing probe and the forward scan.
	AnchorSupplemental
)

// Score is the outcome of a descriptor's Score function.
type Score struct {
	Supported  bool
	Confidence uint8 // 0-255; meaningful only when Supported
}

// Unsupported is the zero-confidence non-match result.
var Unsupported = Score{}

// Supported builds a Score reporting a match at the given confidence.
func Supported(confidence uint8) Score {
	return Score{Supported: true, Confidence: confidence}
}

// FormatFactory builds a format.Reader once a format descriptor has
// scored a match.
type FormatFactory func(s *bstream.Stream, opts format.Options) (format.Reader, error)

// MetadataFactory builds a metadata revision reader once a metadata
// descriptor has scored a match. It returns the parsed revision plus
// any chapters recovered alongside it (e.g. Vorbis comment CHAPTERnnn
// fields embedded in a standalone metadata block).
type MetadataFactory func(s *bstream.Stream, maxDepth int) (meta.Revision, []meta.Chapter, error)

// ScoreFunc inspects up to maxDepth bytes from the current stream
// position (the position is restored afterward regardless of outcome)
// and reports a confidence score.
type ScoreFunc func(s *bstream.Stream, maxDepth int) (Score, error)

// Descriptor is the declarative registration unit: markers to screen
// candidates with, a scoring function, and exactly one of Format or
// Metadata naming the reader it builds on a match.
type Descriptor struct {
	Name       string
	Extensions []string
	MimeTypes  []string
	Markers    [][]byte // each 2-16 bytes
	Score      ScoreFunc
	Anchors    Anchors

	Format   FormatFactory // set for container descriptors
	Metadata MetadataFactory
}

func (d Descriptor) isMetadata() bool { return d.Metadata != nil }

func (d Descriptor) shouldTest(isTrailing bool) bool {
	switch d.Anchors.Kind {
	case AnchorExclusive:
		return isTrailing
	case AnchorSupplemental:
		return true
	default:
		return !isTrailing
	}
}

// Options bounds how much work a Probe will do before giving up.
type Options struct {
	// MaxProbeDepth is the number of bytes scanned from the current
	// position before the forward scan gives up. Default 1 MiB.
	MaxProbeDepth int
	// MaxScoreDepth is the number of bytes a Score function may read
	// before the probe forcibly rewinds past it. Default 16 KiB.
	MaxScoreDepth int
}

// DefaultOptions mirrors the documented defaults.
func DefaultOptions() Options {
	return Options{MaxProbeDepth: 1 << 20, MaxScoreDepth: 16 << 10}
}

// Registry is a stateless table of probe descriptors plus the Bloom
// filter derived from their markers. It is safe for concurrent probes
// once built; Register calls themselves are not synchronized.
type Registry struct {
	filter     bloom
	preferred  []Descriptor
	standard   []Descriptor
	fallback   []Descriptor
	anchors    []uint32
	opts       Options
	log        *zap.SugaredLogger
}

// NewRegistry builds an empty registry with the given options. A nil
// logger disables logging.
func NewRegistry(opts Options, log *zap.SugaredLogger) *Registry {
	if opts.MaxProbeDepth == 0 {
		opts = DefaultOptions()
	}
	return &Registry{opts: opts, log: log}
}

// Register adds a descriptor at the given tier, indexing its markers
// into the Bloom filter.
func (r *Registry) Register(tier Tier, d Descriptor) {
	for _, marker := range d.Markers {
		if len(marker) < 2 || len(marker) > 16 {
			panic("probe: marker must be 2-16 bytes")
		}
		var prefix [2]byte
		copy(prefix[:], marker[:2])
		r.filter.insert(prefix)
	}
	if d.isMetadata() {
		switch d.Anchors.Kind {
		case AnchorExclusive, AnchorSupplemental:
			r.anchors = append(r.anchors, d.Anchors.Offsets...)
			sortDescUnique(&r.anchors)
		}
	}
	switch tier {
	case TierPreferred:
		r.preferred = append(r.preferred, d)
	case TierFallback:
		r.fallback = append(r.fallback, d)
	default:
		r.standard = append(r.standard, d)
	}
}

func sortDescUnique(s *[]uint32) {
	a := *s
	for i := 1; i < len(a); i++ {
		v := a[i]
		j := i - 1
		for j >= 0 && a[j] < v {
			a[j+1] = a[j]
			j--
		}
		a[j+1] = v
	}
	out := a[:0]
	for i, v := range a {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	*s = out
}

func (r *Registry) logger() *zap.SugaredLogger {
	if r.log == nil {
		return zap.NewNop().Sugar()
	}
	return r.log
}

// Probe scans s from its current position for the best matching
// container format, first checking trailing-metadata anchors if s is
// seekable with a known length, then scanning forward byte-by-byte.
// Any metadata descriptors matched along the way are parsed and their
// tags appended to fmtOpts.ExternalMetadata (a non-empty chapter list
// replaces fmtOpts.ExternalChapters) before the winning format reader
// is constructed.
func (r *Registry) Probe(s *bstream.Stream, fmtOpts format.Options) (format.Reader, error) {
	if s.Seekable() {
		if end, ok := s.Length(); ok {
			if err := r.probeTrailing(s, end, &fmtOpts); err != nil {
				return nil, err
			}
		}
	}

	for {
		match, isMeta, err := r.next(s)
		if err != nil {
			return nil, err
		}
		if !isMeta {
			return match.Format(s, fmtOpts)
		}
		rev, chapters, err := match.Metadata(s, r.opts.MaxScoreDepth)
		if err != nil {
			return nil, err
		}
		if fmtOpts.ExternalMetadata == nil {
			fmtOpts.ExternalMetadata = &meta.Revision{}
		}
		fmtOpts.ExternalMetadata.Tags = append(fmtOpts.ExternalMetadata.Tags, rev.Tags...)
		fmtOpts.ExternalMetadata.Visuals = append(fmtOpts.ExternalMetadata.Visuals, rev.Visuals...)
		fmtOpts.ExternalMetadata.PerTrack = append(fmtOpts.ExternalMetadata.PerTrack, rev.PerTrack...)
		if len(chapters) > 0 {
			fmtOpts.ExternalChapters = chapters
		}
	}
}

func (r *Registry) probeTrailing(s *bstream.Stream, end int64, fmtOpts *format.Options) error {
	initPos := s.Position()
	var lastReaderEnd int64

	for _, anchor := range r.anchors {
		a := int64(anchor)
		if a > end || end-a < lastReaderEnd {
			continue
		}
		anchorPos := end - a
		if _, err := s.SeekAbs(anchorPos); err != nil {
			return err
		}
		win, err := s.ReadU16BE()
		if err != nil {
			if sonataerr.IsUnexpectedEOF(err) {
				continue
			}
			return err
		}
		var wb [2]byte
		wb[0], wb[1] = byte(win>>8), byte(win)
		if !r.filter.maybeContains(wb) {
			continue
		}
		if _, err := s.SeekAbs(anchorPos); err != nil {
			return err
		}
		d, ok, err := r.findBestReader(s, true)
		if err != nil {
			return err
		}
		if ok && d.isMetadata() {
			rev, chapters, err := d.Metadata(s, r.opts.MaxScoreDepth)
			if err != nil {
				return err
			}
			if fmtOpts.ExternalMetadata == nil {
				fmtOpts.ExternalMetadata = &meta.Revision{}
			}
			fmtOpts.ExternalMetadata.Tags = append(fmtOpts.ExternalMetadata.Tags, rev.Tags...)
			if len(chapters) > 0 {
				fmtOpts.ExternalChapters = chapters
			}
			lastReaderEnd = s.Position()
		}
	}
	_, err := s.SeekAbs(initPos)
	return err
}

type matchedReader struct {
	Format   FormatFactory
	Metadata MetadataFactory
}

func (r *Registry) next(s *bstream.Stream) (matchedReader, bool, error) {
	var win uint16
	initPos := s.Position()
	count := 0

	for {
		b, err := s.ReadByte()
		if err != nil {
			break
		}
		win = win<<8 | uint16(b)
		count++
		if count > r.opts.MaxProbeDepth {
			break
		}
		if count < 2 {
			continue
		}
		var wb [2]byte
		wb[0], wb[1] = byte(win>>8), byte(win)
		if !r.filter.maybeContains(wb) {
			continue
		}
		if _, err := s.SeekAbs(s.Position() - 2); err != nil {
			return matchedReader{}, false, err
		}
		d, ok, err := r.findBestReader(s, false)
		if err != nil {
			return matchedReader{}, false, err
		}
		if ok {
			if pos := s.Position(); pos > initPos {
				r.logger().Debugw("skipped junk bytes probing for format marker", "bytes", pos-initPos, "at", initPos)
			}
			if d.isMetadata() {
				return matchedReader{Metadata: d.Metadata}, true, nil
			}
			return matchedReader{Format: d.Format}, false, nil
		}
		if _, err := s.SeekAbs(s.Position() + 2); err != nil {
			return matchedReader{}, false, err
		}
	}

	return matchedReader{}, false, sonataerr.Unsupportedf("probe: no suitable format reader found within %d bytes", r.opts.MaxProbeDepth)
}

func (r *Registry) findBestReader(s *bstream.Stream, isTrailing bool) (Descriptor, bool, error) {
	s.EnsureBuffered(r.opts.MaxScoreDepth)
	window := make([]byte, 16)
	n, _ := readUpTo(s, window)
	window = window[:n]
	if _, err := s.SeekAbs(s.Position() - int64(n)); err != nil {
		return Descriptor{}, false, err
	}

	for _, tier := range [][]Descriptor{r.preferred, r.standard, r.fallback} {
		if d, ok, err := r.tryTier(s, tier, window, isTrailing); err != nil || ok {
			return d, ok, err
		}
	}
	return Descriptor{}, false, nil
}

func readUpTo(s *bstream.Stream, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		b, err := s.ReadByte()
		if err != nil {
			return n, err
		}
		buf[n] = b
		n++
	}
	return n, nil
}

func (r *Registry) tryTier(s *bstream.Stream, descs []Descriptor, window []byte, isTrailing bool) (Descriptor, bool, error) {
	for _, d := range descs {
		if !d.shouldTest(isTrailing) {
			continue
		}
		matched := false
		for _, marker := range d.Markers {
			if len(marker) <= len(window) && bytesEqual(window[:len(marker)], marker) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		score, err := r.scoreDescriptor(d, s)
		if err != nil {
			return Descriptor{}, false, err
		}
		if score.Supported {
			r.logger().Debugw("selected reader", "name", d.Name, "confidence", score.Confidence)
			return d, true, nil
		}
	}
	return Descriptor{}, false, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// scoreDescriptor invokes d.Score, always restoring the stream
// position afterward. IO errors other than unexpected-EOF abort the
// whole probe by propagating; every other error (including expected
// EOF) is treated as Unsupported, matching a truncated or malformed
// candidate rather than a broken stream.
func (r *Registry) scoreDescriptor(d Descriptor, s *bstream.Stream) (Score, error) {
	initPos := s.Position()
	score, err := d.Score(s, r.opts.MaxScoreDepth)
	if err != nil {
		if !sonataerr.IsUnexpectedEOF(err) && isHardIOErr(err) {
			return Score{}, err
		}
		score = Unsupported
	}
	if _, serr := s.SeekAbs(initPos); serr != nil {
		return Score{}, serr
	}
	return score, nil
}

func isHardIOErr(err error) bool {
	var se *sonataerr.Error
	if e, ok := err.(*sonataerr.Error); ok {
		se = e
	}
	return se != nil && se.Kind == sonataerr.IO
}
