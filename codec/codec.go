// Package codec defines the decoder contract every elementary-stream
// decoder (codec/mp3, codec/flac, and the ALAC/Opus/Vorbis harness)
// satisfies, plus the registry the root package's Session uses to map a
// CodecID to a concrete implementation.
package codec

import (
	"github.com/sonatago/sonata/format"
	"github.com/sonatago/sonata/sample"
)

// Options configures a Decoder at construction time.
type Options struct {
	// VerifyChecksums enables codec-internal integrity checks (e.g.
	// FLAC's end-of-stream MD5 comparison) when the codec supports them.
	VerifyChecksums bool
}

// Decoder decodes packets from one track into audio sample buffers. A
// Decoder is single-track, single-use: Reset reinitializes it in place
// for a fresh position (e.g. after a seek) without reallocating its
// internal state.
type Decoder interface {
	// CodecParams reports the parameters the decoder was constructed
	// with, as refined by any in-band data seen since (e.g. a Xing
	// header channel count correction).
	CodecParams() format.CodecParams
	// Reset clears any inter-packet state (bit reservoir, LPC/fixed
	// predictor history, window-overlap buffers) so the next Decode
	// call is not influenced by packets before a seek.
	Reset()
	// Decode decodes one packet, returning the rendered audio. The
	// returned buffer is owned by the decoder and is invalidated by the
	// next Decode call.
	Decode(pkt format.Packet) (*sample.Buffer, error)
	// Finalize performs end-of-stream checks (e.g. FLAC MD5
	// verification) and reports whether they passed. Finalize may be
	// called at most once, after the final Decode call.
	Finalize() FinalizeResult
	// LastDecoded returns the buffer produced by the most recent
	// successful Decode call, or nil if none has occurred.
	LastDecoded() *sample.Buffer
}

// FinalizeResult reports the outcome of end-of-stream verification.
type FinalizeResult struct {
	// Verified is false if the codec performs no verification or
	// VerifyChecksums was not requested. When Verified is true, VerifyOK
	// is true if verification passed and false if it failed.
	Verified   bool
	VerifyOK   bool
}

// TryNewFunc constructs a Decoder from track parameters. Implementations
// register this under their format.CodecID in a Registry.
type TryNewFunc func(params format.CodecParams, opts Options) (Decoder, error)

// Registry maps a CodecID to its decoder constructor.
type Registry struct {
	ctors map[format.CodecID]TryNewFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[format.CodecID]TryNewFunc)}
}

// Register associates id with a constructor.
func (r *Registry) Register(id format.CodecID, fn TryNewFunc) {
	r.ctors[id] = fn
}

// TryNew constructs a Decoder for params.Codec, or reports Unsupported
// if no constructor is registered.
func (r *Registry) TryNew(params format.CodecParams, opts Options) (Decoder, error) {
	fn, ok := r.ctors[params.Codec]
	if !ok {
		return nil, unsupportedCodec(params.Codec)
	}
	return fn(params, opts)
}
