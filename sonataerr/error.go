// Package sonataerr defines the single error sum type shared by every
// package in the pipeline: probe, format readers, and codecs all return
// (or wrap) a *sonataerr.Error rather than inventing their own sentinel
// error types.
package sonataerr

import "github.com/pkg/errors"

// Kind classifies an Error so that callers can decide whether a session is
// recoverable without string-matching messages.
type Kind int

const (
	// Unsupported means the format, codec, or feature is recognised but
	// not implemented. The session cannot continue.
	Unsupported Kind = iota
	// Decode means the bitstream was malformed. The caller may skip the
	// offending packet and continue.
	Decode
	// IO wraps an error from the underlying byte source.
	IO
	// Seek covers seek-specific failures (unseekable source, forward-only
	// source asked to seek into the past).
	Seek
	// ResetRequired is surfaced by NextPacket when the track list changed
	// mid-stream; every decoder must be rebuilt.
	ResetRequired
)

func (k Kind) String() string {
	switch k {
	case Unsupported:
		return "unsupported"
	case Decode:
		return "decode"
	case IO:
		return "io"
	case Seek:
		return "seek"
	case ResetRequired:
		return "reset required"
	default:
		return "unknown"
	}
}

// SeekReason distinguishes the two ways a seek can fail.
type SeekReason int

const (
	// Unseekable means the byte source has no Seek method.
	Unseekable SeekReason = iota
	// ForwardOnly means the requested timestamp lies in the past on a
	// source that cannot rewind.
	ForwardOnly
)

// Error is the sum type returned throughout the pipeline.
type Error struct {
	Kind       Kind
	SeekReason SeekReason
	Reason     string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Reason
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap lets errors.Is / errors.As see through to the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Unsupportedf builds an Unsupported error.
func Unsupportedf(format string, args ...interface{}) *Error {
	return &Error{Kind: Unsupported, Reason: errors.Errorf(format, args...).Error()}
}

// Decodef builds a Decode error.
func Decodef(format string, args ...interface{}) *Error {
	return &Error{Kind: Decode, Reason: errors.Errorf(format, args...).Error()}
}

// WrapIO wraps a byte-source error as an IO error.
func WrapIO(cause error, reason string) *Error {
	return &Error{Kind: IO, Reason: reason, Cause: cause}
}

// NewSeek builds a Seek error of the given reason.
func NewSeek(reason SeekReason, msg string) *Error {
	return &Error{Kind: Seek, SeekReason: reason, Reason: msg}
}

// ResetRequiredErr is the singleton ResetRequired error.
var ResetRequiredErr = &Error{Kind: ResetRequired, Reason: "track list changed"}

// IsUnexpectedEOF reports whether err is an IO error caused by an
// unexpected end of stream, the one IO error probing treats specially.
func IsUnexpectedEOF(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == IO && e.Reason == "unexpected EOF"
}
