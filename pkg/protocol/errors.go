package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHeader means the frame does not start with a known header.
	ErrInvalidHeader = errors.New("invalid header")
	// ErrHeaderMismatch means the frame carries a different header than requested.
	ErrHeaderMismatch = errors.New("header mismatch")
	// ErrMalformedPayload means the payload does not parse for its header.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrFrameTooLarge means a frame exceeded the reader limit and was skipped.
	ErrFrameTooLarge = errors.New("frame too large")
)

// maxQuoted bounds how much of an offending frame ends up in error messages.
const maxQuoted = 64

// DecodeError reports why a frame could not be decoded.
// Kind is one of ErrInvalidHeader, ErrHeaderMismatch or ErrMalformedPayload.
type DecodeError struct {
	Kind  error
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	frame := e.Frame
	if len(frame) > maxQuoted {
		frame = frame[:maxQuoted]
	}
	if e.Err != nil {
		return fmt.Sprintf("decode %q: %v: %v", frame, e.Kind, e.Err)
	}
	return fmt.Sprintf("decode %q: %v", frame, e.Kind)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func decodeError(kind error, frame []byte, err error) error {
	return &DecodeError{Kind: kind, Frame: frame, Err: err}
}
