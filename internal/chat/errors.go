package chat

import (
	"errors"
	"io"
	"net"
)

var (
	// ErrNotConnected means the session has no open transport.
	ErrNotConnected = errors.New("not connected")
	// ErrTransport means the underlying transport failed.
	ErrTransport = errors.New("transport failure")
)

// SendError is returned by Session.Send. Kind is ErrNotConnected or ErrTransport.
type SendError struct {
	Kind error
	Err  error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return "send: " + e.Kind.Error()
	}
	return "send: " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *SendError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ReceiveError reports a transport fault on the read side. The caller must
// treat the session as disconnected.
type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string {
	return "receive: " + ErrTransport.Error() + ": " + e.Err.Error()
}

func (e *ReceiveError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// IsClosed reports whether err only says that the connection went away,
// as opposed to a fault worth logging.
func IsClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}
