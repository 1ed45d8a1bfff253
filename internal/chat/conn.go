// Package chat holds the transport-independent session layer of the relay:
// the Conn abstraction, live Sessions and the Host roster.
package chat

import "context"

// Conn abstracts a bidirectional frame transport for both TCP and WebSocket.
//
// Implementations must allow one Read and one Write to run concurrently, and
// Close to be called while a Read is blocked.
type Conn interface {
	// Read returns the next complete frame.
	// Returns io.EOF when the peer closed the connection.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one complete frame.
	Write(ctx context.Context, frame []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
