// Package chattest provides an in-memory chat.Conn for tests.
package chattest

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/omochice/relaychat/pkg/protocol"
)

// Conn is an in-memory chat.Conn. Frames pushed with Feed are returned by
// Read; frames passed to Write are recorded.
type Conn struct {
	readCh     chan []byte
	hangupOnce sync.Once
	closed     chan struct{}
	closeOnce  sync.Once

	mu       sync.Mutex
	written  [][]byte
	writeErr error

	remoteAddr string
}

// NewConn returns a Conn reporting addr as its remote address.
func NewConn(addr string) *Conn {
	return &Conn{
		readCh:     make(chan []byte, 16),
		closed:     make(chan struct{}),
		remoteAddr: addr,
	}
}

// Read implements chat.Conn.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, net.ErrClosed
	case data, ok := <-c.readCh:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	c.written = append(c.written, copied)
	return nil
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// Feed queues a frame for Read.
func (c *Conn) Feed(frame []byte) {
	c.readCh <- frame
}

// Hangup makes Read return io.EOF once queued frames are consumed, as if the
// peer had disconnected.
func (c *Conn) Hangup() {
	c.hangupOnce.Do(func() { close(c.readCh) })
}

// FailWrites makes every later Write return err.
func (c *Conn) FailWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// IsClosed reports whether Close was called.
func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Written returns a copy of every frame written so far.
func (c *Conn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

// Texts decodes every written String frame, metadata included.
// Frames that are not String frames are skipped.
func (c *Conn) Texts() []string {
	var texts []string
	for _, frame := range c.Written() {
		if text, err := protocol.DecodeString(frame, true); err == nil {
			texts = append(texts, text)
		}
	}
	return texts
}
