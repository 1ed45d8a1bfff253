// Package tcp provides the length-prefixed TCP transport for the chat relay.
package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/omochice/relaychat/pkg/protocol"
)

// Conn adapts net.Conn to chat.Conn, framing every message with a length
// prefix so boundaries survive TCP segmentation.
type Conn struct {
	conn   net.Conn
	reader *protocol.FrameReader
}

// NewConn wraps a net.Conn. maxFrame bounds incoming frames; zero selects
// protocol.DefaultMaxFrameSize.
func NewConn(conn net.Conn, maxFrame int) *Conn {
	return &Conn{conn: conn, reader: protocol.NewFrameReader(conn, maxFrame)}
}

// NewConnWithReader wraps a net.Conn whose first bytes were already buffered
// by br, as happens after protocol detection.
func NewConnWithReader(conn net.Conn, br *bufio.Reader, maxFrame int) *Conn {
	return &Conn{conn: conn, reader: protocol.NewFrameReader(br, maxFrame)}
}

// Dial connects to address and returns a framed Conn.
func Dial(ctx context.Context, address string, maxFrame int) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return NewConn(conn, maxFrame), nil
}

// SetMaxFrameSize changes the limit applied to subsequent reads.
func (c *Conn) SetMaxFrameSize(n int) {
	c.reader.SetMax(n)
}

// Read implements chat.Conn.
// A deadline on ctx becomes the socket read deadline.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		defer c.conn.SetReadDeadline(time.Time{})
	}
	return c.reader.ReadFrame()
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return protocol.WriteFrame(c.conn, data)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
