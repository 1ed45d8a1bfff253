// Package ws provides the WebSocket transport for the chat relay, built on
// gobwas/ws. Each WebSocket message carries exactly one frame, so no length
// prefix is added.
package ws

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/relaychat/pkg/protocol"
)

// Conn adapts a WebSocket connection to chat.Conn.
type Conn struct {
	conn     net.Conn
	state    ws.State
	rw       io.ReadWriter
	reader   *wsutil.Reader
	control  wsutil.FrameHandlerFunc
	wmu      sync.Mutex
	maxFrame int
}

// lockedWriter serialises writes with the control frame replies that wsutil
// sends from the read side. Every message goes out in a single Write call.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func newConn(conn net.Conn, r io.Reader, state ws.State, maxFrame int) *Conn {
	if maxFrame <= 0 {
		maxFrame = protocol.DefaultMaxFrameSize
	}
	c := &Conn{conn: conn, state: state, maxFrame: maxFrame}
	c.rw = struct {
		io.Reader
		io.Writer
	}{r, lockedWriter{mu: &c.wmu, w: conn}}
	c.control = wsutil.ControlFrameHandler(c.rw, state)
	c.reader = &wsutil.Reader{
		Source:         r,
		State:          state,
		CheckUTF8:      true,
		OnIntermediate: c.control,
	}
	return c
}

// Upgrade performs the server side of the WebSocket handshake on conn.
// br holds bytes already buffered during protocol detection and may be nil.
func Upgrade(conn net.Conn, br *bufio.Reader, maxFrame int) (*Conn, error) {
	var r io.Reader = conn
	if br != nil {
		r = br
	}
	rw := struct {
		io.Reader
		io.Writer
	}{r, conn}
	if _, err := ws.Upgrade(rw); err != nil {
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	return newConn(conn, r, ws.StateServerSide, maxFrame), nil
}

// Dial connects to a ws:// or wss:// URL.
func Dial(ctx context.Context, url string, maxFrame int) (*Conn, error) {
	conn, br, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	var r io.Reader = conn
	if br != nil {
		r = br
	}
	return newConn(conn, r, ws.StateClientSide, maxFrame), nil
}

// SetMaxFrameSize changes the limit applied to subsequent reads.
func (c *Conn) SetMaxFrameSize(n int) {
	if n > 0 {
		c.maxFrame = n
	}
}

// Read implements chat.Conn.
// Control frames are answered internally; a close frame is reported as io.EOF.
// A message above the frame limit is discarded as it streams in, so it is
// never held in memory, and ErrFrameTooLarge is returned.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		defer c.conn.SetReadDeadline(time.Time{})
	}
	data, err := c.readMessage()
	if err != nil {
		var closed wsutil.ClosedError
		if errors.As(err, &closed) {
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

func (c *Conn) readMessage() ([]byte, error) {
	for {
		hdr, err := c.reader.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err := c.control(hdr, c.reader); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := c.reader.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		limit := int64(c.maxFrame)
		data, err := io.ReadAll(io.LimitReader(c.reader, limit+1))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) <= limit {
			return data, nil
		}
		if err := c.reader.Discard(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: message exceeds limit %d", protocol.ErrFrameTooLarge, c.maxFrame)
	}
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return c.writeMessage(ws.OpBinary, data)
}

func (c *Conn) writeMessage(op ws.OpCode, p []byte) error {
	if c.state.ClientSide() {
		// Client frames are masked in place.
		p = bytes.Clone(p)
	}
	var buf bytes.Buffer
	if err := wsutil.WriteMessage(&buf, c.state, op, p); err != nil {
		return err
	}
	_, err := c.rw.Write(buf.Bytes())
	return err
}

// Close sends a close frame, best effort, and closes the connection.
func (c *Conn) Close() error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
	_ = c.writeMessage(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
