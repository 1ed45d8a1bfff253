package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/omochice/relaychat/internal/chat"
	"github.com/omochice/relaychat/internal/transport/tcp"
	"github.com/omochice/relaychat/internal/transport/ws"
	"github.com/omochice/relaychat/pkg/protocol"
)

// PlaceholderUsername is bound to peers whose handshake yields no name.
const PlaceholderUsername = "Unknown User"

// peerConn is a transport whose frame limit can be raised once the
// handshake is over.
type peerConn interface {
	chat.Conn
	SetMaxFrameSize(n int)
}

// handleConn runs on the acceptor's per-connection goroutine. It detects the
// transport, reads the username frame and queues the session for admission
// by the next Update. A peer that stays silent for the whole handshake
// window joins under the placeholder name; one that stalls partway through
// its first frame is dropped, since the stream can no longer be framed.
func (h *Host) handleConn(conn net.Conn) {
	logger := h.logger.With().Str("remote", conn.RemoteAddr().String()).Logger()

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-h.tcp.Done():
			conn.Close()
		case <-finished:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(h.opts.handshakeTimeout))
	kind, br, err := detectProtocol(conn)
	silent := false
	if err != nil {
		var ne net.Error
		if !errors.As(err, &ne) || !ne.Timeout() {
			logger.Debug().Err(err).Msg("connection closed before handshake")
			conn.Close()
			return
		}
		if br.Buffered() > 0 {
			logger.Debug().Int("buffered", br.Buffered()).Msg("handshake stalled mid-frame")
			conn.Close()
			return
		}
		silent = true
	}

	var pc peerConn
	switch kind {
	case protocolHTTP:
		if !h.opts.websocket {
			logger.Warn().Msg("rejected websocket upgrade: websocket disabled")
			conn.Close()
			return
		}
		wc, err := ws.Upgrade(conn, br, protocol.HandshakeMaxFrameSize)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			conn.Close()
			return
		}
		pc = wc
	default:
		pc = tcp.NewConnWithReader(conn, br, protocol.HandshakeMaxFrameSize)
	}

	username := PlaceholderUsername
	if !silent {
		name, err := h.readUsername(pc)
		if err != nil {
			logger.Debug().Err(err).Msg("connection closed during handshake")
			pc.Close()
			return
		}
		if name != "" {
			username = name
		}
	}
	_ = conn.SetReadDeadline(time.Time{})
	pc.SetMaxFrameSize(h.opts.maxFrameSize)

	session := chat.NewSession(pc, username,
		chat.WithSessionLogger(h.logger),
		chat.WithInboxSize(h.opts.inboxSize),
	)
	logger.Debug().
		Str("user", username).
		Stringer("transport", kind).
		Msg("handshake complete")

	select {
	case h.joins <- session:
	case <-h.tcp.Done():
		session.Close()
	}
}

// readUsername reads the handshake frame. A complete frame that is oversized
// or undecodable yields an empty name. Any other read failure is an error:
// part of the frame may already be consumed.
func (h *Host) readUsername(c chat.Conn) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.handshakeTimeout)
	defer cancel()

	frame, err := c.Read(ctx)
	if errors.Is(err, protocol.ErrFrameTooLarge) {
		h.logger.Debug().Err(err).Msg("oversized username frame")
		return "", nil
	}
	if err != nil {
		return "", err
	}
	name, err := protocol.DecodeString(frame, false)
	if err != nil {
		h.logger.Debug().Err(err).Msg("undecodable username frame")
		return "", nil
	}
	return name, nil
}
