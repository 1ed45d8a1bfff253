package server

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/omochice/relaychat/internal/chat"
	"github.com/omochice/relaychat/pkg/protocol"
)

// ServerPrefix marks messages that originate from the Host itself.
const ServerPrefix = "[Server] "

func serverText(text string) []byte {
	return protocol.EncodeString(ServerPrefix + text)
}

// handleFrame decodes one inbound frame and routes it. Frames that cannot be
// routed are logged and dropped; the sender stays connected.
func (h *Host) handleFrame(from *chat.Session, frame []byte) {
	pkt, err := protocol.Decode(frame)
	if err != nil {
		h.metrics.decodeFailures.Inc()
		from.Logger().Warn().Err(err).Msg("dropped undecodable frame")
		return
	}
	if pkt.Header != protocol.HeaderString {
		h.metrics.routed.WithLabelValues(routeIgnored).Inc()
		from.Logger().Debug().Stringer("header", pkt.Header).Msg("ignored non-text frame")
		return
	}
	if err := h.route(pkt); err != nil {
		from.Logger().Warn().Err(err).Msg("routing failed")
	}
}

// route delivers a String packet. Two or more metadata entries make it a
// directed message from the first entry to the second; anything else is
// relayed unchanged to the whole roster, sender included.
func (h *Host) route(pkt protocol.Packet) error {
	if !pkt.Directed() {
		h.metrics.routed.WithLabelValues(routeBroadcast).Inc()
		return firstError(h.broadcastFrame(protocol.EncodeString(pkt.Text())))
	}

	recipient, ok := h.roster.Find(pkt.Recipient())
	if !ok {
		h.metrics.routingFailures.Inc()
		return &RoutingError{Recipient: pkt.Recipient()}
	}
	h.metrics.routed.WithLabelValues(routeDirected).Inc()
	text := fmt.Sprintf("[From %s, To %s] %s", pkt.Sender(), recipient.Username(), pkt.Text())
	return h.deliver(recipient, protocol.EncodeString(text))
}

// Broadcast sends text to every session on the roster. Every session is
// attempted; the first failure is returned.
func (h *Host) Broadcast(text string) error {
	return firstError(h.BroadcastAll(text))
}

// BroadcastAll sends text to every session on the roster and returns every
// failure combined.
func (h *Host) BroadcastAll(text string) error {
	return h.broadcastFrame(protocol.EncodeString(text))
}

// SendTo sends text to the first session registered under username.
func (h *Host) SendTo(text, username string) error {
	s, ok := h.roster.Find(username)
	if !ok {
		return &RoutingError{Recipient: username}
	}
	return h.deliver(s, protocol.EncodeString(text))
}

func (h *Host) announce(text string) {
	if err := h.Broadcast(ServerPrefix + text); err != nil {
		h.logger.Debug().Err(err).Msg("announcement not delivered everywhere")
	}
}

func (h *Host) broadcastFrame(frame []byte) error {
	var err error
	for _, s := range h.roster.Snapshot() {
		err = multierr.Append(err, h.deliver(s, frame))
	}
	return err
}

// deliver sends one frame. A transport failure closes the session so that
// the next Update removes it.
func (h *Host) deliver(s *chat.Session, frame []byte) error {
	ctx := context.Background()
	if h.opts.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.writeTimeout)
		defer cancel()
	}
	err := s.Send(ctx, frame)
	if err == nil {
		return nil
	}
	h.metrics.sendFailures.Inc()
	if errors.Is(err, chat.ErrTransport) {
		s.Logger().Warn().Err(err).Msg("send failed, closing session")
		s.Close()
	}
	return err
}

func firstError(err error) error {
	if errs := multierr.Errors(err); len(errs) > 0 {
		return errs[0]
	}
	return nil
}
