package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omochice/relaychat/internal/chat"
	"github.com/omochice/relaychat/pkg/protocol"
)

// DefaultHandshakeTimeout bounds the username read of a joining peer.
const DefaultHandshakeTimeout = 5 * time.Second

type options struct {
	logger           zerolog.Logger
	registerer       prometheus.Registerer
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	maxFrameSize     int
	inboxSize        int
	uniqueUsernames  bool
	websocket        bool
}

func defaultOptions() options {
	return options{
		logger:           log.Logger,
		handshakeTimeout: DefaultHandshakeTimeout,
		maxFrameSize:     protocol.DefaultMaxFrameSize,
		inboxSize:        chat.DefaultInboxSize,
		uniqueUsernames:  true,
		websocket:        true,
	}
}

// Option configures a Host.
type Option func(*options)

// WithLogger sets the parent logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the Host metrics with reg. Without it the metrics
// are kept but not registered anywhere.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithHandshakeTimeout bounds the wait for a joining peer's username frame.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// WithWriteTimeout bounds every send to a peer. Zero, the default, means a
// stalled peer blocks the tick until its transport gives up.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

// WithMaxFrameSize bounds steady-state frames read from peers.
func WithMaxFrameSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFrameSize = n
		}
	}
}

// WithInboxSize sets how many frames each session buffers between ticks.
func WithInboxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.inboxSize = n
		}
	}
}

// WithUniqueUsernames controls whether a join reusing a name already on the
// roster is rejected. Enabled by default.
func WithUniqueUsernames(unique bool) Option {
	return func(o *options) {
		o.uniqueUsernames = unique
	}
}

// WithWebSocket controls whether HTTP upgrade requests are accepted on the
// listening port. Enabled by default.
func WithWebSocket(enabled bool) Option {
	return func(o *options) {
		o.websocket = enabled
	}
}
