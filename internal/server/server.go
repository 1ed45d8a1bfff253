package server

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/omochice/relaychat/internal/chat"
	"github.com/omochice/relaychat/internal/transport/tcp"
)

// State is the lifecycle stage of a Host.
type State int32

const (
	StateCreated State = iota
	StateListening
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// pendingJoins bounds handshaked sessions waiting for admission.
const pendingJoins = 16

// Host accepts peers on one port and relays their messages. Accepting and
// the username handshake happen in the background; admission, departure
// detection and routing happen only inside Update, one tick at a time.
type Host struct {
	address string
	port    int
	opts    options
	logger  zerolog.Logger
	metrics *metrics

	state  atomic.Int32
	tcp    *tcp.Server
	roster *chat.Roster
	joins  chan *chat.Session

	lifeMu sync.Mutex
	// tickMu keeps Close from running in the middle of an Update.
	tickMu sync.Mutex
}

// New creates a Host for address and port. It does not bind anything.
func New(address string, port int, opts ...Option) *Host {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Host{
		address: address,
		port:    port,
		opts:    o,
		logger:  o.logger.With().Str("com", "host").Logger(),
		metrics: newMetrics(o.registerer),
		roster:  chat.NewRoster(),
		joins:   make(chan *chat.Session, pendingJoins),
	}
}

// Listen binds the port and starts accepting peers in the background.
func (h *Host) Listen() error {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()
	if h.State() != StateCreated {
		return fmt.Errorf("listen: host is %s", h.State())
	}

	address := net.JoinHostPort(h.address, strconv.Itoa(h.port))
	srv := tcp.New(address, h.handleConn)
	srv.SetLogger(h.opts.logger)
	h.tcp = srv
	if err := srv.Listen(); err != nil {
		h.tcp = nil
		return err
	}
	h.state.Store(int32(StateListening))
	h.logger.Info().
		Str("addr", srv.Addr()).
		Bool("websocket", h.opts.websocket).
		Msg("host listening")
	return nil
}

// State returns the lifecycle stage.
func (h *Host) State() State {
	return State(h.state.Load())
}

// Addr returns the bound address, or "" before Listen.
func (h *Host) Addr() string {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()
	if h.tcp == nil {
		return ""
	}
	return h.tcp.Addr()
}

// ClientCount returns the number of sessions on the roster.
func (h *Host) ClientCount() int {
	return h.roster.Len()
}

// Usernames returns the usernames on the roster in join order.
func (h *Host) Usernames() []string {
	return h.roster.Usernames()
}

// Update runs one tick: it admits at most one pending peer, then visits each
// session once, removing disconnected ones and routing at most one frame
// from each of the rest. It does nothing unless the Host is listening.
func (h *Host) Update() {
	h.tickMu.Lock()
	defer h.tickMu.Unlock()
	if h.State() != StateListening {
		return
	}

	select {
	case s := <-h.joins:
		h.admit(s)
	default:
	}

	for _, s := range h.roster.Snapshot() {
		if !s.Connected() {
			h.depart(s)
			continue
		}
		frame, err := s.ReceiveAvailable()
		if err != nil {
			s.Logger().Debug().Err(err).Msg("receive failed")
			h.depart(s)
			continue
		}
		if frame == nil {
			continue
		}
		h.handleFrame(s, frame)
	}
}

func (h *Host) admit(s *chat.Session) {
	name := s.Username()
	if h.opts.uniqueUsernames && name != PlaceholderUsername {
		if _, taken := h.roster.Find(name); taken {
			h.reject(s)
			return
		}
	}

	s.Start()
	h.roster.Add(s)
	h.metrics.joins.Inc()
	h.metrics.sessions.Set(float64(h.roster.Len()))
	s.Logger().Info().Msg("user joined")
	h.announce(fmt.Sprintf(`User "%s" has joined the server!`, name))
}

func (h *Host) reject(s *chat.Session) {
	h.metrics.rejections.Inc()
	s.Logger().Warn().Msg("rejected join: username taken")
	notice := fmt.Sprintf(`Username "%s" is already taken`, s.Username())
	if err := h.deliver(s, serverText(notice)); err != nil {
		s.Logger().Debug().Err(err).Msg("failed to send rejection")
	}
	s.Close()
}

func (h *Host) depart(s *chat.Session) {
	if !h.roster.Remove(s) {
		return
	}
	s.Close()
	h.metrics.departures.Inc()
	h.metrics.sessions.Set(float64(h.roster.Len()))
	s.Logger().Info().Msg("user left")
	h.announce(fmt.Sprintf(`User "%s" has left the server!`, s.Username()))
}

// Close disconnects every session and releases the port. It is safe to call
// more than once and before Listen.
func (h *Host) Close() error {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()
	if h.State() == StateClosed {
		return nil
	}
	h.state.Store(int32(StateClosed))

	h.tickMu.Lock()
	defer h.tickMu.Unlock()
	for _, s := range h.roster.Clear() {
		s.Close()
	}
	if h.tcp != nil {
		h.tcp.Stop()
	}
	for {
		select {
		case s := <-h.joins:
			s.Close()
			continue
		default:
		}
		break
	}
	h.metrics.sessions.Set(0)
	h.logger.Info().Msg("host closed")
	return nil
}
