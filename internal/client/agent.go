package client

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omochice/relaychat/internal/chat"
	"github.com/omochice/relaychat/internal/transport/tcp"
	"github.com/omochice/relaychat/internal/transport/ws"
	"github.com/omochice/relaychat/pkg/protocol"
)

// DefaultDialTimeout bounds Connect when the caller's context has no deadline.
const DefaultDialTimeout = 5 * time.Second

// State is the connection stage of an Agent.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateListening
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateListening:
		return "listening"
	case StateDisconnected:
		return "disconnected"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

type options struct {
	logger       zerolog.Logger
	dialTimeout  time.Duration
	maxReceived  int
	maxFrameSize int
}

// Option configures an Agent.
type Option func(*options)

// WithLogger sets the parent logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDialTimeout bounds connecting and the handshake send.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

// WithMaxReceived caps how much undrained text is kept.
func WithMaxReceived(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxReceived = n
		}
	}
}

// WithMaxFrameSize bounds frames read from the Host.
func WithMaxFrameSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFrameSize = n
		}
	}
}

// Agent is one chat participant. Sends run on the caller's goroutine; a
// background receive loop appends incoming text to the received log.
type Agent struct {
	username string
	opts     options
	logger   zerolog.Logger
	received *ReceivedLog
	state    atomic.Int32

	// connMu serialises Connect and Disconnect.
	connMu sync.Mutex

	mu       sync.RWMutex
	session  *chat.Session
	endpoint Endpoint
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

// New creates an Agent for username. It does not connect.
func New(username string, opts ...Option) *Agent {
	o := options{
		logger:       log.Logger,
		dialTimeout:  DefaultDialTimeout,
		maxReceived:  DefaultMaxReceived,
		maxFrameSize: protocol.DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Agent{
		username: username,
		opts:     o,
		logger:   o.logger.With().Str("com", "client").Str("user", username).Logger(),
		received: NewReceivedLog(o.maxReceived),
	}
}

// Username returns the local identity.
func (a *Agent) Username() string { return a.username }

// State returns the connection stage.
func (a *Agent) State() State { return State(a.state.Load()) }

// IsConnected reports whether the Agent holds a live session.
func (a *Agent) IsConnected() bool {
	a.mu.RLock()
	s := a.session
	a.mu.RUnlock()
	return s != nil && s.Connected()
}

// Connect dials endpoint, sends the username handshake and starts the
// receive loop. An existing connection is closed first.
func (a *Agent) Connect(ctx context.Context, endpoint string) error {
	a.connMu.Lock()
	defer a.connMu.Unlock()

	a.disconnect()
	a.state.Store(int32(StateConnecting))

	fail := func(err error) error {
		a.state.Store(int32(StateDisconnected))
		a.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("connect failed")
		return &ConnectError{Endpoint: endpoint, Err: err}
	}

	ep, err := ParseEndpoint(endpoint)
	if err != nil {
		return fail(err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, a.opts.dialTimeout)
	defer cancel()

	var conn chat.Conn
	if ep.Network == "tcp" {
		conn, err = tcp.Dial(dialCtx, ep.Address(), a.opts.maxFrameSize)
	} else {
		conn, err = ws.Dial(dialCtx, endpoint, a.opts.maxFrameSize)
	}
	if err != nil {
		return fail(err)
	}

	session := chat.NewSession(conn, a.username, chat.WithSessionLogger(a.opts.logger))
	session.Start()
	if err := session.Send(dialCtx, protocol.EncodeString(a.username)); err != nil {
		session.Close()
		return fail(err)
	}
	a.state.Store(int32(StateConnected))

	loopCtx, stop := context.WithCancel(context.Background())
	a.mu.Lock()
	a.session = session
	a.endpoint = ep
	a.cancel = stop
	a.mu.Unlock()

	a.wg.Add(1)
	go a.receiveLoop(loopCtx, session)
	a.state.Store(int32(StateListening))

	a.logger.Info().Str("endpoint", ep.String()).Msg("connected")
	return nil
}

// Disconnect stops the receive loop, waits for it to end and closes the
// transport. It is safe to call more than once.
func (a *Agent) Disconnect() {
	a.connMu.Lock()
	defer a.connMu.Unlock()
	a.disconnect()
}

func (a *Agent) disconnect() {
	a.mu.Lock()
	session, stop := a.session, a.cancel
	a.session, a.cancel = nil, nil
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
	a.wg.Wait()
	if session == nil {
		return
	}
	session.Close()
	a.state.Store(int32(StateDisconnected))
	a.logger.Info().Msg("disconnected")
}

func (a *Agent) receiveLoop(ctx context.Context, session *chat.Session) {
	defer a.wg.Done()
	for {
		frame, err := session.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if chat.IsClosed(err) || errors.Is(err, chat.ErrNotConnected) {
				a.logger.Debug().Err(err).Msg("connection closed by remote")
			} else {
				a.logger.Error().Err(err).Msg("receive failed")
			}
			a.state.CompareAndSwap(int32(StateListening), int32(StateDisconnected))
			return
		}

		pkt, err := protocol.Decode(frame)
		if err != nil {
			a.logger.Warn().Err(err).Msg("dropped undecodable frame")
			continue
		}
		if pkt.Header != protocol.HeaderString {
			a.logger.Debug().Stringer("header", pkt.Header).Msg("ignored non-text frame")
			continue
		}
		a.received.Append(pkt.Text())
	}
}

func (a *Agent) current() *chat.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

func (a *Agent) send(frame []byte) error {
	session := a.current()
	if session == nil {
		return &chat.SendError{Kind: chat.ErrNotConnected}
	}
	return session.Send(context.Background(), frame)
}

// SendBroadcast sends text to everyone on the Host.
func (a *Agent) SendBroadcast(text string) error {
	return a.send(protocol.EncodeString(text))
}

// SendDirected sends text from fromUser to toUser only.
func (a *Agent) SendDirected(text, fromUser, toUser string) error {
	return a.send(protocol.EncodeStringWithMetadata(text, fromUser, toUser))
}

// SubmitOutboundText implements Collaborator.
func (a *Agent) SubmitOutboundText(text string) error {
	return a.SendBroadcast(text)
}

// SubmitDirectedText implements Collaborator. The sender is the Agent's own
// username.
func (a *Agent) SubmitDirectedText(text, toUsername string) error {
	return a.SendDirected(text, a.username, toUsername)
}

// DrainReceivedText implements Collaborator.
func (a *Agent) DrainReceivedText() []string {
	return a.received.Drain()
}

// Received returns the log incoming text is appended to.
func (a *Agent) Received() *ReceivedLog {
	return a.received
}

// CurrentEndpoint returns the remote the Agent last connected to, and
// whether it is still connected.
func (a *Agent) CurrentEndpoint() (Endpoint, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.endpoint, a.session != nil && a.session.Connected()
}
