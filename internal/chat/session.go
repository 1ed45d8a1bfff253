package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omochice/relaychat/pkg/protocol"
)

// DefaultInboxSize is the number of received frames a session buffers before
// its reader stops pulling from the transport.
const DefaultInboxSize = 64

// Session is one peer's live connection. The session owns its Conn: a single
// reader goroutine started by Start is the only caller of Conn.Read, and
// writes are serialised by Send.
type Session struct {
	id       string
	username string
	conn     Conn
	logger   zerolog.Logger

	inbox  chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	writeMu   sync.Mutex
	open      atomic.Bool
	closeOnce sync.Once

	lifeMu  sync.Mutex
	started bool

	errMu   sync.Mutex
	readErr error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the parent logger of the session.
func WithSessionLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithInboxSize sets how many received frames are buffered.
func WithInboxSize(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.inbox = make(chan []byte, n)
		}
	}
}

// NewSession binds conn to username. It performs no I/O.
func NewSession(conn Conn, username string, opts ...SessionOption) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       uuid.New().String(),
		username: username,
		conn:     conn,
		logger:   log.Logger,
		inbox:    make(chan []byte, DefaultInboxSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().
		Str("session", s.id).
		Str("user", username).
		Str("remote", conn.RemoteAddr()).
		Logger()
	s.open.Store(true)
	return s
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string { return s.id }

// Username returns the identity bound at handshake time.
func (s *Session) Username() string { return s.username }

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr() }

// Logger returns the session-scoped logger.
func (s *Session) Logger() *zerolog.Logger { return &s.logger }

// Start launches the reader goroutine. Calling it more than once, or after
// Close, has no effect.
func (s *Session) Start() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if !s.open.Load() || s.started {
		return
	}
	s.started = true
	go s.readLoop()
}

func (s *Session) readLoop() {
	defer close(s.done)
	for {
		frame, err := s.conn.Read(s.ctx)
		if err != nil {
			if errors.Is(err, protocol.ErrFrameTooLarge) {
				s.logger.Warn().Err(err).Msg("dropped oversized frame")
				continue
			}
			if s.ctx.Err() != nil {
				return
			}
			s.setReadErr(err)
			if s.open.Load() && !IsClosed(err) {
				s.logger.Error().Err(err).Msg("read failed")
			} else {
				s.logger.Debug().Err(err).Msg("read loop finished")
			}
			return
		}
		select {
		case s.inbox <- frame:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) setReadErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.readErr = err
}

func (s *Session) readFailure() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.readErr
}

// Connected reports whether the session is open and its transport has not
// reported a fault.
func (s *Session) Connected() bool {
	return s.open.Load() && s.readFailure() == nil
}

// Send writes one frame to the peer. A failed write is not retried.
func (s *Session) Send(ctx context.Context, frame []byte) error {
	if !s.open.Load() {
		return &SendError{Kind: ErrNotConnected}
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.Write(ctx, frame); err != nil {
		return &SendError{Kind: ErrTransport, Err: err}
	}
	return nil
}

// ReceiveAvailable returns the next buffered frame without blocking, or nil
// when nothing is pending.
func (s *Session) ReceiveAvailable() ([]byte, error) {
	select {
	case frame := <-s.inbox:
		return frame, nil
	default:
	}
	if err := s.readFailure(); err != nil {
		return nil, &ReceiveError{Err: err}
	}
	if !s.open.Load() {
		return nil, &ReceiveError{Err: ErrNotConnected}
	}
	return nil, nil
}

// Receive blocks until a frame arrives, the transport fails, the session is
// closed, or ctx is done.
func (s *Session) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-s.inbox:
		return frame, nil
	case <-s.done:
	case <-s.ctx.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	// Frames queued before the reader stopped are still delivered.
	select {
	case frame := <-s.inbox:
		return frame, nil
	default:
	}
	if err := s.readFailure(); err != nil {
		return nil, &ReceiveError{Err: err}
	}
	return nil, &ReceiveError{Err: ErrNotConnected}
}

// Close releases the transport and waits for the reader goroutine to exit.
// It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.lifeMu.Lock()
		s.open.Store(false)
		started := s.started
		s.lifeMu.Unlock()

		s.cancel()
		err = s.conn.Close()
		if started {
			<-s.done
		}
		s.logger.Debug().Msg("session closed")
	})
	return err
}
