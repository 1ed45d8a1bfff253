package tcp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Handler takes ownership of an accepted connection.
type Handler func(conn net.Conn)

// Server accepts TCP connections and hands each one to a Handler on its own
// goroutine.
type Server struct {
	address  string
	listener net.Listener
	handler  Handler
	logger   zerolog.Logger
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a TCP server that passes connections to handler.
func New(address string, handler Handler) *Server {
	return &Server{
		address: address,
		handler: handler,
		logger:  log.With().Str("com", "tcp-server").Logger(),
		quit:    make(chan struct{}),
	}
}

// SetLogger replaces the server logger. Call before Listen.
func (s *Server) SetLogger(logger zerolog.Logger) {
	s.logger = logger.With().Str("com", "tcp-server").Logger()
}

// Listen binds the address and starts the accept loop in the background.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}
	s.listener = listener

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("TCP server started")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn().Err(err).Msg("failed to accept TCP connection")
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handler(conn)
		}()
	}
}

// Stop closes the listener and waits for the accept loop and every running
// handler to return. Handlers must watch Done to exit promptly.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
	})
	s.wg.Wait()
}

// Done is closed when Stop is called.
func (s *Server) Done() <-chan struct{} {
	return s.quit
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
