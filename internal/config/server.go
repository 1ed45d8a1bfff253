package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

type Server struct {
	Listen           Listen        `yaml:"listen"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	// WriteTimeout bounds each send to a peer. Zero disables it.
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	MaxFrameSize    int           `yaml:"max_frame_size"`
	InboxSize       int           `yaml:"inbox_size"`
	WebSocket       *bool         `yaml:"websocket"`
	UniqueUsernames *bool         `yaml:"unique_usernames"`
	Metrics         Metrics       `yaml:"metrics"`
}

type Listen struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

// Address returns ip:port.
func (l Listen) Address() string {
	return net.JoinHostPort(l.IP, strconv.Itoa(l.Port))
}

type Metrics struct {
	// Listen is the address of the /metrics endpoint. Empty disables it.
	Listen string `yaml:"listen"`
}

// ApplyDefaults fills zero-valued fields.
func (s *Server) ApplyDefaults() {
	if s.Listen.IP == "" {
		s.Listen.IP = DefaultListenIP
	}
	if s.Listen.Port == 0 {
		s.Listen.Port = DefaultListenPort
	}
	if s.HandshakeTimeout == 0 {
		s.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if s.TickInterval == 0 {
		s.TickInterval = DefaultTickInterval
	}
	if s.MaxFrameSize == 0 {
		s.MaxFrameSize = DefaultMaxFrameSize
	}
	if s.InboxSize == 0 {
		s.InboxSize = DefaultInboxSize
	}
	if s.WebSocket == nil {
		enabled := true
		s.WebSocket = &enabled
	}
	if s.UniqueUsernames == nil {
		unique := true
		s.UniqueUsernames = &unique
	}
}

// WebSocketEnabled reports whether WebSocket upgrades are accepted.
func (s *Server) WebSocketEnabled() bool {
	return s.WebSocket == nil || *s.WebSocket
}

// UniqueUsernamesEnabled reports whether duplicate usernames are rejected.
func (s *Server) UniqueUsernamesEnabled() bool {
	return s.UniqueUsernames == nil || *s.UniqueUsernames
}

func (s *Server) Validate() error {
	if net.ParseIP(s.Listen.IP) == nil {
		return fmt.Errorf("invalid listen ip address: %q", s.Listen.IP)
	}
	if s.Listen.Port < 0 || s.Listen.Port > 65535 {
		return fmt.Errorf("invalid listen port: %d", s.Listen.Port)
	}
	if s.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		return fmt.Errorf("write_timeout must not be negative")
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if s.MaxFrameSize < minFrameSize || s.MaxFrameSize > maxFrameSize {
		return fmt.Errorf("max_frame_size must be between %d and %d, got %d", minFrameSize, maxFrameSize, s.MaxFrameSize)
	}
	if s.InboxSize < 0 {
		return fmt.Errorf("inbox_size must not be negative")
	}
	if s.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(s.Metrics.Listen); err != nil {
			return fmt.Errorf("invalid metrics listen address: %w", err)
		}
	}
	return nil
}
