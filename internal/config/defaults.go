package config

import "time"

const (
	DefaultListenIP         = "0.0.0.0"
	DefaultListenPort       = 8080
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultTickInterval     = 10 * time.Millisecond
	DefaultMaxFrameSize     = 1024
	DefaultInboxSize        = 64

	DefaultServerEndpoint = "127.0.0.1:8080"
	DefaultDialTimeout    = 5 * time.Second
	DefaultMaxReceived    = 1024
	DefaultDrainInterval  = 100 * time.Millisecond

	// minFrameSize keeps room for the username handshake.
	minFrameSize = 256
	maxFrameSize = 1 << 20
)
