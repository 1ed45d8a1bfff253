package config

import (
	"fmt"
	"strings"
	"time"
)

type Client struct {
	// Server is host:port for framed TCP, or a ws:// or wss:// URL.
	Server        string        `yaml:"server"`
	Username      string        `yaml:"username"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	MaxReceived   int           `yaml:"max_received"`
	DrainInterval time.Duration `yaml:"drain_interval"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Client) ApplyDefaults() {
	if c.Server == "" {
		c.Server = DefaultServerEndpoint
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.MaxReceived == 0 {
		c.MaxReceived = DefaultMaxReceived
	}
	if c.DrainInterval == 0 {
		c.DrainInterval = DefaultDrainInterval
	}
}

func (c *Client) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server endpoint is required")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	// '&' separates metadata, so it would corrupt directed messages.
	if strings.Contains(c.Username, "&") {
		return fmt.Errorf("username must not contain '&': %q", c.Username)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("dial_timeout must not be negative")
	}
	if c.MaxReceived < 0 {
		return fmt.Errorf("max_received must not be negative")
	}
	if c.DrainInterval <= 0 {
		return fmt.Errorf("drain_interval must be positive")
	}
	return nil
}
