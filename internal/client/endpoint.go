package client

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint describes a remote Host.
type Endpoint struct {
	// Network is "tcp", "ws" or "wss".
	Network string
	Host    string
	Port    int
	// Path is the request path of WebSocket endpoints.
	Path string
}

// ParseEndpoint accepts "host:port" for framed TCP and ws:// or wss:// URLs
// for WebSocket.
func ParseEndpoint(s string) (Endpoint, error) {
	if strings.HasPrefix(s, "ws://") || strings.HasPrefix(s, "wss://") {
		u, err := url.Parse(s)
		if err != nil {
			return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", s, err)
		}
		ep := Endpoint{Network: u.Scheme, Host: u.Hostname(), Path: u.EscapedPath()}
		switch {
		case u.Port() != "":
			port, err := strconv.Atoi(u.Port())
			if err != nil {
				return Endpoint{}, fmt.Errorf("invalid endpoint %q: bad port", s)
			}
			ep.Port = port
		case u.Scheme == "wss":
			ep.Port = 443
		default:
			ep.Port = 80
		}
		if ep.Host == "" {
			return Endpoint{}, fmt.Errorf("invalid endpoint %q: missing host", s)
		}
		return ep, nil
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: bad port", s)
	}
	return Endpoint{Network: "tcp", Host: host, Port: port}, nil
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	if e.Network == "tcp" {
		return e.Address()
	}
	return e.Network + "://" + e.Address() + e.Path
}
