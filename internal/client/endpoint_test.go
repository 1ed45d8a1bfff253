package client_test

import (
	"testing"

	"github.com/omochice/relaychat/internal/client"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    client.Endpoint
		wantErr bool
	}{
		{
			name:  "tcp",
			input: "127.0.0.1:8080",
			want:  client.Endpoint{Network: "tcp", Host: "127.0.0.1", Port: 8080},
		},
		{
			name:  "tcp ipv6",
			input: "[::1]:9000",
			want:  client.Endpoint{Network: "tcp", Host: "::1", Port: 9000},
		},
		{
			name:  "websocket",
			input: "ws://localhost:8080/ws",
			want:  client.Endpoint{Network: "ws", Host: "localhost", Port: 8080, Path: "/ws"},
		},
		{
			name:  "secure websocket default port",
			input: "wss://chat.example.com/",
			want:  client.Endpoint{Network: "wss", Host: "chat.example.com", Port: 443, Path: "/"},
		},
		{name: "missing port", input: "localhost", wantErr: true},
		{name: "bad port", input: "localhost:http", wantErr: true},
		{name: "port out of range", input: "localhost:70000", wantErr: true},
		{name: "websocket without host", input: "ws:///path", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.ParseEndpoint(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEndpoint(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseEndpoint(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEndpoint_String(t *testing.T) {
	tests := []struct {
		ep   client.Endpoint
		want string
	}{
		{client.Endpoint{Network: "tcp", Host: "127.0.0.1", Port: 80}, "127.0.0.1:80"},
		{client.Endpoint{Network: "ws", Host: "localhost", Port: 8080, Path: "/ws"}, "ws://localhost:8080/ws"},
	}
	for _, tt := range tests {
		if got := tt.ep.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
