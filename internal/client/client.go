// Package client implements the connecting side of a chat: an Agent owns one
// outbound session, runs a receive loop and keeps received text until the
// application drains it.
package client

// Collaborator is what an interactive console needs from the chat core.
type Collaborator interface {
	SubmitOutboundText(text string) error
	SubmitDirectedText(text, toUsername string) error
	DrainReceivedText() []string
	CurrentEndpoint() (Endpoint, bool)
}

var _ Collaborator = (*Agent)(nil)
