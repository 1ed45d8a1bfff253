package server

import (
	"errors"
	"fmt"
)

var (
	// ErrRecipientNotFound means a directed message named a user who is not
	// on the roster.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrNotListening is returned by operations that need a listening Host.
	ErrNotListening = errors.New("host is not listening")
)

// RoutingError reports a directed message that could not be delivered.
// No broadcast fallback happens.
type RoutingError struct {
	Recipient string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("route to %q: %v", e.Recipient, ErrRecipientNotFound)
}

func (e *RoutingError) Unwrap() error {
	return ErrRecipientNotFound
}
