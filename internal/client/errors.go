package client

import (
	"fmt"

	"github.com/omochice/relaychat/internal/chat"
)

// ConnectError is returned by Agent.Connect. It always matches
// chat.ErrTransport.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() []error {
	return []error{chat.ErrTransport, e.Err}
}
