package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/omochice/relaychat/internal/client"
)

var errUsage = errors.New("usage: /msg <user> <text>")

// handleLine submits one line of input. It reports false when the user asked
// to leave.
func handleLine(c client.Collaborator, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return true, nil
	case line == "/quit":
		return false, nil
	case line == "/msg" || strings.HasPrefix(line, "/msg "):
		to, text, _ := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "/msg")), " ")
		text = strings.TrimSpace(text)
		if to == "" || text == "" {
			return true, errUsage
		}
		return true, c.SubmitDirectedText(text, to)
	default:
		return true, c.SubmitOutboundText(line)
	}
}

func flush(c client.Collaborator, out io.Writer) {
	for _, text := range c.DrainReceivedText() {
		fmt.Fprintln(out, text)
	}
}

// runConsole reads lines from in until EOF, "/quit", ctx cancellation or the
// connection dropping, and prints received text every interval.
func runConsole(ctx context.Context, in io.Reader, out io.Writer, c client.Collaborator, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flush(c, out)
			return nil
		case <-ticker.C:
			flush(c, out)
			if _, connected := c.CurrentEndpoint(); !connected {
				fmt.Fprintln(out, "*** disconnected from server ***")
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				flush(c, out)
				return nil
			}
			keepGoing, err := handleLine(c, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if !keepGoing {
				flush(c, out)
				return nil
			}
		}
	}
}
