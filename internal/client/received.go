package client

import "sync"

// DefaultMaxReceived is the default capacity of a ReceivedLog.
const DefaultMaxReceived = 1024

// ReceivedLog is an ordered, bounded log of received text. When full, the
// oldest entry is dropped to make room.
type ReceivedLog struct {
	mu      sync.Mutex
	buf     []string
	head    int
	n       int
	dropped uint64
}

// NewReceivedLog creates a log holding at most capacity entries.
func NewReceivedLog(capacity int) *ReceivedLog {
	if capacity <= 0 {
		capacity = DefaultMaxReceived
	}
	return &ReceivedLog{buf: make([]string, capacity)}
}

// Append adds text at the end of the log.
func (l *ReceivedLog) Append(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.n < len(l.buf) {
		l.buf[(l.head+l.n)%len(l.buf)] = text
		l.n++
		return
	}
	l.buf[l.head] = text
	l.head = (l.head + 1) % len(l.buf)
	l.dropped++
}

// Drain removes and returns every entry, oldest first.
func (l *ReceivedLog) Drain() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.n == 0 {
		return nil
	}
	out := make([]string, l.n)
	for i := range out {
		j := (l.head + i) % len(l.buf)
		out[i] = l.buf[j]
		l.buf[j] = ""
	}
	l.head, l.n = 0, 0
	return out
}

// Len returns the number of entries waiting to be drained.
func (l *ReceivedLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

// Dropped returns how many entries were discarded because the log was full.
func (l *ReceivedLog) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}
