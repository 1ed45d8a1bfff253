package chat

import (
	"slices"
	"sync"
)

// Roster is the insertion-ordered set of sessions a Host relays between.
// Usernames are not deduplicated here; Find returns the first match.
type Roster struct {
	sessions []*Session
	mu       sync.RWMutex
}

// NewRoster creates an empty Roster.
func NewRoster() *Roster {
	return &Roster{}
}

// Add appends a session to the roster.
func (r *Roster) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

// Remove deletes a session from the roster. It reports whether the session
// was present.
func (r *Roster) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.sessions, s)
	if i < 0 {
		return false
	}
	r.sessions = slices.Delete(r.sessions, i, i+1)
	return true
}

// Find returns the first session registered under username.
func (r *Roster) Find(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.Username() == username {
			return s, true
		}
	}
	return nil, false
}

// Snapshot returns the sessions in roster order. Mutating the roster does
// not affect a snapshot already taken.
func (r *Roster) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sessions)
}

// Usernames returns the usernames in roster order.
func (r *Roster) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.sessions))
	for i, s := range r.sessions {
		names[i] = s.Username()
	}
	return names
}

// Len returns the number of sessions on the roster.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Clear empties the roster and returns what it held.
func (r *Roster) Clear() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions := r.sessions
	r.sessions = nil
	return sessions
}
