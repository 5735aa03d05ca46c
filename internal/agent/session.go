package agent

import "sync"

// Session owns one conversation's message history. The history is append-only:
// messages are never edited or reordered, and Clear replaces the whole
// sequence. A session may only be driven by one turn at a time; RunTurn takes
// the session lock for the duration of the turn, so independent sessions can
// run turns concurrently while a single session cannot.
type Session struct {
	mu      sync.Mutex
	history []Message
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// History returns a copy of the message history.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Clear replaces the entire history with an empty one.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// append adds messages to the history. Callers must hold the session lock.
func (s *Session) append(msgs ...Message) {
	s.history = append(s.history, msgs...)
}

// hasSystemMessage reports whether any system message is present. Callers must
// hold the session lock.
func (s *Session) hasSystemMessage() bool {
	for _, m := range s.history {
		if m.Role == RoleSystem {
			return true
		}
	}
	return false
}

// snapshot returns the current history slice. Callers must hold the session
// lock and must not mutate the returned slice.
func (s *Session) snapshot() []Message {
	return s.history
}
