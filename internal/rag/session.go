package rag

import (
	"sync"
	"time"
)

// SessionStore holds the ordered transcript of turns per session identifier.
// Identifiers are opaque strings supplied by the caller; unknown identifiers
// behave as fresh, empty sessions. There is no expiry policy: memory grows
// with session count and reclaiming it is left to the caller (ClearAll).
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string][]Turn)}
}

// History returns a copy of the session's turns in arrival order. A session
// that has never been written to yields an empty history.
func (s *SessionStore) History(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Append records one completed turn at the end of the session's transcript,
// creating the session if needed.
func (s *SessionStore) Append(sessionID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], Turn{
		Question: question,
		Answer:   answer,
		At:       time.Now(),
	})
}

// Clear empties the session's history. The identifier remains valid for reuse.
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// ClearAll drops every session.
func (s *SessionStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string][]Turn)
}

// Len returns the number of sessions holding at least one turn.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
