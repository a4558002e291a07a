package session

import (
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Store tracks issued session token IDs so bearer tokens can be revoked
// before their expiry. State is in-memory: a restart logs everyone out,
// which is acceptable alongside the in-memory credential default.
type Store struct {
	mu       sync.Mutex
	sessions map[string]session
}

type session struct {
	username  string
	expiresAt time.Time
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]session)}
}

// Create registers a session under tokenID.
func (s *Store) Create(tokenID, username string, expiresAt time.Time) {
	s.mu.Lock()
	s.sessions[tokenID] = session{username: username, expiresAt: expiresAt}
	s.mu.Unlock()
}

// Revoke removes the session for tokenID.
func (s *Store) Revoke(tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[tokenID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, tokenID)
	return nil
}

// IsValid reports whether tokenID names a live, unexpired session. Expired
// sessions are dropped lazily on lookup.
func (s *Store) IsValid(tokenID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[tokenID]
	if !ok {
		return false
	}
	if !now.Before(sess.expiresAt) {
		delete(s.sessions, tokenID)
		return false
	}
	return true
}
