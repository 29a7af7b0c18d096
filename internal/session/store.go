// Package session holds the authentication token of one client instance.
package session

import "sync"

// Store is the single source of truth for "is logged in". The token is opaque
// and trusted until the backend rejects it; there is no expiry or logout.
type Store struct {
	mu    sync.RWMutex
	token string
	set   bool
}

// NewStore creates an empty, anonymous Store.
func NewStore() *Store {
	return &Store{}
}

// Token returns the current token and whether one is set.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.set
}

// IsAnonymous reports whether no token is set.
func (s *Store) IsAnonymous() bool {
	_, ok := s.Token()
	return !ok
}

// SetToken stores the token issued by a successful login.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.set = true
	s.mu.Unlock()
}
