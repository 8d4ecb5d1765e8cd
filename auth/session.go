// Package auth holds the session store and the authentication operations
// built on top of the HTTP executor. Credentials are opaque strings to the
// rest of the SDK; only this package knows the /auth endpoints.
package auth

import (
	"sync"
	"time"
)

// Session is the authenticated state shared by all SDK call sites.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         interface{}
}

// Expired reports whether the access token is past its expiry. Sessions
// without an expiry never expire client-side.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Store is a process-wide session holder with explicit get/set/subscribe
// operations. It replaces shared mutable module state: consumers receive a
// *Store by injection and observe changes through Subscribe.
type Store struct {
	mu      sync.RWMutex
	session *Session
	subs    map[int]func(*Session)
	nextID  int
	closed  bool
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{subs: make(map[int]func(*Session))}
}

// Get returns the current session, or nil when unauthenticated.
func (s *Store) Get() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Set replaces the current session (nil clears it) and notifies all
// subscribers with the new value.
func (s *Store) Set(session *Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.session = session
	subs := make([]func(*Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(session)
	}
}

// Subscribe registers fn to run on every Set and returns an unsubscribe
// function. Subscribers are invoked outside the store lock.
func (s *Store) Subscribe(fn func(*Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Token returns the current access token, or an empty string when
// unauthenticated. It satisfies client.TokenProvider.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

// Close clears the session and drops all subscribers. Further Set and
// Subscribe calls are no-ops; the teardown contract is explicit so tests
// and long-lived hosts can release the store deterministically.
func (s *Store) Close() {
	s.mu.Lock()
	s.session = nil
	s.subs = make(map[int]func(*Session))
	s.closed = true
	s.mu.Unlock()
}
