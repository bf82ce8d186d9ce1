package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"
)

var randRead = rand.Read

// GenerateSessionID creates a random, URL-safe session identifier.
func GenerateSessionID() (string, error) {
	b := make([]byte, 18)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes for session ID: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type sessionEntry[T any] struct {
	value    T
	lastSeen time.Time
}

// SessionStore maps client session ids to per-session state. Entries idle
// longer than the TTL are handed back by Expire. Safe for concurrent use.
type SessionStore[T any] struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry[T]
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore builds a store; ttl <= 0 disables expiry.
func NewSessionStore[T any](ttl time.Duration) *SessionStore[T] {
	return &SessionStore[T]{
		sessions: make(map[string]*sessionEntry[T]),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *SessionStore[T]) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// StoreSession stores value under sessionID, replacing any previous value.
func (s *SessionStore[T]) StoreSession(sessionID string, value T) {
	s.mu.Lock()
	s.sessions[sessionID] = &sessionEntry[T]{value: value, lastSeen: s.now()}
	s.mu.Unlock()
}

// GetSession returns the value for sessionID and marks it as seen.
func (s *SessionStore[T]) GetSession(sessionID string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		var zero T
		return zero, false
	}
	e.lastSeen = s.now()
	return e.value, true
}

// GetOrCreate returns the value for sessionID, building it with create when
// absent. created reports whether create ran.
func (s *SessionStore[T]) GetOrCreate(sessionID string, create func() T) (value T, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.sessions[sessionID]; ok {
		e.lastSeen = now
		return e.value, false
	}
	v := create()
	s.sessions[sessionID] = &sessionEntry[T]{value: v, lastSeen: now}
	return v, true
}

// DeleteSession removes sessionID and returns its value.
func (s *SessionStore[T]) DeleteSession(sessionID string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		var zero T
		return zero, false
	}
	delete(s.sessions, sessionID)
	return e.value, true
}

// Expire removes and returns the sessions idle for longer than the TTL.
func (s *SessionStore[T]) Expire() []T {
	if s.ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	var out []T
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			out = append(out, e.value)
			delete(s.sessions, id)
		}
	}
	return out
}

// Drain removes and returns every session.
func (s *SessionStore[T]) Drain() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.sessions))
	for _, e := range s.sessions {
		out = append(out, e.value)
	}
	s.sessions = make(map[string]*sessionEntry[T])
	return out
}

// Each calls fn for every session, ordered by id, without holding the lock.
func (s *SessionStore[T]) Each(fn func(sessionID string, value T)) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	vals := make(map[string]T, len(s.sessions))
	for id, e := range s.sessions {
		ids = append(ids, id)
		vals[id] = e.value
	}
	s.mu.Unlock()
	sort.Strings(ids)
	for _, id := range ids {
		fn(id, vals[id])
	}
}

// Len returns the number of live sessions.
func (s *SessionStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
