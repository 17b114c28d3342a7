package memory

import (
	"context"
	"sync"
	"time"
)

// SessionStore is an in-memory session.Backend for tests and single-instance runs.
type SessionStore struct {
	now      func() time.Time
	mu       sync.RWMutex
	sessions map[string]storedSession
}

type storedSession struct {
	values    map[string]string
	expiresAt time.Time
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock allows deterministic expiry in tests.
func NewSessionStoreWithClock(now func() time.Time) *SessionStore {
	return &SessionStore{
		now:      now,
		sessions: make(map[string]storedSession),
	}
}

func (s *SessionStore) Load(_ context.Context, id string) (map[string]string, bool, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, false, nil
	}
	return copyValues(entry.values), true, nil
}

func (s *SessionStore) Save(_ context.Context, id string, values map[string]string, ttl time.Duration) error {
	entry := storedSession{values: copyValues(values)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.sessions[id] = entry
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func copyValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
