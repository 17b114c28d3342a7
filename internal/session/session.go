// Package session keeps per-visitor key/value state round-tripped through a cookie.
package session

import (
	"context"
	"encoding/json"
	"fmt"
)

const flashPrefix = "__flash_"

// Store loads a session from a Cookie header and turns it back into a Set-Cookie value.
type Store interface {
	Get(ctx context.Context, cookieHeader string) (*Session, error)
	Commit(ctx context.Context, s *Session) (string, error)
	Destroy(ctx context.Context, s *Session) (string, error)
}

// Session is request scoped and not safe for concurrent use.
type Session struct {
	id     string
	values map[string]string
}

// New returns an empty session. id may be empty for cookie-carried sessions.
func New(id string, values map[string]string) *Session {
	if values == nil {
		values = make(map[string]string)
	}
	return &Session{id: id, values: values}
}

func (s *Session) ID() string { return s.id }

// Has reports whether key holds a regular or flashed value.
func (s *Session) Has(key string) bool {
	if _, ok := s.values[flashPrefix+key]; ok {
		return true
	}
	_, ok := s.values[key]
	return ok
}

// Get returns the value under key. A flashed value is returned once and then dropped.
func (s *Session) Get(key string) (string, bool) {
	if v, ok := s.values[flashPrefix+key]; ok {
		delete(s.values, flashPrefix+key)
		return v, true
	}
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	s.values[key] = value
}

func (s *Session) Unset(key string) {
	delete(s.values, key)
	delete(s.values, flashPrefix+key)
}

// Flash stores a value that survives exactly one Get.
func (s *Session) Flash(key, value string) {
	s.values[flashPrefix+key] = value
}

// SetJSON stores v encoded as JSON.
func (s *Session) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}
	s.values[key] = string(raw)
	return nil
}

// GetJSON decodes the value under key into v. It reports false when the key is absent.
func (s *Session) GetJSON(key string, v any) (bool, error) {
	raw, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("decode session value %s: %w", key, err)
	}
	return true, nil
}

// Values returns a copy of the raw key/value pairs, flashes included.
func (s *Session) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Clear drops every value.
func (s *Session) Clear() {
	s.values = make(map[string]string)
}
