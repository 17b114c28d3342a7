package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Backend persists session values by id (Redis, in-memory, ...).
type Backend interface {
	Load(ctx context.Context, id string) (map[string]string, bool, error)
	Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// ServerStore keeps values in a Backend; the cookie only carries the signed session id.
type ServerStore struct {
	backend Backend
	codec   *Codec
	cookie  CookieOptions
}

func NewServerStore(backend Backend, codec *Codec, cookie CookieOptions) *ServerStore {
	return &ServerStore{backend: backend, codec: codec, cookie: cookie.withDefaults()}
}

func (s *ServerStore) Get(ctx context.Context, cookieHeader string) (*Session, error) {
	raw, ok := readCookie(cookieHeader, s.cookie.Name)
	if !ok {
		return New("", nil), nil
	}
	id, err := s.codec.DecodeID(raw)
	if err != nil {
		return New("", nil), nil
	}
	values, found, err := s.backend.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return New("", nil), nil
	}
	return New(id, values), nil
}

func (s *ServerStore) Commit(ctx context.Context, sess *Session) (string, error) {
	if sess.id == "" {
		sess.id = uuid.NewString()
	}
	if err := s.backend.Save(ctx, sess.id, sess.Values(), s.cookie.MaxAge); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	token, err := s.codec.EncodeID(sess.id)
	if err != nil {
		return "", err
	}
	return s.cookie.setCookie(token), nil
}

func (s *ServerStore) Destroy(ctx context.Context, sess *Session) (string, error) {
	if sess.id != "" {
		if err := s.backend.Delete(ctx, sess.id); err != nil {
			return "", fmt.Errorf("delete session: %w", err)
		}
	}
	sess.Clear()
	return s.cookie.expireCookie(), nil
}
