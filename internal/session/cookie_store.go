package session

import "context"

// CookieStore keeps every value inside the signed cookie itself.
type CookieStore struct {
	codec  *Codec
	cookie CookieOptions
}

func NewCookieStore(codec *Codec, cookie CookieOptions) *CookieStore {
	return &CookieStore{codec: codec, cookie: cookie.withDefaults()}
}

// Get never fails on a bad cookie: tampered or expired cookies yield an empty session.
func (s *CookieStore) Get(_ context.Context, cookieHeader string) (*Session, error) {
	raw, ok := readCookie(cookieHeader, s.cookie.Name)
	if !ok {
		return New("", nil), nil
	}
	values, err := s.codec.DecodeValues(raw)
	if err != nil {
		return New("", nil), nil
	}
	return New("", values), nil
}

func (s *CookieStore) Commit(_ context.Context, sess *Session) (string, error) {
	token, err := s.codec.EncodeValues(sess.Values())
	if err != nil {
		return "", err
	}
	return s.cookie.setCookie(token), nil
}

func (s *CookieStore) Destroy(_ context.Context, sess *Session) (string, error) {
	sess.Clear()
	return s.cookie.expireCookie(), nil
}
