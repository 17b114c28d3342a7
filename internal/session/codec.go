package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySecret is returned when a codec is built without a signing secret.
var ErrEmptySecret = errors.New("session secret is required")

type cookieClaims struct {
	Values    map[string]string `json:"v,omitempty"`
	SessionID string            `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs cookie payloads as HS256 JWTs.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	return NewCodecWithClock(secret, ttl, time.Now)
}

// NewCodecWithClock allows deterministic expiry in tests.
func NewCodecWithClock(secret string, ttl time.Duration, now func() time.Time) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: now}, nil
}

func (c *Codec) sign(claims cookieClaims) (string, error) {
	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return token, nil
}

func (c *Codec) parse(raw string) (*cookieClaims, error) {
	claims := &cookieClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// EncodeValues signs the full value map.
func (c *Codec) EncodeValues(values map[string]string) (string, error) {
	return c.sign(cookieClaims{Values: values})
}

// DecodeValues verifies a token produced by EncodeValues.
func (c *Codec) DecodeValues(raw string) (map[string]string, error) {
	claims, err := c.parse(raw)
	if err != nil {
		return nil, err
	}
	return claims.Values, nil
}

// EncodeID signs a server-side session id.
func (c *Codec) EncodeID(id string) (string, error) {
	return c.sign(cookieClaims{SessionID: id})
}

// DecodeID verifies a token produced by EncodeID.
func (c *Codec) DecodeID(raw string) (string, error) {
	claims, err := c.parse(raw)
	if err != nil {
		return "", err
	}
	if claims.SessionID == "" {
		return "", errors.New("session id claim missing")
	}
	return claims.SessionID, nil
}
