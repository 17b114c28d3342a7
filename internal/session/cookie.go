package session

import (
	"net/http"
	"strings"
	"time"
)

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	Name     string
	Path     string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieOptions mirrors what the web front end expects.
func DefaultCookieOptions() CookieOptions {
	return CookieOptions{
		Name:     "__session",
		Path:     "/",
		MaxAge:   30 * 24 * time.Hour,
		SameSite: http.SameSiteLaxMode,
	}
}

func (o CookieOptions) withDefaults() CookieOptions {
	def := DefaultCookieOptions()
	if o.Name == "" {
		o.Name = def.Name
	}
	if o.Path == "" {
		o.Path = def.Path
	}
	if o.MaxAge <= 0 {
		o.MaxAge = def.MaxAge
	}
	if o.SameSite == 0 {
		o.SameSite = def.SameSite
	}
	return o
}

// readCookie extracts the named cookie from a raw Cookie header.
func readCookie(header, name string) (string, bool) {
	if header == "" {
		return "", false
	}
	r := http.Request{Header: http.Header{"Cookie": {header}}}
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (o CookieOptions) setCookie(value string) string {
	c := &http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     o.Path,
		MaxAge:   int(o.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
	return c.String()
}

func (o CookieOptions) expireCookie() string {
	c := &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     o.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
	return c.String()
}

// CookieHeader turns a Set-Cookie value into the matching Cookie request header.
func CookieHeader(setCookie string) string {
	if i := strings.IndexByte(setCookie, ';'); i >= 0 {
		return setCookie[:i]
	}
	return setCookie
}
