package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"propsheet-service/internal/crypt"
	"propsheet-service/internal/phone"
	"propsheet-service/internal/session"
)

// SendParams is handed to the send function once a link has been built.
type SendParams[U any] struct {
	Phone     string
	MagicLink string
	// User is the identity found by the pre-check lookup, nil when there was none.
	User      *U
	DomainURL string
	Form      url.Values
}

// SendFunc delivers a magic link out of band (SMS).
type SendFunc[U any] func(ctx context.Context, params SendParams[U]) error

// MagicLinkOptions configures a MagicLinkStrategy. Zero values fall back to the defaults.
type MagicLinkOptions[U any] struct {
	CallbackPath string
	// PublicURL fixes the origin of sent links. When empty it is taken from the request,
	// trusting X-Forwarded-Host.
	PublicURL           string
	Secret              string
	PhoneField          string
	TokenParam          string
	LinkExpiration      time.Duration
	SessionErrorKey     string
	SessionMagicLinkKey string
	SessionPhoneKey     string
	// ValidateSessionMagicLink requires the link to be completed from the session it was sent from.
	ValidateSessionMagicLink bool
	Send                     SendFunc[U]
	Verify                   VerifyFunc[U]
	Now                      func() time.Time
}

func (o MagicLinkOptions[U]) withDefaults() MagicLinkOptions[U] {
	if o.CallbackPath == "" {
		o.CallbackPath = "/magic"
	}
	if o.PhoneField == "" {
		o.PhoneField = "phone"
	}
	if o.TokenParam == "" {
		o.TokenParam = "token"
	}
	if o.LinkExpiration <= 0 {
		o.LinkExpiration = 30 * time.Minute
	}
	if o.SessionErrorKey == "" {
		o.SessionErrorKey = "auth:error"
	}
	if o.SessionMagicLinkKey == "" {
		o.SessionMagicLinkKey = "auth:magiclink"
	}
	if o.SessionPhoneKey == "" {
		o.SessionPhoneKey = "auth:phone"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.PublicURL = strings.TrimRight(o.PublicURL, "/")
	return o
}

// MagicLinkStrategy signs visitors in with an encrypted, time-limited link sent by SMS.
// A POST sends the link; any other method completes the sign-in from the link.
// All state between the two halves lives in the link and the session cookie.
type MagicLinkStrategy[U any] struct {
	opts   MagicLinkOptions[U]
	cipher *crypt.Cipher
	store  session.Store
}

func NewMagicLinkStrategy[U any](store session.Store, opts MagicLinkOptions[U]) (*MagicLinkStrategy[U], error) {
	if opts.Secret == "" {
		return nil, ErrMissingSecret
	}
	if opts.Send == nil || opts.Verify == nil {
		return nil, ErrMissingCallback
	}
	c, err := crypt.New(opts.Secret)
	if err != nil {
		return nil, err
	}
	return &MagicLinkStrategy[U]{opts: opts.withDefaults(), cipher: c, store: store}, nil
}

// Options returns the effective configuration.
func (s *MagicLinkStrategy[U]) Options() MagicLinkOptions[U] {
	return s.opts
}

func (s *MagicLinkStrategy[U]) Authenticate(ctx context.Context, r *http.Request, opts AuthenticateOptions) (Outcome[U], error) {
	sess, err := s.store.Get(ctx, r.Header.Get("Cookie"))
	if err != nil {
		return Outcome[U]{}, err
	}
	if r.Method == http.MethodPost {
		return s.send(ctx, r, sess, opts)
	}
	return s.complete(ctx, r, sess, opts)
}

func (s *MagicLinkStrategy[U]) send(ctx context.Context, r *http.Request, sess *session.Session, opts AuthenticateOptions) (Outcome[U], error) {
	if opts.SuccessRedirect == "" {
		return Outcome[U]{}, ErrMissingSuccessRedirect
	}

	form, err := postForm(r)
	if err != nil {
		return s.fail(ctx, sess, opts, fmt.Errorf("%w: %v", ErrMissingPhone, err))
	}
	rawPhone, err := phoneFrom(form, s.opts.PhoneField)
	if err != nil {
		return s.fail(ctx, sess, opts, err)
	}
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return s.fail(ctx, sess, opts, fmt.Errorf("%w: %v", ErrInvalidPhoneFormat, err))
	}

	domainURL := s.opts.PublicURL
	if domainURL == "" {
		domainURL = DomainURL(r)
	}
	link, err := s.createMagicLink(normalized, form, domainURL)
	if err != nil {
		return Outcome[U]{}, err
	}

	user := s.precheck(ctx, normalized, form)
	if err := s.opts.Send(ctx, SendParams[U]{
		Phone:     normalized,
		MagicLink: link,
		User:      user,
		DomainURL: domainURL,
		Form:      form,
	}); err != nil {
		return Outcome[U]{}, fmt.Errorf("%w: %v", ErrSend, err)
	}

	sealedLink, err := s.cipher.Encrypt(link)
	if err != nil {
		return Outcome[U]{}, err
	}
	sess.Set(s.opts.SessionMagicLinkKey, sealedLink)
	sess.Set(s.opts.SessionPhoneKey, rawPhone)
	cookie, err := s.store.Commit(ctx, sess)
	if err != nil {
		return Outcome[U]{}, err
	}
	slog.Info("magic link sent", "phone", maskPhone(normalized))
	return redirect[U](opts.SuccessRedirect, cookie), nil
}

func (s *MagicLinkStrategy[U]) createMagicLink(normalized string, form url.Values, domainURL string) (string, error) {
	payload := newLinkPayload(normalized, form, s.opts.PhoneField, s.opts.Now().UnixMilli())
	plain, err := payload.encode()
	if err != nil {
		return "", err
	}
	token, err := s.cipher.Encrypt(plain)
	if err != nil {
		return "", err
	}
	return buildLink(domainURL, s.opts.CallbackPath, s.opts.TokenParam, token)
}

// precheck gives the caller a chance to personalise the message. Its failures never block delivery.
func (s *MagicLinkStrategy[U]) precheck(ctx context.Context, normalized string, form url.Values) *U {
	user, err := s.opts.Verify(ctx, VerifyParams{Phone: normalized, Form: form, MagicLinkVerify: false})
	if err != nil {
		slog.Debug("magic link pre-check found no identity", "error", err)
		return nil
	}
	return &user
}

func (s *MagicLinkStrategy[U]) complete(ctx context.Context, r *http.Request, sess *session.Session, opts AuthenticateOptions) (Outcome[U], error) {
	stored, _ := sess.Get(s.opts.SessionMagicLinkKey)
	token := r.URL.Query().Get(s.opts.TokenParam)

	payload, err := s.openToken(token)
	if err != nil {
		return s.fail(ctx, sess, opts, err)
	}

	if s.opts.ValidateSessionMagicLink {
		if err := s.matchSession(stored, token); err != nil {
			return s.fail(ctx, sess, opts, err)
		}
	}

	expiresAt := time.UnixMilli(payload.CreatedAt).Add(s.opts.LinkExpiration)
	if s.opts.Now().After(expiresAt) {
		return s.fail(ctx, sess, opts, ErrLinkExpired)
	}

	user, err := s.opts.Verify(ctx, VerifyParams{
		Phone:           payload.Phone,
		Form:            payload.values(s.opts.PhoneField),
		MagicLinkVerify: true,
	})
	if err != nil {
		var redir *RedirectError
		if errors.As(err, &redir) {
			return redirect[U](redir.Location, redir.SetCookie), nil
		}
		return s.fail(ctx, sess, opts, fmt.Errorf("%w: %v", ErrVerifyRejected, err))
	}

	sess.Unset(s.opts.SessionMagicLinkKey)
	sess.Unset(s.opts.SessionPhoneKey)

	if opts.SuccessRedirect == "" {
		cookie, err := s.store.Commit(ctx, sess)
		if err != nil {
			return Outcome[U]{}, err
		}
		return completed(user, cookie), nil
	}

	if err := sess.SetJSON(opts.sessionKey(), user); err != nil {
		return Outcome[U]{}, err
	}
	cookie, err := s.store.Commit(ctx, sess)
	if err != nil {
		return Outcome[U]{}, err
	}
	slog.Info("magic link completed", "phone", maskPhone(payload.Phone))
	return redirect[U](opts.SuccessRedirect, cookie), nil
}

func (s *MagicLinkStrategy[U]) openToken(token string) (linkPayload, error) {
	plain, err := s.cipher.Decrypt(token)
	if err != nil {
		return linkPayload{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return parseLinkPayload(plain)
}

// matchSession compares the token of the link stored at send time with the presented token.
func (s *MagicLinkStrategy[U]) matchSession(stored, token string) error {
	if stored == "" {
		return ErrSameDeviceMismatch
	}
	link, err := s.cipher.Decrypt(stored)
	if err != nil {
		return ErrSameDeviceMismatch
	}
	expected := tokenFromLink(link, s.opts.TokenParam)
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return ErrSameDeviceMismatch
	}
	return nil
}

// fail flashes the failure and redirects, or returns it when no failure target is set.
func (s *MagicLinkStrategy[U]) fail(ctx context.Context, sess *session.Session, opts AuthenticateOptions, cause error) (Outcome[U], error) {
	return flashFailure[U](ctx, s.store, sess, s.opts.SessionErrorKey, opts.FailureRedirect, cause)
}

func flashFailure[U any](ctx context.Context, store session.Store, sess *session.Session, errorKey, failureRedirect string, cause error) (Outcome[U], error) {
	slog.Info("authentication rejected", "reason", cause)
	if failureRedirect == "" {
		return Outcome[U]{}, cause
	}
	sess.Flash(errorKey, Message(cause))
	cookie, err := store.Commit(ctx, sess)
	if err != nil {
		return Outcome[U]{}, err
	}
	return redirect[U](failureRedirect, cookie), nil
}

// maskPhone keeps the last four digits for logs.
func maskPhone(p string) string {
	if len(p) <= 4 {
		return p
	}
	return "***" + p[len(p)-4:]
}
