package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"propsheet-service/internal/phone"
	"propsheet-service/internal/session"
)

// PhoneOptions configures a PhoneStrategy.
type PhoneOptions[U any] struct {
	PhoneField      string
	SessionErrorKey string
	Verify          VerifyFunc[U]
}

// PhoneStrategy treats a valid, normalized phone number as the credential.
// There is no round trip, so nothing can expire or be replayed.
type PhoneStrategy[U any] struct {
	opts  PhoneOptions[U]
	store session.Store
}

func NewPhoneStrategy[U any](store session.Store, opts PhoneOptions[U]) (*PhoneStrategy[U], error) {
	if opts.Verify == nil {
		return nil, ErrMissingCallback
	}
	if opts.PhoneField == "" {
		opts.PhoneField = "phone"
	}
	if opts.SessionErrorKey == "" {
		opts.SessionErrorKey = "auth:error"
	}
	return &PhoneStrategy[U]{opts: opts, store: store}, nil
}

func (s *PhoneStrategy[U]) Authenticate(ctx context.Context, r *http.Request, opts AuthenticateOptions) (Outcome[U], error) {
	if opts.FailureRedirect == "" {
		return Outcome[U]{}, ErrMissingFailureRedirect
	}
	sess, err := s.store.Get(ctx, r.Header.Get("Cookie"))
	if err != nil {
		return Outcome[U]{}, err
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

	user, err := s.opts.Verify(ctx, VerifyParams{Phone: normalized, Form: form})
	if err != nil {
		var redir *RedirectError
		if errors.As(err, &redir) {
			return redirect[U](redir.Location, redir.SetCookie), nil
		}
		return s.fail(ctx, sess, opts, fmt.Errorf("%w: %v", ErrVerifyRejected, err))
	}

	if opts.SuccessRedirect == "" {
		return completed(user, ""), nil
	}
	if err := sess.SetJSON(opts.sessionKey(), user); err != nil {
		return Outcome[U]{}, err
	}
	cookie, err := s.store.Commit(ctx, sess)
	if err != nil {
		return Outcome[U]{}, err
	}
	return redirect[U](opts.SuccessRedirect, cookie), nil
}

func (s *PhoneStrategy[U]) fail(ctx context.Context, sess *session.Session, opts AuthenticateOptions, cause error) (Outcome[U], error) {
	return flashFailure[U](ctx, s.store, sess, s.opts.SessionErrorKey, opts.FailureRedirect, cause)
}
