package auth

import (
	"errors"
	"fmt"
)

// Configuration errors. These are programmer mistakes and are never flashed to the visitor.
var (
	ErrMissingSecret          = errors.New("magic link secret is required")
	ErrMissingCallback        = errors.New("send and verify callbacks are required")
	ErrMissingSuccessRedirect = errors.New("success redirect is required to send a magic link")
	ErrMissingFailureRedirect = errors.New("failure redirect is required for the phone strategy")
)

// Request-level failures.
var (
	ErrMissingPhone       = errors.New("missing phone number")
	ErrInvalidPhoneFormat = errors.New("invalid phone number format")
	ErrSend               = errors.New("failed to send magic link")
	ErrInvalidToken       = errors.New("invalid or unparseable magic link")
	ErrPayloadPhone       = errors.New("magic link payload has no phone")
	ErrPayloadCreatedAt   = errors.New("magic link payload has no creation time")
	ErrSameDeviceMismatch = errors.New("magic link does not match the one sent to this device")
	ErrLinkExpired        = errors.New("magic link expired")
	ErrVerifyRejected     = errors.New("identity verification failed")
)

// IsConfigError reports whether err is a configuration error rather than a visitor mistake.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingSecret) ||
		errors.Is(err, ErrMissingCallback) ||
		errors.Is(err, ErrMissingSuccessRedirect) ||
		errors.Is(err, ErrMissingFailureRedirect)
}

// Message turns a request-level failure into the short text flashed to the visitor.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissingPhone):
		return "Please enter your phone number."
	case errors.Is(err, ErrInvalidPhoneFormat):
		return "Please enter a valid Canadian phone number."
	case errors.Is(err, ErrSameDeviceMismatch):
		return "For your security, open the sign-in link on the device you requested it from."
	case errors.Is(err, ErrLinkExpired):
		return "Sign-in link expired. Please request a new one."
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrPayloadPhone), errors.Is(err, ErrPayloadCreatedAt):
		return "Sign-in link invalid. Please request a new one."
	case errors.Is(err, ErrVerifyRejected):
		return "We could not sign you in. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// RedirectError lets a verify callback short-circuit the flow with a redirect of its own.
// It is passed through untouched instead of being treated as a failure.
type RedirectError struct {
	Location  string
	SetCookie string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s", e.Location)
}
