package auth

import (
	"context"
	"net/http"
	"net/url"
)

// OutcomeKind tells the caller what to do with an Outcome.
type OutcomeKind int

const (
	// OutcomeRedirect means respond with a redirect to Location, setting SetCookie.
	OutcomeRedirect OutcomeKind = iota + 1
	// OutcomeCompleted means authentication succeeded and Identity is populated.
	OutcomeCompleted
)

// Outcome is the non-error result of a strategy. Failures that are not redirected come back
// as errors instead.
type Outcome[U any] struct {
	Kind      OutcomeKind
	Location  string
	SetCookie string
	Identity  U
}

func redirect[U any](location, setCookie string) Outcome[U] {
	return Outcome[U]{Kind: OutcomeRedirect, Location: location, SetCookie: setCookie}
}

func completed[U any](identity U, setCookie string) Outcome[U] {
	return Outcome[U]{Kind: OutcomeCompleted, Identity: identity, SetCookie: setCookie}
}

// AuthenticateOptions are chosen per route.
type AuthenticateOptions struct {
	// SessionKey is where the resolved identity is stored. Defaults to "user".
	SessionKey      string
	SuccessRedirect string
	FailureRedirect string
}

func (o AuthenticateOptions) sessionKey() string {
	if o.SessionKey == "" {
		return "user"
	}
	return o.SessionKey
}

// Strategy authenticates one inbound request.
type Strategy[U any] interface {
	Authenticate(ctx context.Context, r *http.Request, opts AuthenticateOptions) (Outcome[U], error)
}

// VerifyParams is handed to the verify callback.
type VerifyParams struct {
	Phone string
	Form  url.Values
	// MagicLinkVerify is false for the speculative lookup made before sending a link
	// and true once the visitor has followed it.
	MagicLinkVerify bool
}

// VerifyFunc resolves a normalized phone number to an identity. It must be idempotent per phone.
type VerifyFunc[U any] func(ctx context.Context, params VerifyParams) (U, error)
