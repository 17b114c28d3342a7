package http

import (
	"errors"
	"log/slog"
	"net/http"

	"propsheet-service/internal/auth"
	"propsheet-service/internal/domain"
	"propsheet-service/internal/session"
)

// AuthRoutes are the redirect targets of the sign-in flows.
type AuthRoutes struct {
	// SentRedirect follows a successfully sent magic link.
	SentRedirect    string
	SuccessRedirect string
	FailureRedirect string
	SessionErrorKey string
}

// AuthHandler adapts the sign-in strategies to HTTP.
type AuthHandler struct {
	magic  auth.Strategy[domain.User]
	phone  auth.Strategy[domain.User]
	store  session.Store
	routes AuthRoutes
}

func NewAuthHandler(magic, phone auth.Strategy[domain.User], store session.Store, routes AuthRoutes) *AuthHandler {
	if routes.SentRedirect == "" {
		routes.SentRedirect = "/login?sent=1"
	}
	if routes.SuccessRedirect == "" {
		routes.SuccessRedirect = "/me"
	}
	if routes.FailureRedirect == "" {
		routes.FailureRedirect = "/login"
	}
	if routes.SessionErrorKey == "" {
		routes.SessionErrorKey = "auth:error"
	}
	return &AuthHandler{magic: magic, phone: phone, store: store, routes: routes}
}

// SendMagicLink handles POST /auth/magic.
func (h *AuthHandler) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.magic.Authenticate(r.Context(), r, auth.AuthenticateOptions{
		SuccessRedirect: h.routes.SentRedirect,
		FailureRedirect: h.routes.FailureRedirect,
	})
	respond(w, r, outcome, err)
}

// CompleteMagicLink handles GET on the magic link callback path.
func (h *AuthHandler) CompleteMagicLink(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.magic.Authenticate(r.Context(), r, auth.AuthenticateOptions{
		SuccessRedirect: h.routes.SuccessRedirect,
		FailureRedirect: h.routes.FailureRedirect,
	})
	respond(w, r, outcome, err)
}

// PhoneLogin handles POST /auth/phone.
func (h *AuthHandler) PhoneLogin(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.phone.Authenticate(r.Context(), r, auth.AuthenticateOptions{
		SuccessRedirect: h.routes.SuccessRedirect,
		FailureRedirect: h.routes.FailureRedirect,
	})
	respond(w, r, outcome, err)
}

type loginState struct {
	Error string `json:"error,omitempty"`
	Sent  bool   `json:"sent"`
}

// Login reports the flashed sign-in error, consuming it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(r.Context(), r.Header.Get("Cookie"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	state := loginState{Sent: r.URL.Query().Get("sent") != ""}
	if msg, ok := sess.Get(h.routes.SessionErrorKey); ok {
		state.Error = msg
		cookie, err := h.store.Commit(r.Context(), sess)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "session unavailable")
			return
		}
		w.Header().Add("Set-Cookie", cookie)
	}
	writeJSON(w, http.StatusOK, state)
}

// Logout destroys the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(r.Context(), r.Header.Get("Cookie"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	cookie, err := h.store.Destroy(r.Context(), sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	w.Header().Add("Set-Cookie", cookie)
	http.Redirect(w, r, h.routes.FailureRedirect, http.StatusSeeOther)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(r.Context(), r.Header.Get("Cookie"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	var user domain.User
	ok, err := sess.GetJSON("user", &user)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func respond(w http.ResponseWriter, r *http.Request, outcome auth.Outcome[domain.User], err error) {
	if err != nil {
		status := authStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("authentication failed", "path", r.URL.Path, "error", err)
		}
		writeError(w, status, auth.Message(err))
		return
	}
	if outcome.SetCookie != "" {
		w.Header().Add("Set-Cookie", outcome.SetCookie)
	}
	switch outcome.Kind {
	case auth.OutcomeRedirect:
		http.Redirect(w, r, outcome.Location, http.StatusSeeOther)
	default:
		writeJSON(w, http.StatusOK, outcome.Identity)
	}
}

func authStatus(err error) int {
	switch {
	case auth.IsConfigError(err):
		return http.StatusInternalServerError
	case errors.Is(err, auth.ErrSend):
		return http.StatusBadGateway
	case errors.Is(err, auth.ErrMissingPhone),
		errors.Is(err, auth.ErrInvalidPhoneFormat),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrPayloadPhone),
		errors.Is(err, auth.ErrPayloadCreatedAt),
		errors.Is(err, auth.ErrSameDeviceMismatch),
		errors.Is(err, auth.ErrLinkExpired),
		errors.Is(err, auth.ErrVerifyRejected):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
