package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth         *AuthHandler
	Ranking      *RankingHandler
	Stream       *LeaderboardStream
	CallbackPath string
}

// NewRouter builds the service's HTTP routes.
func NewRouter(h Handlers) http.Handler {
	callback := h.CallbackPath
	if callback == "" {
		callback = "/magic"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/auth/magic", h.Auth.SendMagicLink)
	r.Get(callback, h.Auth.CompleteMagicLink)
	r.Post("/auth/phone", h.Auth.PhoneLogin)
	r.Post("/auth/logout", h.Auth.Logout)
	r.Get("/login", h.Auth.Login)
	r.Get("/me", h.Auth.Me)

	r.Route("/sheets/{sheetID}", func(r chi.Router) {
		r.Get("/leaderboard", h.Ranking.Leaderboard)
		r.Get("/submissions/{submissionID}/placement", h.Ranking.Placement)
	})

	r.Get("/ws/leaderboard", h.Stream.ServeWS)
	return r
}
