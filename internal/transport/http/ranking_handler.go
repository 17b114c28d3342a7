package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"propsheet-service/internal/app"
	"propsheet-service/internal/domain"
)

type RankingHandler struct {
	service *app.RankingService
}

func NewRankingHandler(service *app.RankingService) *RankingHandler {
	return &RankingHandler{service: service}
}

// Placement handles GET /sheets/{sheetID}/submissions/{submissionID}/placement.
func (h *RankingHandler) Placement(w http.ResponseWriter, r *http.Request) {
	placement, err := h.service.Placement(r.Context(), chi.URLParam(r, "sheetID"), chi.URLParam(r, "submissionID"))
	if err != nil {
		slog.Error("placement failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not rank submission")
		return
	}
	writeJSON(w, http.StatusOK, placement)
}

// Leaderboard handles GET /sheets/{sheetID}/leaderboard.
func (h *RankingHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), chi.URLParam(r, "sheetID"))
	if errors.Is(err, domain.ErrSheetNotFound) {
		writeError(w, http.StatusNotFound, "sheet not found")
		return
	}
	if err != nil {
		slog.Error("leaderboard failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, lb)
}
