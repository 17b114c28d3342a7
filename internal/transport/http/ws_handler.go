package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"propsheet-service/internal/app"
	"propsheet-service/internal/domain"
)

const writeWait = 10 * time.Second

// LeaderboardStream pushes a sheet's leaderboard to websocket clients as it changes.
type LeaderboardStream struct {
	service  *app.RankingService
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewLeaderboardStream(service *app.RankingService, interval time.Duration) *LeaderboardStream {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &LeaderboardStream{
		service:  service,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS handles GET /ws/leaderboard?sheetId=.
func (h *LeaderboardStream) ServeWS(w http.ResponseWriter, r *http.Request) {
	sheetID := r.URL.Query().Get("sheetId")
	if sheetID == "" {
		writeError(w, http.StatusBadRequest, "missing sheetId")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, err := h.service.Watch(ctx, sheetID, h.interval)
	if errors.Is(err, domain.ErrSheetNotFound) {
		writeError(w, http.StatusNotFound, "sheet not found")
		return
	}
	if err != nil {
		slog.Error("leaderboard watch failed", "sheet", sheetID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load leaderboard")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	writerDone := make(chan struct{})
	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for lb := range updates {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: lb}); err != nil {
				slog.Debug("ws write error", "error", err)
				cancel()
				return
			}
		}
	}()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	<-writerDone
}
