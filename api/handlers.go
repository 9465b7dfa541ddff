package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sum-game-server/config"
	"sum-game-server/storage"
)

// Handler holds dependencies for the HTTP endpoints.
type Handler struct {
	Config  *config.Config
	History storage.HistoryStore

	// visitorCount feeds the default nickname ("Player N").
	visitorCount atomic.Int64
}

// NewHandler creates an API handler. History may be nil when no
// database is configured.
func NewHandler(cfg *config.Config, history storage.HistoryStore) *Handler {
	return &Handler{Config: cfg, History: history}
}

// CORS sets CORS headers on the response. Call before writing body;
// returns true if the request was a handled preflight.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// Cookies bootstraps a browser identity: a durable uuid cookie and a
// default nickname cookie, both created only when absent. The client
// echoes them back in the websocket auth frame.
func (h *Handler) Cookies(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie("uuid"); err != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     "uuid",
			Value:    uuid.NewString(),
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
	}
	if _, err := r.Cookie("nickname"); err != nil {
		n := h.visitorCount.Add(1)
		http.SetCookie(w, &http.Cookie{
			Name:     "nickname",
			Value:    fmt.Sprintf("Player %d", n),
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.WriteHeader(http.StatusOK)
}

// HistoryList returns the most recent finished games as JSON.
func (h *Handler) HistoryList(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if h.History == nil {
		http.Error(w, "history is not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	records, err := h.History.ListRecent(ctx, 50)
	if err != nil {
		slog.Error("listing game history", "tag", "api", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []storage.GameRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		slog.Error("encoding game history", "tag", "api", "err", err)
	}
}
