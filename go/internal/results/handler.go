package results

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bolsagame/bolsa/go/internal/models"
)

// ResultStore is what the HTTP surface needs from the repository.
type ResultStore interface {
	GetLatestForRoom(ctx context.Context, roomID string) (*models.GameResult, error)
}

// Handler serves game result lookups for finished rooms.
type Handler struct {
	store ResultStore
}

// NewHandler creates a result handler.
func NewHandler(store ResultStore) *Handler {
	return &Handler{store: store}
}

// HandleGetLatestResult handles GET /api/rooms/{id}/result.
func (h *Handler) HandleGetLatestResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.GetLatestForRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrResultNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("room_id", r.PathValue("id")).Msg("failed to load game result")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error().Err(err).Msg("failed to encode game result response")
	}
}

// RegisterRoutes registers result routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rooms/{id}/result", h.HandleGetLatestResult)
}
