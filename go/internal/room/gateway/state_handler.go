package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bolsagame/bolsa/go/internal/models"
	"github.com/bolsagame/bolsa/go/internal/room"
)

// LobbyService is what the HTTP surface needs from the room registry.
// These endpoints are the matchmaking collaborator's entry points; the
// browser itself only speaks the WebSocket protocol.
type LobbyService interface {
	CreateRoom(ctx context.Context, roomID string, mode models.PlayMode) (room.Snapshot, error)
	Join(ctx context.Context, roomID string, player models.Player) (room.Snapshot, error)
	Leave(ctx context.Context, roomID, playerID string) (room.Snapshot, error)
	SetPlayMode(ctx context.Context, roomID string, mode models.PlayMode) (room.Snapshot, error)
	MarkReady(ctx context.Context, roomID, playerID string) (room.Snapshot, error)
	Snapshot(roomID string) (room.Snapshot, error)
}

// StateHandler handles HTTP requests for room state and membership.
type StateHandler struct {
	rooms LobbyService
}

// NewStateHandler creates a new state handler.
func NewStateHandler(rooms LobbyService) *StateHandler {
	return &StateHandler{rooms: rooms}
}

type createRoomRequest struct {
	RoomID   string          `json:"roomId"`
	PlayMode models.PlayMode `json:"playMode"`
}

type joinRoomRequest struct {
	Player models.Player `json:"player"`
}

type playerRequest struct {
	PlayerID string `json:"playerId"`
}

type setModeRequest struct {
	PlayMode models.PlayMode `json:"playMode"`
}

// HandleCreateRoom handles POST /api/rooms.
func (h *StateHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.rooms.CreateRoom(r.Context(), req.RoomID, req.PlayMode)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeSnapshot(w, http.StatusCreated, snap)
}

// HandleGetRoomState handles GET /api/rooms/{id}/state.
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.rooms.Snapshot(r.PathValue("id"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeSnapshot(w, http.StatusOK, snap)
}

// HandleJoinRoom handles POST /api/rooms/{id}/join.
func (h *StateHandler) HandleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player.ID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.rooms.Join(r.Context(), r.PathValue("id"), req.Player)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeSnapshot(w, http.StatusOK, snap)
}

// HandleLeaveRoom handles POST /api/rooms/{id}/leave.
func (h *StateHandler) HandleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.rooms.Leave(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeSnapshot(w, http.StatusOK, snap)
}

// HandleSetPlayMode handles POST /api/rooms/{id}/mode.
func (h *StateHandler) HandleSetPlayMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.rooms.SetPlayMode(r.Context(), r.PathValue("id"), req.PlayMode)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeSnapshot(w, http.StatusOK, snap)
}

// HandleMarkReady handles POST /api/rooms/{id}/ready.
func (h *StateHandler) HandleMarkReady(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.rooms.MarkReady(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeSnapshot(w, http.StatusOK, snap)
}

// RegisterStateRoutes registers room HTTP routes.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", h.HandleCreateRoom)
	mux.HandleFunc("GET /api/rooms/{id}/state", h.HandleGetRoomState)
	mux.HandleFunc("POST /api/rooms/{id}/join", h.HandleJoinRoom)
	mux.HandleFunc("POST /api/rooms/{id}/leave", h.HandleLeaveRoom)
	mux.HandleFunc("POST /api/rooms/{id}/mode", h.HandleSetPlayMode)
	mux.HandleFunc("POST /api/rooms/{id}/ready", h.HandleMarkReady)
}

func writeSnapshot(w http.ResponseWriter, status int, snap room.Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Error().Err(err).Msg("failed to encode room snapshot response")
	}
}

// writeRegistryError maps registry errors onto HTTP statuses. Every
// registry error is recoverable and belongs to the caller alone.
func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrNotInRoom):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrRoomExists),
		errors.Is(err, room.ErrAlreadyJoined),
		errors.Is(err, room.ErrModeLocked),
		errors.Is(err, room.ErrInvalidCommand):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, room.ErrInvalidMode):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Error().Err(err).Msg("unexpected registry error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
