package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for room
// connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleRoomConnection handles WebSocket connections for a specific
// room. Upgrading attaches the socket to the room's broadcast pool;
// it does not join the player — membership is established through the
// lobby and outlives the socket, so a reconnecting client attaches
// again and re-issues checkRoomStatus for ground truth.
func (h *WebSocketHandler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		http.Error(w, "room_id is required", http.StatusBadRequest)
		return
	}

	// In production the user ID comes from the authenticated session;
	// the session layer is a collaborator outside this service.
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if _, err := h.connectionManager.UpgradeConnection(w, r, userID, roomID); err != nil {
		log.Error().
			Err(err).
			Str("room_id", roomID).
			Str("user_id", userID).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	// Connection is now handled by the connection manager
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	totalConnections, activeRooms := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"total_connections": totalConnections,
		"active_rooms":      activeRooms,
	})
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/room", h.HandleRoomConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
