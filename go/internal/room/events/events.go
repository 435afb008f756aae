package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bolsagame/bolsa/go/internal/models"
)

// RoomEvent is the envelope for every event the room service emits.
// Events for a given room are produced, published and delivered in
// order; the payload in Data is specific to the event type.
type RoomEvent struct {
	ID        string          `json:"id"`        // Event UUID
	RoomID    string          `json:"roomId"`    // Room identifier
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload

	// TargetUserID restricts delivery to a single player when set.
	// Snapshot replies (roomStatus, roundState) are addressed this way;
	// all other events broadcast to the whole room.
	TargetUserID string `json:"-"`
}

// EventType represents the type of room event. The names are part of
// the browser protocol and must not change.
type EventType string

const (
	EventTypeRoomPlayMode       EventType = "roomPlayMode"
	EventTypePlayersUpdate      EventType = "playersUpdate"
	EventTypePlayerJoined       EventType = "playerJoined"
	EventTypeGameStartCountdown EventType = "gameStartCountdown"
	EventTypeGameStarted        EventType = "gameStarted"
	EventTypeRoomStatus         EventType = "roomStatus"
	EventTypeRoundState         EventType = "roundState"
)

// RoomPlayModePayload carries the authoritative play mode. It is sent
// before or alongside other state so clients can disambiguate the
// single/multi ready rules.
type RoomPlayModePayload struct {
	PlayMode models.PlayMode `json:"playMode"`
}

// PlayersUpdatePayload is a full roster replacement in join order,
// never a delta.
type PlayersUpdatePayload []models.Player

// PlayerJoinedPayload carries the roster snapshot plus the mode for
// late joiners.
type PlayerJoinedPayload struct {
	Players  []models.Player  `json:"players"`
	PlayMode *models.PlayMode `json:"playMode,omitempty"`
}

// GameStartCountdownPayload is the remaining countdown in seconds.
// Zero immediately precedes gameStarted.
type GameStartCountdownPayload int

// RoomStatusPayload is the full resync reply to checkRoomStatus.
// InRoom=false means the room no longer exists for this player and the
// client must leave the waiting view. When InRoom is true, PlayMode is
// always populated.
type RoomStatusPayload struct {
	InRoom      bool             `json:"inRoom"`
	PlayersList []models.Player  `json:"playersList,omitempty"`
	PlayMode    *models.PlayMode `json:"playMode,omitempty"`
}

// RoundStatePayload is the resync reply to requestRoundState. A
// status of playing triggers an immediate transition on the client.
type RoundStatePayload struct {
	Status models.RoomStatus `json:"status"`
	Timer  *int              `json:"timer,omitempty"`
}

// New builds an event envelope with a marshaled payload. A nil payload
// produces an event with empty data (gameStarted).
func New(roomID string, eventType EventType, payload any) (*RoomEvent, error) {
	ev := &RoomEvent{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		ev.Data = data
	}
	return ev, nil
}

// ParsePayload parses an event's data into the payload struct for its
// type. Unknown event types return (nil, nil) so consumers can skip
// events added by newer servers.
func ParsePayload(event *RoomEvent) (any, error) {
	switch event.Type {
	case EventTypeRoomPlayMode:
		var payload RoomPlayModePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePlayersUpdate:
		var payload PlayersUpdatePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePlayerJoined:
		var payload PlayerJoinedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeGameStartCountdown:
		var payload GameStartCountdownPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeGameStarted:
		return nil, nil

	case EventTypeRoomStatus:
		var payload RoomStatusPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundState:
		var payload RoundStatePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil
	}
}
