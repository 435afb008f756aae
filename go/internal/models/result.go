package models

import (
	"time"

	"github.com/google/uuid"
)

// GameResult represents the persisted hand-off of a room to the game
// engine. A row is inserted when the room transitions to playing and
// stamped with CompletedAt when the engine reports the game finished.
type GameResult struct {
	ID          uuid.UUID  `json:"id"`
	RoomID      string     `json:"room_id"`
	PlayMode    PlayMode   `json:"play_mode"`
	PlayerIDs   []string   `json:"player_ids"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
