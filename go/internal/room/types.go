package room

import (
	"context"

	"github.com/bolsagame/bolsa/go/internal/models"
	"github.com/bolsagame/bolsa/go/internal/room/events"
)

// Snapshot is the full authoritative state of a room. It is the only
// means by which a client establishes ground truth; incremental events
// are a latency optimization on top of it.
type Snapshot struct {
	RoomID             string            `json:"roomId"`
	PlayMode           models.PlayMode   `json:"playMode"`
	Players            []models.Player   `json:"players"`
	Status             models.RoomStatus `json:"status"`
	CountdownRemaining int               `json:"countdownRemaining"`
}

// EventPublisher delivers registry events to connected clients, either
// directly (loopback) or through the event bus. Publish is called with
// the registry lock held, so per-room event order matches mutation
// order.
type EventPublisher interface {
	Publish(ctx context.Context, event *events.RoomEvent) error
}

// GameEngine is the boundary to the out-of-scope game logic. BeginGame
// is signaled when a room's countdown reaches zero and the room
// transitions to playing.
type GameEngine interface {
	BeginGame(ctx context.Context, snap Snapshot, params models.GameParams) error
}

// Config holds the registry's tunables.
type Config struct {
	// MultiCapacity is the player count a multi room needs to become
	// ready. Single rooms always hold exactly one player.
	MultiCapacity int `yaml:"multi_capacity"`

	// CountdownSeconds is the initial countdown value. A cancelled
	// countdown always restarts from this value, never a stale one.
	CountdownSeconds int `yaml:"countdown_seconds"`

	// ReadyDelaySeconds is how long a full multi room stays ready
	// before the countdown initiates. A departure inside the window
	// demotes the room back to waiting without ever starting.
	ReadyDelaySeconds int `yaml:"ready_delay_seconds"`

	// DefaultPlayMode is assigned when a room is created implicitly by
	// the first join rather than by matchmaking.
	DefaultPlayMode models.PlayMode `yaml:"default_play_mode"`

	// Game holds the round parameters handed to the engine and echoed
	// to clients.
	Game models.GameParams `yaml:"game"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MultiCapacity:     5,
		CountdownSeconds:  3,
		ReadyDelaySeconds: 1,
		DefaultPlayMode:   models.PlayModeMulti,
		Game: models.GameParams{
			StartingBalance:  10000,
			Rounds:           10,
			RoundDurationSec: 60,
		},
	}
}
