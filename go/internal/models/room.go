package models

import "time"

// PlayMode selects how a room fills and starts.
type PlayMode string

const (
	// PlayModeSingle holds one player who starts the game explicitly.
	PlayModeSingle PlayMode = "single"
	// PlayModeMulti fills to capacity and starts automatically.
	PlayModeMulti PlayMode = "multi"
)

// Valid reports whether the mode is one of the known values.
func (m PlayMode) Valid() bool {
	return m == PlayModeSingle || m == PlayModeMulti
}

// Capacity returns the player limit for the mode.
func (m PlayMode) Capacity(multiCapacity int) int {
	if m == PlayModeSingle {
		return 1
	}
	return multiCapacity
}

// RoomStatus is the lifecycle phase of a room. Transitions only ever
// move waiting -> ready -> starting -> playing, except that ready and
// starting fall back to waiting when a player leaves.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusReady    RoomStatus = "ready"
	RoomStatusStarting RoomStatus = "starting"
	RoomStatusPlaying  RoomStatus = "playing"
)

// Room is the authoritative server-side state of one game room.
type Room struct {
	ID       string     `json:"id"`
	PlayMode PlayMode   `json:"playMode"`
	Players  []Player   `json:"players"`
	Status   RoomStatus `json:"status"`

	// CountdownRemaining is the seconds left while Status is starting,
	// zero otherwise.
	CountdownRemaining int `json:"countdownRemaining"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GameParams are the round settings handed to the game engine when a
// room starts.
type GameParams struct {
	StartingBalance  int `yaml:"starting_balance" json:"startingBalance"`
	Rounds           int `yaml:"rounds" json:"rounds"`
	RoundDurationSec int `yaml:"round_duration_sec" json:"roundDurationSec"`
}
