package room

import (
	"github.com/bolsagame/bolsa/go/internal/models"
)

// DeriveStatus is the single place the waiting/ready rule lives. Every
// roster mutation recomputes status through it.
//
// Rules:
//   - playing is terminal within the registry;
//   - a starting multi room that drops below capacity reverts to
//     waiting (the caller cancels the countdown);
//   - a multi room at capacity is ready, otherwise waiting;
//   - a single room never self-promotes on player count alone — it
//     stays waiting until the explicit start command sets starting.
func DeriveStatus(mode models.PlayMode, playerCount int, prev models.RoomStatus, multiCapacity int) models.RoomStatus {
	switch prev {
	case models.RoomStatusPlaying:
		return models.RoomStatusPlaying

	case models.RoomStatusStarting:
		if mode == models.PlayModeMulti && playerCount < multiCapacity {
			return models.RoomStatusWaiting
		}
		return models.RoomStatusStarting

	default:
		if mode == models.PlayModeMulti && playerCount == multiCapacity {
			return models.RoomStatusReady
		}
		return models.RoomStatusWaiting
	}
}
