package room

import (
	"testing"

	"github.com/bolsagame/bolsa/go/internal/models"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		mode    models.PlayMode
		players int
		prev    models.RoomStatus
		want    models.RoomStatus
	}{
		{"multi below capacity stays waiting", models.PlayModeMulti, 3, models.RoomStatusWaiting, models.RoomStatusWaiting},
		{"multi at capacity becomes ready", models.PlayModeMulti, 5, models.RoomStatusWaiting, models.RoomStatusReady},
		{"multi leave drops ready to waiting", models.PlayModeMulti, 4, models.RoomStatusReady, models.RoomStatusWaiting},
		{"multi leave cancels starting", models.PlayModeMulti, 4, models.RoomStatusStarting, models.RoomStatusWaiting},
		{"multi starting holds at capacity", models.PlayModeMulti, 5, models.RoomStatusStarting, models.RoomStatusStarting},
		{"single never ready", models.PlayModeSingle, 1, models.RoomStatusWaiting, models.RoomStatusWaiting},
		{"single starting holds", models.PlayModeSingle, 1, models.RoomStatusStarting, models.RoomStatusStarting},
		{"playing is terminal", models.PlayModeMulti, 2, models.RoomStatusPlaying, models.RoomStatusPlaying},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.mode, tt.players, tt.prev, 5)
			if got != tt.want {
				t.Errorf("DeriveStatus(%s, %d, %s) = %s, want %s", tt.mode, tt.players, tt.prev, got, tt.want)
			}
		})
	}
}
