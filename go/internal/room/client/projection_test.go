package client

import (
	"testing"

	"github.com/bolsagame/bolsa/go/internal/models"
	"github.com/bolsagame/bolsa/go/internal/room/events"
)

func mustEvent(t *testing.T, eventType events.EventType, payload any) *events.RoomEvent {
	t.Helper()
	ev, err := events.New("room-1", eventType, payload)
	if err != nil {
		t.Fatalf("build %s event: %v", eventType, err)
	}
	return ev
}

func apply(t *testing.T, p *Projection, ev *events.RoomEvent) {
	t.Helper()
	if err := p.Apply(ev); err != nil {
		t.Fatalf("apply %s: %v", ev.Type, err)
	}
}

func roster(n int) []models.Player {
	players := make([]models.Player, n)
	for i := range players {
		players[i] = models.Player{ID: string(rune('a' + i))}
	}
	return players
}

func TestProjectionAppliesSnapshot(t *testing.T) {
	p := NewProjection(5)
	mode := models.PlayModeMulti

	apply(t, p, mustEvent(t, events.EventTypeRoomStatus, events.RoomStatusPayload{
		InRoom:      true,
		PlayersList: roster(2),
		PlayMode:    &mode,
	}))

	state := p.Snapshot()
	if !state.InRoom {
		t.Error("InRoom = false after snapshot")
	}
	if len(state.Players) != 2 {
		t.Errorf("players = %d, want 2", len(state.Players))
	}
	if !state.ModeKnown || state.PlayMode != models.PlayModeMulti {
		t.Errorf("mode = %s (known=%v), want multi", state.PlayMode, state.ModeKnown)
	}
	if state.Status != models.RoomStatusWaiting {
		t.Errorf("status = %s, want waiting", state.Status)
	}
}

func TestProjectionDefersDerivationUntilModeKnown(t *testing.T) {
	p := NewProjection(5)

	// Full roster arrives before the mode. Readiness must not be
	// derived from a guessed mode.
	apply(t, p, mustEvent(t, events.EventTypePlayersUpdate, events.PlayersUpdatePayload(roster(5))))

	state := p.Snapshot()
	if state.ModeKnown {
		t.Fatal("mode marked known without a server value")
	}
	if state.Status != models.RoomStatusWaiting {
		t.Fatalf("status = %s before mode known, want waiting", state.Status)
	}

	apply(t, p, mustEvent(t, events.EventTypeRoomPlayMode, events.RoomPlayModePayload{PlayMode: models.PlayModeMulti}))
	apply(t, p, mustEvent(t, events.EventTypePlayersUpdate, events.PlayersUpdatePayload(roster(5))))

	if got := p.Snapshot().Status; got != models.RoomStatusReady {
		t.Errorf("status = %s with full multi roster, want ready", got)
	}
}

func TestProjectionSingleModeNeverReady(t *testing.T) {
	p := NewProjection(5)
	mode := models.PlayModeSingle

	apply(t, p, mustEvent(t, events.EventTypePlayerJoined, events.PlayerJoinedPayload{
		Players:  roster(1),
		PlayMode: &mode,
	}))

	if got := p.Snapshot().Status; got != models.RoomStatusWaiting {
		t.Errorf("status = %s, want waiting", got)
	}
}

func TestProjectionCountdown(t *testing.T) {
	p := NewProjection(5)

	apply(t, p, mustEvent(t, events.EventTypeGameStartCountdown, events.GameStartCountdownPayload(3)))

	state := p.Snapshot()
	if state.Status != models.RoomStatusStarting {
		t.Errorf("status = %s, want starting", state.Status)
	}
	if state.Timer != 3 {
		t.Errorf("timer = %d, want 3", state.Timer)
	}
}

func TestProjectionRoundStateOverridesLocalState(t *testing.T) {
	p := NewProjection(5)

	apply(t, p, mustEvent(t, events.EventTypeGameStartCountdown, events.GameStartCountdownPayload(2)))
	apply(t, p, mustEvent(t, events.EventTypeRoundState, events.RoundStatePayload{Status: models.RoomStatusWaiting}))

	if got := p.Snapshot().Status; got != models.RoomStatusWaiting {
		t.Errorf("status = %s after authoritative waiting, want waiting", got)
	}
}

func TestProjectionGameStartedFiresOnce(t *testing.T) {
	p := NewProjection(5)
	fired := 0
	p.OnGameStarted = func() { fired++ }

	apply(t, p, mustEvent(t, events.EventTypeGameStarted, nil))
	apply(t, p, mustEvent(t, events.EventTypeGameStarted, nil))
	apply(t, p, mustEvent(t, events.EventTypeRoundState, events.RoundStatePayload{Status: models.RoomStatusPlaying}))

	if fired != 1 {
		t.Errorf("OnGameStarted fired %d times, want 1", fired)
	}
	state := p.Snapshot()
	if !state.Started || state.Status != models.RoomStatusPlaying {
		t.Errorf("state = started=%v status=%s, want started playing", state.Started, state.Status)
	}
}

func TestProjectionPlayingSnapshotFiresGameStarted(t *testing.T) {
	p := NewProjection(5)
	fired := 0
	p.OnGameStarted = func() { fired++ }

	// A reconnecting client may learn about the start from the round
	// state snapshot instead of the original broadcast.
	apply(t, p, mustEvent(t, events.EventTypeRoundState, events.RoundStatePayload{Status: models.RoomStatusPlaying}))

	if fired != 1 {
		t.Errorf("OnGameStarted fired %d times, want 1", fired)
	}
}

func TestProjectionNotInRoomIsTerminal(t *testing.T) {
	p := NewProjection(5)
	left := 0
	p.OnLeftRoom = func() { left++ }

	apply(t, p, mustEvent(t, events.EventTypeRoomStatus, events.RoomStatusPayload{InRoom: false}))
	apply(t, p, mustEvent(t, events.EventTypeRoomStatus, events.RoomStatusPayload{InRoom: false}))

	if left != 1 {
		t.Errorf("OnLeftRoom fired %d times, want 1", left)
	}
	if p.Snapshot().InRoom {
		t.Error("InRoom = true after not-in-room reply")
	}
}

func TestProjectionLatestExplicitModeWins(t *testing.T) {
	p := NewProjection(5)
	multi := models.PlayModeMulti

	apply(t, p, mustEvent(t, events.EventTypeRoomStatus, events.RoomStatusPayload{
		InRoom:      true,
		PlayersList: roster(1),
		PlayMode:    &multi,
	}))
	apply(t, p, mustEvent(t, events.EventTypeRoomPlayMode, events.RoomPlayModePayload{PlayMode: models.PlayModeSingle}))

	if got := p.Snapshot().PlayMode; got != models.PlayModeSingle {
		t.Errorf("mode = %s, want single (most recent explicit value)", got)
	}
}

func TestProjectionIgnoresInvalidMode(t *testing.T) {
	p := NewProjection(5)

	apply(t, p, mustEvent(t, events.EventTypeRoomPlayMode, events.RoomPlayModePayload{PlayMode: "bogus"}))

	if p.Snapshot().ModeKnown {
		t.Error("invalid mode value accepted")
	}
}
