package client

import (
	"fmt"
	"sync"

	"github.com/bolsagame/bolsa/go/internal/models"
	"github.com/bolsagame/bolsa/go/internal/room"
	"github.com/bolsagame/bolsa/go/internal/room/events"
)

// State is what the projection exposes for rendering.
type State struct {
	InRoom    bool
	Players   []models.Player
	PlayMode  models.PlayMode
	ModeKnown bool
	Status    models.RoomStatus
	Timer     int
	Started   bool
}

// Projection is a local reflection of one room, derived solely from
// server events — it never computes readiness independently of the
// shared derivation rule and never trusts a cached default.
//
// The play mode is one field, assigned only from explicit server
// values; ModeKnown distinguishes "not yet told" from any real mode, so
// a snapshot missing the mode can never masquerade as stale data.
type Projection struct {
	// OnGameStarted fires exactly once, on the first gameStarted event
	// or the first snapshot whose status is playing, no matter how many
	// times either arrives.
	OnGameStarted func()

	// OnLeftRoom fires exactly once when the server reports the player
	// no longer has a room (roomStatus inRoom=false). Terminal: the
	// client must leave the waiting view, not retry.
	OnLeftRoom func()

	multiCapacity int

	mu        sync.Mutex
	players   []models.Player
	mode      models.PlayMode
	modeKnown bool
	status    models.RoomStatus
	timer     int
	started   bool
	left      bool
}

// NewProjection creates an empty projection.
func NewProjection(multiCapacity int) *Projection {
	if multiCapacity <= 0 {
		multiCapacity = room.DefaultConfig().MultiCapacity
	}
	return &Projection{
		multiCapacity: multiCapacity,
		status:        models.RoomStatusWaiting,
	}
}

// Apply folds one server event into the projection.
func (p *Projection) Apply(event *events.RoomEvent) error {
	payload, err := events.ParsePayload(event)
	if err != nil {
		return fmt.Errorf("parse %s payload: %w", event.Type, err)
	}

	var fire func()

	p.mu.Lock()
	switch event.Type {
	case events.EventTypeRoomPlayMode:
		pl := payload.(events.RoomPlayModePayload)
		p.setMode(pl.PlayMode)

	case events.EventTypePlayersUpdate:
		pl := payload.(events.PlayersUpdatePayload)
		p.players = pl
		p.deriveStatus()

	case events.EventTypePlayerJoined:
		pl := payload.(events.PlayerJoinedPayload)
		p.players = pl.Players
		if pl.PlayMode != nil {
			p.setMode(*pl.PlayMode)
		}
		p.deriveStatus()

	case events.EventTypeGameStartCountdown:
		pl := payload.(events.GameStartCountdownPayload)
		p.timer = int(pl)
		if p.status != models.RoomStatusPlaying {
			p.status = models.RoomStatusStarting
		}

	case events.EventTypeGameStarted:
		fire = p.markStarted()

	case events.EventTypeRoomStatus:
		pl := payload.(events.RoomStatusPayload)
		if !pl.InRoom {
			fire = p.markLeft()
			break
		}
		if pl.PlayMode != nil {
			p.setMode(*pl.PlayMode)
		}
		if pl.PlayersList != nil {
			p.players = pl.PlayersList
			p.deriveStatus()
		}

	case events.EventTypeRoundState:
		pl := payload.(events.RoundStatePayload)
		switch pl.Status {
		case models.RoomStatusPlaying:
			fire = p.markStarted()
		case models.RoomStatusStarting:
			p.status = models.RoomStatusStarting
			if pl.Timer != nil {
				p.timer = *pl.Timer
			}
		default:
			// Snapshot is authoritative; it overrides anything
			// inferred locally from incremental events.
			p.status = pl.Status
			if pl.Timer != nil {
				p.timer = *pl.Timer
			}
		}
	}
	p.mu.Unlock()

	if fire != nil {
		fire()
	}
	return nil
}

// setMode assigns the authoritative play mode. Mode only ever moves
// forward to an explicit server value; there is no fallback default to
// race against. Caller holds the lock.
func (p *Projection) setMode(mode models.PlayMode) {
	if !mode.Valid() {
		return
	}
	p.mode = mode
	p.modeKnown = true
}

// deriveStatus re-applies the shared status rule after every roster
// change. With the mode still unknown the status is left untouched —
// unknown is a distinct state, never treated as multi or single.
// Caller holds the lock.
func (p *Projection) deriveStatus() {
	if !p.modeKnown {
		return
	}
	p.status = room.DeriveStatus(p.mode, len(p.players), p.status, p.multiCapacity)
}

// markStarted transitions out of the waiting view exactly once.
// Caller holds the lock; the returned callback runs outside it.
func (p *Projection) markStarted() func() {
	p.status = models.RoomStatusPlaying
	if p.started {
		return nil
	}
	p.started = true
	return p.OnGameStarted
}

// markLeft records the terminal not-in-room signal exactly once.
// Caller holds the lock; the returned callback runs outside it.
func (p *Projection) markLeft() func() {
	if p.left {
		return nil
	}
	p.left = true
	return p.OnLeftRoom
}

// Snapshot returns a copy of the projected state.
func (p *Projection) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	players := make([]models.Player, len(p.players))
	copy(players, p.players)

	return State{
		InRoom:    !p.left,
		Players:   players,
		PlayMode:  p.mode,
		ModeKnown: p.modeKnown,
		Status:    p.status,
		Timer:     p.timer,
		Started:   p.started,
	}
}
