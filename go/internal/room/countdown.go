package room

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/bolsagame/bolsa/go/internal/models"
	"github.com/bolsagame/bolsa/go/internal/room/events"
)

// scheduleReadyDelay arms the ready->starting transition of a full
// multi room. Caller holds the lock. If a player leaves inside the
// window, Leave bumps the generation and the fire becomes a no-op.
func (r *Registry) scheduleReadyDelay(ctx context.Context, rs *roomState) {
	delay := time.Duration(r.cfg.ReadyDelaySeconds) * time.Second
	r.replaceTimer(rs, delay, func() {
		if rs.room.Status != models.RoomStatusReady {
			return
		}
		r.beginCountdown(ctx, rs)
	})
}

// beginCountdown moves a room into starting and arms the first tick.
// The countdown always starts from the configured initial value; a
// room that was cancelled and re-filled never resumes a stale one.
// Caller holds the lock.
func (r *Registry) beginCountdown(ctx context.Context, rs *roomState) {
	rs.room.Status = models.RoomStatusStarting
	rs.room.CountdownRemaining = r.cfg.CountdownSeconds
	rs.room.UpdatedAt = r.clock.Now()

	r.emitRoundState(ctx, rs)
	r.emit(ctx, rs.room.ID, events.EventTypeGameStartCountdown,
		events.GameStartCountdownPayload(rs.room.CountdownRemaining), "")

	log.Info().
		Str("room_id", rs.room.ID).
		Int("countdown", rs.room.CountdownRemaining).
		Msg("countdown started")

	r.scheduleTick(ctx, rs)
}

// scheduleTick arms the next one-second tick. Caller holds the lock.
func (r *Registry) scheduleTick(ctx context.Context, rs *roomState) {
	r.replaceTimer(rs, time.Second, func() {
		r.tick(ctx, rs)
	})
}

// tick advances the countdown by one unit. On reaching zero the room
// transitions to playing, gameStarted is broadcast and the game engine
// is signaled to begin round 1. Caller holds the lock.
func (r *Registry) tick(ctx context.Context, rs *roomState) {
	if rs.room.Status != models.RoomStatusStarting {
		return
	}

	rs.room.CountdownRemaining--
	rs.room.UpdatedAt = r.clock.Now()
	r.emit(ctx, rs.room.ID, events.EventTypeGameStartCountdown,
		events.GameStartCountdownPayload(rs.room.CountdownRemaining), "")

	if rs.room.CountdownRemaining > 0 {
		r.scheduleTick(ctx, rs)
		return
	}

	rs.room.Status = models.RoomStatusPlaying
	r.cancelTimer(rs)
	r.emit(ctx, rs.room.ID, events.EventTypeGameStarted, nil, "")

	log.Info().
		Str("room_id", rs.room.ID).
		Int("players", len(rs.room.Players)).
		Msg("game started")

	if r.engine != nil {
		snap := rs.snapshot()
		params := r.cfg.Game
		go func() {
			if err := r.engine.BeginGame(context.WithoutCancel(ctx), snap, params); err != nil {
				log.Error().Err(err).Str("room_id", snap.RoomID).Msg("game engine failed to begin game")
			}
		}()
	}
}

// replaceTimer atomically replaces the room's timer, cancelling any
// existing one first so a fire scheduled before the replacement can
// never slip through. Caller holds the lock; fire runs with the lock
// held after re-validating the generation.
func (r *Registry) replaceTimer(rs *roomState, d time.Duration, fire func()) {
	r.cancelTimer(rs)
	gen := rs.timerGen

	timer := r.clock.NewTimer(d)
	cancel := make(chan struct{})
	rs.timer = timer
	rs.timerCancel = cancel

	go func() {
		select {
		case <-timer.Chan():
			r.mu.Lock()
			defer r.mu.Unlock()
			if cur, ok := r.rooms[rs.room.ID]; !ok || cur != rs || rs.timerGen != gen {
				// Cancelled or replaced while the fire was in flight.
				return
			}
			fire()
		case <-cancel:
		case <-r.done:
			stopAndDrainTimer(timer)
		}
	}()
}

// cancelTimer cancels the room's pending timer, if any. Idempotent.
// Caller holds the lock.
func (r *Registry) cancelTimer(rs *roomState) {
	rs.timerGen++
	if rs.timer != nil {
		stopAndDrainTimer(rs.timer)
		close(rs.timerCancel)
		rs.timer = nil
		rs.timerCancel = nil
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel, per
// the time.Timer.Stop documentation, to avoid leaking a fired value.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
