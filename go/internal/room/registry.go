package room

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/bolsagame/bolsa/go/internal/models"
	"github.com/bolsagame/bolsa/go/internal/room/events"
)

// roomState is the registry's mutable view of one room. The embedded
// timer drives both the ready-delay and the countdown ticks; timerGen
// invalidates fires scheduled before a cancellation.
type roomState struct {
	room        models.Room
	timer       clockwork.Timer
	timerCancel chan struct{}
	timerGen    uint64
}

// Registry owns every active room. Mutations serialize on one mutex:
// each mutation fully completes — state update plus event publication —
// before the next acquires the lock, which gives clients the strict
// per-room event order the protocol promises. When scaled across
// processes, a room must be owned by exactly one registry (sticky
// routing by room id); the event bus handles the fan-out.
type Registry struct {
	mu         sync.Mutex
	rooms      map[string]*roomState
	playerRoom map[string]string // player id -> room id

	cfg       Config
	clock     clockwork.Clock
	publisher EventPublisher
	engine    GameEngine

	done chan struct{}
}

// NewRegistry creates a registry. A nil clock means the real clock.
func NewRegistry(cfg Config, publisher EventPublisher, engine GameEngine, clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.MultiCapacity <= 0 {
		cfg.MultiCapacity = DefaultConfig().MultiCapacity
	}
	if cfg.CountdownSeconds <= 0 {
		cfg.CountdownSeconds = DefaultConfig().CountdownSeconds
	}
	if !cfg.DefaultPlayMode.Valid() {
		cfg.DefaultPlayMode = models.PlayModeMulti
	}
	return &Registry{
		rooms:      make(map[string]*roomState),
		playerRoom: make(map[string]string),
		cfg:        cfg,
		clock:      clock,
		publisher:  publisher,
		engine:     engine,
		done:       make(chan struct{}),
	}
}

// Close cancels every pending timer goroutine. Rooms are not drained;
// Close is for process shutdown only.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	for _, rs := range r.rooms {
		r.cancelTimer(rs)
	}
}

// CreateRoom registers an empty waiting room in the given mode. This is
// the matchmaking entry point; rooms can also be created implicitly by
// the first Join.
func (r *Registry) CreateRoom(ctx context.Context, roomID string, mode models.PlayMode) (Snapshot, error) {
	if !mode.Valid() {
		return Snapshot{}, ErrInvalidMode
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; exists {
		return Snapshot{}, ErrRoomExists
	}

	rs := r.newRoom(roomID, mode)

	log.Info().
		Str("room_id", roomID).
		Str("play_mode", string(mode)).
		Msg("room created")

	return rs.snapshot(), nil
}

// Join adds a player to a room, creating the room in the default mode
// when it does not exist yet. Capacity is checked under the lock, so
// when two joins race for the last slot acceptance is
// first-committed-wins and the loser gets ErrRoomFull.
func (r *Registry) Join(ctx context.Context, roomID string, player models.Player) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, joined := r.playerRoom[player.ID]; joined {
		return Snapshot{}, ErrAlreadyJoined
	}

	rs, exists := r.rooms[roomID]
	if !exists {
		rs = r.newRoom(roomID, r.cfg.DefaultPlayMode)
	}

	if len(rs.room.Players) >= rs.room.PlayMode.Capacity(r.cfg.MultiCapacity) {
		if rs.room.PlayMode == models.PlayModeSingle {
			return Snapshot{}, ErrInvalidMode
		}
		return Snapshot{}, ErrRoomFull
	}

	rs.room.Players = append(rs.room.Players, player)
	rs.room.UpdatedAt = r.clock.Now()
	r.playerRoom[player.ID] = roomID

	r.emit(ctx, roomID, events.EventTypePlayerJoined, events.PlayerJoinedPayload{
		Players:  rs.playersCopy(),
		PlayMode: &rs.room.PlayMode,
	}, "")

	prev := rs.room.Status
	rs.room.Status = DeriveStatus(rs.room.PlayMode, len(rs.room.Players), prev, r.cfg.MultiCapacity)
	if rs.room.Status != prev {
		r.emitRoundState(ctx, rs)
		if rs.room.Status == models.RoomStatusReady {
			r.scheduleReadyDelay(ctx, rs)
		}
	}

	log.Info().
		Str("room_id", roomID).
		Str("player_id", player.ID).
		Int("players", len(rs.room.Players)).
		Str("status", string(rs.room.Status)).
		Msg("player joined")

	return rs.snapshot(), nil
}

// Leave removes a player. An emptied room is destroyed. A departure
// from a ready or starting multi room demotes it to waiting; the
// countdown is cancelled synchronously under the lock, so the reversion
// is broadcast before any further tick can fire.
func (r *Registry) Leave(ctx context.Context, roomID string, playerID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, exists := r.rooms[roomID]
	if !exists {
		return Snapshot{}, ErrRoomNotFound
	}

	idx := -1
	for i, p := range rs.room.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Snapshot{}, ErrNotInRoom
	}

	rs.room.Players = append(rs.room.Players[:idx], rs.room.Players[idx+1:]...)
	rs.room.UpdatedAt = r.clock.Now()
	delete(r.playerRoom, playerID)

	if len(rs.room.Players) == 0 {
		r.cancelTimer(rs)
		delete(r.rooms, roomID)
		log.Info().Str("room_id", roomID).Msg("room destroyed, last player left")
		return rs.snapshot(), nil
	}

	r.emit(ctx, roomID, events.EventTypePlayersUpdate, events.PlayersUpdatePayload(rs.playersCopy()), "")

	prev := rs.room.Status
	rs.room.Status = DeriveStatus(rs.room.PlayMode, len(rs.room.Players), prev, r.cfg.MultiCapacity)
	if rs.room.Status != prev {
		// Reverted out of ready or starting: kill the pending
		// ready-delay or countdown before anything else observes it.
		r.cancelTimer(rs)
		rs.room.CountdownRemaining = 0
		r.emitRoundState(ctx, rs)
	}

	log.Info().
		Str("room_id", roomID).
		Str("player_id", playerID).
		Int("players", len(rs.room.Players)).
		Str("status", string(rs.room.Status)).
		Msg("player left")

	return rs.snapshot(), nil
}

// SetPlayMode changes a room's mode. The mode is immutable once any
// player has joined.
func (r *Registry) SetPlayMode(ctx context.Context, roomID string, mode models.PlayMode) (Snapshot, error) {
	if !mode.Valid() {
		return Snapshot{}, ErrInvalidMode
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rs, exists := r.rooms[roomID]
	if !exists {
		rs = r.newRoom(roomID, mode)
	} else {
		if len(rs.room.Players) > 0 {
			return Snapshot{}, ErrModeLocked
		}
		rs.room.PlayMode = mode
		rs.room.UpdatedAt = r.clock.Now()
	}

	r.emit(ctx, roomID, events.EventTypeRoomPlayMode, events.RoomPlayModePayload{PlayMode: mode}, "")

	return rs.snapshot(), nil
}

// MarkReady sets a player's explicit ready flag. In single mode this is
// the only way the flag is ever set; it is never inferred from room
// fullness.
func (r *Registry) MarkReady(ctx context.Context, roomID string, playerID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, exists := r.rooms[roomID]
	if !exists {
		return Snapshot{}, ErrRoomNotFound
	}

	found := false
	for i := range rs.room.Players {
		if rs.room.Players[i].ID == playerID {
			rs.room.Players[i].IsReady = true
			found = true
			break
		}
	}
	if !found {
		return Snapshot{}, ErrNotInRoom
	}
	rs.room.UpdatedAt = r.clock.Now()

	r.emit(ctx, roomID, events.EventTypePlayersUpdate, events.PlayersUpdatePayload(rs.playersCopy()), "")

	return rs.snapshot(), nil
}

// StartSinglePlayer begins the countdown of a single room. Only valid
// in single mode while waiting; a second invocation finds the room
// already starting and is rejected.
func (r *Registry) StartSinglePlayer(ctx context.Context, roomID string, playerID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, exists := r.rooms[roomID]
	if !exists {
		return Snapshot{}, ErrRoomNotFound
	}
	if r.playerRoom[playerID] != roomID {
		return Snapshot{}, ErrNotInRoom
	}
	if rs.room.PlayMode != models.PlayModeSingle || rs.room.Status != models.RoomStatusWaiting {
		return Snapshot{}, ErrInvalidCommand
	}

	r.beginCountdown(ctx, rs)

	log.Info().
		Str("room_id", roomID).
		Str("player_id", playerID).
		Msg("single player game start requested")

	return rs.snapshot(), nil
}

// DestroyRoom removes a room and its player index entries. The engine
// boundary calls this when a completed game hands its players off.
// Destroying an unknown room is a no-op.
func (r *Registry) DestroyRoom(ctx context.Context, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, exists := r.rooms[roomID]
	if !exists {
		return
	}
	r.cancelTimer(rs)
	for _, p := range rs.room.Players {
		delete(r.playerRoom, p.ID)
	}
	delete(r.rooms, roomID)

	log.Info().Str("room_id", roomID).Msg("room destroyed")
}

// Snapshot returns the full current state of a room.
func (r *Registry) Snapshot(roomID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, exists := r.rooms[roomID]
	if !exists {
		return Snapshot{}, ErrRoomNotFound
	}
	return rs.snapshot(), nil
}

// SnapshotForPlayer returns the state of the room the player is in.
// This is the resync path: it answers even when nothing changed since
// the player disconnected, and the reply always carries the play mode.
func (r *Registry) SnapshotForPlayer(playerID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, joined := r.playerRoom[playerID]
	if !joined {
		return Snapshot{}, ErrNotInRoom
	}
	rs, exists := r.rooms[roomID]
	if !exists {
		// Index out of sync with the room map; treat as not in a room.
		delete(r.playerRoom, playerID)
		return Snapshot{}, ErrNotInRoom
	}
	return rs.snapshot(), nil
}

// newRoom registers a fresh waiting room. Caller holds the lock.
func (r *Registry) newRoom(roomID string, mode models.PlayMode) *roomState {
	now := r.clock.Now()
	rs := &roomState{
		room: models.Room{
			ID:        roomID,
			PlayMode:  mode,
			Status:    models.RoomStatusWaiting,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	r.rooms[roomID] = rs
	return rs
}

// emit publishes one canonical event for a mutation. Caller holds the
// lock; publish failures are logged, never propagated — a lost
// broadcast is recovered by the client's next snapshot request.
func (r *Registry) emit(ctx context.Context, roomID string, eventType events.EventType, payload any, targetUserID string) {
	ev, err := events.New(roomID, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	ev.TargetUserID = targetUserID
	if err := r.publisher.Publish(ctx, ev); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Str("event_type", string(eventType)).Msg("failed to publish event")
	}
}

// emitRoundState broadcasts the room's current status and timer.
func (r *Registry) emitRoundState(ctx context.Context, rs *roomState) {
	payload := events.RoundStatePayload{Status: rs.room.Status}
	if rs.room.Status == models.RoomStatusStarting {
		timer := rs.room.CountdownRemaining
		payload.Timer = &timer
	}
	r.emit(ctx, rs.room.ID, events.EventTypeRoundState, payload, "")
}

func (rs *roomState) playersCopy() []models.Player {
	players := make([]models.Player, len(rs.room.Players))
	copy(players, rs.room.Players)
	return players
}

func (rs *roomState) snapshot() Snapshot {
	return Snapshot{
		RoomID:             rs.room.ID,
		PlayMode:           rs.room.PlayMode,
		Players:            rs.playersCopy(),
		Status:             rs.room.Status,
		CountdownRemaining: rs.room.CountdownRemaining,
	}
}
