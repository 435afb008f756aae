package gateway

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/bolsagame/bolsa/go/internal/models"
	"github.com/bolsagame/bolsa/go/internal/room"
	"github.com/bolsagame/bolsa/go/internal/room/events"
)

// RoomService is what the command router needs from the room registry.
type RoomService interface {
	SnapshotForPlayer(playerID string) (room.Snapshot, error)
	StartSinglePlayer(ctx context.Context, roomID, playerID string) (room.Snapshot, error)
}

// CommandRouter turns client commands into registry calls and sends the
// snapshot replies. Replies go to the requesting connection only;
// registry errors are surfaced the same way, never broadcast.
type CommandRouter struct {
	rooms   RoomService
	manager *ConnectionManager
}

// NewCommandRouter creates a command router.
func NewCommandRouter(rooms RoomService, manager *ConnectionManager) *CommandRouter {
	return &CommandRouter{rooms: rooms, manager: manager}
}

// HandleCommand routes one client command.
func (cr *CommandRouter) HandleCommand(ctx context.Context, conn *Connection, cmd events.ClientCommand) {
	switch cmd.Type {
	case events.CommandCheckRoomStatus:
		cr.handleCheckRoomStatus(conn)

	case events.CommandRequestRoundState:
		cr.handleRequestRoundState(conn)

	case events.CommandStartSinglePlayerGame:
		cr.handleStartSinglePlayerGame(ctx, conn)

	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("command", string(cmd.Type)).
			Msg("unknown client command - ignoring")
	}
}

// handleCheckRoomStatus answers with the full resync snapshot. The
// reply is sent even when nothing changed since the client
// disconnected, and always carries the play mode when inRoom is true —
// the client cannot recover from its absence.
func (cr *CommandRouter) handleCheckRoomStatus(conn *Connection) {
	snap, err := cr.rooms.SnapshotForPlayer(conn.UserID)
	if err != nil {
		if !errors.Is(err, room.ErrNotInRoom) {
			log.Error().Err(err).Str("user_id", conn.UserID).Msg("failed to resolve room status")
		}
		cr.reply(conn, conn.RoomID, events.EventTypeRoomStatus, events.RoomStatusPayload{InRoom: false})
		return
	}

	mode := snap.PlayMode
	cr.reply(conn, snap.RoomID, events.EventTypeRoomStatus, events.RoomStatusPayload{
		InRoom:      true,
		PlayersList: snap.Players,
		PlayMode:    &mode,
	})
}

// handleRequestRoundState answers with the authoritative status and,
// while starting, the live remaining countdown.
func (cr *CommandRouter) handleRequestRoundState(conn *Connection) {
	snap, err := cr.rooms.SnapshotForPlayer(conn.UserID)
	if err != nil {
		cr.reply(conn, conn.RoomID, events.EventTypeRoomStatus, events.RoomStatusPayload{InRoom: false})
		return
	}

	payload := events.RoundStatePayload{Status: snap.Status}
	if snap.Status == models.RoomStatusStarting {
		timer := snap.CountdownRemaining
		payload.Timer = &timer
	}
	cr.reply(conn, snap.RoomID, events.EventTypeRoundState, payload)
}

// handleStartSinglePlayerGame issues the explicit start command. On
// rejection the client gets a fresh roundState instead of an error
// payload: the authoritative snapshot is the error surface, and it
// corrects whatever stale view prompted the command.
func (cr *CommandRouter) handleStartSinglePlayerGame(ctx context.Context, conn *Connection) {
	_, err := cr.rooms.StartSinglePlayer(ctx, conn.RoomID, conn.UserID)
	if err == nil {
		// Accepted; roundState starting and the first countdown tick
		// arrive through the broadcast path.
		return
	}

	log.Warn().
		Err(err).
		Str("room_id", conn.RoomID).
		Str("user_id", conn.UserID).
		Msg("startSinglePlayerGame rejected")

	cr.handleRequestRoundState(conn)
}

func (cr *CommandRouter) reply(conn *Connection, roomID string, eventType events.EventType, payload any) {
	ev, err := events.New(roomID, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build reply event")
		return
	}
	ev.TargetUserID = conn.UserID
	cr.manager.SendToConnection(conn, ev)
}
