package results

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bolsagame/bolsa/go/internal/models"
	"github.com/bolsagame/bolsa/go/internal/room"
)

// Recorder receives rooms from the registry at game start and writes a
// result row for each. It is the registry's engine hook; the actual
// market simulation consumes the row downstream.
type Recorder struct {
	repo *Repository
}

// NewRecorder creates a recorder backed by the repository.
func NewRecorder(repo *Repository) *Recorder {
	return &Recorder{repo: repo}
}

// BeginGame records the room roster at the moment the countdown hit
// zero. The snapshot is immutable from the registry's point of view, so
// there is no race with further room mutations.
func (r *Recorder) BeginGame(ctx context.Context, snap room.Snapshot, params models.GameParams) error {
	playerIDs := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		playerIDs = append(playerIDs, p.ID)
	}

	result := models.GameResult{
		ID:        uuid.New(),
		RoomID:    snap.RoomID,
		PlayMode:  snap.PlayMode,
		PlayerIDs: playerIDs,
		StartedAt: time.Now().UTC(),
	}

	if err := r.repo.InsertGameStart(ctx, result); err != nil {
		return err
	}

	log.Info().
		Str("room_id", snap.RoomID).
		Str("play_mode", string(snap.PlayMode)).
		Int("players", len(playerIDs)).
		Int("rounds", params.Rounds).
		Msg("game start recorded")
	return nil
}
