package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bolsagame/bolsa/go/internal/models"
)

// ErrResultNotFound is returned when no game result exists for a room.
var ErrResultNotFound = errors.New("game result not found")

// Repository persists game results in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a game result repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertGameStart records the hand-off of a room to the game engine.
func (r *Repository) InsertGameStart(ctx context.Context, result models.GameResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO game_results (id, room_id, play_mode, player_ids, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		result.ID, result.RoomID, string(result.PlayMode), result.PlayerIDs, result.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert game start: %w", err)
	}
	return nil
}

// CompleteGame stamps a result row when the engine reports the game
// finished.
func (r *Repository) CompleteGame(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE game_results SET completed_at = $2 WHERE id = $1`,
		id, completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to complete game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrResultNotFound
	}
	return nil
}

// GetLatestForRoom returns the most recent result row for a room.
func (r *Repository) GetLatestForRoom(ctx context.Context, roomID string) (*models.GameResult, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, room_id, play_mode, player_ids, started_at, completed_at
		 FROM game_results
		 WHERE room_id = $1
		 ORDER BY started_at DESC
		 LIMIT 1`,
		roomID,
	)

	var result models.GameResult
	var playMode string
	if err := row.Scan(&result.ID, &result.RoomID, &playMode, &result.PlayerIDs, &result.StartedAt, &result.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get game result: %w", err)
	}
	result.PlayMode = models.PlayMode(playMode)

	return &result, nil
}
