package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// LikedSongRepository persists a user's liked songs in liked_songs.
type LikedSongRepository struct {
	db *sql.DB
}

// NewLikedSongRepository creates a new [LikedSongRepository] with the given database connection
func NewLikedSongRepository(db *sql.DB) *LikedSongRepository {
	return &LikedSongRepository{db: db}
}

// List returns the user's liked tracks, most recently liked first
func (r *LikedSongRepository) List(ctx context.Context, userID string) ([]models.Track, error) {
	query := `
		SELECT song_data
		FROM liked_songs
		WHERE user_id = ?
		ORDER BY sequence DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked songs: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan liked song: %w", err)
		}

		track, err := decodeSong(data)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Exists reports whether the user has liked the track url
func (r *LikedSongRepository) Exists(ctx context.Context, userID, url string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM liked_songs WHERE user_id = ? AND json_extract(song_data, '$.url') = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, url).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query liked song: %w", err)
	}
	return exists, nil
}

// Toggle deletes the liked row for the track url if one exists, otherwise inserts it.
//
// Returns whether the track is liked after the write.
func (r *LikedSongRepository) Toggle(ctx context.Context, userID string, track models.Track) (bool, error) {
	if err := track.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM liked_songs WHERE user_id = ? AND json_extract(song_data, '$.url') = ? LIMIT 1`,
		userID, track.URL,
	).Scan(&existingID)

	var liked bool
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM liked_songs WHERE user_id = ? AND json_extract(song_data, '$.url') = ?`,
			userID, track.URL,
		); err != nil {
			return false, fmt.Errorf("failed to delete liked song: %w", err)
		}
		liked = false
	case errors.Is(err, sql.ErrNoRows):
		if err := r.insert(ctx, tx, userID, track); err != nil {
			return false, err
		}
		liked = true
	default:
		return false, fmt.Errorf("failed to query liked song: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit like toggle: %w", err)
	}

	return liked, nil
}

func (r *LikedSongRepository) insert(ctx context.Context, tx *sql.Tx, userID string, track models.Track) error {
	sequence, err := nextSequenceTx(ctx, tx, "liked_songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	data, err := encodeSong(track)
	if err != nil {
		return err
	}

	query := `INSERT INTO liked_songs (id, sequence, user_id, song_data, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, shared.GenerateID(), sequence, userID, data, time.Now()); err != nil {
		return fmt.Errorf("failed to insert liked song: %w", err)
	}

	return nil
}
