package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// PlaylistRepository persists user_playlists rows and their playlist_songs.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist for the user with a generated ID and sequence.
//
// The returned playlist has no tracks.
func (r *PlaylistRepository) Create(ctx context.Context, userID, name, image string) (*models.Playlist, error) {
	playlist := &models.Playlist{ID: shared.GenerateID(), Name: name, CoverURL: image, Tracks: []models.Track{}}
	if err := playlist.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "user_playlists")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO user_playlists (id, sequence, user_id, name, image, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, playlist.ID, sequence, userID, name, image, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to insert playlist: %w", err)
	}

	return playlist, nil
}

// Delete removes a user's playlist and, through the foreign key cascade, its songs
func (r *PlaylistRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_playlists WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return nil
}

// AddSong appends a track to the end of a user's playlist. The same track may be added more than once.
func (r *PlaylistRepository) AddSong(ctx context.Context, userID, playlistID string, track models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	data, err := encodeSong(track)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var owned bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_playlists WHERE id = ? AND user_id = ?)`, playlistID, userID,
	).Scan(&owned)
	if err != nil {
		return fmt.Errorf("failed to query playlist: %w", err)
	}
	if !owned {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	sequence, err := nextSequenceTx(ctx, tx, "playlist_songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `INSERT INTO playlist_songs (id, sequence, playlist_id, song_data, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, shared.GenerateID(), sequence, playlistID, data, time.Now()); err != nil {
		return fmt.Errorf("failed to insert playlist song: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist song: %w", err)
	}

	return nil
}

// List retrieves the user's playlists in creation order, each with its songs in insertion order
func (r *PlaylistRepository) List(ctx context.Context, userID string) ([]models.Playlist, error) {
	query := `
		SELECT p.id, p.name, p.image, s.song_data
		FROM user_playlists p
		LEFT JOIN playlist_songs s ON s.playlist_id = p.id
		WHERE p.user_id = ?
		ORDER BY p.sequence ASC, s.sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	index := map[string]int{}
	for rows.Next() {
		var (
			id       string
			name     string
			image    string
			songData sql.NullString
		)

		if err := rows.Scan(&id, &name, &image, &songData); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}

		i, ok := index[id]
		if !ok {
			i = len(playlists)
			index[id] = i
			playlists = append(playlists, models.Playlist{ID: id, Name: name, CoverURL: image, Tracks: []models.Track{}})
		}

		if songData.Valid {
			track, err := decodeSong(songData.String)
			if err != nil {
				return nil, err
			}
			playlists[i].Tracks = append(playlists[i].Tracks, track)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}
