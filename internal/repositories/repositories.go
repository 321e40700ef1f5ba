// package repositories provides SQLite persistence for the library tables.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/ytplay/internal/models"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers record creation order (newest liked song first, playlists and playlist songs in insertion order).
func NextSequence(ctx context.Context, db *sql.DB, table string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequenceTx(ctx, tx, table)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// nextSequenceTx increments the sequence for table inside an open transaction.
func nextSequenceTx(ctx context.Context, tx *sql.Tx, table string) (int, error) {
	sequenceTable := table + "_sequence"

	_, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	return sequence, nil
}

// encodeSong serializes a track into the song_data column format.
func encodeSong(track models.Track) (string, error) {
	data, err := json.Marshal(track)
	if err != nil {
		return "", fmt.Errorf("failed to encode song data: %w", err)
	}
	return string(data), nil
}

// decodeSong parses a song_data column value.
func decodeSong(data string) (models.Track, error) {
	var track models.Track
	if err := json.Unmarshal([]byte(data), &track); err != nil {
		return models.Track{}, fmt.Errorf("failed to decode song data: %w", err)
	}
	return track, nil
}
