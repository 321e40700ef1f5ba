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

// ProfileRepository persists [models.Profile] rows.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new [ProfileRepository] with the given database connection
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a profile. The id must already be set to the auth subject id.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO profiles (id, username, avatar_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, profile.ID, profile.Username, profile.AvatarURL, now, now); err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	return nil
}

// Get retrieves a profile by id. Returns [shared.ErrProfileNotFound] when absent.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT id, username, avatar_url FROM profiles WHERE id = ?`

	var profile models.Profile
	err := r.db.QueryRowContext(ctx, query, id).Scan(&profile.ID, &profile.Username, &profile.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	return &profile, nil
}

// Update modifies the username and avatar of an existing profile
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `UPDATE profiles SET username = ?, avatar_url = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, profile.Username, profile.AvatarURL, time.Now(), profile.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrProfileNotFound, profile.ID)
	}

	return nil
}
