package repositories

import (
	"context"
	"database/sql"

	"github.com/desertthunder/ytplay/internal/models"
)

// LibraryBackend implements library.Backend on top of the SQLite repositories.
type LibraryBackend struct {
	profiles  *ProfileRepository
	liked     *LikedSongRepository
	playlists *PlaylistRepository
}

// NewLibraryBackend creates a [LibraryBackend] whose repositories share db.
func NewLibraryBackend(db *sql.DB) *LibraryBackend {
	return &LibraryBackend{
		profiles:  NewProfileRepository(db),
		liked:     NewLikedSongRepository(db),
		playlists: NewPlaylistRepository(db),
	}
}

func (b *LibraryBackend) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return b.profiles.Get(ctx, userID)
}

func (b *LibraryBackend) CreateProfile(ctx context.Context, profile models.Profile) error {
	return b.profiles.Create(ctx, &profile)
}

func (b *LibraryBackend) LikedTracks(ctx context.Context, userID string) ([]models.Track, error) {
	return b.liked.List(ctx, userID)
}

func (b *LibraryBackend) ToggleLike(ctx context.Context, userID string, track models.Track) (bool, error) {
	return b.liked.Toggle(ctx, userID, track)
}

func (b *LibraryBackend) Playlists(ctx context.Context, userID string) ([]models.Playlist, error) {
	return b.playlists.List(ctx, userID)
}

func (b *LibraryBackend) CreatePlaylist(ctx context.Context, userID, name, coverURL string) (models.Playlist, error) {
	p, err := b.playlists.Create(ctx, userID, name, coverURL)
	if err != nil {
		return models.Playlist{}, err
	}
	return *p, nil
}

func (b *LibraryBackend) DeletePlaylist(ctx context.Context, userID, playlistID string) error {
	return b.playlists.Delete(ctx, userID, playlistID)
}

func (b *LibraryBackend) AddSongToPlaylist(ctx context.Context, userID, playlistID string, track models.Track) error {
	return b.playlists.AddSong(ctx, userID, playlistID, track)
}
