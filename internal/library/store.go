// package library owns the signed-in user's liked songs and playlists.
//
// [Store] applies like toggles optimistically and rolls them back when persistence fails.
// Playlist changes are persisted first and applied locally only on success.
// All mutations are checked against a [Guard] before anything changes.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Backend persists the library for a user.
type Backend interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile models.Profile) error
	LikedTracks(ctx context.Context, userID string) ([]models.Track, error)
	ToggleLike(ctx context.Context, userID string, track models.Track) (bool, error)
	Playlists(ctx context.Context, userID string) ([]models.Playlist, error)
	CreatePlaylist(ctx context.Context, userID, name, coverURL string) (models.Playlist, error)
	DeletePlaylist(ctx context.Context, userID, playlistID string) error
	AddSongToPlaylist(ctx context.Context, userID, playlistID string, track models.Track) error
}

// Guard decides whether the library may be mutated and names the user it is scoped to.
type Guard interface {
	Authorize() error
	UserID() string
}

// Store holds the library snapshot and mediates every change to it.
type Store struct {
	backend Backend
	guard   Guard
	timeout time.Duration
	logger  *log.Logger
	hub     *shared.Hub[models.LibrarySnapshot]

	mu       sync.Mutex
	epoch    uint64
	userID   string
	snapshot models.LibrarySnapshot
	inflight map[string]struct{}
}

// NewStore creates an empty [Store]. A non-positive timeout leaves backend calls unbounded.
func NewStore(b Backend, g Guard, timeout time.Duration, logger *log.Logger) *Store {
	return &Store{
		backend:  b,
		guard:    g,
		timeout:  timeout,
		logger:   shared.WithLogger(logger, "component", "library"),
		hub:      shared.NewHub[models.LibrarySnapshot](),
		snapshot: models.NewLibrarySnapshot(nil, nil),
		inflight: map[string]struct{}{},
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// persistenceError wraps a backend failure, marking deadline expiry as a timeout.
func persistenceError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", shared.ErrPersistence, op, shared.ErrTimeout)
	}
	return fmt.Errorf("%w: %s: %w", shared.ErrPersistence, op, err)
}

// Sync loads the library for the session's user, creating the user's profile when missing.
//
// The result is discarded when [Store.Reset] runs while loading, the guard no longer authorizes,
// or the guard's session now belongs to another user.
func (s *Store) Sync(ctx context.Context, ps models.ProviderSession) error {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		liked     []models.Track
		playlists []models.Playlist
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.ensureProfile(gctx, ps)
		return nil
	})
	g.Go(func() error {
		tracks, err := s.backend.LikedTracks(gctx, ps.UserID)
		if err != nil {
			return persistenceError("load liked tracks", err)
		}
		liked = tracks
		return nil
	})
	g.Go(func() error {
		lists, err := s.backend.Playlists(gctx, ps.UserID)
		if err != nil {
			return persistenceError("load playlists", err)
		}
		playlists = lists
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("library sync failed", "user", ps.UserID, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || s.guard.Authorize() != nil || s.guard.UserID() != ps.UserID {
		s.logger.Debug("discarding stale library sync", "user", ps.UserID, "session_user", s.guard.UserID())
		return nil
	}

	s.epoch++
	s.userID = ps.UserID
	s.snapshot = models.NewLibrarySnapshot(liked, playlists)
	s.inflight = map[string]struct{}{}
	s.publish()

	s.logger.Info("library synced", "user", ps.UserID, "liked", len(liked), "playlists", len(playlists))
	return nil
}

// ensureProfile creates the profile row when absent. Failures are logged and otherwise ignored.
func (s *Store) ensureProfile(ctx context.Context, ps models.ProviderSession) {
	_, err := s.backend.GetProfile(ctx, ps.UserID)
	if err == nil {
		return
	}
	if !errors.Is(err, shared.ErrProfileNotFound) {
		s.logger.Warn("profile lookup failed", "user", ps.UserID, "error", err)
		return
	}

	profile := DefaultProfile(ps)
	if err := s.backend.CreateProfile(ctx, profile); err != nil {
		s.logger.Warn("profile creation failed", "user", ps.UserID, "error", err)
		return
	}
	s.logger.Debug("profile created", "user", ps.UserID, "username", profile.Username)
}

// DefaultProfile builds the profile for a new identity: the metadata username, else the email local part, else "user".
func DefaultProfile(ps models.ProviderSession) models.Profile {
	username := strings.TrimSpace(ps.Metadata.Username)
	if username == "" {
		if local, _, ok := strings.Cut(ps.Email, "@"); ok && local != "" {
			username = local
		}
	}
	if username == "" {
		username = "user"
	}
	return models.Profile{ID: ps.UserID, Username: username, AvatarURL: ps.Metadata.AvatarURL}
}

// Reset empties the library and invalidates any work still in flight.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.userID = ""
	s.snapshot = models.NewLibrarySnapshot(nil, nil)
	s.inflight = map[string]struct{}{}
	s.publish()
}

// authorize returns the current epoch and user once the guard allows mutation. Caller holds s.mu.
func (s *Store) authorize() (uint64, string, error) {
	if err := s.guard.Authorize(); err != nil {
		return 0, "", err
	}
	if s.userID == "" {
		return 0, "", fmt.Errorf("%w: library not synced", shared.ErrAuthRequired)
	}
	return s.epoch, s.userID, nil
}

// ToggleLike flips whether track is liked and returns the persisted membership.
//
// The change is visible to readers before the backend is called. On failure it is reverted
// and [shared.ErrPersistence] is returned. A toggle for a URL that already has one in flight
// is rejected with [shared.ErrToggleInFlight].
func (s *Store) ToggleLike(ctx context.Context, track models.Track) (bool, error) {
	s.mu.Lock()
	epoch, userID, err := s.authorize()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if err := track.Validate(); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}
	if _, busy := s.inflight[track.URL]; busy {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", shared.ErrToggleInFlight, track.URL)
	}
	s.inflight[track.URL] = struct{}{}

	original := models.IndexOf(s.snapshot.LikedTracks, track)
	optimistic := original < 0
	if optimistic {
		s.snapshot.LikedTracks = append([]models.Track{track}, s.snapshot.LikedTracks...)
	} else {
		s.snapshot.LikedTracks = removeTrack(s.snapshot.LikedTracks, track)
	}
	s.publish()
	s.mu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	liked, err := s.backend.ToggleLike(ctx, userID, track)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		s.logger.Debug("ignoring like toggle from previous session", "url", track.URL)
		if err != nil {
			return false, persistenceError("toggle like", err)
		}
		return liked, nil
	}
	delete(s.inflight, track.URL)

	if err != nil {
		s.snapshot.LikedTracks = removeTrack(s.snapshot.LikedTracks, track)
		if !optimistic {
			s.snapshot.LikedTracks = insertTrack(s.snapshot.LikedTracks, original, track)
		}
		s.publish()
		s.logger.Warn("like toggle failed, reverted", "url", track.URL, "error", err)
		return !optimistic, persistenceError("toggle like", err)
	}

	if liked != optimistic {
		s.logger.Warn("like state diverged from backend", "url", track.URL, "liked", liked)
		s.snapshot.LikedTracks = removeTrack(s.snapshot.LikedTracks, track)
		if liked {
			s.snapshot.LikedTracks = append([]models.Track{track}, s.snapshot.LikedTracks...)
		}
		s.publish()
	}
	return liked, nil
}

// CreatePlaylist persists a new empty playlist and adds it to the library.
func (s *Store) CreatePlaylist(ctx context.Context, name, coverURL string) (models.Playlist, error) {
	s.mu.Lock()
	epoch, userID, err := s.authorize()
	s.mu.Unlock()
	if err != nil {
		return models.Playlist{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, fmt.Errorf("%w: playlist name is required", shared.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	p, err := s.backend.CreatePlaylist(ctx, userID, name, coverURL)
	if err != nil {
		return models.Playlist{}, persistenceError("create playlist", err)
	}
	if p.Tracks == nil {
		p.Tracks = []models.Track{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.snapshot.PutPlaylist(p.Clone())
		s.publish()
	}
	return p.Clone(), nil
}

// DeletePlaylist removes a playlist remotely, then locally.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	s.mu.Lock()
	epoch, userID, err := s.authorize()
	if err == nil {
		if _, ok := s.snapshot.Playlists[id]; !ok {
			err = fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.backend.DeletePlaylist(ctx, userID, id); err != nil {
		return persistenceError("delete playlist", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.snapshot.RemovePlaylist(id)
		s.publish()
	}
	return nil
}

// AddSongToPlaylist appends track to a playlist remotely, then locally. Duplicates are kept.
func (s *Store) AddSongToPlaylist(ctx context.Context, id string, track models.Track) error {
	s.mu.Lock()
	epoch, userID, err := s.authorize()
	if err == nil {
		if _, ok := s.snapshot.Playlists[id]; !ok {
			err = fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := track.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.backend.AddSongToPlaylist(ctx, userID, id, track); err != nil {
		return persistenceError("add song to playlist", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	if p, ok := s.snapshot.Playlists[id]; ok {
		p = p.Clone()
		p.Tracks = append(p.Tracks, track)
		s.snapshot.PutPlaylist(p)
		s.publish()
	}
	return nil
}

// Snapshot returns a deep copy of the library.
func (s *Store) Snapshot() models.LibrarySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Contains reports whether track is currently liked.
func (s *Store) Contains(track models.Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Contains(track)
}

// Playlist returns a copy of the playlist with the given id.
func (s *Store) Playlist(id string) (models.Playlist, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.snapshot.Playlists[id]
	if !ok {
		return models.Playlist{}, false
	}
	return p.Clone(), true
}

// UserID returns the user whose library is loaded, or "".
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Subscribe streams library snapshots after every change.
func (s *Store) Subscribe() (<-chan models.LibrarySnapshot, func()) {
	return s.hub.Subscribe()
}

// publish sends a copy of the snapshot to subscribers. Caller holds s.mu.
func (s *Store) publish() {
	s.hub.Publish(s.snapshot.Clone())
}

func removeTrack(tracks []models.Track, t models.Track) []models.Track {
	out := make([]models.Track, 0, len(tracks))
	for _, tr := range tracks {
		if !tr.Same(t) {
			out = append(out, tr)
		}
	}
	return out
}

func insertTrack(tracks []models.Track, i int, t models.Track) []models.Track {
	if i < 0 || i > len(tracks) {
		i = len(tracks)
	}
	out := make([]models.Track, 0, len(tracks)+1)
	out = append(out, tracks[:i]...)
	out = append(out, t)
	return append(out, tracks[i:]...)
}
