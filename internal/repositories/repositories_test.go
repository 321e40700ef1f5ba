package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

var (
	trackA = models.Track{URL: "https://music.example.com/a", Title: "Song A", Artist: "Artist A", CoverURL: "https://img.example.com/a.jpg"}
	trackB = models.Track{URL: "https://music.example.com/b", Title: "Song B", Artist: "Artist B"}
	trackC = models.Track{URL: "https://music.example.com/c", Title: "Song C", Artist: "Artist C"}
)

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	first, err := NextSequence(ctx, db, "user_playlists")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(ctx, db, "user_playlists")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}

	if second != first+1 {
		t.Errorf("expected consecutive sequences, got %d then %d", first, second)
	}

	if _, err := NextSequence(ctx, db, "missing"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create & Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewProfileRepository(db)
		profile := &models.Profile{ID: "user-1", Username: "listener", AvatarURL: "https://img.example.com/me.png"}

		if err := repo.Create(ctx, profile); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}

		retrieved, err := repo.Get(ctx, "user-1")
		if err != nil {
			t.Fatalf("failed to get profile: %v", err)
		}
		if *retrieved != *profile {
			t.Errorf("expected %+v, got %+v", profile, retrieved)
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewProfileRepository(db).Get(ctx, "nobody")
		if !errors.Is(err, shared.ErrProfileNotFound) {
			t.Fatalf("expected ErrProfileNotFound, got %v", err)
		}
	})

	t.Run("Create ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if err := NewProfileRepository(db).Create(ctx, &models.Profile{ID: "user-1"}); err == nil {
			t.Fatal("expected validation error for empty username")
		}
	})

	t.Run("Create Duplicate", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewProfileRepository(db)
		if err := repo.Create(ctx, &models.Profile{ID: "user-1", Username: "one"}); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}
		if err := repo.Create(ctx, &models.Profile{ID: "user-1", Username: "two"}); err == nil {
			t.Fatal("expected error for duplicate profile id")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewProfileRepository(db)
		if err := repo.Create(ctx, &models.Profile{ID: "user-1", Username: "one"}); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}

		if err := repo.Update(ctx, &models.Profile{ID: "user-1", Username: "renamed"}); err != nil {
			t.Fatalf("failed to update profile: %v", err)
		}

		retrieved, _ := repo.Get(ctx, "user-1")
		if retrieved.Username != "renamed" {
			t.Errorf("expected renamed username, got %s", retrieved.Username)
		}

		err := repo.Update(ctx, &models.Profile{ID: "user-2", Username: "ghost"})
		if !errors.Is(err, shared.ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
	})
}

func TestLikedSongRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Toggle inserts then deletes", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewLikedSongRepository(db)

		liked, err := repo.Toggle(ctx, "user-1", trackA)
		if err != nil {
			t.Fatalf("failed to toggle: %v", err)
		}
		if !liked {
			t.Error("expected first toggle to like the track")
		}

		exists, err := repo.Exists(ctx, "user-1", trackA.URL)
		if err != nil {
			t.Fatalf("failed to check existence: %v", err)
		}
		if !exists {
			t.Error("expected liked row to exist")
		}

		liked, err = repo.Toggle(ctx, "user-1", trackA)
		if err != nil {
			t.Fatalf("failed to toggle: %v", err)
		}
		if liked {
			t.Error("expected second toggle to unlike the track")
		}

		if exists, _ := repo.Exists(ctx, "user-1", trackA.URL); exists {
			t.Error("expected liked row to be gone")
		}
	})

	t.Run("List newest first", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewLikedSongRepository(db)
		for _, tr := range []models.Track{trackA, trackB, trackC} {
			if _, err := repo.Toggle(ctx, "user-1", tr); err != nil {
				t.Fatalf("failed to toggle: %v", err)
			}
		}

		tracks, err := repo.List(ctx, "user-1")
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}

		if len(tracks) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(tracks))
		}
		if tracks[0] != trackC || tracks[2] != trackA {
			t.Errorf("expected newest first, got %+v", tracks)
		}
	})

	t.Run("Scoped per user", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewLikedSongRepository(db)
		repo.Toggle(ctx, "user-1", trackA)

		tracks, err := repo.List(ctx, "user-2")
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(tracks) != 0 {
			t.Errorf("expected no tracks for other user, got %d", len(tracks))
		}

		liked, _ := repo.Toggle(ctx, "user-2", trackA)
		if !liked {
			t.Error("expected other user's toggle to insert")
		}
	})

	t.Run("Toggle ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewLikedSongRepository(db).Toggle(ctx, "user-1", models.Track{Title: "no url"}); err == nil {
			t.Fatal("expected validation error for track without url")
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create & List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		first, err := repo.Create(ctx, "user-1", "Road Trip", "https://img.example.com/road.jpg")
		if err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if first.ID == "" {
			t.Error("playlist ID should be set after creation")
		}
		second, _ := repo.Create(ctx, "user-1", "Focus", "")

		if err := repo.AddSong(ctx, "user-1", first.ID, trackB); err != nil {
			t.Fatalf("failed to add song: %v", err)
		}
		if err := repo.AddSong(ctx, "user-1", first.ID, trackA); err != nil {
			t.Fatalf("failed to add song: %v", err)
		}
		if err := repo.AddSong(ctx, "user-1", first.ID, trackB); err != nil {
			t.Fatalf("failed to add duplicate song: %v", err)
		}

		playlists, err := repo.List(ctx, "user-1")
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}

		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].ID != first.ID || playlists[1].ID != second.ID {
			t.Errorf("expected creation order, got %s then %s", playlists[0].Name, playlists[1].Name)
		}

		got := playlists[0].Tracks
		if len(got) != 3 || got[0] != trackB || got[1] != trackA || got[2] != trackB {
			t.Errorf("expected insertion order with duplicate, got %+v", got)
		}
		if playlists[1].Tracks == nil || len(playlists[1].Tracks) != 0 {
			t.Errorf("expected empty non-nil track list, got %+v", playlists[1].Tracks)
		}
	})

	t.Run("Create ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewPlaylistRepository(db).Create(ctx, "user-1", "   ", ""); err == nil {
			t.Fatal("expected validation error for blank name")
		}
	})

	t.Run("Delete cascades songs", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		p, _ := repo.Create(ctx, "user-1", "Temp", "")
		repo.AddSong(ctx, "user-1", p.ID, trackA)

		if err := repo.Delete(ctx, "user-1", p.ID); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}

		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM playlist_songs WHERE playlist_id = ?`, p.ID).Scan(&count); err != nil {
			t.Fatalf("failed to count songs: %v", err)
		}
		if count != 0 {
			t.Errorf("expected songs to be removed with playlist, got %d", count)
		}
	})

	t.Run("Ownership", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		p, _ := repo.Create(ctx, "user-1", "Mine", "")

		if err := repo.Delete(ctx, "user-2", p.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound deleting another user's playlist, got %v", err)
		}
		if err := repo.AddSong(ctx, "user-2", p.ID, trackA); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound adding to another user's playlist, got %v", err)
		}
		if err := repo.Delete(ctx, "user-1", "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound for unknown playlist, got %v", err)
		}
	})
}

func TestLibraryBackend(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	backend := NewLibraryBackend(db)

	if _, err := backend.GetProfile(ctx, "user-1"); !errors.Is(err, shared.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if err := backend.CreateProfile(ctx, models.Profile{ID: "user-1", Username: "me"}); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	liked, err := backend.ToggleLike(ctx, "user-1", trackA)
	if err != nil || !liked {
		t.Fatalf("expected like, got %v %v", liked, err)
	}

	p, err := backend.CreatePlaylist(ctx, "user-1", "Mix", "")
	if err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}
	if err := backend.AddSongToPlaylist(ctx, "user-1", p.ID, trackC); err != nil {
		t.Fatalf("failed to add song: %v", err)
	}

	tracks, _ := backend.LikedTracks(ctx, "user-1")
	playlists, _ := backend.Playlists(ctx, "user-1")
	if len(tracks) != 1 || len(playlists) != 1 || len(playlists[0].Tracks) != 1 {
		t.Errorf("unexpected library contents: %+v %+v", tracks, playlists)
	}

	if err := backend.DeletePlaylist(ctx, "user-1", p.ID); err != nil {
		t.Fatalf("failed to delete playlist: %v", err)
	}
}
