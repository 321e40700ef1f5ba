package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytplay/internal/formatter"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
	"github.com/urfave/cli/v3"
)

func trackFromFlags(cmd *cli.Command) models.Track {
	return models.Track{
		URL:      cmd.StringArg("url"),
		Title:    cmd.String("title"),
		Artist:   cmd.String("artist"),
		CoverURL: cmd.String("cover"),
	}
}

// LibraryLiked lists the liked tracks.
func (r *Runner) LibraryLiked(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.gate.Authorize(); err != nil {
		return err
	}

	liked := c.store.Snapshot().LikedTracks
	if cmd.Bool("json") {
		return r.writeJSON(liked, true)
	}
	return r.writeTracks(fmt.Sprintf("Liked Songs (%d)", len(liked)), liked)
}

// LibraryLike toggles the like on a track.
func (r *Runner) LibraryLike(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	track := trackFromFlags(cmd)
	liked, err := c.store.ToggleLike(ctx, track)
	if err != nil {
		return err
	}

	if liked {
		return r.writePlain("♥ Liked %s\n", track.URL)
	}
	return r.writePlain("♡ Unliked %s\n", track.URL)
}

// LibraryPlaylists lists the playlists in creation order.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.gate.Authorize(); err != nil {
		return err
	}

	playlists := c.store.Snapshot().PlaylistList()
	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		if err := r.writePlain("%s  %s (%d tracks)\n", p.ID, p.Name, len(p.Tracks)); err != nil {
			return err
		}
	}
	return nil
}

// LibraryCreate creates an empty playlist.
func (r *Runner) LibraryCreate(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	p, err := c.store.CreatePlaylist(ctx, cmd.StringArg("name"), cmd.String("cover"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created playlist %s (%s)\n", p.Name, p.ID)
}

// LibraryDelete deletes a playlist and its tracks.
func (r *Runner) LibraryDelete(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if err := c.store.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted playlist %s\n", id)
}

// LibraryAdd appends a track to a playlist.
func (r *Runner) LibraryAdd(ctx context.Context, cmd *cli.Command) error {
	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	track := trackFromFlags(cmd)
	if err := c.store.AddSongToPlaylist(ctx, id, track); err != nil {
		return err
	}
	return r.writePlain("✓ Added %s to %s\n", track.URL, id)
}

// LibraryExport renders a playlist or the liked tracks to stdout or a file.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	c, err := r.openCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.gate.Authorize(); err != nil {
		return err
	}

	var playlist models.Playlist
	if id := cmd.String("playlist"); id == formatter.LikedPlaylistID {
		playlist = formatter.LikedPlaylist(c.store.Snapshot().LikedTracks)
	} else {
		p, ok := c.store.Playlist(id)
		if !ok {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
		}
		playlist = p
	}

	output := cmd.String("output")
	switch {
	case output == "":
		return formatter.Render(r.output, playlist, format)
	case format == formatter.FormatMarkdown:
		result, err := formatter.WriteMarkdownExport(ctx, playlist, output, r.httpClient, r.logger)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %s to %s\n", playlist.Name, result.Directory)
	default:
		path, err := formatter.WriteExport(playlist, format, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %s to %s\n", playlist.Name, path)
	}
}
