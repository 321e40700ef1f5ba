package main

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/search"
	"github.com/desertthunder/ytplay/internal/services"
	"github.com/desertthunder/ytplay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Search runs one query through the search pipeline and prints the settled results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := shared.NormalizeQuery(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	if utf8.RuneCountInString(query) < search.MinQueryLength {
		return fmt.Errorf("%w: query must be at least %d characters", shared.ErrInvalidArgument, search.MinQueryLength)
	}

	catalog := services.NewCatalogService(r.config.Catalog.BaseURL, r.httpClient)
	pipeline := search.NewPipeline(catalog, r.config.Catalog.Debounce, r.config.Catalog.SearchTimeout, r.logger)
	defer pipeline.Close()

	updates, cancel := pipeline.Subscribe()
	defer cancel()

	pipeline.Input(query)

	results, err := awaitSettled(ctx, updates)
	if err != nil {
		return err
	}

	tracks := results.Tracks
	if limit := int(cmd.Int("limit")); limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}
	return r.writeTracks(fmt.Sprintf("Results for %q (%d)", results.Query, len(tracks)), tracks)
}

func awaitSettled(ctx context.Context, updates <-chan models.SearchResults) (models.SearchResults, error) {
	for {
		select {
		case res, ok := <-updates:
			if !ok {
				return models.SearchResults{}, fmt.Errorf("search pipeline closed")
			}
			if res.Phase == models.SearchSettled {
				return res, nil
			}
		case <-ctx.Done():
			return models.SearchResults{}, ctx.Err()
		}
	}
}

// Stream prints the stream location of a track.
func (r *Runner) Stream(ctx context.Context, cmd *cli.Command) error {
	catalog := services.NewCatalogService(r.config.Catalog.BaseURL, r.httpClient)
	src, err := catalog.StreamURL(models.Track{URL: cmd.StringArg("url")})
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", src)
}

func (r *Runner) writeTracks(title string, tracks []models.Track) error {
	r.writePlainHeader(title)
	if len(tracks) == 0 {
		return r.writePlain("No tracks\n")
	}
	for i, t := range tracks {
		if err := r.writePlain("%d. %s - %s\n   %s\n", i+1, t.Artist, t.Title, t.URL); err != nil {
			return err
		}
	}
	return nil
}
