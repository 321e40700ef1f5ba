package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// CatalogSong is a single entry of a catalog search response.
type CatalogSong struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail"`
}

// CatalogSearchResponse is the body of a mode=search request.
type CatalogSearchResponse struct {
	Songs []CatalogSong `json:"songs"`
}

// Track converts the catalog entry into a [models.Track].
func (s CatalogSong) Track() models.Track {
	return models.Track{URL: s.URL, Title: s.Title, Artist: s.Artist, CoverURL: s.Thumbnail}
}

// CatalogService queries the remote search/stream endpoint.
type CatalogService struct {
	baseURL    string
	httpClient *http.Client
}

// NewCatalogService creates a catalog client for the endpoint at baseURL.
func NewCatalogService(baseURL string, client *http.Client) *CatalogService {
	if client == nil {
		client = http.DefaultClient
	}

	return &CatalogService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

func (c *CatalogService) endpoint(target, mode string) string {
	q := url.Values{}
	q.Set("url", target)
	q.Set("mode", mode)
	return c.baseURL + "?" + q.Encode()
}

// Search returns the catalog's tracks for query in response order.
func (c *CatalogService) Search(ctx context.Context, query string) ([]models.Track, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(query, "search"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: search returned status %d: %s", shared.ErrNetwork, resp.StatusCode, string(body))
	}

	var result CatalogSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode search response: %w", shared.ErrNetwork, err)
	}

	tracks := make([]models.Track, 0, len(result.Songs))
	for _, s := range result.Songs {
		tracks = append(tracks, s.Track())
	}
	return tracks, nil
}

// StreamURL returns the stream location for track.
func (c *CatalogService) StreamURL(track models.Track) (string, error) {
	if track.URL == "" {
		return "", fmt.Errorf("%w: track url is required", shared.ErrValidation)
	}
	return c.endpoint(track.URL, "stream"), nil
}
