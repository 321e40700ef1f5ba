// package models defines the data model for the ytplay client core
package models

import (
	"fmt"
	"strings"
)

// Track is a playable song. URL is the global identity key: two tracks are the same entity iff their URLs match.
//
// The JSON form is what persistence stores as song_data.
type Track struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"coverUrl,omitempty"`
}

// Same reports whether t and o are the same track.
func (t Track) Same(o Track) bool {
	return t.URL == o.URL
}

// Validate checks that the track carries its identity key.
func (t Track) Validate() error {
	if strings.TrimSpace(t.URL) == "" {
		return fmt.Errorf("track url is required")
	}
	return nil
}

// IndexOf returns the position of the first track in tracks with the same URL as t, or -1.
func IndexOf(tracks []Track, t Track) int {
	for i, tr := range tracks {
		if tr.Same(t) {
			return i
		}
	}
	return -1
}

// Playlist is a user-owned, ordered collection of tracks.
//
// ID is assigned by persistence on creation and never changes. Tracks keep insertion order and may repeat.
type Playlist struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	CoverURL string  `json:"coverUrl"`
	Tracks   []Track `json:"tracks"`
}

// Validate checks that the playlist has a non-blank name.
func (p Playlist) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("playlist name is required")
	}
	return nil
}

// Clone returns a copy of p that shares no slice memory with it.
func (p Playlist) Clone() Playlist {
	p.Tracks = append([]Track{}, p.Tracks...)
	return p
}

// Profile is the relational mirror of an identity; ID equals the auth subject id.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Validate checks the required profile fields.
func (p Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if strings.TrimSpace(p.Username) == "" {
		return fmt.Errorf("profile username is required")
	}
	return nil
}

// LibrarySnapshot is the authenticated user's library as seen by readers.
type LibrarySnapshot struct {
	LikedTracks []Track             // most-recently-liked first
	Playlists   map[string]Playlist // keyed by id
	order       []string
}

// NewLibrarySnapshot builds a snapshot from liked tracks and playlists, keeping playlists in the given order.
func NewLibrarySnapshot(liked []Track, playlists []Playlist) LibrarySnapshot {
	s := LibrarySnapshot{
		LikedTracks: append([]Track{}, liked...),
		Playlists:   make(map[string]Playlist, len(playlists)),
		order:       make([]string, 0, len(playlists)),
	}
	for _, p := range playlists {
		s.PutPlaylist(p)
	}
	return s
}

// Contains reports whether t is among the liked tracks.
func (s LibrarySnapshot) Contains(t Track) bool {
	return IndexOf(s.LikedTracks, t) >= 0
}

// PutPlaylist inserts or replaces a playlist. New playlists are appended to the iteration order.
func (s *LibrarySnapshot) PutPlaylist(p Playlist) {
	if s.Playlists == nil {
		s.Playlists = map[string]Playlist{}
	}
	if _, ok := s.Playlists[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.Playlists[p.ID] = p
}

// RemovePlaylist deletes a playlist by id.
func (s *LibrarySnapshot) RemovePlaylist(id string) {
	if _, ok := s.Playlists[id]; !ok {
		return
	}
	delete(s.Playlists, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// PlaylistList returns the playlists in creation order.
func (s LibrarySnapshot) PlaylistList() []Playlist {
	out := make([]Playlist, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.Playlists[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Clone returns a deep copy of the snapshot.
func (s LibrarySnapshot) Clone() LibrarySnapshot {
	c := LibrarySnapshot{
		LikedTracks: append([]Track{}, s.LikedTracks...),
		Playlists:   make(map[string]Playlist, len(s.Playlists)),
		order:       append([]string{}, s.order...),
	}
	for id, p := range s.Playlists {
		c.Playlists[id] = p.Clone()
	}
	return c
}
