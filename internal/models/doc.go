// Package models defines the domain entities shared by the ytplay client core.
//
// The package contains three groups of types:
//
// 1. Catalog and library entities
//   - [Track] : a playable song identified solely by its URL
//   - [Playlist] : an ordered, persistence-identified collection of tracks
//   - [Profile] : the relational mirror of an authenticated identity
//   - [LibrarySnapshot] : liked tracks (newest first) and playlists keyed by id
//
// 2. Session types
//   - [ProviderSession] and [SessionEvent] : what the identity provider emits
//   - [Session] and [SessionState] : what the session gate derives from those events
//
// 3. Observable component state
//   - [PlaybackState] and [TransportState] : the playback engine
//   - [SearchResults] and [SearchPhase] : the search pipeline
//
// Track identity is load-bearing everywhere: liked-state lookup, playlist membership and queue
// advancement all compare [Track.URL] through [Track.Same].
package models
