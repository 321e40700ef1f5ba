// Package repositories implements SQLite persistence for the user library.
//
// The schema follows the persistence contract of the client core: profiles, liked_songs, user_playlists and playlist_songs.
// Songs are stored as serialized tracks in song_data columns; membership lookups filter on the track url inside that JSON.
//
// Key Implementations:
//   - [ProfileRepository] : profile rows keyed by the auth subject id
//   - [LikedSongRepository] : per-user liked songs with toggle semantics
//   - [PlaylistRepository] : user playlists and their ordered songs
//   - [LibraryBackend] : adapter exposing the repositories as the library store's backend
//
// Sequence numbers record creation order independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table counters in dedicated sequence tables.
package repositories
