package backend

import "github.com/roceb/sonicrust/backend/mediaprovider"

// Library is the in-memory catalog assembled by the background loader.
type Library struct {
	Tracks    []mediaprovider.Track
	Favorites []mediaprovider.Track
	Artists   []mediaprovider.Artist
	Albums    []mediaprovider.Album
	Playlists []mediaprovider.Playlist
}

// LibraryMessage is sent by the background library loader to the
// orchestrator. Exactly one of LibraryLoaded or LoadError arrives
// first; SongsAppended messages follow LibraryLoaded only.
type LibraryMessage interface {
	libraryMessage()
}

// LibraryLoaded carries the initial catalog: all artists, albums,
// playlists and favorites, plus the songs of the first few albums.
type LibraryLoaded struct {
	Songs     []mediaprovider.Track
	Artists   []mediaprovider.Artist
	Albums    []mediaprovider.Album
	Playlists []mediaprovider.Playlist
	Favorites []mediaprovider.Track
}

// SongsAppended carries a batch of songs from the remaining albums.
type SongsAppended struct {
	Songs []mediaprovider.Track
}

// LoadError reports that the initial load failed. No further
// messages follow it.
type LoadError struct {
	Message string
}

func (LibraryLoaded) libraryMessage() {}
func (SongsAppended) libraryMessage() {}
func (LoadError) libraryMessage()     {}
