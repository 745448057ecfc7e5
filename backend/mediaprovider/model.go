package mediaprovider

import (
	"slices"
	"time"
)

// Track is an immutable description of a playable song.
// Tracks have value semantics: they are cloned freely and never
// mutated in place once constructed from a server response.
type Track struct {
	ID          string
	Title       string
	Artist      string
	AlbumArtist string // optional; empty if the server did not report one
	Album       string
	CoverArtURL string // optional
	Duration    time.Duration
	TrackNumber int // optional; 0 if unknown
	PlayCount   int // optional; 0 if unknown
	Genres      []string
}

// Copy returns a deep copy of the track so that callers can maintain
// their own state without aliasing another view's model.
func (t Track) Copy() Track {
	cp := t
	cp.Genres = slices.Clone(t.Genres)
	return cp
}

type Album struct {
	ID     string
	Name   string
	Artist string
}

type Artist struct {
	ID         string
	Name       string
	AlbumCount int
}

type Playlist struct {
	ID         string
	Name       string
	TrackCount int
	Duration   time.Duration
}
