package mediaprovider

// MediaProvider is the catalog client contract consumed by the playback
// orchestrator and the background library loader. Every call is fallible
// and may block on the network; callers must treat failures as local to
// the operation that raised them.
type MediaProvider interface {
	// GetAlbumsPage returns up to size albums starting at offset,
	// in a stable server-defined order.
	GetAlbumsPage(offset, size int) ([]Album, error)

	// GetAlbums returns the full album list in the same order
	// GetAlbumsPage pages through.
	GetAlbums() ([]Album, error)

	GetArtists() ([]Artist, error)

	GetPlaylists() ([]Playlist, error)

	// GetFavorites returns the user's starred tracks.
	GetFavorites() ([]Track, error)

	GetAlbumTracks(albumID string) ([]Track, error)

	GetArtistAlbums(artistID string) ([]Album, error)

	GetPlaylistTracks(playlistID string) ([]Track, error)

	SearchTracks(query string) ([]Track, error)

	// GetStreamURL resolves a streaming locator for the given track.
	GetStreamURL(trackID string) (string, error)

	// TrackBeganPlayback reports a "now playing" scrobble.
	TrackBeganPlayback(trackID string) error

	// TrackEndedPlayback reports that playback of the track ended.
	// submission is true when the play should count as a completed listen.
	TrackEndedPlayback(trackID string, submission bool) error
}
