package subsonic

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/roceb/sonicrust/backend/mediaprovider"
	"github.com/roceb/sonicrust/sharedutil"
	"github.com/supersonic-app/go-subsonic/subsonic"
)

const (
	// Server-defined ordering used for both the paged and the full album fetch,
	// so that the loader's "remaining albums" skip lines up with the first page.
	albumListOrder = "alphabeticalByArtist"

	albumFetchPageSize = 500
)

type subsonicProvider struct {
	client *subsonic.Client
}

var _ mediaprovider.MediaProvider = (*subsonicProvider)(nil)

// Connect authenticates against a Subsonic-compatible server and returns
// a MediaProvider backed by it.
func Connect(httpClient *http.Client, hostname, username, password, clientName string) (mediaprovider.MediaProvider, error) {
	cli := &subsonic.Client{
		Client:     httpClient,
		BaseUrl:    hostname,
		User:       username,
		ClientName: clientName,
	}
	if err := cli.Authenticate(password); err != nil {
		return nil, fmt.Errorf("authenticating to %s: %w", hostname, err)
	}
	return &subsonicProvider{client: cli}, nil
}

func (s *subsonicProvider) GetAlbumsPage(offset, size int) ([]mediaprovider.Album, error) {
	als, err := s.client.GetAlbumList2(albumListOrder, map[string]string{
		"size":   strconv.Itoa(size),
		"offset": strconv.Itoa(offset),
	})
	if err != nil {
		return nil, err
	}
	return sharedutil.MapSlice(als, toAlbum), nil
}

func (s *subsonicProvider) GetAlbums() ([]mediaprovider.Album, error) {
	var albums []mediaprovider.Album
	for offset := 0; ; offset += albumFetchPageSize {
		page, err := s.GetAlbumsPage(offset, albumFetchPageSize)
		if err != nil {
			return nil, err
		}
		albums = append(albums, page...)
		if len(page) < albumFetchPageSize {
			return albums, nil
		}
	}
}

func (s *subsonicProvider) GetArtists() ([]mediaprovider.Artist, error) {
	idxs, err := s.client.GetArtists(map[string]string{})
	if err != nil {
		return nil, err
	}
	var artists []mediaprovider.Artist
	for _, idx := range idxs.Index {
		for _, ar := range idx.Artist {
			artists = append(artists, mediaprovider.Artist{
				ID:         ar.ID,
				Name:       ar.Name,
				AlbumCount: ar.AlbumCount,
			})
		}
	}
	return artists, nil
}

func (s *subsonicProvider) GetPlaylists() ([]mediaprovider.Playlist, error) {
	pls, err := s.client.GetPlaylists(map[string]string{})
	if err != nil {
		return nil, err
	}
	return sharedutil.MapSlice(pls, func(pl *subsonic.Playlist) mediaprovider.Playlist {
		return mediaprovider.Playlist{
			ID:         pl.ID,
			Name:       pl.Name,
			TrackCount: pl.SongCount,
			Duration:   time.Duration(pl.Duration) * time.Second,
		}
	}), nil
}

func (s *subsonicProvider) GetFavorites() ([]mediaprovider.Track, error) {
	fav, err := s.client.GetStarred2(map[string]string{})
	if err != nil {
		return nil, err
	}
	return sharedutil.MapSlice(fav.Song, s.toTrack), nil
}

func (s *subsonicProvider) GetAlbumTracks(albumID string) ([]mediaprovider.Track, error) {
	al, err := s.client.GetAlbum(albumID)
	if err != nil {
		return nil, err
	}
	tracks := sharedutil.MapSlice(al.Song, s.toTrack)
	for i := range tracks {
		if tracks[i].AlbumArtist == "" {
			tracks[i].AlbumArtist = al.Artist
		}
	}
	return tracks, nil
}

func (s *subsonicProvider) GetArtistAlbums(artistID string) ([]mediaprovider.Album, error) {
	ar, err := s.client.GetArtist(artistID)
	if err != nil {
		return nil, err
	}
	return sharedutil.MapSlice(ar.Album, toAlbum), nil
}

func (s *subsonicProvider) GetPlaylistTracks(playlistID string) ([]mediaprovider.Track, error) {
	pl, err := s.client.GetPlaylist(playlistID)
	if err != nil {
		return nil, err
	}
	return sharedutil.MapSlice(pl.Entry, s.toTrack), nil
}

func (s *subsonicProvider) SearchTracks(query string) ([]mediaprovider.Track, error) {
	if query == "" {
		return nil, nil
	}
	res, err := s.client.Search3(query, map[string]string{})
	if err != nil {
		return nil, err
	}
	return sharedutil.MapSlice(res.Song, s.toTrack), nil
}

func (s *subsonicProvider) GetStreamURL(trackID string) (string, error) {
	u, err := s.client.GetStreamURL(trackID, map[string]string{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *subsonicProvider) TrackBeganPlayback(trackID string) error {
	return s.client.Scrobble(trackID, map[string]string{"submission": "false"})
}

func (s *subsonicProvider) TrackEndedPlayback(trackID string, submission bool) error {
	return s.client.Scrobble(trackID, map[string]string{
		"time":       strconv.FormatInt(time.Now().UnixMilli(), 10),
		"submission": strconv.FormatBool(submission),
	})
}

func (s *subsonicProvider) toTrack(ch *subsonic.Child) mediaprovider.Track {
	if ch == nil {
		return mediaprovider.Track{}
	}
	var genres []string
	if ch.Genre != "" {
		genres = []string{ch.Genre}
	}
	return mediaprovider.Track{
		ID:          ch.ID,
		Title:       ch.Title,
		Artist:      ch.Artist,
		Album:       ch.Album,
		CoverArtURL: s.coverArtURL(ch.CoverArt),
		Duration:    time.Duration(ch.Duration) * time.Second,
		TrackNumber: ch.Track,
		PlayCount:   int(ch.PlayCount),
		Genres:      genres,
	}
}

func toAlbum(al *subsonic.AlbumID3) mediaprovider.Album {
	if al == nil {
		return mediaprovider.Album{}
	}
	return mediaprovider.Album{
		ID:     al.ID,
		Name:   al.Name,
		Artist: al.Artist,
	}
}

// coverArtURL builds a getCoverArt reference for metadata consumers.
// Cover-art fetching/caching itself is handled elsewhere.
func (s *subsonicProvider) coverArtURL(coverArtID string) string {
	if coverArtID == "" {
		return ""
	}
	u, err := url.Parse(s.client.BaseUrl)
	if err != nil {
		return ""
	}
	u = u.JoinPath("rest", "getCoverArt")
	q := u.Query()
	q.Set("id", coverArtID)
	q.Set("c", s.client.ClientName)
	u.RawQuery = q.Encode()
	return u.String()
}
