package backend

import (
	"context"
	"log"
	"sync"

	"github.com/roceb/sonicrust/backend/mediaprovider"
)

const libraryChannelCapacity = 4

// StartLibraryLoad launches the background catalog load and returns the
// channel its messages arrive on. The load runs in two phases: a quick
// initial fetch covering the catalog structure plus the songs of the
// first few albums (one LibraryLoaded message), then the remaining
// albums' songs in fixed-size batches (one SongsAppended message each).
// The channel is closed when the load finishes; cancel ctx to abandon
// an in-flight load.
func StartLibraryLoad(ctx context.Context, provider mediaprovider.MediaProvider, firstPageSize, batchSize int) <-chan LibraryMessage {
	ch := make(chan LibraryMessage, libraryChannelCapacity)
	go func() {
		defer close(ch)
		runLibraryLoad(ctx, provider, firstPageSize, batchSize, ch)
	}()
	return ch
}

func runLibraryLoad(ctx context.Context, provider mediaprovider.MediaProvider, firstPageSize, batchSize int, ch chan<- LibraryMessage) {
	var (
		firstAlbums []mediaprovider.Album
		allAlbums   []mediaprovider.Album
		artists     []mediaprovider.Artist
		playlists   []mediaprovider.Playlist
		favorites   []mediaprovider.Track
	)
	errs := make([]error, 5)

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		defer wg.Done()
		firstAlbums, errs[0] = provider.GetAlbumsPage(0, firstPageSize)
	}()
	go func() {
		defer wg.Done()
		artists, errs[1] = provider.GetArtists()
	}()
	go func() {
		defer wg.Done()
		allAlbums, errs[2] = provider.GetAlbums()
	}()
	go func() {
		defer wg.Done()
		playlists, errs[3] = provider.GetPlaylists()
	}()
	go func() {
		defer wg.Done()
		favorites, errs[4] = provider.GetFavorites()
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			log.Printf("library load failed: %v", err)
			send(ctx, ch, LoadError{Message: err.Error()})
			return
		}
	}

	songs := fetchAlbumSongs(provider, firstAlbums)
	if !send(ctx, ch, LibraryLoaded{
		Songs:     songs,
		Artists:   artists,
		Albums:    allAlbums,
		Playlists: playlists,
		Favorites: favorites,
	}) {
		return
	}

	remaining := allAlbums
	if len(remaining) > len(firstAlbums) {
		remaining = remaining[len(firstAlbums):]
	} else {
		remaining = nil
	}
	for start := 0; start < len(remaining); start += batchSize {
		end := min(start+batchSize, len(remaining))
		batch := fetchAlbumSongs(provider, remaining[start:end])
		if !send(ctx, ch, SongsAppended{Songs: batch}) {
			return
		}
	}
}

// fetchAlbumSongs fetches each album's tracks concurrently, preserving
// album order. A failed album contributes nothing; the rest still load.
func fetchAlbumSongs(provider mediaprovider.MediaProvider, albums []mediaprovider.Album) []mediaprovider.Track {
	results := make([][]mediaprovider.Track, len(albums))
	var wg sync.WaitGroup
	for i, al := range albums {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			tracks, err := provider.GetAlbumTracks(id)
			if err != nil {
				log.Printf("skipping album %s: %v", id, err)
				return
			}
			results[i] = tracks
		}(i, al.ID)
	}
	wg.Wait()

	var songs []mediaprovider.Track
	for _, tracks := range results {
		songs = append(songs, tracks...)
	}
	return songs
}

func send(ctx context.Context, ch chan<- LibraryMessage, msg LibraryMessage) bool {
	select {
	case ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
