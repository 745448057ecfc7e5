package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/roceb/sonicrust/backend/mediaprovider"
)

func catalogProvider(albumCount, tracksPerAlbum int) *fakeProvider {
	prov := &fakeProvider{
		tracks:         map[string][]mediaprovider.Track{},
		albumTracksErr: map[string]error{},
	}
	for i := range albumCount {
		id := fmt.Sprintf("album-%d", i)
		prov.albums = append(prov.albums, mediaprovider.Album{ID: id, Name: id})
		for j := range tracksPerAlbum {
			prov.tracks[id] = append(prov.tracks[id], mediaprovider.Track{
				ID:    fmt.Sprintf("%s-track-%d", id, j),
				Album: id,
			})
		}
	}
	return prov
}

func collectMessages(t *testing.T, ch <-chan LibraryMessage) []LibraryMessage {
	t.Helper()
	var msgs []LibraryMessage
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return msgs
			}
			msgs = append(msgs, msg)
		case <-timeout:
			t.Fatal("timed out waiting for loader messages")
		}
	}
}

func TestLibraryLoad_TwoPhase(t *testing.T) {
	prov := catalogProvider(150, 2)

	ch := StartLibraryLoad(context.Background(), prov, 10, 100)
	msgs := collectMessages(t, ch)

	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages (Loaded + 2 batches), got %d", len(msgs))
	}

	loaded, ok := msgs[0].(LibraryLoaded)
	if !ok {
		t.Fatalf("Expected first message to be LibraryLoaded, got %T", msgs[0])
	}
	if len(loaded.Albums) != 150 {
		t.Errorf("Expected 150 albums in catalog, got %d", len(loaded.Albums))
	}
	// first phase covers albums 0-9 only
	if len(loaded.Songs) != 20 {
		t.Errorf("Expected 20 songs in first phase, got %d", len(loaded.Songs))
	}
	for _, s := range loaded.Songs {
		if s.Album == "album-10" {
			t.Error("First phase should not include songs past the first page")
		}
	}

	batch1, ok := msgs[1].(SongsAppended)
	if !ok {
		t.Fatalf("Expected second message to be SongsAppended, got %T", msgs[1])
	}
	if len(batch1.Songs) != 200 {
		t.Errorf("Expected first batch to cover 100 albums (200 songs), got %d", len(batch1.Songs))
	}

	batch2, ok := msgs[2].(SongsAppended)
	if !ok {
		t.Fatalf("Expected third message to be SongsAppended, got %T", msgs[2])
	}
	if len(batch2.Songs) != 80 {
		t.Errorf("Expected final batch to cover 40 albums (80 songs), got %d", len(batch2.Songs))
	}
}

func TestLibraryLoad_InitialFetchFailure(t *testing.T) {
	prov := catalogProvider(20, 1)
	prov.artistsErr = errors.New("server error")

	ch := StartLibraryLoad(context.Background(), prov, 10, 100)
	msgs := collectMessages(t, ch)

	if len(msgs) != 1 {
		t.Fatalf("Expected exactly one message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(LoadError); !ok {
		t.Errorf("Expected LoadError, got %T", msgs[0])
	}
}

func TestLibraryLoad_PerAlbumFailureTolerated(t *testing.T) {
	prov := catalogProvider(10, 2)
	prov.albumTracksErr["album-3"] = errors.New("not found")

	ch := StartLibraryLoad(context.Background(), prov, 10, 100)
	msgs := collectMessages(t, ch)

	if len(msgs) != 1 {
		t.Fatalf("Expected one Loaded message, got %d", len(msgs))
	}
	loaded, ok := msgs[0].(LibraryLoaded)
	if !ok {
		t.Fatalf("Expected LibraryLoaded, got %T", msgs[0])
	}
	// album-3 contributes nothing, the other 9 albums still load
	if len(loaded.Songs) != 18 {
		t.Errorf("Expected 18 songs with one failed album, got %d", len(loaded.Songs))
	}
}

func TestLibraryLoad_CancelStopsLoader(t *testing.T) {
	prov := catalogProvider(150, 1)

	ctx, cancel := context.WithCancel(context.Background())
	ch := StartLibraryLoad(ctx, prov, 10, 10)
	cancel()

	// with the receiver gone, the loader must exit once its channel
	// fills rather than block on sends forever. Give it time to run
	// into the full buffer, then confirm the channel was closed well
	// short of the 15 messages a full load would produce.
	time.Sleep(100 * time.Millisecond)
	var received int
	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if received >= 15 {
					t.Errorf("Expected loader to terminate early, saw %d messages", received)
				}
				return
			}
			received++
		case <-timeout:
			t.Fatal("loader did not terminate after cancellation")
		}
	}
}

func TestOrchestrator_DrainLibraryMessages(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	prov := catalogProvider(15, 2)
	o.provider = prov

	o.StartLibraryLoad(10, 100)
	waitFor(t, func() bool {
		o.Tick()
		return len(o.Library().Tracks) == 30
	})

	lib := o.Library()
	if len(lib.Albums) != 15 {
		t.Errorf("Expected 15 albums, got %d", len(lib.Albums))
	}

	// second call while results are in is a no-op (single flight already done,
	// channel closed and cleared)
	waitFor(t, func() bool {
		o.Tick()
		return o.libraryMsgs == nil
	})
}

func TestOrchestrator_PlayTrackFromLibrary(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	prov := catalogProvider(3, 2)
	o.provider = prov

	o.StartLibraryLoad(10, 100)
	waitFor(t, func() bool {
		o.Tick()
		return len(o.Library().Tracks) == 6
	})

	if err := o.PlayTrackFromLibrary("album-1-track-0"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := o.state.Read().Metadata.TrackID; got != "album-1-track-0" {
		t.Errorf("Expected album-1-track-0 playing, got %s", got)
	}

	if err := o.PlayTrackFromLibrary("nonexistent"); err == nil {
		t.Error("Expected error for unknown track ID")
	}
}

func TestOrchestrator_LibraryLoadErrorSetsNotification(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	prov := catalogProvider(5, 1)
	prov.albumsErr = errors.New("connection refused")
	o.provider = prov

	o.StartLibraryLoad(10, 100)
	waitFor(t, func() bool {
		o.Tick()
		return o.Notification() != ""
	})

	if o.libraryMsgs != nil {
		t.Error("Expected library channel cleared after load error")
	}
}
