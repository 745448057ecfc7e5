package backend

import (
	"encoding/base32"
	"errors"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
)

const (
	dbusTrackIDPrefix = "/Sonicrust/Track/"
	noTrackObjectPath = "/org/mpris/MediaPlayer2/TrackList/NoTrack"
)

var (
	_ types.OrgMprisMediaPlayer2Adapter       = (*MPRISHandler)(nil)
	_ types.OrgMprisMediaPlayer2PlayerAdapter = (*MPRISHandler)(nil)
)

var errNotSupported = errors.New("not supported")

// MPRISHandler bridges the org.mpris.MediaPlayer2 D-Bus interface to
// the command bus. It holds no playback state of its own: verbs become
// commands, property reads come from the shared snapshot.
type MPRISHandler struct {
	// Function called if the player is requested to quit through MPRIS.
	// Should *asynchronously* start shutdown and return immediately.
	OnQuit func() error

	// guards connErr: written by the Listen goroutine, read by
	// orchestrator-side callbacks
	connMu  sync.Mutex
	connErr error

	playerName string
	bus        *CommandBus
	state      *SharedState
	s          *server.Server
	evt        *events.EventHandler
}

func (m *MPRISHandler) setConnErr(err error) {
	m.connMu.Lock()
	m.connErr = err
	m.connMu.Unlock()
}

func (m *MPRISHandler) connected() bool {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	return m.connErr == nil
}

func NewMPRISHandler(playerName string, orch *Orchestrator, bus *CommandBus, state *SharedState) *MPRISHandler {
	m := &MPRISHandler{
		playerName: playerName,
		bus:        bus,
		state:      state,
		connErr:    errors.New("not started"),
	}
	m.s = server.NewServer(playerName, m, m)
	m.evt = events.NewEventHandler(m.s)

	orch.OnSeek(func() {
		if m.connected() {
			m.evt.Player.OnSeek(durationToMicroseconds(state.Read().Position))
		}
	})
	orch.OnTrackChanged(func() {
		if m.connected() {
			m.evt.Player.OnTitle()
		}
	})
	orch.OnVolumeChanged(func() {
		if m.connected() {
			m.evt.Player.OnVolume()
		}
	})
	orch.OnStateChanged(func() {
		if m.connected() {
			m.evt.Player.OnPlayPause()
		}
	})

	return m
}

// Starts listening for MPRIS events.
func (m *MPRISHandler) Start() {
	m.setConnErr(nil)
	go func() {
		// exits early with err if unable to establish D-Bus connection
		m.setConnErr(m.s.Listen())
	}()
}

// Stops listening for MPRIS events and releases any D-Bus resources.
func (m *MPRISHandler) Shutdown() {
	if m.connected() {
		m.s.Stop()
		m.setConnErr(errors.New("stopped"))
	}
}

// OrgMprisMediaPlayer2Adapter implementation

func (m *MPRISHandler) Identity() (string, error) {
	return m.playerName, nil
}

func (m *MPRISHandler) CanQuit() (bool, error) {
	return m.OnQuit != nil, nil
}

func (m *MPRISHandler) Quit() error {
	if m.OnQuit != nil {
		return m.OnQuit()
	}
	return errors.New("no quit handler added")
}

func (m *MPRISHandler) CanRaise() (bool, error) {
	return false, nil
}

func (m *MPRISHandler) Raise() error {
	return errNotSupported
}

func (m *MPRISHandler) HasTrackList() (bool, error) {
	return false, nil
}

func (m *MPRISHandler) SupportedUriSchemes() ([]string, error) {
	return nil, nil
}

func (m *MPRISHandler) SupportedMimeTypes() ([]string, error) {
	return nil, nil
}

// OrgMprisMediaPlayer2PlayerAdapter implementation

func (m *MPRISHandler) Next() error {
	m.bus.Next()
	return nil
}

func (m *MPRISHandler) Previous() error {
	m.bus.Previous()
	return nil
}

func (m *MPRISHandler) Pause() error {
	m.bus.Pause()
	return nil
}

func (m *MPRISHandler) PlayPause() error {
	m.bus.TogglePlayPause()
	return nil
}

func (m *MPRISHandler) Stop() error {
	m.bus.Stop()
	return nil
}

func (m *MPRISHandler) Play() error {
	m.bus.Play()
	return nil
}

func (m *MPRISHandler) Seek(offset types.Microseconds) error {
	// MPRIS Seek is relative to the current position
	m.bus.SeekRelative(int64(offset) / 1_000_000)
	return nil
}

func (m *MPRISHandler) SetPosition(trackId string, position types.Microseconds) error {
	snap := m.state.Read()
	if snap.Metadata != nil && trackObjectPath(snap.Metadata.TrackID) == trackId {
		if position >= 0 {
			m.bus.SeekAbsolute(uint64(position) / 1_000_000)
		}
	}
	return nil
}

func (m *MPRISHandler) OpenUri(uri string) error {
	return errNotSupported
}

func (m *MPRISHandler) PlaybackStatus() (types.PlaybackStatus, error) {
	switch m.state.Read().Status {
	case Playing:
		return types.PlaybackStatusPlaying, nil
	case Paused:
		return types.PlaybackStatusPaused, nil
	case Stopped:
		return types.PlaybackStatusStopped, nil
	}
	return "", errors.New("unknown playback status")
}

func (m *MPRISHandler) Rate() (float64, error) {
	return 1, nil
}

func (m *MPRISHandler) SetRate(float64) error {
	return errNotSupported
}

func (m *MPRISHandler) Metadata() (types.Metadata, error) {
	snap := m.state.Read()
	if snap.Metadata == nil || snap.Status == Stopped {
		return types.Metadata{
			TrackId: dbus.ObjectPath(noTrackObjectPath),
		}, nil
	}
	md := snap.Metadata
	var albumArtist []string
	if md.AlbumArtist != "" {
		albumArtist = []string{md.AlbumArtist}
	}
	return types.Metadata{
		TrackId:     dbus.ObjectPath(trackObjectPath(md.TrackID)),
		Length:      durationToMicroseconds(md.Duration),
		Title:       md.Title,
		Album:       md.Album,
		Artist:      []string{md.Artist},
		AlbumArtist: albumArtist,
		TrackNumber: md.TrackNumber,
		Genre:       md.Genres,
		UseCount:    md.PlayCount,
		ArtUrl:      md.ArtURL,
	}, nil
}

func (m *MPRISHandler) Volume() (float64, error) {
	return m.state.Read().Volume, nil
}

func (m *MPRISHandler) SetVolume(v float64) error {
	m.bus.SetVolume(v)
	return nil
}

func (m *MPRISHandler) Position() (int64, error) {
	return int64(durationToMicroseconds(m.state.Read().Position)), nil
}

func (m *MPRISHandler) MinimumRate() (float64, error) {
	return 1, nil
}

func (m *MPRISHandler) MaximumRate() (float64, error) {
	return 1, nil
}

func (m *MPRISHandler) CanGoNext() (bool, error) {
	return m.state.Read().CanGoNext, nil
}

func (m *MPRISHandler) CanGoPrevious() (bool, error) {
	return m.state.Read().CanGoPrevious, nil
}

func (m *MPRISHandler) CanPlay() (bool, error) {
	return true, nil
}

func (m *MPRISHandler) CanPause() (bool, error) {
	return true, nil
}

func (m *MPRISHandler) CanSeek() (bool, error) {
	return true, nil
}

func (m *MPRISHandler) CanControl() (bool, error) {
	return true, nil
}

func durationToMicroseconds(d time.Duration) types.Microseconds {
	return types.Microseconds(d.Microseconds())
}

func trackObjectPath(id string) string {
	return dbusTrackIDPrefix + encodeTrackId(id)
}

func encodeTrackId(id string) string {
	data := []byte(id)
	return base32.StdEncoding.WithPadding('0').EncodeToString(data)
}
