package backend

import (
	"sync"
	"time"
)

type PlaybackStatus int

const (
	Stopped PlaybackStatus = iota
	Playing
	Paused
)

func (p PlaybackStatus) String() string {
	switch p {
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	}
	return "Stopped"
}

// TrackMetadata describes the currently loaded track for consumers
// outside the orchestrator (MPRIS, notifications).
type TrackMetadata struct {
	TrackID     string
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	ArtURL      string
	Duration    time.Duration
	TrackNumber int
	PlayCount   int
	Genres      []string
}

// PlayerSnapshot is a point-in-time view of playback state.
// Metadata is nil when no track is loaded.
type PlayerSnapshot struct {
	Status        PlaybackStatus
	Metadata      *TrackMetadata
	Volume        float64
	CanGoNext     bool
	CanGoPrevious bool
	Position      time.Duration
}

// SharedState holds the playback snapshot shared between the
// orchestrator (sole writer) and control surfaces (readers).
type SharedState struct {
	mu   sync.RWMutex
	snap PlayerSnapshot
}

func NewSharedState() *SharedState {
	return &SharedState{
		snap: PlayerSnapshot{Status: Stopped, Volume: 1.0},
	}
}

// Read returns a copy of the current snapshot.
func (s *SharedState) Read() PlayerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	if s.snap.Metadata != nil {
		meta := *s.snap.Metadata
		snap.Metadata = &meta
	}
	return snap
}

// write replaces the whole snapshot so readers never observe a
// partially updated record.
func (s *SharedState) write(snap PlayerSnapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *SharedState) writePosition(pos time.Duration) {
	s.mu.Lock()
	s.snap.Position = pos
	s.mu.Unlock()
}

func (s *SharedState) writeVolume(vol float64) {
	s.mu.Lock()
	s.snap.Volume = vol
	s.mu.Unlock()
}
