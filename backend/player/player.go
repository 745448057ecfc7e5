package player

import (
	"errors"
	"time"
)

// ErrNothingLoaded is returned by Play when no media has been loaded.
var ErrNothingLoaded = errors.New("no track loaded")

// BasePlayer is the audio backend the playback orchestrator drives.
// Implementations must be safe for use from a single goroutine; the
// orchestrator serializes all calls through its tick loop.
type BasePlayer interface {
	// Load begins playing the media at the given URL, replacing
	// whatever was loaded before.
	Load(url string) error

	// Play resumes a paused track. Returns ErrNothingLoaded if no
	// track has been loaded.
	Play() error

	// Pause pauses playback. No-op if nothing is playing.
	Pause() error

	// Stop halts playback and unloads the current track. Idempotent.
	Stop() error

	// SeekRelative seeks forward (positive) or backward (negative)
	// by the given number of seconds, clamped to track bounds.
	SeekRelative(secs int64) error

	// SeekAbsolute seeks to the given offset from the start of the track.
	SeekAbsolute(secs uint64) error

	// GetPosition reports the playback position within the current
	// track, or zero when nothing is loaded.
	GetPosition() time.Duration

	// SetVolume sets the playback volume in the range [0, 1].
	SetVolume(vol float64) error
	GetVolume() float64

	// IsFinished reports whether the loaded track has played to its
	// natural end and nothing else has started.
	IsFinished() bool

	// HasTrackLoaded reports whether a track is loaded, including a
	// track that has finished but not been replaced or stopped.
	HasTrackLoaded() bool

	Destroy()
}
