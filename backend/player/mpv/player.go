package mpv

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/roceb/sonicrust/backend/player"
	"github.com/supersonic-app/go-mpv"
)

// Error returned by many Player functions if called before the player has been initialized.
var ErrUnitialized error = errors.New("mpv player uninitialized")

var _ player.BasePlayer = (*Player)(nil)

// Player encapsulates the mpv instance and provides functions
// to control it and to check its status.
type Player struct {
	mpv         *mpv.Mpv
	initialized bool
	clientName  string
	vol         int64

	bgCancel context.CancelFunc

	mu       sync.Mutex
	loaded   bool
	paused   bool
	finished bool
}

// Returns a new player.
// Must call Init on the player before it is ready for playback.
func New() *Player {
	return NewWithClientName("")
}

// Same as New, but sets the application name that mpv
// reports to the system audio API.
func NewWithClientName(c string) *Player {
	return &Player{
		vol:        -1, // use 100 in Init
		clientName: c,
	}
}

// Initializes the Player and makes it ready for playback.
// Most Player functions will return ErrUnitialized if called before Init.
func (p *Player) Init(maxCacheMB int) error {
	if !p.initialized {
		m := mpv.Create()

		m.SetOptionString("idle", "yes")
		m.SetOptionString("video", "no")
		m.SetOptionString("audio-display", "no")
		m.SetOptionString("gapless-audio", "weak")
		m.SetOptionString("force-seekable", "yes")
		m.SetOptionString("terminal", "no")

		// limit in-memory cache size
		maxBackMB := maxCacheMB / 3
		maxForwardMB := maxBackMB + maxBackMB
		m.SetOptionString("demuxer-max-bytes", fmt.Sprintf("%dMiB", maxForwardMB))
		m.SetOptionString("demuxer-max-back-bytes", fmt.Sprintf("%dMiB", maxBackMB))

		if p.vol < 0 {
			p.vol = 100
		}
		m.SetOption("volume", mpv.FORMAT_INT64, p.vol)

		if p.clientName != "" {
			m.SetOptionString("audio-client-name", p.clientName)
		}

		if err := m.Initialize(); err != nil {
			return fmt.Errorf("error initializing mpv: %s", err.Error())
		}

		p.mpv = m
	}
	ctx, cancel := context.WithCancel(context.Background())
	go p.eventHandler(ctx)
	p.bgCancel = cancel
	p.initialized = true
	return nil
}

// Load begins playback of the media at url, replacing any current track.
func (p *Player) Load(url string) error {
	if !p.initialized {
		return ErrUnitialized
	}
	if err := p.mpv.Command([]string{"loadfile", url, "replace"}); err != nil {
		return err
	}
	p.mu.Lock()
	p.loaded = true
	p.finished = false
	p.mu.Unlock()
	return p.setPaused(false)
}

// Play resumes a paused track.
func (p *Player) Play() error {
	if !p.initialized {
		return ErrUnitialized
	}
	p.mu.Lock()
	loaded := p.loaded
	p.mu.Unlock()
	if !loaded {
		return player.ErrNothingLoaded
	}
	return p.setPaused(false)
}

// Pause pauses playback. No-op if nothing is loaded.
func (p *Player) Pause() error {
	if !p.initialized {
		return ErrUnitialized
	}
	p.mu.Lock()
	loaded := p.loaded
	p.mu.Unlock()
	if !loaded {
		return nil
	}
	return p.setPaused(true)
}

// Stop halts playback and unloads the current track.
func (p *Player) Stop() error {
	if !p.initialized {
		return ErrUnitialized
	}
	// Clear loaded before issuing the stop so the resulting idle
	// event is not mistaken for the track finishing naturally.
	p.mu.Lock()
	p.loaded = false
	p.finished = false
	p.mu.Unlock()
	if err := p.mpv.Command([]string{"stop"}); err != nil {
		return err
	}
	// stop does not clear mpv's pause state
	return p.setPaused(false)
}

// SeekRelative seeks by secs within the current track.
func (p *Player) SeekRelative(secs int64) error {
	if !p.initialized {
		return ErrUnitialized
	}
	return p.mpv.Command([]string{"seek", strconv.FormatInt(secs, 10), "relative"})
}

// SeekAbsolute seeks to secs from the start of the current track.
func (p *Player) SeekAbsolute(secs uint64) error {
	if !p.initialized {
		return ErrUnitialized
	}
	return p.mpv.Command([]string{"seek", strconv.FormatUint(secs, 10), "absolute"})
}

// GetPosition reports playback position within the current track.
func (p *Player) GetPosition() time.Duration {
	if !p.initialized {
		return 0
	}
	pos, err := p.mpv.GetProperty("playback-time", mpv.FORMAT_DOUBLE)
	if err != nil || pos == nil {
		return 0
	}
	return time.Duration(pos.(float64) * float64(time.Second))
}

// SetVolume sets the playback volume in the range [0, 1].
// Unlike most Player functions, SetVolume can be called before Init,
// to set the initial volume of the player on startup.
func (p *Player) SetVolume(vol float64) error {
	if vol > 1 {
		vol = 1
	} else if vol < 0 {
		vol = 0
	}
	v := int64(math.Round(vol * 100))
	if p.initialized {
		err := p.mpv.SetProperty("volume", mpv.FORMAT_INT64, v)
		if err == nil {
			p.vol = v
		}
		return err
	}
	p.vol = v
	return nil
}

// Gets the current volume of the player.
func (p *Player) GetVolume() float64 {
	return float64(p.vol) / 100
}

// IsFinished reports whether the loaded track played to its natural end.
func (p *Player) IsFinished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished && !p.paused
}

// HasTrackLoaded reports whether a track is loaded, including one
// that finished playing but has not been stopped or replaced.
func (p *Player) HasTrackLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Destroy the player.
func (p *Player) Destroy() {
	if p.bgCancel != nil {
		p.bgCancel()
	}
	if p.initialized {
		p.mpv.Command([]string{"stop"})
		p.mpv.TerminateDestroy()
		p.initialized = false
	}
}

func (p *Player) setPaused(paused bool) error {
	err := p.mpv.SetProperty("pause", mpv.FORMAT_FLAG, paused)
	if err == nil {
		p.mu.Lock()
		p.paused = paused
		p.mu.Unlock()
	}
	return err
}

func (p *Player) eventHandler(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			e := p.mpv.WaitEvent(1 /*timeout seconds*/)
			switch e.Event_Id {
			case mpv.EVENT_FILE_LOADED:
				p.mu.Lock()
				p.loaded = true
				p.finished = false
				p.mu.Unlock()
			case mpv.EVENT_IDLE:
				// with idle=yes, mpv goes idle when the track ends.
				// An explicit Stop clears loaded first, so only a
				// natural end marks the track finished.
				p.mu.Lock()
				if p.loaded {
					p.finished = true
				}
				p.mu.Unlock()
			}
		}
	}
}
