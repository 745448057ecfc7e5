package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/roceb/sonicrust/backend/mediaprovider"
	"github.com/roceb/sonicrust/backend/player"
	"github.com/roceb/sonicrust/backend/util"
	"github.com/roceb/sonicrust/sharedutil"
)

type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatOne
	RepeatAll
)

type ShuffleMode int

const (
	ShuffleOff ShuffleMode = iota
	ShuffleOn
)

var ErrEmptyQueue = errors.New("queue is empty")

// Orchestrator owns all playback state: the queue, the playing index,
// repeat/shuffle modes, the current track, and the audio backend. All
// mutation happens through Tick on the host loop's goroutine; control
// surfaces communicate only via the command bus and the shared state.
type Orchestrator struct {
	player   player.BasePlayer
	provider mediaprovider.MediaProvider
	bus      *CommandBus
	state    *SharedState

	scrobbleCfg          ScrobbleConfig
	notificationDuration time.Duration

	queue      []mediaprovider.Track
	playingIdx int
	current    *mediaprovider.Track
	isPlaying  bool

	repeat       RepeatMode
	shuffle      ShuffleMode
	shuffleOrder []int
	shufflePos   int

	playTimeStopwatch util.Stopwatch

	library     Library
	libraryMsgs <-chan LibraryMessage
	cancelLoad  context.CancelFunc

	notification       string
	notificationExpiry time.Time

	onStateChanged  []func()
	onTrackChanged  []func()
	onSeek          []func()
	onVolumeChanged []func()
}

func NewOrchestrator(p player.BasePlayer, provider mediaprovider.MediaProvider, bus *CommandBus, state *SharedState, cfg *Config) *Orchestrator {
	o := &Orchestrator{
		player:               p,
		provider:             provider,
		bus:                  bus,
		state:                state,
		scrobbleCfg:          cfg.Scrobbling,
		notificationDuration: time.Duration(cfg.Application.NotificationDurationSeconds) * time.Second,
		playingIdx:           -1,
	}
	switch cfg.Playback.RepeatMode {
	case "One":
		o.repeat = RepeatOne
	case "All":
		o.repeat = RepeatAll
	}
	p.SetVolume(cfg.Playback.Volume)
	o.state.writeVolume(p.GetVolume())
	return o
}

// OnStateChanged registers a callback invoked whenever the shared
// snapshot is rewritten (play/pause/stop transitions, track changes).
func (o *Orchestrator) OnStateChanged(cb func()) {
	o.onStateChanged = append(o.onStateChanged, cb)
}

// OnTrackChanged registers a callback invoked when the current track changes.
func (o *Orchestrator) OnTrackChanged(cb func()) {
	o.onTrackChanged = append(o.onTrackChanged, cb)
}

// OnSeek registers a callback invoked after a successful seek.
func (o *Orchestrator) OnSeek(cb func()) {
	o.onSeek = append(o.onSeek, cb)
}

// OnVolumeChanged registers a callback invoked when the volume changes.
func (o *Orchestrator) OnVolumeChanged(cb func()) {
	o.onVolumeChanged = append(o.onVolumeChanged, cb)
}

// Tick runs one iteration of the control loop: apply pending commands,
// absorb library loader messages, handle track completion, refresh the
// playback position, and expire the transient notification.
func (o *Orchestrator) Tick() {
	o.drainCommands()
	o.drainLibrary()
	o.checkTrackFinished()
	if o.isPlaying {
		o.state.writePosition(o.player.GetPosition())
	}
	o.tickNotification()
}

func (o *Orchestrator) drainCommands() {
	for {
		select {
		case cmd := <-o.bus.C():
			o.apply(cmd)
		default:
			return
		}
	}
}

func (o *Orchestrator) apply(cmd Command) {
	switch cmd.Type {
	case cmdPlay:
		o.Play()
	case cmdPause:
		o.Pause()
	case cmdStop:
		o.Stop()
	case cmdTogglePlayPause:
		if o.isPlaying {
			o.Pause()
		} else {
			o.Play()
		}
	case cmdSetVolume:
		if v, ok := cmd.Arg.(float64); ok {
			o.SetVolume(v)
		}
	case cmdNext:
		o.Next()
	case cmdPrevious:
		o.Previous()
	case cmdSeekRelative:
		if secs, ok := cmd.Arg.(int64); ok {
			o.SeekRelative(secs)
		}
	case cmdSeekAbsolute:
		if secs, ok := cmd.Arg.(uint64); ok {
			o.SeekAbsolute(secs)
		}
	}
}

// Play resumes a paused track, or starts the queue from the beginning
// when nothing is loaded. No-op while already playing.
func (o *Orchestrator) Play() {
	if o.isPlaying {
		return
	}
	if o.current != nil {
		if err := o.player.Play(); err != nil {
			log.Printf("error resuming playback: %v", err)
			return
		}
		o.isPlaying = true
		o.playTimeStopwatch.Start()
		o.syncSharedState()
		return
	}
	if len(o.queue) == 0 {
		o.setNotification("Queue is empty")
		return
	}
	start := 0
	if o.shuffle == ShuffleOn && len(o.shuffleOrder) > 0 {
		start = o.shuffleOrder[0]
	}
	if err := o.playTrackAt(start); err != nil {
		log.Printf("error starting playback: %v", err)
	}
}

// Pause pauses the current track. No-op unless a track is playing.
func (o *Orchestrator) Pause() {
	if !o.isPlaying || !o.player.HasTrackLoaded() {
		return
	}
	if err := o.player.Pause(); err != nil {
		log.Printf("error pausing: %v", err)
		return
	}
	o.playTimeStopwatch.Stop()
	o.isPlaying = false
	o.syncSharedState()
}

// Stop halts playback and clears the current track. Idempotent.
func (o *Orchestrator) Stop() {
	o.stopPlayback()
}

func (o *Orchestrator) stopPlayback() {
	if o.current == nil {
		return
	}
	o.checkScrobble()
	if err := o.player.Stop(); err != nil {
		log.Printf("error stopping player: %v", err)
	}
	o.current = nil
	o.playingIdx = -1
	o.isPlaying = false
	o.playTimeStopwatch.Reset()
	o.syncSharedState()
}

// Next advances to the successor of the playing index, honoring shuffle
// order and wrapping around when repeat is set to All. With no further
// track it behaves like Stop.
func (o *Orchestrator) Next() {
	idx, ok := o.nextIndex(true)
	if !ok {
		o.stopPlayback()
		return
	}
	if err := o.playTrackAt(idx); err != nil {
		log.Printf("error playing next track: %v", err)
	}
}

// Previous moves to the predecessor of the playing index, or behaves
// like Stop when there is none.
func (o *Orchestrator) Previous() {
	idx, ok := o.previousIndex()
	if !ok {
		o.stopPlayback()
		return
	}
	if err := o.playTrackAt(idx); err != nil {
		log.Printf("error playing previous track: %v", err)
	}
}

// nextIndex resolves the queue index that follows the playing index.
// Wraparound applies only when wrap is true and repeat is All; the
// track-finished transition passes wrap=false so an exhausted queue
// stops instead of restarting.
func (o *Orchestrator) nextIndex(wrap bool) (int, bool) {
	if len(o.queue) == 0 || o.playingIdx < 0 {
		return 0, false
	}
	if o.shuffle == ShuffleOn {
		if o.shufflePos+1 < len(o.shuffleOrder) {
			return o.shuffleOrder[o.shufflePos+1], true
		}
		if wrap && o.repeat == RepeatAll && len(o.shuffleOrder) > 0 {
			return o.shuffleOrder[0], true
		}
		return 0, false
	}
	if o.playingIdx+1 < len(o.queue) {
		return o.playingIdx + 1, true
	}
	if wrap && o.repeat == RepeatAll {
		return 0, true
	}
	return 0, false
}

func (o *Orchestrator) previousIndex() (int, bool) {
	if len(o.queue) == 0 || o.playingIdx < 0 {
		return 0, false
	}
	if o.shuffle == ShuffleOn {
		if o.shufflePos > 0 {
			return o.shuffleOrder[o.shufflePos-1], true
		}
		return 0, false
	}
	if o.playingIdx > 0 {
		return o.playingIdx - 1, true
	}
	return 0, false
}

// SetVolume clamps v to [0, 1] and applies it to the audio backend.
func (o *Orchestrator) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	if err := o.player.SetVolume(v); err != nil {
		log.Printf("error setting volume: %v", err)
		return
	}
	o.state.writeVolume(o.player.GetVolume())
	for _, cb := range o.onVolumeChanged {
		cb()
	}
}

// AdjustVolume raises or lowers the volume by delta, clamped to [0, 1].
func (o *Orchestrator) AdjustVolume(delta float64) {
	o.SetVolume(o.player.GetVolume() + delta)
}

// SeekRelative seeks by secs within the current track; negative seeks
// backward. Seek failures are logged and leave playback state intact.
func (o *Orchestrator) SeekRelative(secs int64) {
	if o.current == nil {
		return
	}
	if err := o.player.SeekRelative(secs); err != nil {
		log.Printf("seek failed: %v", err)
	}
	o.afterSeek()
}

// SeekAbsolute seeks to secs from the start of the current track.
func (o *Orchestrator) SeekAbsolute(secs uint64) {
	if o.current == nil {
		return
	}
	if err := o.player.SeekAbsolute(secs); err != nil {
		log.Printf("seek failed: %v", err)
	}
	o.afterSeek()
}

// afterSeek re-reads the position from the backend rather than assuming
// the requested offset landed (seeks near track bounds are clamped).
func (o *Orchestrator) afterSeek() {
	o.state.writePosition(o.player.GetPosition())
	for _, cb := range o.onSeek {
		cb()
	}
}

func (o *Orchestrator) checkTrackFinished() {
	if o.current == nil || !o.isPlaying {
		return
	}
	if !o.player.IsFinished() || !o.player.HasTrackLoaded() {
		return
	}
	o.onTrackFinished()
}

func (o *Orchestrator) onTrackFinished() {
	o.checkScrobble()
	if o.repeat == RepeatOne {
		if err := o.playTrackAt(o.playingIdx); err != nil {
			log.Printf("error replaying track: %v", err)
			o.stopPlayback()
		}
		return
	}
	if idx, ok := o.nextIndex(false); ok {
		if err := o.playTrackAt(idx); err != nil {
			log.Printf("error advancing queue: %v", err)
			o.stopPlayback()
		}
		return
	}
	if err := o.player.Stop(); err != nil {
		log.Printf("error stopping player: %v", err)
	}
	o.current = nil
	o.playingIdx = -1
	o.isPlaying = false
	o.playTimeStopwatch.Reset()
	o.syncSharedState()
}

// playTrackAt starts playback of the queue entry at idx. On failure the
// previous playback state is left untouched.
func (o *Orchestrator) playTrackAt(idx int) error {
	if idx < 0 || idx >= len(o.queue) {
		return fmt.Errorf("queue index %d out of range", idx)
	}

	track := o.queue[idx]
	url, err := o.provider.GetStreamURL(track.ID)
	if err != nil {
		return fmt.Errorf("resolving stream for %q: %w", track.Title, err)
	}
	if err := o.player.Load(url); err != nil {
		return fmt.Errorf("loading %q: %w", track.Title, err)
	}
	if err := o.player.Play(); err != nil {
		return fmt.Errorf("playing %q: %w", track.Title, err)
	}

	// scrobble the outgoing track only once the new one has started,
	// so a failed start leaves its play-time accounting intact
	o.checkScrobble()

	o.playingIdx = idx
	t := track.Copy()
	o.current = &t
	o.isPlaying = true
	if o.shuffle == ShuffleOn {
		o.shufflePos = o.shuffleIndexOf(idx)
	}
	o.playTimeStopwatch.Reset()
	o.playTimeStopwatch.Start()
	o.syncSharedState()
	for _, cb := range o.onTrackChanged {
		cb()
	}

	// now-playing report is best-effort
	go func(id string) {
		if err := o.provider.TrackBeganPlayback(id); err != nil {
			log.Printf("error sending now-playing: %v", err)
		}
	}(track.ID)
	o.setNotification(fmt.Sprintf("Now playing: %s - %s", track.Title, track.Artist))
	return nil
}

// PlayTrackAt starts playback at the given queue position.
func (o *Orchestrator) PlayTrackAt(idx int) error {
	if len(o.queue) == 0 {
		return ErrEmptyQueue
	}
	return o.playTrackAt(idx)
}

// PlayTrackFromLibrary appends the library track with the given ID to
// the queue and starts playing it.
func (o *Orchestrator) PlayTrackFromLibrary(trackID string) error {
	tr := sharedutil.FindTrackByID(trackID, o.library.Tracks)
	if tr == nil {
		return fmt.Errorf("track %s not in library", trackID)
	}
	o.AppendToQueue([]mediaprovider.Track{*tr})
	return o.playTrackAt(len(o.queue) - 1)
}

// ReplaceQueue stops playback and replaces the queue contents.
func (o *Orchestrator) ReplaceQueue(tracks []mediaprovider.Track) {
	o.stopPlayback()
	o.queue = make([]mediaprovider.Track, len(tracks))
	for i, t := range tracks {
		o.queue[i] = t.Copy()
	}
	if o.shuffle == ShuffleOn {
		o.reshuffle()
	}
	o.syncSharedState()
}

// AppendToQueue adds tracks to the end of the queue.
func (o *Orchestrator) AppendToQueue(tracks []mediaprovider.Track) {
	for _, t := range tracks {
		o.queue = append(o.queue, t.Copy())
	}
	if o.shuffle == ShuffleOn {
		o.reshuffle()
	}
	o.syncSharedState()
}

func (o *Orchestrator) Queue() []mediaprovider.Track {
	q := make([]mediaprovider.Track, len(o.queue))
	for i, t := range o.queue {
		q[i] = t.Copy()
	}
	return q
}

func (o *Orchestrator) SetRepeatMode(mode RepeatMode) {
	o.repeat = mode
	o.syncSharedState()
}

func (o *Orchestrator) RepeatMode() RepeatMode { return o.repeat }

// CycleRepeatMode steps None -> All -> One -> None.
func (o *Orchestrator) CycleRepeatMode() {
	switch o.repeat {
	case RepeatNone:
		o.SetRepeatMode(RepeatAll)
	case RepeatAll:
		o.SetRepeatMode(RepeatOne)
	default:
		o.SetRepeatMode(RepeatNone)
	}
}

// SetShuffleMode enables or disables shuffle. Enabling it generates a
// new random order anchored at the current track, so Next/Previous
// walk the shuffled order from here.
func (o *Orchestrator) SetShuffleMode(mode ShuffleMode) {
	if o.shuffle == mode {
		return
	}
	o.shuffle = mode
	if mode == ShuffleOn {
		o.reshuffle()
	} else {
		o.shuffleOrder = nil
		o.shufflePos = 0
	}
	o.syncSharedState()
}

func (o *Orchestrator) ShuffleMode() ShuffleMode { return o.shuffle }

func (o *Orchestrator) reshuffle() {
	o.shuffleOrder = rand.Perm(len(o.queue))
	o.shufflePos = 0
	if o.playingIdx >= 0 {
		// move the current track to the front of the shuffled order
		cur := o.shuffleIndexOf(o.playingIdx)
		if cur > 0 {
			o.shuffleOrder[0], o.shuffleOrder[cur] = o.shuffleOrder[cur], o.shuffleOrder[0]
		}
	}
}

func (o *Orchestrator) shuffleIndexOf(queueIdx int) int {
	for i, qi := range o.shuffleOrder {
		if qi == queueIdx {
			return i
		}
	}
	return 0
}

// checkScrobble submits a play record for the outgoing track if it was
// played long enough. Resets the play-time stopwatch either way, so a
// second call for the same track is a no-op.
func (o *Orchestrator) checkScrobble() {
	if !o.scrobbleCfg.Enabled || o.current == nil {
		return
	}
	playDur := o.playTimeStopwatch.Elapsed()
	if playDur.Seconds() < 0.1 {
		return
	}
	o.playTimeStopwatch.Reset()

	pcnt := o.scrobbleCfg.ThresholdPercent
	timeThresh := time.Duration(o.scrobbleCfg.ThresholdTimeSeconds) * time.Second
	dur := o.current.Duration
	submission := playDur >= timeThresh ||
		(dur > 0 && playDur*100 >= dur*time.Duration(pcnt))

	go func(id string) {
		if err := o.provider.TrackEndedPlayback(id, submission); err != nil {
			log.Printf("error scrobbling: %v", err)
		}
	}(o.current.ID)
}

// syncSharedState rewrites the shared snapshot from the orchestrator's
// authoritative state and fires the state-changed callbacks.
func (o *Orchestrator) syncSharedState() {
	snap := PlayerSnapshot{
		Volume: o.player.GetVolume(),
	}
	switch {
	case o.isPlaying:
		snap.Status = Playing
	case o.current != nil:
		snap.Status = Paused
	default:
		snap.Status = Stopped
	}
	if o.current != nil {
		snap.Metadata = o.toMetadata(o.current)
		snap.Position = o.player.GetPosition()
	}
	_, snap.CanGoNext = o.nextIndex(true)
	_, snap.CanGoPrevious = o.previousIndex()
	o.state.write(snap)
	for _, cb := range o.onStateChanged {
		cb()
	}
}

func (o *Orchestrator) toMetadata(t *mediaprovider.Track) *TrackMetadata {
	return &TrackMetadata{
		TrackID:     t.ID,
		Title:       t.Title,
		Artist:      t.Artist,
		AlbumArtist: t.AlbumArtist,
		Album:       t.Album,
		ArtURL:      t.CoverArtURL,
		Duration:    t.Duration,
		TrackNumber: t.TrackNumber,
		PlayCount:   t.PlayCount,
		Genres:      t.Genres,
	}
}

// StartLibraryLoad kicks off the background catalog load. Only one load
// runs at a time; further calls while one is in flight are no-ops.
func (o *Orchestrator) StartLibraryLoad(firstPageSize, batchSize int) {
	if o.libraryMsgs != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.cancelLoad = cancel
	o.libraryMsgs = StartLibraryLoad(ctx, o.provider, firstPageSize, batchSize)
}

func (o *Orchestrator) drainLibrary() {
	if o.libraryMsgs == nil {
		return
	}
	for {
		select {
		case msg, ok := <-o.libraryMsgs:
			if !ok {
				o.libraryMsgs = nil
				if o.cancelLoad != nil {
					o.cancelLoad()
					o.cancelLoad = nil
				}
				return
			}
			o.applyLibraryMessage(msg)
			if o.libraryMsgs == nil {
				return
			}
		default:
			return
		}
	}
}

func (o *Orchestrator) applyLibraryMessage(msg LibraryMessage) {
	switch m := msg.(type) {
	case LibraryLoaded:
		o.library = Library{
			Tracks:    m.Songs,
			Artists:   m.Artists,
			Albums:    m.Albums,
			Playlists: m.Playlists,
			Favorites: m.Favorites,
		}
	case SongsAppended:
		o.library.Tracks = append(o.library.Tracks, m.Songs...)
	case LoadError:
		log.Printf("library load error: %s", m.Message)
		o.setNotification("Library load failed: " + m.Message)
		if o.cancelLoad != nil {
			o.cancelLoad()
			o.cancelLoad = nil
		}
		o.libraryMsgs = nil
	}
}

// Library returns the catalog loaded so far.
func (o *Orchestrator) Library() Library {
	return o.library
}

// SetNotification posts a transient message that expires after the
// configured notification duration.
func (o *Orchestrator) SetNotification(msg string) {
	o.setNotification(msg)
}

func (o *Orchestrator) setNotification(msg string) {
	o.notification = msg
	o.notificationExpiry = time.Now().Add(o.notificationDuration)
}

// Notification returns the active transient message, or "" when none.
func (o *Orchestrator) Notification() string {
	return o.notification
}

func (o *Orchestrator) tickNotification() {
	if o.notification != "" && time.Now().After(o.notificationExpiry) {
		o.notification = ""
	}
}

// Shutdown stops playback (submitting a final scrobble if due) and
// releases the audio backend.
func (o *Orchestrator) Shutdown() {
	o.stopPlayback()
	if o.cancelLoad != nil {
		o.cancelLoad()
	}
	o.player.Destroy()
}
