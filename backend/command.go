package backend

import "log"

type commandType int

const (
	cmdPlay commandType = iota
	cmdPause
	cmdStop
	cmdTogglePlayPause
	cmdSetVolume
	cmdNext
	cmdPrevious
	cmdSeekRelative
	cmdSeekAbsolute
)

func (c commandType) String() string {
	switch c {
	case cmdPlay:
		return "Play"
	case cmdPause:
		return "Pause"
	case cmdStop:
		return "Stop"
	case cmdTogglePlayPause:
		return "TogglePlayPause"
	case cmdSetVolume:
		return "SetVolume"
	case cmdNext:
		return "Next"
	case cmdPrevious:
		return "Previous"
	case cmdSeekRelative:
		return "SeekRelative"
	case cmdSeekAbsolute:
		return "SeekAbsolute"
	}
	return "unknown"
}

// Command is a single playback control request. Arg carries the
// command-specific payload: float64 for SetVolume, int64 for
// SeekRelative (seconds, may be negative), uint64 for SeekAbsolute.
type Command struct {
	Type commandType
	Arg  any
}

const commandBusCapacity = 32

// CommandBus is the channel control surfaces (MPRIS, etc.) use to send
// playback commands to the orchestrator. Sends never block: when the
// orchestrator falls behind and the buffer fills, commands are dropped.
type CommandBus struct {
	ch chan Command
}

func NewCommandBus() *CommandBus {
	return &CommandBus{ch: make(chan Command, commandBusCapacity)}
}

// C returns the receive side of the bus, for the orchestrator to drain.
func (b *CommandBus) C() <-chan Command {
	return b.ch
}

// Send enqueues cmd without blocking, dropping it if the bus is full.
func (b *CommandBus) Send(cmd Command) {
	select {
	case b.ch <- cmd:
	default:
		log.Printf("command bus full, dropping %s", cmd.Type)
	}
}

func (b *CommandBus) Play()            { b.Send(Command{Type: cmdPlay}) }
func (b *CommandBus) Pause()           { b.Send(Command{Type: cmdPause}) }
func (b *CommandBus) Stop()            { b.Send(Command{Type: cmdStop}) }
func (b *CommandBus) TogglePlayPause() { b.Send(Command{Type: cmdTogglePlayPause}) }
func (b *CommandBus) Next()            { b.Send(Command{Type: cmdNext}) }
func (b *CommandBus) Previous()        { b.Send(Command{Type: cmdPrevious}) }

func (b *CommandBus) SetVolume(vol float64) {
	b.Send(Command{Type: cmdSetVolume, Arg: vol})
}

// SeekRelative seeks by secs within the current track; negative seeks backward.
func (b *CommandBus) SeekRelative(secs int64) {
	b.Send(Command{Type: cmdSeekRelative, Arg: secs})
}

// SeekAbsolute seeks to secs from the start of the current track.
func (b *CommandBus) SeekAbsolute(secs uint64) {
	b.Send(Command{Type: cmdSeekAbsolute, Arg: secs})
}
