// Package hotkey turns user input into recording control events.
//
// Listener watches a global key combo with gohook. It supports "hold" mode
// (press to start, release to stop) and "toggle" mode (each press toggles).
// LineListener toggles on every line read from a terminal.
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType indicates what the user asked for.
type EventType int

const (
	// EventStart signals that the hotkey was activated (start recording).
	EventStart EventType = iota
	// EventStop signals that the hotkey was deactivated (stop recording).
	EventStop
	// EventToggle asks to start if idle and stop otherwise.
	EventToggle
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventToggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Source produces control events until stopped.
type Source interface {
	// Events returns the event channel. It is closed when the source stops.
	Events() <-chan Event
	// Start blocks delivering events until Stop is called or input ends.
	Start()
	// Stop terminates the source. It is safe to call multiple times.
	Stop()
}

// emitter is the channel plumbing shared by the listeners.
type emitter struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

func newEmitter() *emitter {
	return &emitter{ch: make(chan Event, 16), done: make(chan struct{})}
}

// emit sends without blocking; a full channel drops the event.
func (e *emitter) emit(t EventType) {
	select {
	case e.ch <- Event{Type: t}:
	default:
	}
}

func (e *emitter) Events() <-chan Event { return e.ch }

func (e *emitter) Stop() {
	e.once.Do(func() { close(e.done) })
}

// Listener manages a global hotkey and emits events.
type Listener struct {
	*emitter
	keys []string
	mode string // "hold" or "toggle"
}

// NewListener creates a Listener for the given key combo and mode.
// keys should be lowercase key names (e.g., ["ctrl", "shift", "r"]).
func NewListener(keys []string, mode string) *Listener {
	return &Listener{emitter: newEmitter(), keys: keys, mode: mode}
}

// Start begins listening for the global hotkey.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	if l.mode == "toggle" {
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) { l.emit(EventToggle) })
	} else {
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) { l.emit(EventStart) })
		hook.Register(hook.KeyUp, l.keys, func(hook.Event) { l.emit(EventStop) })
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

var _ Source = (*Listener)(nil)
