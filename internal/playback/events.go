package playback

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"
)

// EventKind names a playback notification.
type EventKind string

const (
	EventPlay         EventKind = "play"
	EventPause        EventKind = "pause"
	EventEnded        EventKind = "ended"
	EventTimeUpdate   EventKind = "timeupdate"
	EventTrackChanged EventKind = "trackchanged"
)

// State is the playback state the visual core reads.
type State struct {
	IsPlaying    bool
	CurrentTime  time.Duration
	Duration     time.Duration
	PlaybackRate float64
	TrackIndex   int
	Title        string
}

// Percent is the timeline position in [0,100]; ok is false when the duration
// is unknown.
func (s State) Percent() (float64, bool) {
	if s.Duration <= 0 {
		return 0, false
	}
	return math.Min(100, float64(s.CurrentTime)/float64(s.Duration)*100), true
}

// FormatClock renders d as mm:ss with whole seconds truncated.
func FormatClock(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Event is delivered to Bus subscribers.
type Event struct {
	Kind  EventKind
	State State
}

// Bus fans playback events out to subscribers synchronously, in registration
// order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventKind][]func(Event)
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventKind][]func(Event))}
}

// On registers fn for kind.
func (b *Bus) On(kind EventKind, fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], fn)
}

// Emit delivers ev to every handler registered for its kind.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	handlers := slices.Clone(b.handlers[ev.Kind])
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(ev)
	}
}
