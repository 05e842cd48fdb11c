package settings

import (
	"sync"
	"sync/atomic"

	"github.com/cybre/vinylviz/internal/utils"
)

// State is an immutable snapshot of everything the configuration surface owns.
type State struct {
	Render  RenderConfig
	Preset  Preset
	Mixer   Mixer
	Version uint64
}

// Listener is notified after each published change.
type Listener func(State)

// Store publishes State snapshots. Writers serialise on a mutex; readers load
// the current pointer and never observe a partially applied update.
type Store struct {
	current atomic.Pointer[State]

	mu        sync.Mutex
	listeners []Listener
}

// NewStore starts at version 0 with the given initial values.
func NewStore(render RenderConfig, preset Preset, mixer Mixer) *Store {
	s := &Store{}
	s.current.Store(&State{Render: render, Preset: preset, Mixer: mixer})
	return s
}

// NewDefaultStore uses the default render config, neon and the default mixer.
func NewDefaultStore() *Store {
	return NewStore(DefaultRenderConfig(), PresetNeon, DefaultMixer())
}

// Snapshot returns the current state by value.
func (s *Store) Snapshot() State {
	return *s.current.Load()
}

// Update applies fn to a copy of the current state and publishes it with the
// next version. Faders and sliders are clamped to their limits.
func (s *Store) Update(fn func(*State)) State {
	s.mu.Lock()
	next := *s.current.Load()
	fn(&next)
	next.Version++
	next.clamp()
	s.current.Store(&next)
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// Subscribe registers l for every later update.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (st *State) clamp() {
	st.Render.AmplitudeScale = utils.Clamp(st.Render.AmplitudeScale, MinAmplitudeScale, MaxAmplitudeScale)
	st.Render.StrokeWidth = utils.Clamp(st.Render.StrokeWidth, MinStrokeWidth, MaxStrokeWidth)
	st.Render.VerticalOffset = utils.Clamp(st.Render.VerticalOffset, MinVerticalOffset, MaxVerticalOffset)
	st.Mixer.Volume = utils.Clamp(st.Mixer.Volume, 0, 1)
	st.Mixer.Sensitivity = utils.Clamp(st.Mixer.Sensitivity, 0, 1)
}
