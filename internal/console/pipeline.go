// Package console runs the per-tick pipeline and binds it to playback.
package console

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cybre/vinylviz/internal/dsp"
	"github.com/cybre/vinylviz/internal/features"
	"github.com/cybre/vinylviz/internal/lights"
	"github.com/cybre/vinylviz/internal/playback"
	"github.com/cybre/vinylviz/internal/render"
	"github.com/cybre/vinylviz/internal/settings"
)

// Sampler produces spectral frames. *dsp.Analyser satisfies it.
type Sampler interface {
	Sample() dsp.SpectralFrame
}

// PlaybackSource reports the transport state. *playback.Controller satisfies it.
type PlaybackSource interface {
	State() playback.State
}

// Options sizes the primary surface.
type Options struct {
	Width    float64
	Height   float64
	Geometry lights.Geometry
}

// Pipeline performs one tick: sample, extract, render, run the mappers,
// update the time display, then publish to sinks. It is not safe for
// concurrent Tick calls; the scheduler runs it from a single goroutine.
type Pipeline struct {
	sampler   Sampler
	store     *settings.Store
	playback  PlaybackSource
	extractor *features.Extractor
	mapper    *lights.Mapper
	display   *render.DisplayList
	logger    *slog.Logger

	seq      uint64
	timeline Timeline

	mu    sync.RWMutex
	sinks []Sink
	last  Frame
}

// NewPipeline wires a pipeline. jitter drives the BPM flutter and noise the
// noise gauge; both are injected so runs can be reproduced.
func NewPipeline(
	sampler Sampler,
	store *settings.Store,
	source PlaybackSource,
	opts Options,
	jitter features.Jitter,
	noise lights.Random,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		sampler:   sampler,
		store:     store,
		playback:  source,
		extractor: features.NewExtractor(jitter),
		mapper:    lights.NewMapper(opts.Geometry, noise),
		display:   render.NewDisplayList(opts.Width, opts.Height),
		logger:    logger,
	}
}

// AddSink registers s for every later frame.
func (p *Pipeline) AddSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

// Last returns the most recent frame.
func (p *Pipeline) Last() Frame {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Tick runs one frame. It matches scheduler.TickFunc.
func (p *Pipeline) Tick(_ context.Context, now time.Time) error {
	snapshot := p.store.Snapshot()
	st := p.playback.State()

	frame := p.sampler.Sample()
	feat := p.extractor.Process(frame)

	colors := render.ResolveColors(snapshot.Render, snapshot.Preset)
	style := render.Render(p.display, frame, feat, snapshot.Render, colors)

	scene := p.mapper.Apply(p.display, lights.Input{
		Frame:        frame,
		Features:     feat,
		Sensitivity:  snapshot.Mixer.Sensitivity,
		Colors:       render.PresetColors(snapshot.Preset),
		Playing:      st.IsPlaying,
		PlaybackRate: st.PlaybackRate,
		Now:          now,
	})

	p.timeline = p.timeline.update(st)
	p.seq++

	out := Frame{
		Seq:      p.seq,
		At:       now,
		Display:  p.display.Clone(),
		Style:    style,
		Colors:   colors,
		Scene:    scene,
		Features: feat,
		Stats:    StatsFor(feat),
		Timeline: p.timeline,
		Settings: snapshot,
	}

	p.mu.Lock()
	p.last = out
	sinks := append([]Sink(nil), p.sinks...)
	p.mu.Unlock()

	for _, s := range sinks {
		s.Publish(out)
	}
	return nil
}

// VinylAngle exposes the accumulated vinyl rotation.
func (p *Pipeline) VinylAngle() float64 {
	return p.mapper.VinylAngle()
}

// BPM exposes the smoothed BPM carried between ticks.
func (p *Pipeline) BPM() float64 {
	return p.extractor.BPM()
}
