package console

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/vinylviz/internal/dsp"
	"github.com/cybre/vinylviz/internal/lights"
	"github.com/cybre/vinylviz/internal/playback"
	"github.com/cybre/vinylviz/internal/render"
	"github.com/cybre/vinylviz/internal/scheduler"
	"github.com/cybre/vinylviz/internal/settings"
)

type fixedSampler struct {
	frame dsp.SpectralFrame
	calls int
}

func (s *fixedSampler) Sample() dsp.SpectralFrame {
	s.calls++
	return s.frame
}

type fakePlayback struct {
	mu    sync.Mutex
	state playback.State
}

func (f *fakePlayback) State() playback.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakePlayback) set(st playback.State) {
	f.mu.Lock()
	f.state = st
	f.mu.Unlock()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loudFrame() dsp.SpectralFrame {
	frame := dsp.SpectralFrame{TimeDomain: make([]uint8, 512), FreqDomain: make([]uint8, 512)}
	for i := range frame.FreqDomain {
		frame.FreqDomain[i] = 153
		frame.TimeDomain[i] = 128
	}
	return frame
}

func newTestPipeline(store *settings.Store, pb *fakePlayback) (*Pipeline, *fixedSampler) {
	sampler := &fixedSampler{frame: loudFrame()}
	p := NewPipeline(sampler, store, pb, Options{
		Width:    800,
		Height:   600,
		Geometry: lights.DefaultGeometry(),
	}, rand.New(rand.NewSource(1)), rand.New(rand.NewSource(2)), quietLogger())
	return p, sampler
}

func TestTickProducesFrame(t *testing.T) {
	store := settings.NewDefaultStore()
	pb := &fakePlayback{state: playback.State{IsPlaying: true, PlaybackRate: 1}}
	p, sampler := newTestPipeline(store, pb)

	var got []Frame
	p.AddSink(SinkFunc(func(f Frame) { got = append(got, f) }))

	require.NoError(t, p.Tick(context.Background(), time.UnixMilli(1000)))
	require.Len(t, got, 1)
	assert.Equal(t, 1, sampler.calls)

	f := got[0]
	assert.Equal(t, uint64(1), f.Seq)
	assert.Equal(t, settings.PlotWave, f.Style)
	assert.Equal(t, render.OpClear, f.Display.Ops()[0].Kind)
	assert.Equal(t, 2, f.Display.Count(render.OpPolyline))
	assert.Equal(t, 12, f.Display.Count(render.OpGradientRect))

	assert.InDelta(t, 0.6, f.Features.BassEnergy, 1e-12)
	assert.Equal(t, 60, f.Stats.EnergyPercent)
	assert.Equal(t, 128, f.Stats.BPM)
	assert.Equal(t, f.Stats.TrebleDecibels, f.Features.MidDecibels)
	assert.InDelta(t, 0.2+0.6*0.6*0.8, f.Scene.Ambient.Opacity, 1e-12)
	assert.InDelta(t, 0.9, f.Scene.Spotlights[0].Opacity, 1e-12)
	assert.Equal(t, f, p.Last())
}

func TestTickTakesOneSnapshot(t *testing.T) {
	store := settings.NewDefaultStore()
	pb := &fakePlayback{}
	p, _ := newTestPipeline(store, pb)

	store.Update(func(s *settings.State) { s.Render.PlotType = settings.PlotBars })
	require.NoError(t, p.Tick(context.Background(), time.Now()))
	first := p.Last()

	store.Update(func(s *settings.State) { s.Render.PlotType = settings.PlotCircle })
	assert.Equal(t, settings.PlotBars, first.Style)
	assert.Equal(t, uint64(1), first.Settings.Version)
	assert.Equal(t, 132, first.Display.Count(render.OpFillRect)-12)

	require.NoError(t, p.Tick(context.Background(), time.Now()))
	assert.Equal(t, settings.PlotCircle, p.Last().Style)
}

func TestVinylPersistsAcrossPause(t *testing.T) {
	store := settings.NewDefaultStore()
	pb := &fakePlayback{state: playback.State{IsPlaying: true, PlaybackRate: 1}}
	p, _ := newTestPipeline(store, pb)

	for range 3 {
		require.NoError(t, p.Tick(context.Background(), time.Now()))
	}
	angle := p.VinylAngle()
	assert.InDelta(t, 3*(0.5+0.6*0.2), angle, 1e-9)

	pb.set(playback.State{IsPlaying: false, PlaybackRate: 1})
	require.NoError(t, p.Tick(context.Background(), time.Now()))
	assert.Equal(t, angle, p.VinylAngle())

	pb.set(playback.State{IsPlaying: true, PlaybackRate: 2})
	require.NoError(t, p.Tick(context.Background(), time.Now()))
	assert.InDelta(t, angle+2*(0.5+0.6*0.2), p.VinylAngle(), 1e-9)
}

func TestTimelineKeepsValuesWhenDurationUnknown(t *testing.T) {
	store := settings.NewDefaultStore()
	pb := &fakePlayback{state: playback.State{
		IsPlaying:   true,
		CurrentTime: 75 * time.Second,
		Duration:    150 * time.Second,
	}}
	p, _ := newTestPipeline(store, pb)

	require.NoError(t, p.Tick(context.Background(), time.Now()))
	tl := p.Last().Timeline
	assert.True(t, tl.Known)
	assert.InDelta(t, 50, tl.Percent, 1e-9)
	assert.Equal(t, "01:15", tl.Elapsed)
	assert.Equal(t, "02:30", tl.Total)

	pb.set(playback.State{IsPlaying: true})
	require.NoError(t, p.Tick(context.Background(), time.Now()))
	tl = p.Last().Timeline
	assert.False(t, tl.Known)
	assert.Equal(t, "01:15", tl.Elapsed)
}

type fakeTicker struct{ c chan time.Time }

func (f *fakeTicker) Start()              {}
func (f *fakeTicker) Stop()               {}
func (f *fakeTicker) C() <-chan time.Time { return f.c }

type recordingTransport struct {
	mu      sync.Mutex
	volumes []float64
}

func (r *recordingTransport) SetVolume(v float64) {
	r.mu.Lock()
	r.volumes = append(r.volumes, v)
	r.mu.Unlock()
}

func TestBindFollowsPlaybackAndVolume(t *testing.T) {
	store := settings.NewDefaultStore()
	p, _ := newTestPipeline(store, &fakePlayback{})
	c := New(p, &fakeTicker{c: make(chan time.Time)}, store, quietLogger())

	bus := playback.NewBus()
	transport := &recordingTransport{}
	c.Bind(bus, transport)
	c.Bind(bus, transport)

	bus.Emit(playback.Event{Kind: playback.EventPlay})
	assert.Equal(t, scheduler.Running, c.Scheduler.State())
	bus.Emit(playback.Event{Kind: playback.EventPause})
	assert.Equal(t, scheduler.Stopped, c.Scheduler.State())

	store.Update(func(s *settings.State) { s.Mixer.Sensitivity = 0.9 })
	store.Update(func(s *settings.State) { s.Mixer.Volume = 0.3 })
	assert.Equal(t, []float64{0.8, 0.3}, transport.volumes)
}
