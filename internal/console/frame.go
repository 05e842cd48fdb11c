package console

import (
	"time"

	"github.com/cybre/vinylviz/internal/features"
	"github.com/cybre/vinylviz/internal/lights"
	"github.com/cybre/vinylviz/internal/playback"
	"github.com/cybre/vinylviz/internal/render"
	"github.com/cybre/vinylviz/internal/settings"
)

// Frame is everything one tick produced. Sinks receive their own copy of the
// display list and may keep the frame.
type Frame struct {
	Seq      uint64
	At       time.Time
	Display  *render.DisplayList
	Style    settings.PlotType
	Colors   render.ColorSet
	Scene    lights.Scene
	Features features.Features
	Stats    Stats
	Timeline Timeline
	Settings settings.State
}

// Stats is the stat panel text.
type Stats struct {
	BPM           int
	EnergyPercent int
	BassDecibels  int
	// TrebleDecibels is derived from the mid band.
	TrebleDecibels int
}

// StatsFor formats f for the stat panel.
func StatsFor(f features.Features) Stats {
	return Stats{
		BPM:            f.RoundedBPM(),
		EnergyPercent:  f.EnergyPercent(),
		BassDecibels:   f.BassDecibels,
		TrebleDecibels: f.TrebleDecibels(),
	}
}

// Timeline is the progress bar state. Known is false while the duration is
// unknown, in which case the other fields keep their previous values.
type Timeline struct {
	Known    bool
	Percent  float64
	Elapsed  string
	Total    string
	Playing  bool
	Title    string
	Track    int
	Position time.Duration
	Duration time.Duration
}

func (t Timeline) update(st playback.State) Timeline {
	t.Playing, t.Title, t.Track = st.IsPlaying, st.Title, st.TrackIndex
	pct, ok := st.Percent()
	if !ok {
		t.Known = false
		return t
	}
	t.Known = true
	t.Percent = pct
	t.Elapsed = playback.FormatClock(st.CurrentTime)
	t.Total = playback.FormatClock(st.Duration)
	t.Position = st.CurrentTime
	t.Duration = st.Duration
	return t
}

// Sink consumes frames. Publish runs on the scheduler goroutine and must not
// block.
type Sink interface {
	Publish(Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame)

func (f SinkFunc) Publish(fr Frame) { f(fr) }
