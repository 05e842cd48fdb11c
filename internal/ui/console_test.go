package ui

import (
	"errors"
	"image/color"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/vinylviz/internal/console"
	"github.com/cybre/vinylviz/internal/lights"
	"github.com/cybre/vinylviz/internal/playback"
	"github.com/cybre/vinylviz/internal/settings"
)

type fakeTransport struct {
	toggles int
	skips   int
	seeks   []time.Duration
	err     error
	tracks  []playback.Track
}

func (f *fakeTransport) Toggle() error { f.toggles++; return f.err }
func (f *fakeTransport) Skip() error   { f.skips++; return f.err }
func (f *fakeTransport) SeekBy(d time.Duration) error {
	f.seeks = append(f.seeks, d)
	return f.err
}
func (f *fakeTransport) Playlist() ([]playback.Track, int) { return f.tracks, 0 }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConsoleTransportKeys(t *testing.T) {
	tr := &fakeTransport{}
	m := newConsoleModel(settings.NewDefaultStore(), tr, nil)

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m.Update(runes("n"))
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})

	assert.Equal(t, 1, tr.toggles)
	assert.Equal(t, 1, tr.skips)
	assert.Equal(t, []time.Duration{-5 * time.Second, 5 * time.Second}, tr.seeks)
}

func TestConsoleSettingsKeysUpdateStore(t *testing.T) {
	store := settings.NewDefaultStore()
	m := newConsoleModel(store, &fakeTransport{}, nil)
	before := store.Snapshot().Version

	m.Update(runes("2"))
	m.Update(runes("e"))
	m.Update(runes("x"))

	st := store.Snapshot()
	assert.Equal(t, settings.PlotBars, st.Render.PlotType)
	assert.Equal(t, settings.PresetNeon.Next(), st.Preset)
	assert.Equal(t, before+2, st.Version)
}

func TestConsoleShowsTransportErrors(t *testing.T) {
	m := newConsoleModel(settings.NewDefaultStore(), &fakeTransport{err: errors.New("nothing loaded")}, nil)
	m.Update(runes("n"))
	assert.Contains(t, m.View(), "nothing loaded")
}

func TestConsoleQuitRunsExitOnce(t *testing.T) {
	calls := 0
	m := newConsoleModel(settings.NewDefaultStore(), &fakeTransport{}, func() { calls++ })

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, 1, calls)
}

func TestConsoleViewRendersFrame(t *testing.T) {
	tr := &fakeTransport{tracks: []playback.Track{{Title: "Opening", Hue: 120}, {Title: "Closer", Hue: 300}}}
	m := newConsoleModel(settings.NewDefaultStore(), tr, nil)
	assert.Contains(t, m.View(), "Waiting for audio frames")

	m.Update(frameMsg{frame: console.Frame{
		Style: settings.PlotDual,
		Stats: console.Stats{BPM: 128, EnergyPercent: 42},
		Timeline: console.Timeline{
			Known: true, Percent: 25, Elapsed: "0:30", Total: "2:00", Title: "Opening", Playing: true,
		},
		Scene: lights.Scene{
			Ambient:    lights.Ambient{Opacity: 0.5, Color: color.NRGBA{R: 255, A: 255}},
			Spotlights: lights.SpotlightsFor(0.5, 0.5),
		},
	}, receivedAt: time.Now()})

	view := m.View()
	assert.Contains(t, view, "128")
	assert.Contains(t, view, "42%")
	assert.Contains(t, view, "0:30 / 2:00")
	assert.Contains(t, view, "Closer")
	assert.Contains(t, view, "dual")
	assert.Greater(t, m.spotPos[0], 0.0)
}

func TestConsoleTimelineUnknownDuration(t *testing.T) {
	m := newConsoleModel(settings.NewDefaultStore(), &fakeTransport{}, nil)
	m.Update(frameMsg{frame: console.Frame{Timeline: console.Timeline{Known: false, Elapsed: "9:99"}}})
	view := m.View()
	assert.Contains(t, view, "--:-- / --:--")
	assert.NotContains(t, view, "9:99")
}

func TestConsolePublishKeepsNewest(t *testing.T) {
	c := NewConsole(settings.NewDefaultStore(), &fakeTransport{}, nil, tea.WithInput(nil), tea.WithoutRenderer())
	for i := range 3 {
		c.Publish(console.Frame{Seq: uint64(i)})
	}
	require.Len(t, c.frames, 1)
	assert.Equal(t, uint64(2), (<-c.frames).Seq)
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁█", sparkline([]float64{0, 1}, 2))
	assert.Equal(t, "▅▅▅", sparkline([]float64{3, 3, 3}, 3))
	assert.Empty(t, sparkline(nil, 4))
}
