// Package ui is the terminal front end: the live console and the device picker.
package ui

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/cybre/vinylviz/internal/console"
	"github.com/cybre/vinylviz/internal/lights"
	"github.com/cybre/vinylviz/internal/playback"
	"github.com/cybre/vinylviz/internal/render"
	"github.com/cybre/vinylviz/internal/settings"
)

const renderLatency = 33 * time.Millisecond

// Transport is the playback surface the console drives.
type Transport interface {
	Toggle() error
	Skip() error
	SeekBy(delta time.Duration) error
	Playlist() ([]playback.Track, int)
}

// Console shows frames in the terminal and turns key presses into transport
// commands and settings updates.
type Console struct {
	program   *tea.Program
	frames    chan console.Frame
	closeOnce sync.Once
}

type frameMsg struct {
	frame      console.Frame
	receivedAt time.Time
}

// NewConsole builds the console. onExit runs once when the user quits.
func NewConsole(store *settings.Store, transport Transport, onExit func(), opts ...tea.ProgramOption) *Console {
	model := newConsoleModel(store, transport, onExit)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithoutSignalHandler()}, opts...)
	return &Console{
		program: tea.NewProgram(model, opts...),
		frames:  make(chan console.Frame, 1),
	}
}

// Publish implements console.Sink. Only the newest pending frame is kept.
func (c *Console) Publish(f console.Frame) {
	for {
		select {
		case c.frames <- f:
			return
		default:
		}
		select {
		case <-c.frames:
		default:
		}
	}
}

// Run drives the terminal until the user quits or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	go c.forward(ctx)
	go func() {
		<-ctx.Done()
		c.Close()
	}()
	_, err := c.program.Run()
	return err
}

// Close stops the program.
func (c *Console) Close() {
	c.closeOnce.Do(func() {
		c.program.Quit()
	})
}

func (c *Console) forward(ctx context.Context) {
	ticker := time.NewTicker(renderLatency)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case f := <-c.frames:
				c.program.Send(frameMsg{frame: f, receivedAt: time.Now()})
			default:
			}
		}
	}
}

type consoleModel struct {
	store     *settings.Store
	transport Transport
	onExit    func()
	exitOnce  *sync.Once

	frame       console.Frame
	lastUpdated time.Time
	ready       bool
	width       int
	status      string

	timeline progress.Model
	spring   harmonica.Spring
	spotPos  [lights.SpotlightCount]float64
	spotVel  [lights.SpotlightCount]float64
}

func newConsoleModel(store *settings.Store, transport Transport, onExit func()) *consoleModel {
	return &consoleModel{
		store:     store,
		transport: transport,
		onExit:    onExit,
		exitOnce:  &sync.Once{},
		timeline:  progress.New(progress.WithGradient("#00ffff", "#ff00ff"), progress.WithoutPercentage(), progress.WithWidth(barWidth+13)),
		spring:    harmonica.NewSpring(harmonica.FPS(int(time.Second/renderLatency)), 8.0, 0.6),
	}
}

func (m *consoleModel) Init() tea.Cmd {
	return nil
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case frameMsg:
		m.frame = msg.frame
		m.lastUpdated = msg.receivedAt
		m.ready = true
		for i, s := range msg.frame.Scene.Spotlights {
			m.spotPos[i], m.spotVel[i] = m.spring.Update(m.spotPos[i], m.spotVel[i], s.Height)
		}
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	}
	return m, nil
}

func (m *consoleModel) handleKey(key string) tea.Cmd {
	m.status = ""
	var err error
	switch key {
	case "ctrl+c", "esc", "q":
		m.invokeExit()
		return tea.Quit
	case " ":
		err = m.transport.Toggle()
	case "n":
		err = m.transport.Skip()
	case "left":
		err = m.transport.SeekBy(-seekStepSeconds * time.Second)
	case "right":
		err = m.transport.SeekBy(seekStepSeconds * time.Second)
	default:
		scratch := m.store.Snapshot()
		if adjustSettings(key, &scratch) {
			m.store.Update(func(st *settings.State) { adjustSettings(key, st) })
		}
	}
	if err != nil {
		m.status = err.Error()
	}
	return nil
}

func (m *consoleModel) invokeExit() {
	m.exitOnce.Do(func() {
		if m.onExit != nil {
			m.onExit()
		}
	})
}

func (m *consoleModel) View() string {
	st := m.store.Snapshot()
	var sections []string
	if !m.ready {
		sections = []string{
			titleStyle.Render("Vinyl Viz"),
			"",
			waitingStyle.Render("Waiting for audio frames…"),
		}
	} else {
		sections = []string{
			m.renderHeader(),
			renderStats(m.frame.Stats),
			"",
			m.renderTimeline(),
			"",
			renderAmbient(m.frame.Scene.Ambient),
			renderRings(m.frame.Scene.Rings),
			m.renderSpotlights(),
			"",
			renderGauges(m.frame.Scene.Gauges),
		}
	}
	sections = append(sections,
		"",
		m.renderPlaylist(),
		"",
		renderSettings(st),
	)
	if m.status != "" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	sections = append(sections, "", renderInstructions([]string{
		"space play/pause", "n next", "←/→ seek", "1-4 plot", "e effect",
		"+/- amp", "[/] stroke", "↑/↓ offset", "c colours", "s/d sens", "v/V vol", "q quit",
	}))
	return containerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *consoleModel) renderHeader() string {
	title := titleStyle.
		Foreground(lipgloss.Color(opaqueHex(m.frame.Colors.Primary))).
		Render("Vinyl Viz")
	mark := pausedMarkStyle.Render("❚❚")
	if m.frame.Timeline.Playing {
		mark = playingMarkStyle.Render("▶")
	}
	style := subtitleStyle.Render(string(m.frame.Style))
	stamp := metricLabelStyle.Render(m.lastUpdated.Format("15:04:05.000"))
	return lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", mark, "  ", style, "  ", stamp)
}

func renderStats(s console.Stats) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		renderMetric("BPM", fmt.Sprintf("%3d", s.BPM)), "   ",
		renderMetric("Energy", fmt.Sprintf("%3d%%", s.EnergyPercent)), "   ",
		renderMetric("Bass", fmt.Sprintf("%4d dB", s.BassDecibels)), "   ",
		renderMetric("Treble", fmt.Sprintf("%4d dB", s.TrebleDecibels)),
	)
}

func (m *consoleModel) renderTimeline() string {
	t := m.frame.Timeline
	title := t.Title
	if title == "" {
		title = "—"
	}
	clock := "--:-- / --:--"
	bar := m.timeline.ViewAs(0)
	if t.Known {
		clock = t.Elapsed + " / " + t.Total
		bar = m.timeline.ViewAs(t.Percent / 100)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		metricValueStyle.Render(title),
		lipgloss.JoinHorizontal(lipgloss.Left, bar, "  ", metricLabelStyle.Render(clock)),
	)
}

func renderAmbient(a lights.Ambient) string {
	hex := opaqueHex(a.Color)
	swatch := lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render(strings.Repeat(" ", 6))
	return lipgloss.JoinHorizontal(lipgloss.Left,
		renderBar("Ambient", a.Opacity, hex), "  ", swatch)
}

func renderRings(rings [lights.RingCount]lights.Ring) string {
	lines := make([]string, len(rings))
	for i, r := range rings {
		lines[i] = renderBar(fmt.Sprintf("Ring %d", i+1), r.ArcDegrees/360, opaqueHex(r.Color))
	}
	return strings.Join(lines, "\n")
}

func (m *consoleModel) renderSpotlights() string {
	lines := make([]string, len(m.spotPos))
	for i, h := range m.spotPos {
		hue := 40 + 20*float64(i)
		lines[i] = renderBar(fmt.Sprintf("Spot %d", i+1), h/100, hexColorFromHSV(hue, 0.6, 1))
	}
	return strings.Join(lines, "\n")
}

func renderGauges(gauges [lights.GaugeCount]lights.Gauge) string {
	lines := make([]string, len(gauges))
	for i, g := range gauges {
		values := make([]float64, len(g.Points))
		for j, p := range g.Points {
			values[j] = -p.Y
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(opaqueHex(g.Color)))
		lines[i] = lipgloss.JoinHorizontal(lipgloss.Left,
			barLabelStyle.Render(fmt.Sprintf("%-10s", g.Kind.String())),
			" ",
			style.Render(sparkline(values, barWidth+2)),
			" ",
			metricValueStyle.Render(fmt.Sprintf("%3.0f%%", g.Value*100)),
		)
	}
	return strings.Join(lines, "\n")
}

func (m *consoleModel) renderPlaylist() string {
	tracks, current := m.transport.Playlist()
	if len(tracks) == 0 {
		return emptyStateStyle.Render("No tracks loaded")
	}
	rows := make([]string, len(tracks))
	for i, t := range tracks {
		swatch := lipgloss.NewStyle().Background(lipgloss.Color(t.Swatch())).Render("  ")
		label := inactiveRowStyle.Render(t.Title)
		if i == current {
			label = lipgloss.NewStyle().
				Foreground(lipgloss.Color(t.Accent())).
				Bold(true).
				Render(t.Title)
		}
		rows[i] = lipgloss.JoinHorizontal(lipgloss.Left, renderPointer(i == current), " ", swatch, " ", label)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderSettings(st settings.State) string {
	r := st.Render
	colours := string(r.ColorPolicy)
	if r.ColorPolicy == settings.ColorCustom {
		colours += " " + r.CustomPrimary + "/" + r.CustomSecondary
	}
	top := lipgloss.JoinHorizontal(lipgloss.Left,
		renderMetric("Plot", string(r.PlotType)), "   ",
		renderMetric("Effect", string(st.Preset)), "   ",
		renderMetric("Colours", colours),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Left,
		renderMetric("Amp", fmt.Sprintf("%.1f", r.AmplitudeScale)), "   ",
		renderMetric("Stroke", fmt.Sprintf("%d", r.StrokeWidth)), "   ",
		renderMetric("Offset", fmt.Sprintf("%+d", r.VerticalOffset)), "   ",
		renderMetric("Vol", fmt.Sprintf("%.0f%%", st.Mixer.Volume*100)), "   ",
		renderMetric("Sens", fmt.Sprintf("%.0f%%", st.Mixer.Sensitivity*100)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

// opaqueHex drops alpha; terminals cannot blend.
func opaqueHex(c color.NRGBA) string {
	c.A = 0xff
	return render.CSS(c)
}
