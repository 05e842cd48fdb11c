package render

import (
	"encoding/json"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/vinylviz/internal/dsp"
	"github.com/cybre/vinylviz/internal/features"
	"github.com/cybre/vinylviz/internal/settings"
)

func flatFrame(timeValue, freqValue uint8) dsp.SpectralFrame {
	frame := dsp.SpectralFrame{TimeDomain: make([]uint8, 512), FreqDomain: make([]uint8, 512)}
	for i := range frame.TimeDomain {
		frame.TimeDomain[i] = timeValue
		frame.FreqDomain[i] = freqValue
	}
	return frame
}

func configFor(plot settings.PlotType) settings.RenderConfig {
	cfg := settings.DefaultRenderConfig()
	cfg.PlotType = plot
	return cfg
}

func TestLayoutBars(t *testing.T) {
	layout := LayoutBars(800, 10, 512)
	assert.Equal(t, 66, layout.Count)
	assert.Equal(t, 6, layout.Step)
	assert.InDelta(t, 4.0, layout.StartX, 1e-9)

	assert.Equal(t, BarLayout{}, LayoutBars(5, 10, 512))
}

func TestRenderExclusivity(t *testing.T) {
	frame := flatFrame(128, 200)
	colors := PresetColors(settings.PresetNeon)

	cases := []struct {
		plot      settings.PlotType
		polylines int
		rects     int
		lines     int
		circles   int
	}{
		{settings.PlotWave, 2, 0, 0, 0},
		{settings.PlotBars, 0, 132, 0, 0},
		{settings.PlotCircle, 0, 0, 120, 1},
		{settings.PlotDual, 0, 72, 0, 0},
	}

	for _, tc := range cases {
		t.Run(string(tc.plot), func(t *testing.T) {
			dl := NewDisplayList(800, 600)
			got := Render(dl, frame, features.Features{}, configFor(tc.plot), colors)

			assert.Equal(t, tc.plot, got)
			assert.Equal(t, 1, dl.Count(OpClear))
			assert.Equal(t, OpClear, dl.Ops()[0].Kind)
			assert.Equal(t, tc.polylines, dl.Count(OpPolyline))
			assert.Equal(t, tc.rects, dl.Count(OpFillRect))
			assert.Equal(t, tc.lines, dl.Count(OpLine))
			assert.Equal(t, tc.circles, dl.Count(OpCircle))
		})
	}
}

func TestRenderClearsPreviousFrame(t *testing.T) {
	dl := NewDisplayList(800, 600)
	frame := flatFrame(128, 200)
	colors := PresetColors(settings.PresetNeon)

	Render(dl, frame, features.Features{}, configFor(settings.PlotBars), colors)
	Render(dl, frame, features.Features{}, configFor(settings.PlotWave), colors)

	assert.Zero(t, dl.Count(OpFillRect))
	assert.Equal(t, 2, dl.Count(OpPolyline))
}

func TestWaveGeometry(t *testing.T) {
	dl := NewDisplayList(800, 600)
	Render(dl, flatFrame(128, 0), features.Features{}, configFor(settings.PlotWave), PresetColors(settings.PresetNeon))

	var polylines []Op
	for _, op := range dl.Ops() {
		if op.Kind == OpPolyline {
			polylines = append(polylines, op)
		}
	}
	require.Len(t, polylines, 2)

	primary, echo := polylines[0], polylines[1]
	require.Len(t, primary.Points, 512)
	require.Len(t, echo.Points, 256)
	assert.InDelta(t, 300, primary.Points[0].Y, 1e-9)
	assert.InDelta(t, 511*800.0/512, primary.Points[511].X, 1e-9)
	assert.InDelta(t, 320, echo.Points[0].Y, 1e-9)
	assert.InDelta(t, 2*800.0/512, echo.Points[1].X, 1e-9)
	assert.Equal(t, 10.0, primary.Width)
	assert.Equal(t, 5.0, echo.Width)
	assert.Equal(t, hex(0xff00ff), echo.Color)
}

func TestBarsGeometry(t *testing.T) {
	dl := NewDisplayList(800, 600)
	Render(dl, flatFrame(128, 255), features.Features{}, configFor(settings.PlotBars), PresetColors(settings.PresetFire))

	ops := dl.Ops()
	var rects []Op
	alphaBeforeReflection := 0.0
	for i, op := range ops {
		if op.Kind != OpFillRect {
			continue
		}
		rects = append(rects, op)
		if len(rects) == 2 {
			alphaBeforeReflection = ops[i-1].Alpha
		}
	}

	up, down := rects[0], rects[1]
	assert.InDelta(t, 4, up.X, 1e-9)
	assert.InDelta(t, 0, up.Y, 1e-9)
	assert.InDelta(t, 300, up.H, 1e-9)
	assert.InDelta(t, 300, down.Y, 1e-9)
	assert.InDelta(t, 150, down.H, 1e-9)
	assert.Equal(t, 0.5, alphaBeforeReflection)
	assert.Equal(t, hex(0xff5500), up.Color)
	assert.Equal(t, hex(0xffaa00), down.Color)
	assert.InDelta(t, 16, rects[2].X, 1e-9)
}

func TestCircleRadiusFollowsBass(t *testing.T) {
	dl := NewDisplayList(800, 600)
	Render(dl, flatFrame(128, 0), features.Features{BassEnergy: 0.5}, configFor(settings.PlotCircle), PresetColors(settings.PresetNeon))

	for _, op := range dl.Ops() {
		switch op.Kind {
		case OpCircle:
			assert.InDelta(t, 105, op.Radius, 1e-9)
			assert.Equal(t, 2.0, op.Width)
		case OpLine:
			assert.Equal(t, 5.0, op.Width)
		}
	}

	first := dl.Ops()
	for _, op := range first {
		if op.Kind == OpLine {
			assert.InDelta(t, 400+110, op.Points[0].X, 1e-9)
			assert.InDelta(t, 300, op.Points[0].Y, 1e-9)
			break
		}
	}
}

func TestDualMirrorsAroundCentre(t *testing.T) {
	dl := NewDisplayList(800, 600)
	cfg := configFor(settings.PlotDual)
	cfg.VerticalOffset = 10
	Render(dl, flatFrame(128, 255), features.Features{}, cfg, PresetColors(settings.PresetNeon))

	var rects []Op
	for _, op := range dl.Ops() {
		if op.Kind == OpFillRect {
			rects = append(rects, op)
		}
	}
	left, right := rects[0], rects[1]
	assert.InDelta(t, 390, left.X, 1e-9)
	assert.InDelta(t, 400, right.X, 1e-9)
	assert.InDelta(t, 320-150, left.Y, 1e-9)
	assert.Equal(t, hex(0x00ffff), left.Color)
	assert.Equal(t, hex(0xff00ff), right.Color)
}

func TestGlowEnabledThenReset(t *testing.T) {
	dl := NewDisplayList(800, 600)
	colors := PresetColors(settings.PresetNeon)
	Render(dl, flatFrame(128, 0), features.Features{}, configFor(settings.PlotWave), colors)

	ops := dl.Ops()
	assert.Equal(t, OpGlow, ops[1].Kind)
	assert.Equal(t, GlowBlur, ops[1].Blur)
	assert.Equal(t, colors.Glow, ops[1].Color)
	assert.Equal(t, OpGlow, ops[len(ops)-1].Kind)
	assert.Zero(t, ops[len(ops)-1].Blur)
}

func TestResolveColors(t *testing.T) {
	cfg := settings.DefaultRenderConfig()
	assert.Equal(t, PresetColors(settings.PresetCyber), ResolveColors(cfg, settings.PresetCyber))

	cfg.ColorPolicy = settings.ColorCustom
	cfg.CustomPrimary = "#112233"
	cfg.CustomSecondary = "#445566"
	got := ResolveColors(cfg, settings.PresetCyber)
	assert.Equal(t, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}, got.Primary)
	assert.Equal(t, color.NRGBA{R: 0x44, G: 0x55, B: 0x66, A: 0xff}, got.Secondary)
	assert.Equal(t, got.Primary, got.Glow)

	cfg.CustomPrimary = "not-a-colour"
	assert.Equal(t, PresetColors(settings.PresetCyber), ResolveColors(cfg, settings.PresetCyber))
}

func TestPresetTable(t *testing.T) {
	assert.Equal(t, "rgba(0,255,255,0.50)", CSS(PresetColors(settings.PresetNeon).Glow))
	assert.Equal(t, "#009944", CSS(PresetColors(settings.PresetDefault).Secondary))
	assert.Equal(t, "#aa00ff", CSS(PresetColors(settings.PresetElectric).Primary))
	assert.Equal(t, PresetColors(settings.PresetDefault), PresetColors("unknown"))
}

func TestDisplayListReplayAndJSON(t *testing.T) {
	src := NewDisplayList(800, 600)
	Render(src, flatFrame(128, 255), features.Features{}, configFor(settings.PlotBars), PresetColors(settings.PresetNeon))

	dst := NewDisplayList(800, 600)
	src.Replay(dst)
	assert.Equal(t, src.Ops(), dst.Ops())

	raw, err := json.Marshal(src)
	require.NoError(t, err)

	var decoded struct {
		Width float64 `json:"width"`
		Ops   []struct {
			Kind  string `json:"k"`
			Color string `json:"c"`
		} `json:"ops"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 800.0, decoded.Width)
	assert.Len(t, decoded.Ops, len(src.Ops()))
	assert.Equal(t, "fillRect", decoded.Ops[2].Kind)
	assert.Equal(t, "#00ffff", decoded.Ops[2].Color)
}

func TestCloneIsIndependent(t *testing.T) {
	dl := NewDisplayList(800, 600)
	Render(dl, flatFrame(128, 0), features.Features{}, configFor(settings.PlotWave), PresetColors(settings.PresetNeon))
	clone := dl.Clone()
	before := len(clone.Ops())

	Render(dl, flatFrame(128, 0), features.Features{}, configFor(settings.PlotBars), PresetColors(settings.PresetNeon))
	assert.Len(t, clone.Ops(), before)
	assert.Equal(t, 2, clone.Count(OpPolyline))
}
