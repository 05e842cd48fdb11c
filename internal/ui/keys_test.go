package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cybre/vinylviz/internal/settings"
)

func TestAdjustSettings(t *testing.T) {
	base := settings.State{
		Render: settings.DefaultRenderConfig(),
		Preset: settings.PresetNeon,
		Mixer:  settings.DefaultMixer(),
	}

	cases := []struct {
		key   string
		check func(t *testing.T, st settings.State)
	}{
		{"3", func(t *testing.T, st settings.State) { assert.Equal(t, settings.PlotCircle, st.Render.PlotType) }},
		{"e", func(t *testing.T, st settings.State) { assert.Equal(t, settings.PresetNeon.Next(), st.Preset) }},
		{"+", func(t *testing.T, st settings.State) { assert.Equal(t, 1.1, st.Render.AmplitudeScale) }},
		{"-", func(t *testing.T, st settings.State) { assert.Equal(t, 0.9, st.Render.AmplitudeScale) }},
		{"]", func(t *testing.T, st settings.State) { assert.Equal(t, 11, st.Render.StrokeWidth) }},
		{"up", func(t *testing.T, st settings.State) { assert.Equal(t, -offsetStep, st.Render.VerticalOffset) }},
		{"c", func(t *testing.T, st settings.State) { assert.Equal(t, settings.ColorCustom, st.Render.ColorPolicy) }},
		{"d", func(t *testing.T, st settings.State) { assert.Equal(t, 0.65, st.Mixer.Sensitivity) }},
		{"v", func(t *testing.T, st settings.State) { assert.Equal(t, 0.75, st.Mixer.Volume) }},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			st := base
			assert.True(t, adjustSettings(tc.key, &st))
			tc.check(t, st)
		})
	}

	st := base
	assert.False(t, adjustSettings("x", &st))
	assert.Equal(t, base, st)
}
