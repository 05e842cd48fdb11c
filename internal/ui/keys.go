package ui

import (
	"math"

	"github.com/cybre/vinylviz/internal/settings"
)

const (
	amplitudeStep   = 0.1
	offsetStep      = 5
	faderStep       = 0.05
	seekStepSeconds = 5
)

// adjustSettings applies a configuration key to st and reports whether key
// was one.
func adjustSettings(key string, st *settings.State) bool {
	r := &st.Render
	switch key {
	case "1", "2", "3", "4":
		r.PlotType = settings.PlotTypes[key[0]-'1']
	case "e":
		st.Preset = st.Preset.Next()
	case "+", "=":
		r.AmplitudeScale = roundTenth(r.AmplitudeScale + amplitudeStep)
	case "-", "_":
		r.AmplitudeScale = roundTenth(r.AmplitudeScale - amplitudeStep)
	case "]":
		r.StrokeWidth++
	case "[":
		r.StrokeWidth--
	case "up":
		r.VerticalOffset -= offsetStep
	case "down":
		r.VerticalOffset += offsetStep
	case "c":
		if r.ColorPolicy == settings.ColorCustom {
			r.ColorPolicy = settings.ColorAuto
		} else {
			r.ColorPolicy = settings.ColorCustom
		}
	case "d":
		st.Mixer.Sensitivity = roundHundredth(st.Mixer.Sensitivity + faderStep)
	case "s":
		st.Mixer.Sensitivity = roundHundredth(st.Mixer.Sensitivity - faderStep)
	case "V":
		st.Mixer.Volume = roundHundredth(st.Mixer.Volume + faderStep)
	case "v":
		st.Mixer.Volume = roundHundredth(st.Mixer.Volume - faderStep)
	default:
		return false
	}
	return true
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func roundHundredth(v float64) float64 {
	return math.Round(v*100) / 100
}
