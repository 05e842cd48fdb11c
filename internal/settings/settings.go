// Package settings holds the values the configuration surface edits and the
// per-tick pipeline reads: render configuration, effect preset and mixer.
package settings

import (
	"strings"

	"github.com/rotisserie/eris"
)

// PlotType selects the renderer strategy.
type PlotType string

const (
	PlotWave   PlotType = "wave"
	PlotBars   PlotType = "bars"
	PlotCircle PlotType = "circle"
	PlotDual   PlotType = "dual"
)

// PlotTypes lists the plot types in the order the number keys select them.
var PlotTypes = []PlotType{PlotWave, PlotBars, PlotCircle, PlotDual}

// ParsePlotType accepts a plot type name, case-insensitively.
func ParsePlotType(s string) (PlotType, error) {
	for _, p := range PlotTypes {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", eris.Errorf("unknown plot type %q", s)
}

// ColorPolicy decides where the renderer takes its colours from.
type ColorPolicy string

const (
	ColorAuto   ColorPolicy = "auto"
	ColorCustom ColorPolicy = "custom"
)

// ParseColorPolicy accepts "auto" or "custom".
func ParseColorPolicy(s string) (ColorPolicy, error) {
	switch strings.ToLower(s) {
	case string(ColorAuto):
		return ColorAuto, nil
	case string(ColorCustom):
		return ColorCustom, nil
	}
	return "", eris.Errorf("unknown colour mode %q", s)
}

// Preset names one of the fixed effect palettes.
type Preset string

const (
	PresetNeon     Preset = "neon"
	PresetFire     Preset = "fire"
	PresetElectric Preset = "electric"
	PresetCyber    Preset = "cyber"
	PresetDefault  Preset = "default"
)

// Presets lists the presets in selector order.
var Presets = []Preset{PresetNeon, PresetFire, PresetElectric, PresetCyber, PresetDefault}

// ParsePreset accepts a preset name, case-insensitively.
func ParsePreset(s string) (Preset, error) {
	for _, p := range Presets {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", eris.Errorf("unknown effect preset %q", s)
}

// Next cycles to the following preset, wrapping after the last one.
func (p Preset) Next() Preset {
	for i, candidate := range Presets {
		if candidate == p {
			return Presets[(i+1)%len(Presets)]
		}
	}
	return PresetNeon
}

// RenderConfig is the renderer configuration edited from the console.
type RenderConfig struct {
	PlotType        PlotType
	AmplitudeScale  float64
	StrokeWidth     int
	VerticalOffset  int
	ColorPolicy     ColorPolicy
	CustomPrimary   string
	CustomSecondary string
}

// DefaultRenderConfig returns the configuration a fresh session starts with.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		PlotType:        PlotWave,
		AmplitudeScale:  1.0,
		StrokeWidth:     10,
		VerticalOffset:  0,
		ColorPolicy:     ColorAuto,
		CustomPrimary:   "#00ffff",
		CustomSecondary: "#ff00ff",
	}
}

// Slider limits for the configuration surface.
const (
	MinAmplitudeScale = 0.1
	MaxAmplitudeScale = 3.0
	MinStrokeWidth    = 1
	MaxStrokeWidth    = 50
	MinVerticalOffset = -100
	MaxVerticalOffset = 100
)

// Validate reports values the renderer cannot work with.
func (c RenderConfig) Validate() error {
	if _, err := ParsePlotType(string(c.PlotType)); err != nil {
		return err
	}
	if _, err := ParseColorPolicy(string(c.ColorPolicy)); err != nil {
		return err
	}
	if c.AmplitudeScale <= 0 {
		return eris.Errorf("amplitude scale must be positive, got %v", c.AmplitudeScale)
	}
	if c.StrokeWidth <= 0 {
		return eris.Errorf("stroke width must be positive, got %d", c.StrokeWidth)
	}
	return nil
}

// Mixer holds the two faders outside the render configuration.
type Mixer struct {
	// Volume is the master gain, applied before the analyser tap.
	Volume float64
	// Sensitivity scales every ancillary mapper.
	Sensitivity float64
}

// DefaultMixer returns the initial fader positions.
func DefaultMixer() Mixer {
	return Mixer{Volume: 0.8, Sensitivity: 0.6}
}
