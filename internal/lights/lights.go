// Package lights maps perceptual features onto the secondary visual channels:
// the left edge bars, ambient backdrop, LED rings, spinning vinyl, spotlights,
// stat gauges and the top melody line.
package lights

import (
	"image/color"
	"math"
	"time"

	"github.com/cybre/vinylviz/internal/dsp"
	"github.com/cybre/vinylviz/internal/features"
	"github.com/cybre/vinylviz/internal/render"
)

// Input is everything the mappers read on one tick.
type Input struct {
	Frame        dsp.SpectralFrame
	Features     features.Features
	Sensitivity  float64
	Colors       render.ColorSet
	Playing      bool
	PlaybackRate float64
	Now          time.Time
}

// Scene is the state of every secondary channel after one tick.
type Scene struct {
	Ambient    Ambient
	Rings      [RingCount]Ring
	Vinyl      VinylPose
	Spotlights [SpotlightCount]Spotlight
	Gauges     [GaugeCount]Gauge
	Melody     []render.Point
}

// Geometry fixes the sizes of the gauge and melody strips.
type Geometry struct {
	GaugeWidth   int
	GaugeHeight  float64
	MelodyWidth  float64
	MelodyHeight float64
}

// DefaultGeometry matches the stat panel and melody strip of the console.
func DefaultGeometry() Geometry {
	return Geometry{GaugeWidth: 100, GaugeHeight: 30, MelodyWidth: 800, MelodyHeight: 60}
}

// Random is the noise source of the noise gauge. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
}

// Mapper runs every mapper in a fixed order and owns the vinyl rotation, which
// persists across ticks and pauses.
type Mapper struct {
	geometry Geometry
	rng      Random
	vinyl    Vinyl
}

// NewMapper creates a Mapper drawing gauge noise from rng.
func NewMapper(geometry Geometry, rng Random) *Mapper {
	if rng == nil {
		panic("lights: random source must not be nil")
	}
	return &Mapper{geometry: geometry, rng: rng}
}

// Apply draws the left edge bars onto s and computes the remaining channels.
func (m *Mapper) Apply(s render.Surface, in Input) Scene {
	var scene Scene

	DrawLeftBars(s, in.Frame.FreqDomain, in.Colors, in.Sensitivity)
	scene.Ambient = AmbientFor(in.Features.BassEnergy, in.Sensitivity, in.Colors)
	scene.Rings = RingsFor(in.Features.BassEnergy, in.Features.MidEnergy, in.Sensitivity, in.Now, in.Colors)
	scene.Vinyl = m.vinyl.Advance(in.Features.BassEnergy, in.PlaybackRate, in.Playing)
	scene.Spotlights = SpotlightsFor(in.Features.BassEnergy, in.Features.MidEnergy)
	scene.Gauges = GaugesFor(in.Features, m.geometry.GaugeWidth, m.geometry.GaugeHeight, in.Now, m.rng)
	scene.Melody = TopMelody(in.Frame.FreqDomain, m.geometry.MelodyWidth, m.geometry.MelodyHeight)

	return scene
}

// VinylAngle returns the accumulated rotation in degrees.
func (m *Mapper) VinylAngle() float64 {
	return m.vinyl.Angle()
}

// Left edge bars.
const (
	leftBarCount   = 12
	leftBarWidth   = 12.0
	leftBarGap     = 6.0
	leftBarX0      = 60.0
	leftBarBinStep = 4
)

// DrawLeftBars draws the vertical bars rising from the bottom left corner,
// each a glow rectangle under a gradient core fading to transparent.
func DrawLeftBars(s render.Surface, freq []uint8, colors render.ColorSet, sensitivity float64) {
	_, h := s.Size()
	for i := range leftBarCount {
		v := 0.0
		if idx := i * leftBarBinStep; idx < len(freq) {
			v = float64(freq[idx]) / 255
		}
		barHeight := math.Pow(v, 1.5) * (h * 0.5) * sensitivity
		x := leftBarX0 + float64(i)*(leftBarWidth+leftBarGap)
		y := h - barHeight

		s.FillRect(x-2, y-2, leftBarWidth+4, barHeight+4, colors.Glow)
		s.FillGradientRect(x, y, leftBarWidth, barHeight, colors.Primary, render.Transparent)
	}
}

// Ambient is the backdrop glow.
type Ambient struct {
	Opacity float64
	Color   color.NRGBA
}

// AmbientFor computes the backdrop opacity from bass energy.
func AmbientFor(bass, sensitivity float64, colors render.ColorSet) Ambient {
	return Ambient{Opacity: 0.2 + bass*sensitivity*0.8, Color: colors.Glow}
}

// RingCount is the number of LED rings.
const RingCount = 4

// Ring is one simulated LED ring.
type Ring struct {
	Brightness float64
	// ArcDegrees is the lit portion of the ring.
	ArcDegrees float64
	GlowRadius float64
	// Rotation follows the wall clock, not the audio.
	Rotation float64
	Color    color.NRGBA
}

// RingsFor lights the first two rings from bass and the other two from mid.
func RingsFor(bass, mid, sensitivity float64, now time.Time, colors render.ColorSet) [RingCount]Ring {
	var rings [RingCount]Ring
	rotation := float64(now.UnixMilli()) / 10
	for i := range rings {
		energy := mid
		if i < 2 {
			energy = bass
		}
		brightness := 0.2 + energy*sensitivity*2
		rings[i] = Ring{
			Brightness: brightness,
			ArcDegrees: brightness * 100,
			GlowRadius: brightness * 20,
			Rotation:   rotation,
			Color:      colors.Primary,
		}
	}
	return rings
}

// VinylPose is the vinyl transform for one tick.
type VinylPose struct {
	Angle float64
	Scale float64
}

// Vinyl accumulates the record rotation. The zero value starts at 0 degrees.
type Vinyl struct {
	angle float64
	scale float64
}

// Advance spins the record while playing; a paused record keeps its last pose.
func (v *Vinyl) Advance(bass, playbackRate float64, playing bool) VinylPose {
	if v.scale == 0 {
		v.scale = 1
	}
	if playing {
		v.angle += (0.5 + bass*0.2) * playbackRate
		v.scale = 1 + bass*0.05
	}
	return VinylPose{Angle: v.angle, Scale: v.scale}
}

// Angle returns the accumulated rotation in degrees.
func (v *Vinyl) Angle() float64 {
	return v.angle
}

// SpotlightCount is the number of spotlights per side.
const SpotlightCount = 3

// Spotlight is one stage light. Height is a percentage of the stage.
type Spotlight struct {
	Opacity float64
	Height  float64
}

var spotlightShapes = [SpotlightCount]struct {
	gain, base, span float64
	useBass          bool
}{
	{gain: 1.5, base: 50, span: 50, useBass: true},
	{gain: 1.5, base: 40, span: 60},
	{gain: 1.2, base: 30, span: 70},
}

// SpotlightsFor maps bass onto the first light and mid onto the other two.
func SpotlightsFor(bass, mid float64) [SpotlightCount]Spotlight {
	var out [SpotlightCount]Spotlight
	for i, shape := range spotlightShapes {
		energy := mid
		if shape.useBass {
			energy = bass
		}
		v := math.Min(1, energy*shape.gain)
		out[i] = Spotlight{Opacity: v, Height: shape.base + v*shape.span}
	}
	return out
}

const melodyStretch = 2.5

// MelodyColor is the stroke colour of the top melody line.
var MelodyColor = color.NRGBA{R: 0x00, G: 0xff, B: 0xff, A: 0xff}

// TopMelody traces the spectrum across the top strip. The x step stretches the
// bins so the upper part of the spectrum runs off the strip.
func TopMelody(freq []uint8, width, height float64) []render.Point {
	n := len(freq)
	if n == 0 {
		return nil
	}
	step := width / float64(n) * melodyStretch
	points := make([]render.Point, n)
	for i, b := range freq {
		x := float64(i) * step
		if i == 0 {
			y := float64(b) / 128 * height / 2
			points[i] = render.Point{X: x, Y: height/2 - y/2}
			continue
		}
		points[i] = render.Point{X: x, Y: height/2 - float64(b)/255*height}
	}
	return points
}
