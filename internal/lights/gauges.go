package lights

import (
	"image/color"
	"math"
	"time"

	"github.com/cybre/vinylviz/internal/features"
	"github.com/cybre/vinylviz/internal/render"
)

// GaugeKind selects the curve a stat gauge scrolls.
type GaugeKind int

const (
	GaugePulse GaugeKind = iota
	GaugeNoise
	GaugeSine
	GaugeSharp
)

// GaugeCount is the number of stat gauges.
const GaugeCount = 4

// String returns the gauge name shown in the stats panel.
func (k GaugeKind) String() string {
	switch k {
	case GaugePulse:
		return "pulse"
	case GaugeNoise:
		return "noise"
	case GaugeSine:
		return "sine"
	case GaugeSharp:
		return "sharp"
	default:
		return "unknown"
	}
}

// Gauge is one rendered stat gauge.
type Gauge struct {
	Kind   GaugeKind
	Value  float64
	Color  color.NRGBA
	Points []render.Point
}

var gaugeColors = [GaugeCount]color.NRGBA{
	GaugePulse: {R: 0x00, G: 0xa8, B: 0xff, A: 0xff},
	GaugeNoise: {R: 0xe9, G: 0x1e, B: 0x63, A: 0xff},
	GaugeSine:  {R: 0xff, G: 0x45, B: 0x00, A: 0xff},
	GaugeSharp: {R: 0xff, G: 0xd7, B: 0x00, A: 0xff},
}

// GaugesFor renders the four gauges: pulse over bpm/150, noise and sine over
// bass, sharp over mid.
func GaugesFor(f features.Features, width int, height float64, now time.Time, rng Random) [GaugeCount]Gauge {
	values := [GaugeCount]float64{
		GaugePulse: f.BPM / 150,
		GaugeNoise: f.BassEnergy,
		GaugeSine:  f.BassEnergy,
		GaugeSharp: f.MidEnergy,
	}

	var out [GaugeCount]Gauge
	for k := range out {
		kind := GaugeKind(k)
		out[k] = Gauge{
			Kind:   kind,
			Value:  values[k],
			Color:  gaugeColors[k],
			Points: GaugeCurve(kind, values[k], width, height, now, rng),
		}
	}
	return out
}

// GaugeCurve produces one point per column of a width-wide strip. The curve
// scrolls with the wall clock; only the noise gauge reads rng.
func GaugeCurve(kind GaugeKind, value float64, width int, height float64, now time.Time, rng Random) []render.Point {
	if width <= 0 {
		return nil
	}
	ms := float64(now.UnixMilli())
	points := make([]render.Point, width)
	for i := range width {
		fi := float64(i)
		offset := ms/20 + fi
		y := height / 2

		switch kind {
		case GaugePulse:
			y += math.Sin(fi*0.1+offset*0.1) * (height / 3) * value
		case GaugeNoise:
			y += (rng.Float64() - 0.5) * height * value
		case GaugeSine:
			y += math.Sin(fi*0.2+offset*0.2) * (height / 2) * value
		case GaugeSharp:
			sign := -1.0
			if i%10 < 5 {
				sign = 1
			}
			y += sign * (height / 3) * value
		}
		points[i] = render.Point{X: fi, Y: y}
	}
	return points
}
