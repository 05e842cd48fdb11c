// Package features reduces a spectral frame to the handful of scalar values the
// visual channels are driven by.
//
// The BPM value is a display simulation, not a tempo estimate: a loud kick
// snaps it to the baseline plus a little jitter and otherwise it relaxes back
// towards the baseline. Nothing here performs beat detection.
package features

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cybre/vinylviz/internal/dsp"
)

const (
	// BaselineBPM is the value the simulated BPM rests at.
	BaselineBPM = 128.0

	bassStart, bassEnd = 0, 10
	midStart, midEnd   = 20, 100

	kickThreshold = 0.8
	jitterSpan    = 2.0
	relaxFactor   = 0.1

	// decibelFloor keeps log10 away from zero; stat displays depend on the exact value.
	decibelFloor = 0.01
)

// Jitter is the randomness consumed by the BPM flutter. *rand.Rand satisfies it.
type Jitter interface {
	Float64() float64
}

// Features are the per-tick perceptual values derived from one SpectralFrame.
type Features struct {
	BassEnergy   float64
	MidEnergy    float64
	BPM          float64
	BassDecibels int
	MidDecibels  int
}

// EnergyPercent is the "energy" stat: bass energy as a whole percentage.
func (f Features) EnergyPercent() int {
	return int(math.Floor(f.BassEnergy * 100))
}

// TrebleDecibels is reported from the mid band; no separate high band is isolated.
func (f Features) TrebleDecibels() int {
	return f.MidDecibels
}

// RoundedBPM is the BPM as shown on the stat panel.
func (f Features) RoundedBPM() int {
	return int(math.Round(f.BPM))
}

// Extract derives Features from frame. It is a pure function of its arguments:
// previousBPM carries the smoothed value between ticks and jitter is only read
// when the kick threshold is crossed.
func Extract(frame dsp.SpectralFrame, previousBPM float64, jitter Jitter) Features {
	bass := bandMean(frame.FreqDomain, bassStart, bassEnd) / 255
	mid := bandMean(frame.FreqDomain, midStart, midEnd) / 255

	return Features{
		BassEnergy:   bass,
		MidEnergy:    mid,
		BPM:          NextBPM(previousBPM, bass, jitter),
		BassDecibels: Decibels(bass),
		MidDecibels:  Decibels(mid),
	}
}

// NextBPM advances the simulated BPM by one tick.
func NextBPM(previous, bassEnergy float64, jitter Jitter) float64 {
	if bassEnergy > kickThreshold {
		return BaselineBPM + jitter.Float64()*jitterSpan
	}
	return previous + (BaselineBPM-previous)*relaxFactor
}

// Decibels maps a normalised energy to the integer dB figure on the stat panel.
func Decibels(energy float64) int {
	return int(math.Floor(20 * math.Log10(energy+decibelFloor)))
}

// bandMean averages bins [start, end). The divisor is the nominal band width,
// so a spectrum shorter than the band reads as quieter rather than louder.
func bandMean(bins []uint8, start, end int) float64 {
	width := end - start
	end = min(end, len(bins))
	if start >= end {
		return 0
	}

	values := make([]float64, end-start)
	for i, b := range bins[start:end] {
		values[i] = float64(b)
	}
	return floats.Sum(values) / float64(width)
}

// Extractor carries the BPM between ticks so callers can feed frames one by one.
type Extractor struct {
	bpm    float64
	jitter Jitter
}

// NewExtractor starts at the baseline BPM.
func NewExtractor(jitter Jitter) *Extractor {
	if jitter == nil {
		panic("features: jitter source must not be nil")
	}
	return &Extractor{bpm: BaselineBPM, jitter: jitter}
}

// Process extracts features for frame and remembers the resulting BPM.
func (e *Extractor) Process(frame dsp.SpectralFrame) Features {
	f := Extract(frame, e.bpm, e.jitter)
	e.bpm = f.BPM
	return f
}

// BPM returns the last smoothed BPM.
func (e *Extractor) BPM() float64 {
	return e.bpm
}
