package features

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/vinylviz/internal/dsp"
)

func frameWith(fill func(i int) uint8) dsp.SpectralFrame {
	frame := dsp.SpectralFrame{
		TimeDomain: make([]uint8, 512),
		FreqDomain: make([]uint8, 512),
	}
	for i := range frame.FreqDomain {
		frame.FreqDomain[i] = fill(i)
		frame.TimeDomain[i] = 128
	}
	return frame
}

func TestExtractEnergyBands(t *testing.T) {
	frame := frameWith(func(i int) uint8 {
		switch {
		case i < 10:
			return 255
		case i >= 20 && i < 100:
			return 51
		default:
			return 7
		}
	})

	f := Extract(frame, BaselineBPM, rand.New(rand.NewSource(1)))
	assert.InDelta(t, 1.0, f.BassEnergy, 1e-12)
	assert.InDelta(t, 0.2, f.MidEnergy, 1e-12)
	assert.Equal(t, 100, f.EnergyPercent())
	assert.Equal(t, f.MidDecibels, f.TrebleDecibels())
}

func TestExtractEnergyBoundsRandomFrames(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 200 {
		frame := frameWith(func(int) uint8 { return uint8(rng.Intn(256)) })
		f := Extract(frame, BaselineBPM, rng)
		assert.GreaterOrEqual(t, f.BassEnergy, 0.0)
		assert.LessOrEqual(t, f.BassEnergy, 1.0)
		assert.GreaterOrEqual(t, f.MidEnergy, 0.0)
		assert.LessOrEqual(t, f.MidEnergy, 1.0)
	}
}

func TestBPMRelaxesTowardBaseline(t *testing.T) {
	quiet := frameWith(func(int) uint8 { return 40 })
	rng := rand.New(rand.NewSource(3))

	bpm := 90.0
	prevDistance := math.Abs(BaselineBPM - bpm)
	for range 300 {
		f := Extract(quiet, bpm, rng)
		distance := math.Abs(BaselineBPM - f.BPM)
		if prevDistance < 1e-9 {
			break
		}
		require.Less(t, distance, prevDistance)
		prevDistance = distance
		bpm = f.BPM
	}
	assert.InDelta(t, BaselineBPM, bpm, 1e-6)
}

func TestBPMFlutterOnKick(t *testing.T) {
	loud := frameWith(func(int) uint8 { return 250 })
	rng := rand.New(rand.NewSource(9))

	for range 50 {
		f := Extract(loud, 100, rng)
		assert.GreaterOrEqual(t, f.BPM, BaselineBPM)
		assert.Less(t, f.BPM, BaselineBPM+2)
	}
}

func TestDecibelsFloor(t *testing.T) {
	assert.Equal(t, 0, Decibels(0.99))
	assert.Equal(t, -6, Decibels(0.5))
	assert.Equal(t, -31, Decibels(0.02))
}

func TestExtractIsPure(t *testing.T) {
	frame := frameWith(func(i int) uint8 { return uint8(i % 200) })
	a := Extract(frame, 120, rand.New(rand.NewSource(5)))
	b := Extract(frame, 120, rand.New(rand.NewSource(5)))
	assert.Equal(t, a, b)
}

func TestExtractShortSpectrum(t *testing.T) {
	frame := dsp.SpectralFrame{
		TimeDomain: make([]uint8, 16),
		FreqDomain: make([]uint8, 16),
	}
	for i := range frame.FreqDomain {
		frame.FreqDomain[i] = 255
	}

	f := Extract(frame, BaselineBPM, rand.New(rand.NewSource(1)))
	assert.InDelta(t, 1.0, f.BassEnergy, 1e-12)
	assert.InDelta(t, 0, f.MidEnergy, 1e-12)
}

func TestExtractorCarriesBPM(t *testing.T) {
	e := NewExtractor(rand.New(rand.NewSource(11)))
	loud := frameWith(func(int) uint8 { return 250 })
	quiet := frameWith(func(int) uint8 { return 0 })

	kicked := e.Process(loud)
	relaxed := e.Process(quiet)
	assert.InDelta(t, kicked.BPM+(BaselineBPM-kicked.BPM)*0.1, relaxed.BPM, 1e-12)
	assert.Equal(t, relaxed.BPM, e.BPM())
	assert.GreaterOrEqual(t, relaxed.RoundedBPM(), 128)
	assert.LessOrEqual(t, relaxed.RoundedBPM(), 130)
}
