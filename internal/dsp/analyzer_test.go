package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineTap(t *testing.T, freqBin float64, size int, amplitude float64) *Tap {
	t.Helper()
	tap := NewTap(size)
	samples := make([]float64, size)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freqBin*float64(i)/float64(size))
	}
	tap.WriteMono(samples)
	return tap
}

func TestAnalyserSilence(t *testing.T) {
	a := NewAnalyser(NewTap(2048), AnalyserOptions{})
	frame := a.Sample()

	require.Equal(t, 512, a.BinCount())
	require.Len(t, frame.TimeDomain, 512)
	require.Len(t, frame.FreqDomain, 512)
	for i := range frame.FreqDomain {
		assert.Equal(t, uint8(0), frame.FreqDomain[i])
		assert.Equal(t, uint8(128), frame.TimeDomain[i])
	}
}

func TestAnalyserSinePeak(t *testing.T) {
	tap := sineTap(t, 40, 1024, 0.9)
	a := NewAnalyser(tap, AnalyserOptions{FFTSize: 1024})

	var frame SpectralFrame
	for range 30 {
		frame = a.Sample()
	}

	peak := 0
	for i, v := range frame.FreqDomain {
		if v > frame.FreqDomain[peak] {
			peak = i
		}
	}
	assert.InDelta(t, 40, peak, 1)
	assert.Greater(t, frame.FreqDomain[peak], uint8(200))
	assert.Less(t, frame.FreqDomain[200], frame.FreqDomain[peak])
}

func TestAnalyserSmoothingRamps(t *testing.T) {
	tap := sineTap(t, 10, 1024, 0.5)
	a := NewAnalyser(tap, AnalyserOptions{})

	first := a.Sample().FreqDomain[10]
	second := a.Sample().FreqDomain[10]
	assert.Greater(t, second, first)

	a.Reset()
	assert.Equal(t, first, a.Sample().FreqDomain[10])
}

func TestAnalyserFramesAreIndependent(t *testing.T) {
	tap := sineTap(t, 10, 1024, 0.5)
	a := NewAnalyser(tap, AnalyserOptions{})

	first := a.Sample()
	snapshot := append([]uint8(nil), first.FreqDomain...)
	a.Sample()
	assert.Equal(t, snapshot, first.FreqDomain)
}

func TestAnalyserRejectsInvalidSize(t *testing.T) {
	assert.Panics(t, func() { NewAnalyser(NewTap(16), AnalyserOptions{FFTSize: 1000}) })
}

func TestTimeDomainByte(t *testing.T) {
	assert.Equal(t, uint8(128), TimeDomainByte(0))
	assert.Equal(t, uint8(255), TimeDomainByte(1))
	assert.Equal(t, uint8(0), TimeDomainByte(-1))
	assert.Equal(t, uint8(192), TimeDomainByte(0.5))
}

func TestTapLatestPadsHead(t *testing.T) {
	tap := NewTap(4)
	tap.WriteMono([]float64{1, 2})

	dst := make([]float64, 3)
	n := tap.Latest(dst)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{0, 1, 2}, dst)

	tap.WriteStereo([][2]float64{{3, 5}, {6, 6}, {7, 7}})
	n = tap.Latest(dst)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float64{4, 6, 7}, dst)

	tap.Reset()
	assert.Equal(t, 0, tap.Latest(dst))
	assert.Equal(t, []float64{0, 0, 0}, dst)
}

func TestToMono(t *testing.T) {
	mono := ToMono([]float32{1, 3, -1, -3}, 2, nil)
	assert.Equal(t, []float64{2, -2}, mono)
}

func TestSmoother(t *testing.T) {
	s := NewSmoother(0.5)
	assert.Equal(t, 1.0, s.Step(1))
	assert.Equal(t, 2.0, s.Step(3))
	assert.Equal(t, 2.0, s.Value())
}
