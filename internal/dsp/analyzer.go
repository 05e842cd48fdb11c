package dsp

import (
	"math"
	"math/bits"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/cybre/vinylviz/internal/utils"
)

// SpectralFrame is one tick worth of byte-scaled analysis data. Both slices have
// the analyser's bin count and are never written after Sample returns them.
type SpectralFrame struct {
	TimeDomain []uint8
	FreqDomain []uint8
}

// BinCount returns the number of bins carried by the frame.
func (f SpectralFrame) BinCount() int {
	return len(f.FreqDomain)
}

// SampleSource exposes the most recent mono samples of whatever is being played
// or captured.
type SampleSource interface {
	// Latest copies the newest len(dst) samples into dst, oldest first, and
	// zero-fills the head when fewer samples are available.
	Latest(dst []float64) int
}

// AnalyserOptions tunes the Analyser. Zero values select the defaults.
type AnalyserOptions struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

const (
	DefaultFFTSize     = 1024
	DefaultSmoothing   = 0.85
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// Analyser turns the latest window of samples into byte-scaled time and
// frequency domain data, in the manner of a browser analyser node: Blackman
// window, magnitude normalised by the FFT size, exponential smoothing over time
// and a linear mapping of [MinDecibels, MaxDecibels] onto [0, 255].
type Analyser struct {
	source      SampleSource
	fftSize     int
	smoothing   float64
	minDecibels float64
	maxDecibels float64

	window   []float64
	samples  []float64
	windowed []float64
	smoothed []float64
}

// NewAnalyser constructs an Analyser reading from source. The FFT size must be a
// power of two; the bin count is half of it and stays fixed for the lifetime of
// the analyser.
func NewAnalyser(source SampleSource, opts AnalyserOptions) *Analyser {
	if source == nil {
		panic("dsp: source must not be nil")
	}
	if opts.FFTSize <= 0 {
		opts.FFTSize = DefaultFFTSize
	}
	if bits.OnesCount(uint(opts.FFTSize)) != 1 || opts.FFTSize < 32 {
		panic("dsp: fftSize must be a power of two >= 32")
	}
	if opts.Smoothing <= 0 || opts.Smoothing >= 1 {
		opts.Smoothing = DefaultSmoothing
	}
	if opts.MinDecibels == 0 && opts.MaxDecibels == 0 {
		opts.MinDecibels = DefaultMinDecibels
		opts.MaxDecibels = DefaultMaxDecibels
	}
	if opts.MaxDecibels <= opts.MinDecibels {
		panic("dsp: maxDecibels must be greater than minDecibels")
	}

	return &Analyser{
		source:      source,
		fftSize:     opts.FFTSize,
		smoothing:   opts.Smoothing,
		minDecibels: opts.MinDecibels,
		maxDecibels: opts.MaxDecibels,
		window:      window.Blackman(opts.FFTSize),
		samples:     make([]float64, opts.FFTSize),
		windowed:    make([]float64, opts.FFTSize),
		smoothed:    make([]float64, opts.FFTSize/2),
	}
}

// BinCount is the length of both sequences returned by Sample.
func (a *Analyser) BinCount() int {
	return a.fftSize / 2
}

// FFTSize returns the configured transform size.
func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// Sample pulls the latest window from the source and returns a fresh frame.
// The only state carried between calls is the smoothed magnitude spectrum.
func (a *Analyser) Sample() SpectralFrame {
	a.source.Latest(a.samples)

	binCount := a.BinCount()
	frame := SpectralFrame{
		TimeDomain: make([]uint8, binCount),
		FreqDomain: make([]uint8, binCount),
	}

	// Time domain covers the newest binCount samples.
	offset := a.fftSize - binCount
	for i := range binCount {
		frame.TimeDomain[i] = TimeDomainByte(a.samples[offset+i])
	}

	copy(a.windowed, a.samples)
	ApplyWindowInPlace(a.windowed, a.window)
	spectrum := fft.FFTReal(a.windowed)

	scale := 1 / float64(a.fftSize)
	for i := range binCount {
		mag := cmplx.Abs(spectrum[i]) * scale
		a.smoothed[i] = a.smoothing*a.smoothed[i] + (1-a.smoothing)*mag
		frame.FreqDomain[i] = a.decibelByte(a.smoothed[i])
	}

	return frame
}

// Reset clears the smoothing history, e.g. after a hard seek.
func (a *Analyser) Reset() {
	clear(a.smoothed)
}

func (a *Analyser) decibelByte(mag float64) uint8 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := math.Floor(255 / (a.maxDecibels - a.minDecibels) * (db - a.minDecibels))
	return uint8(utils.Clamp(scaled, 0, 255))
}

// TimeDomainByte maps a [-1, 1] sample onto the unsigned byte range centred at 128.
func TimeDomainByte(sample float64) uint8 {
	return uint8(utils.Clamp(math.Floor(128*(1+sample)), 0, 255))
}

// ApplyWindowInPlace multiplies samples by a window function in-place.
func ApplyWindowInPlace(samples []float64, window []float64) {
	switch {
	case len(samples) == 0:
		return
	case len(samples) != len(window):
		panic("dsp: window length mismatch")
	}
	for i := range samples {
		samples[i] *= window[i]
	}
}

// ToMono averages interleaved multi-channel data into a mono frame.
func ToMono(samples []float32, channels int, dst []float64) []float64 {
	if channels <= 0 {
		channels = 1
	}
	frameLen := len(samples) / channels
	if cap(dst) < frameLen {
		dst = make([]float64, frameLen)
	} else {
		dst = dst[:frameLen]
	}
	if frameLen == 0 {
		return dst
	}
	idx := 0
	for i := range frameLen {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(samples[idx])
			idx++
		}
		dst[i] = sum / float64(channels)
	}
	return dst
}

// Smoother implements a simple exponential moving average.
type Smoother struct {
	alpha       float64
	initialized bool
	value       float64
}

// NewSmoother constructs a Smoother using the supplied alpha (0..1).
// Smaller values produce heavier smoothing.
func NewSmoother(alpha float64) *Smoother {
	alpha = utils.Clamp(alpha, 0.0, 1.0)
	return &Smoother{alpha: alpha}
}

// Step updates the internal state and returns the smoothed value.
func (s *Smoother) Step(v float64) float64 {
	if !s.initialized {
		s.value = v
		s.initialized = true
		return v
	}
	s.value += s.alpha * (v - s.value)
	return s.value
}

// Value returns the current smoothed value without updating it.
func (s *Smoother) Value() float64 {
	return s.value
}
