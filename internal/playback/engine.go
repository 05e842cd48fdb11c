package playback

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/faiface/beep"

	"github.com/cybre/vinylviz/internal/dsp"
)

// OutputChannels and OutputBytesPerSample describe the PCM the Engine emits.
const (
	OutputChannels       = 2
	OutputBytesPerSample = 2
	outputFrameSize      = OutputChannels * OutputBytesPerSample
)

// Engine is the io.Reader an audio output pulls from. It renders the current
// track chain into interleaved 16-bit stereo and emits silence when nothing
// is loaded or the track has run out.
type Engine struct {
	mu        sync.Mutex
	rate      beep.SampleRate
	tap       *dsp.Tap
	current   *chain
	volume    float64
	speed     float64
	exhausted bool
	onEnded   func()
	buf       [][2]float64
}

// NewEngine creates an Engine producing sampleRate frames per second and
// copying gain-adjusted audio into tap.
func NewEngine(sampleRate int, tap *dsp.Tap) *Engine {
	return &Engine{rate: beep.SampleRate(sampleRate), tap: tap, volume: 1, speed: 1}
}

// SampleRate returns the output rate.
func (e *Engine) SampleRate() int {
	return int(e.rate)
}

// OnEnded registers fn to run, outside the engine lock, when a track runs out.
func (e *Engine) OnEnded(fn func()) {
	e.mu.Lock()
	e.onEnded = fn
	e.mu.Unlock()
}

// Load swaps in dec as the current track and closes the previous one.
func (e *Engine) Load(dec Decoder) {
	e.mu.Lock()
	prev := e.current
	e.current = newChain(dec, e.rate, e.volume, e.speed, e.tap)
	e.exhausted = false
	e.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	e.tap.Reset()
}

// Loaded reports whether a track is loaded.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// SetVolume sets the master gain in [0,1].
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
	if e.current != nil {
		e.current.setVolume(v)
	}
}

// SetPlaybackRate changes the speed of the current and future tracks.
func (e *Engine) SetPlaybackRate(r float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r <= 0 {
		r = 1
	}
	e.speed = r
	if e.current != nil {
		e.current.setPlaybackRate(r)
	}
}

// PlaybackRate returns the current speed multiplier.
func (e *Engine) PlaybackRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Seek moves to fraction in [0,1] of the current track. It is a no-op without
// a track or when the length is unknown.
func (e *Engine) Seek(fraction float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	length := e.current.source.Len()
	if length <= 0 {
		return nil
	}
	fraction = math.Max(0, math.Min(1, fraction))
	frame := int64(fraction * float64(length))
	if err := e.current.source.Seek(frame); err != nil {
		return err
	}
	e.exhausted = false
	return nil
}

// Position returns the current and total time of the loaded track in seconds.
// Duration is 0 when unknown.
func (e *Engine) Position() (current, duration float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return 0, 0
	}
	return e.current.position(), e.current.duration()
}

// Close releases the current track.
func (e *Engine) Close() error {
	e.mu.Lock()
	prev := e.current
	e.current = nil
	e.mu.Unlock()
	if prev != nil {
		return prev.close()
	}
	return nil
}

// Read fills p with whole frames of audio, padding with silence. It never
// returns an error so an output device can keep pulling across track changes.
func (e *Engine) Read(p []byte) (int, error) {
	frames := len(p) / outputFrameSize

	e.mu.Lock()
	if cap(e.buf) < frames {
		e.buf = make([][2]float64, frames)
	}
	buf := e.buf[:frames]
	filled := 0
	var ended func()
	if e.current != nil && !e.exhausted {
		for filled < frames {
			n, ok := e.current.out.Stream(buf[filled:])
			filled += n
			if !ok {
				e.exhausted = true
				ended = e.onEnded
				break
			}
			if n == 0 {
				break
			}
		}
	}
	for i := range buf[filled:] {
		buf[filled+i] = [2]float64{}
	}
	for i, s := range buf {
		off := i * outputFrameSize
		binary.LittleEndian.PutUint16(p[off:], uint16(toInt16(s[0])))
		binary.LittleEndian.PutUint16(p[off+2:], uint16(toInt16(s[1])))
	}
	e.mu.Unlock()

	for i := frames * outputFrameSize; i < len(p); i++ {
		p[i] = 0
	}
	if ended != nil {
		ended()
	}
	return len(p), nil
}

func toInt16(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(math.Round(v * 32767))
}
