package dsp

import "sync"

// Tap is a thread-safe ring of mono samples. The audio thread writes what it
// hands to the output device and the scheduler reads the newest window from it.
type Tap struct {
	mu   sync.Mutex
	buf  []float64
	w    int
	fill int
}

// NewTap creates a tap holding the last size samples.
func NewTap(size int) *Tap {
	if size <= 0 {
		panic("dsp: tap size must be > 0")
	}
	return &Tap{buf: make([]float64, size)}
}

// WriteMono appends mono samples, overwriting the oldest data when full.
func (t *Tap) WriteMono(samples []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range samples {
		t.push(s)
	}
}

// WriteStereo downmixes stereo frames and appends them.
func (t *Tap) WriteStereo(frames [][2]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, f := range frames {
		t.push((f[0] + f[1]) / 2)
	}
}

func (t *Tap) push(s float64) {
	t.buf[t.w] = s
	t.w = (t.w + 1) % len(t.buf)
	if t.fill < len(t.buf) {
		t.fill++
	}
}

// Latest implements SampleSource.
func (t *Tap) Latest(dst []float64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := min(len(dst), t.fill)
	pad := len(dst) - n
	clear(dst[:pad])

	size := len(t.buf)
	start := (t.w - n + size) % size
	for i := range n {
		dst[pad+i] = t.buf[(start+i)%size]
	}
	return n
}

// Reset drops every buffered sample.
func (t *Tap) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.w = 0
	t.fill = 0
}
