package playback

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rotisserie/eris"
)

// Output is an audio sink pulling PCM from an Engine.
type Output interface {
	Play()
	Pause()
	Close() error
}

var (
	otoContext *oto.Context
	otoOnce    sync.Once
	otoErr     error
)

func initOto(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoContext, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: OutputChannels,
			Format:       oto.FormatSignedInt16LE,
		})
		if otoErr == nil {
			<-ready
		}
	})
	return otoContext, eris.Wrap(otoErr, "init audio device")
}

// OtoOutput plays through the system audio device.
type OtoOutput struct {
	player *oto.Player
}

// otoBufferFrames keeps the device buffer short so the analyser tap stays close
// to what is audible.
const otoBufferFrames = 2048

// NewOtoOutput opens the audio device at the engine's sample rate.
func NewOtoOutput(src io.Reader, sampleRate int) (*OtoOutput, error) {
	ctx, err := initOto(sampleRate)
	if err != nil {
		return nil, err
	}
	player := ctx.NewPlayer(src)
	player.SetBufferSize(otoBufferFrames * outputFrameSize)
	return &OtoOutput{player: player}, nil
}

func (o *OtoOutput) Play()  { o.player.Play() }
func (o *OtoOutput) Pause() { o.player.Pause() }

func (o *OtoOutput) Close() error {
	o.player.Pause()
	return nil
}

// ClockOutput pulls audio at real-time pace and discards it. It keeps the
// analyser fed when no audio device is available.
type ClockOutput struct {
	src      io.Reader
	interval time.Duration
	chunk    int

	mu      sync.Mutex
	playing bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClockOutput creates a paused ClockOutput reading every interval.
func NewClockOutput(src io.Reader, sampleRate int, interval time.Duration) *ClockOutput {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	frames := max(1, int(float64(sampleRate)*interval.Seconds()))
	return &ClockOutput{src: src, interval: interval, chunk: frames * outputFrameSize}
}

func (o *ClockOutput) Play() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playing {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.playing, o.cancel, o.done = true, cancel, make(chan struct{})
	go o.pump(ctx, o.done)
}

func (o *ClockOutput) Pause() {
	o.mu.Lock()
	if !o.playing {
		o.mu.Unlock()
		return
	}
	o.playing = false
	cancel, done := o.cancel, o.done
	o.mu.Unlock()

	cancel()
	<-done
}

func (o *ClockOutput) Close() error {
	o.Pause()
	return nil
}

func (o *ClockOutput) pump(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	buf := make([]byte, o.chunk)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.src.Read(buf); err != nil {
				return
			}
		}
	}
}
