package playback

import (
	"encoding/binary"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/rotisserie/eris"

	"github.com/cybre/vinylviz/internal/dsp"
)

// pcmStreamer adapts a Decoder to beep's stereo float streaming, folding mono
// to both channels and keeping the first two channels of anything wider.
type pcmStreamer struct {
	dec       Decoder
	channels  int
	frameSize int
	raw       []byte
	frame     int64
	err       error
}

func newPCMStreamer(dec Decoder) *pcmStreamer {
	channels := max(1, dec.ChannelCount())
	return &pcmStreamer{dec: dec, channels: channels, frameSize: channels * 2}
}

func (s *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil {
		return 0, false
	}
	need := len(samples) * s.frameSize
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]

	n, err := io.ReadFull(s.dec, raw)
	frames := n / s.frameSize
	for i := range frames {
		off := i * s.frameSize
		left := float64(int16(binary.LittleEndian.Uint16(raw[off:]))) / 32768
		right := left
		if s.channels > 1 {
			right = float64(int16(binary.LittleEndian.Uint16(raw[off+2:]))) / 32768
		}
		samples[i] = [2]float64{left, right}
	}
	s.frame += int64(frames)

	if err != nil && !eris.Is(err, io.EOF) && !eris.Is(err, io.ErrUnexpectedEOF) {
		s.err = err
	}
	if frames == 0 {
		return 0, false
	}
	return frames, true
}

func (s *pcmStreamer) Err() error { return s.err }

// Len is the stream length in frames, or 0 when the decoder cannot tell.
func (s *pcmStreamer) Len() int64 {
	return s.dec.Length() / int64(s.frameSize)
}

func (s *pcmStreamer) Position() int64 { return s.frame }

func (s *pcmStreamer) Seek(frame int64) error {
	if _, err := s.dec.Seek(frame*int64(s.frameSize), io.SeekStart); err != nil {
		return eris.Wrap(err, "seek")
	}
	s.frame = frame
	s.err = nil
	return nil
}

// tapStreamer copies everything that passes through it into a dsp.Tap.
type tapStreamer struct {
	beep.Streamer
	tap *dsp.Tap
}

func (t tapStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.Streamer.Stream(samples)
	t.tap.WriteStereo(samples[:n])
	return n, ok
}

// chain is the per-track stream: decode, resample to the output rate at the
// playback rate, apply master gain, then feed the analyser tap.
type chain struct {
	source    *pcmStreamer
	resampler *beep.Resampler
	gain      *effects.Gain
	out       beep.Streamer
	baseRatio float64
	rate      beep.SampleRate
}

const resampleQuality = 3

func newChain(dec Decoder, outputRate beep.SampleRate, volume, playbackRate float64, tap *dsp.Tap) *chain {
	source := newPCMStreamer(dec)
	rate := beep.SampleRate(dec.SampleRate())
	if rate <= 0 {
		rate = outputRate
	}
	resampler := beep.Resample(resampleQuality, rate, outputRate, source)
	gain := &effects.Gain{Streamer: resampler, Gain: volume - 1}

	c := &chain{
		source:    source,
		resampler: resampler,
		gain:      gain,
		out:       tapStreamer{Streamer: gain, tap: tap},
		baseRatio: float64(rate) / float64(outputRate),
		rate:      rate,
	}
	c.setPlaybackRate(playbackRate)
	return c
}

func (c *chain) setVolume(v float64) {
	c.gain.Gain = v - 1
}

func (c *chain) setPlaybackRate(r float64) {
	if r <= 0 {
		r = 1
	}
	c.resampler.SetRatio(c.baseRatio * r)
}

func (c *chain) duration() float64 {
	return float64(c.source.Len()) / float64(c.rate)
}

func (c *chain) position() float64 {
	return float64(c.source.Position()) / float64(c.rate)
}

func (c *chain) close() error {
	return c.source.dec.Close()
}
