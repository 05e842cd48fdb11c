// Package capture feeds a line-in or loopback device into the analysis tap.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"

	"github.com/cybre/vinylviz/internal/dsp"
)

const (
	defaultSampleRate = 44100
	defaultFrameSize  = 1024
)

// Options selects and tunes the input stream. Zero values pick device defaults.
type Options struct {
	DeviceIndex int
	SampleRate  float64
	FrameSize   int
	Channels    int
	Latency     time.Duration
}

// Device describes an input device.
type Device struct {
	Index            int
	Name             string
	SampleRate       float64
	MaxInputChannels int
	Latency          time.Duration
	Default          bool
}

// Label is a one-line description for pickers and listings.
func (d Device) Label() string {
	label := fmt.Sprintf("[%d] %s · %.0fHz · in:%d · latency:%.1fms",
		d.Index, d.Name, d.SampleRate, d.MaxInputChannels, d.Latency.Seconds()*1000)
	if d.Default {
		label += " · default"
	}
	return label
}

// Initialize starts PortAudio. The returned func terminates it.
func Initialize() (func(), error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, eris.Wrap(err, "initialize PortAudio")
	}
	return func() { portaudio.Terminate() }, nil
}

// InputDevices lists devices with at least one input channel. PortAudio must
// be initialized.
func InputDevices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, eris.Wrap(err, "enumerate audio devices")
	}
	defaultName := ""
	if def, err := portaudio.DefaultInputDevice(); err == nil {
		defaultName = def.Name
	}
	return inputDevices(infos, defaultName), nil
}

func inputDevices(infos []*portaudio.DeviceInfo, defaultName string) []Device {
	var out []Device
	for i, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		out = append(out, Device{
			Index:            i,
			Name:             info.Name,
			SampleRate:       info.DefaultSampleRate,
			MaxInputChannels: info.MaxInputChannels,
			Latency:          info.DefaultLowInputLatency,
			Default:          info.Name == defaultName,
		})
	}
	return out
}

// DefaultIndex returns the position of the default device in devices, or 0.
func DefaultIndex(devices []Device) int {
	for i, d := range devices {
		if d.Default {
			return i
		}
	}
	return 0
}

// Run streams the device into tap until ctx is done.
func Run(ctx context.Context, logger *slog.Logger, tap *dsp.Tap, opts Options) error {
	info, err := resolveDevice(opts.DeviceIndex)
	if err != nil {
		return err
	}
	if info.MaxInputChannels < 1 {
		return eris.Errorf("device %s has no input channels; select a loopback/monitor device", info.Name)
	}

	channels := sanitizeChannelCount(opts.Channels, info.MaxInputChannels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      effectiveSampleRate(opts.SampleRate, info.DefaultSampleRate),
		FramesPerBuffer: effectiveFrameSize(opts.FrameSize),
	}
	if opts.Latency > 0 {
		params.Input.Latency = opts.Latency
	}

	logger.Info("using audio input device",
		slog.String("name", info.Name),
		slog.Float64("sample_rate", params.SampleRate),
		slog.Int("channels", channels),
		slog.Int("frame_size", params.FramesPerBuffer))

	frames := make(chan []float32, 32)
	stream, err := portaudio.OpenStream(params, func(in []float32) {
		frame := make([]float32, len(in))
		copy(frame, in)
		offer(frames, frame)
	})
	if err != nil {
		return eris.Wrap(err, "open audio stream")
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return eris.Wrap(err, "start audio stream")
	}
	defer stream.Stop()

	return Pump(ctx, frames, channels, tap)
}

// Pump downmixes interleaved frames into tap until ctx is done or frames closes.
func Pump(ctx context.Context, frames <-chan []float32, channels int, tap *dsp.Tap) error {
	var mono []float64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			mono = dsp.ToMono(frame, channels, mono)
			tap.WriteMono(mono)
		}
	}
}

// offer drops the oldest queued frame rather than block the audio callback.
func offer(out chan []float32, frame []float32) {
	select {
	case out <- frame:
	default:
		select {
		case <-out:
		default:
		}
		select {
		case out <- frame:
		default:
		}
	}
}

func resolveDevice(index int) (*portaudio.DeviceInfo, error) {
	if index < 0 {
		info, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, eris.Wrap(err, "resolve default audio input device")
		}
		return info, nil
	}
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, eris.Wrap(err, "enumerate audio devices")
	}
	if index >= len(infos) {
		return nil, eris.Errorf("invalid device index %d", index)
	}
	return infos[index], nil
}

func sanitizeChannelCount(requested, max int) int {
	if requested <= 0 {
		requested = 2
	}
	if max > 0 && requested > max {
		return max
	}
	return requested
}

func effectiveSampleRate(requested, deviceDefault float64) float64 {
	if requested > 0 {
		return requested
	}
	if deviceDefault > 0 {
		return deviceDefault
	}
	return defaultSampleRate
}

func effectiveFrameSize(requested int) int {
	if requested > 0 {
		return requested
	}
	return defaultFrameSize
}
