// Package config loads the console configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"math/bits"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/cybre/vinylviz/internal/dsp"
	"github.com/cybre/vinylviz/internal/settings"
)

// DefaultPath is looked up in the working directory when no path is given.
const DefaultPath = "config.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VINYLVIZ_"

// Config is the full console configuration.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Headless  bool            `yaml:"headless"`
	Audio     AudioConfig     `yaml:"audio"`
	Render    RenderConfig    `yaml:"render"`
	Transport TransportConfig `yaml:"transport"`
	Bulb      BulbConfig      `yaml:"bulb"`

	// Overrides lists the environment variables that were applied.
	Overrides []string `yaml:"-"`
}

// AudioConfig covers analysis, output and the initial mixer.
type AudioConfig struct {
	FFTSize          int     `yaml:"fft_size"`
	Smoothing        float64 `yaml:"smoothing"`
	MinDecibels      float64 `yaml:"min_decibels"`
	MaxDecibels      float64 `yaml:"max_decibels"`
	OutputSampleRate int     `yaml:"output_sample_rate"`
	Volume           float64 `yaml:"volume"`
	Sensitivity      float64 `yaml:"sensitivity"`
	LineIn           bool    `yaml:"line_in"`
	// InputDevice is the PortAudio device index for line-in; -1 asks.
	InputDevice int `yaml:"input_device"`
	// NullOutput paces playback without opening an audio device.
	NullOutput bool `yaml:"null_output"`
}

// RenderConfig sizes the primary surface and sets the initial render state.
type RenderConfig struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPS             int     `yaml:"fps"`
	PlotType        string  `yaml:"plot_type"`
	AmplitudeScale  float64 `yaml:"amplitude_scale"`
	StrokeWidth     int     `yaml:"stroke_width"`
	VerticalOffset  int     `yaml:"vertical_offset"`
	ColorMode       string  `yaml:"color_mode"`
	CustomPrimary   string  `yaml:"custom_primary"`
	CustomSecondary string  `yaml:"custom_secondary"`
	Effect          string  `yaml:"effect"`
}

// TransportConfig controls the websocket mirror.
type TransportConfig struct {
	// Listen is the HTTP address; empty disables the server.
	Listen          string        `yaml:"listen"`
	PublishInterval time.Duration `yaml:"publish_interval"`
}

// BulbConfig controls the optional Yeelight ambient sink.
type BulbConfig struct {
	// Address is host:port of the bulb; empty disables it.
	Address        string        `yaml:"address"`
	CommandSpacing time.Duration `yaml:"command_spacing"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	// MusicMode has the bulb connect back on a port drawn from
	// [MusicPortBase, MusicPortBase+MusicPortSpan).
	MusicMode     bool `yaml:"music_mode"`
	MusicPortBase int  `yaml:"music_port_base"`
	MusicPortSpan int  `yaml:"music_port_span"`
}

// Default returns the built-in configuration.
func Default() Config {
	render := settings.DefaultRenderConfig()
	mixer := settings.DefaultMixer()
	return Config{
		Audio: AudioConfig{
			FFTSize:          dsp.DefaultFFTSize,
			Smoothing:        dsp.DefaultSmoothing,
			MinDecibels:      dsp.DefaultMinDecibels,
			MaxDecibels:      dsp.DefaultMaxDecibels,
			OutputSampleRate: 44100,
			Volume:           mixer.Volume,
			Sensitivity:      mixer.Sensitivity,
			InputDevice:      -1,
		},
		Render: RenderConfig{
			Width:           800,
			Height:          600,
			FPS:             60,
			PlotType:        string(render.PlotType),
			AmplitudeScale:  render.AmplitudeScale,
			StrokeWidth:     render.StrokeWidth,
			VerticalOffset:  render.VerticalOffset,
			ColorMode:       string(render.ColorPolicy),
			CustomPrimary:   render.CustomPrimary,
			CustomSecondary: render.CustomSecondary,
			Effect:          string(settings.PresetNeon),
		},
		Transport: TransportConfig{
			PublishInterval: 33 * time.Millisecond,
		},
		Bulb: BulbConfig{
			CommandSpacing: 25 * time.Millisecond,
			DialTimeout:    3 * time.Second,
			MusicMode:      true,
			MusicPortBase:  55000,
			MusicPortSpan:  5000,
		},
	}
}

// Load reads path, or DefaultPath when path is empty. A missing default file
// yields the built-in configuration; a missing explicit file is an error.
// Environment overrides are applied after the file, then the result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, eris.Wrap(err, "failed to parse config file")
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	a := c.Audio
	if a.FFTSize < 32 || bits.OnesCount(uint(a.FFTSize)) != 1 {
		return eris.Errorf("audio.fft_size must be a power of two >= 32, got %d", a.FFTSize)
	}
	if a.Smoothing <= 0 || a.Smoothing >= 1 {
		return eris.Errorf("audio.smoothing must be in (0,1), got %v", a.Smoothing)
	}
	if a.MinDecibels >= a.MaxDecibels {
		return eris.Errorf("audio.min_decibels (%v) must be below audio.max_decibels (%v)", a.MinDecibels, a.MaxDecibels)
	}
	if a.OutputSampleRate <= 0 {
		return eris.Errorf("audio.output_sample_rate must be positive, got %d", a.OutputSampleRate)
	}
	if a.Volume < 0 || a.Volume > 1 {
		return eris.Errorf("audio.volume must be in [0,1], got %v", a.Volume)
	}
	if a.Sensitivity < 0 || a.Sensitivity > 1 {
		return eris.Errorf("audio.sensitivity must be in [0,1], got %v", a.Sensitivity)
	}

	r := c.Render
	if r.Width <= 0 || r.Height <= 0 {
		return eris.Errorf("render size must be positive, got %dx%d", r.Width, r.Height)
	}
	if r.FPS <= 0 {
		return eris.Errorf("render.fps must be positive, got %d", r.FPS)
	}
	if _, err := settings.ParsePreset(r.Effect); err != nil {
		return eris.Wrap(err, "render.effect")
	}
	if err := c.RenderSettings().Validate(); err != nil {
		return eris.Wrap(err, "render")
	}

	if c.Transport.Listen != "" && c.Transport.PublishInterval <= 0 {
		return eris.New("transport.publish_interval must be positive when listen is set")
	}
	if c.Bulb.Address != "" && c.Bulb.CommandSpacing < 0 {
		return eris.New("bulb.command_spacing must not be negative")
	}
	if c.Bulb.MusicMode && (c.Bulb.MusicPortBase <= 0 || c.Bulb.MusicPortSpan < 0 || c.Bulb.MusicPortBase+c.Bulb.MusicPortSpan > 65535) {
		return eris.New("bulb music port range must lie within 1..65535")
	}
	return nil
}

// RenderSettings returns the initial render configuration. Plot type and
// colour mode are normalised to their canonical names; values that do not
// parse are passed through so Validate can reject them.
func (c *Config) RenderSettings() settings.RenderConfig {
	r := c.Render
	plot, err := settings.ParsePlotType(r.PlotType)
	if err != nil {
		plot = settings.PlotType(r.PlotType)
	}
	policy, err := settings.ParseColorPolicy(r.ColorMode)
	if err != nil {
		policy = settings.ColorPolicy(r.ColorMode)
	}
	return settings.RenderConfig{
		PlotType:        plot,
		AmplitudeScale:  r.AmplitudeScale,
		StrokeWidth:     r.StrokeWidth,
		VerticalOffset:  r.VerticalOffset,
		ColorPolicy:     policy,
		CustomPrimary:   r.CustomPrimary,
		CustomSecondary: r.CustomSecondary,
	}
}

// Preset returns the initial effect preset. Validate guarantees it parses.
func (c *Config) Preset() settings.Preset {
	p, err := settings.ParsePreset(c.Render.Effect)
	if err != nil {
		return settings.PresetNeon
	}
	return p
}

// Mixer returns the initial fader positions.
func (c *Config) Mixer() settings.Mixer {
	return settings.Mixer{Volume: c.Audio.Volume, Sensitivity: c.Audio.Sensitivity}
}

// AnalyserOptions returns the analyser tuning.
func (c *Config) AnalyserOptions() dsp.AnalyserOptions {
	return dsp.AnalyserOptions{
		FFTSize:     c.Audio.FFTSize,
		Smoothing:   c.Audio.Smoothing,
		MinDecibels: c.Audio.MinDecibels,
		MaxDecibels: c.Audio.MaxDecibels,
	}
}

// applyEnvOverrides applies every well-formed override and reports the
// variables whose values could not be parsed.
func (c *Config) applyEnvOverrides() error {
	var malformed []string
	lookup := func(name string, parse func(string) error) {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return
		}
		if err := parse(v); err != nil {
			malformed = append(malformed, fmt.Sprintf("%s%s=%q", EnvPrefix, name, v))
			return
		}
		c.Overrides = append(c.Overrides, EnvPrefix+name)
	}
	str := func(name string, dst *string) {
		lookup(name, func(v string) error {
			*dst = v
			return nil
		})
	}
	boolean := func(name string, dst *bool) {
		lookup(name, func(v string) error {
			b, err := strconv.ParseBool(v)
			if err == nil {
				*dst = b
			}
			return err
		})
	}
	integer := func(name string, dst *int) {
		lookup(name, func(v string) error {
			n, err := strconv.Atoi(v)
			if err == nil {
				*dst = n
			}
			return err
		})
	}
	float := func(name string, dst *float64) {
		lookup(name, func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err == nil {
				*dst = f
			}
			return err
		})
	}

	boolean("DEBUG", &c.Debug)
	boolean("HEADLESS", &c.Headless)
	integer("FFT_SIZE", &c.Audio.FFTSize)
	float("VOLUME", &c.Audio.Volume)
	float("SENSITIVITY", &c.Audio.Sensitivity)
	boolean("LINE_IN", &c.Audio.LineIn)
	integer("INPUT_DEVICE", &c.Audio.InputDevice)
	boolean("NULL_OUTPUT", &c.Audio.NullOutput)
	integer("FPS", &c.Render.FPS)
	str("PLOT", &c.Render.PlotType)
	str("EFFECT", &c.Render.Effect)
	str("LISTEN", &c.Transport.Listen)
	str("BULB", &c.Bulb.Address)
	boolean("BULB_MUSIC_MODE", &c.Bulb.MusicMode)

	if len(malformed) > 0 {
		return eris.Errorf("malformed environment overrides: %s", strings.Join(malformed, ", "))
	}
	return nil
}
