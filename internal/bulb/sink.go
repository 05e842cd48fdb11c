package bulb

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/cybre/vinylviz/internal/console"
	"github.com/cybre/vinylviz/internal/dsp"
	"github.com/cybre/vinylviz/internal/lights"
	"github.com/cybre/vinylviz/internal/utils"
)

// Setter is the bulb operation the ambient sink drives.
type Setter interface {
	SetHSV(ctx context.Context, hue uint16, saturation, value uint8, duration int) error
}

// HSV is a bulb colour in device units.
type HSV struct {
	Hue        int
	Saturation int
	Brightness int
}

// AmbientSink follows the ambient backdrop with a bulb. Frames are consumed
// on Run's goroutine so the render loop never waits on the network.
type AmbientSink struct {
	setter  Setter
	spacing time.Duration
	logger  *slog.Logger
	frames  chan lights.Ambient
	now     func() time.Time

	hue            float64
	initialized    bool
	satSmoother    *dsp.Smoother
	brightSmoother *dsp.Smoother

	lastCommand time.Time
	last        HSV
	sent        bool
}

// NewAmbientSink sends at most one command per spacing.
func NewAmbientSink(setter Setter, spacing time.Duration, logger *slog.Logger) *AmbientSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &AmbientSink{
		setter:         setter,
		spacing:        spacing,
		logger:         logger,
		frames:         make(chan lights.Ambient, 1),
		now:            time.Now,
		satSmoother:    dsp.NewSmoother(0.16),
		brightSmoother: dsp.NewSmoother(0.22),
	}
}

// Publish implements console.Sink. A pending ambient value is replaced by
// the newest one.
func (s *AmbientSink) Publish(f console.Frame) {
	a := f.Scene.Ambient
	for {
		select {
		case s.frames <- a:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

// Run pushes ambient updates to the bulb until ctx is cancelled.
func (s *AmbientSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-s.frames:
			if err := s.apply(ctx, a); err != nil {
				s.logger.Warn("bulb update failed", slog.Any("error", err))
			}
		}
	}
}

func (s *AmbientSink) apply(ctx context.Context, a lights.Ambient) error {
	target := AmbientHSV(a)

	if !s.initialized {
		s.hue = float64(target.Hue)
		s.initialized = true
	} else {
		s.hue = smoothHue(s.hue, float64(target.Hue), 0.22)
	}
	sat := s.satSmoother.Step(float64(target.Saturation))
	bright := s.brightSmoother.Step(float64(target.Brightness))

	next := HSV{
		Hue:        utils.WrapIndex(int(math.Round(s.hue)), 360),
		Saturation: utils.Clamp(int(math.Round(sat)), 0, 100),
		Brightness: utils.Clamp(int(math.Round(bright)), 1, 100),
	}

	now := s.now()
	if s.sent && now.Sub(s.lastCommand) < s.spacing {
		return nil
	}
	if s.sent && next == s.last {
		return nil
	}

	if err := s.setter.SetHSV(ctx, uint16(next.Hue), uint8(next.Saturation), uint8(next.Brightness), 0); err != nil {
		return err
	}
	s.last = next
	s.sent = true
	s.lastCommand = now
	return nil
}

// AmbientHSV converts the backdrop glow to bulb units. Opacity drives
// brightness.
func AmbientHSV(a lights.Ambient) HSV {
	c := colorful.Color{R: float64(a.Color.R) / 255, G: float64(a.Color.G) / 255, B: float64(a.Color.B) / 255}
	h, sat, _ := c.Hsv()
	return HSV{
		Hue:        utils.WrapIndex(int(math.Round(h)), 360),
		Saturation: utils.Clamp(int(math.Round(sat*100)), 0, 100),
		Brightness: utils.Clamp(int(math.Round(a.Opacity*100)), 1, 100),
	}
}

func smoothHue(current, target, alpha float64) float64 {
	delta := math.Mod(target-current+540, 360) - 180
	return math.Mod(current+alpha*delta+360, 360)
}
