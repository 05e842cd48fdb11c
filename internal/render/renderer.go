package render

import (
	"math"

	"github.com/cybre/vinylviz/internal/dsp"
	"github.com/cybre/vinylviz/internal/features"
	"github.com/cybre/vinylviz/internal/settings"
)

const (
	// GlowBlur is the glow radius every strategy draws with.
	GlowBlur = 15.0

	barGap          = 2.0
	barsCoverage    = 0.7
	circleBars      = 120
	circleCoverage  = 0.8
	dualGap         = 1.0
	dualCoverage    = 0.6
	waveEchoOffset  = 20.0
	circleBaseScale = 100.0
)

// CenterY is the vertical centre line all strategies draw around.
func CenterY(height float64, verticalOffset int) float64 {
	return height/2 + float64(verticalOffset)*2
}

// Render clears s and draws frame with the single strategy cfg selects. It
// returns the strategy that ran; unknown plot types draw the wave.
func Render(s Surface, frame dsp.SpectralFrame, feat features.Features, cfg settings.RenderConfig, colors ColorSet) settings.PlotType {
	s.Clear()
	s.SetGlow(colors.Glow, GlowBlur)
	defer s.SetGlow(colors.Glow, 0)

	w, h := s.Size()
	cx, cy := w/2, CenterY(h, cfg.VerticalOffset)

	switch cfg.PlotType {
	case settings.PlotBars:
		drawBars(s, frame.FreqDomain, w, h, cy, cfg, colors)
		return settings.PlotBars
	case settings.PlotCircle:
		drawCircle(s, frame.FreqDomain, cx, cy, feat.BassEnergy, cfg, colors)
		return settings.PlotCircle
	case settings.PlotDual:
		drawDual(s, frame.FreqDomain, cx, h, cy, cfg, colors)
		return settings.PlotDual
	default:
		drawWave(s, frame.TimeDomain, w, h, cy, cfg, colors)
		return settings.PlotWave
	}
}

func drawWave(s Surface, data []uint8, w, h, cy float64, cfg settings.RenderConfig, colors ColorSet) {
	n := len(data)
	if n == 0 {
		return
	}
	slice := w / float64(n)
	amp := (h / 3) * cfg.AmplitudeScale

	primary := make([]Point, n)
	for i, b := range data {
		v := float64(b) / 128
		primary[i] = Point{X: float64(i) * slice, Y: v*amp + cy - amp}
	}
	s.StrokePolyline(primary, float64(cfg.StrokeWidth), colors.Primary)

	echo := make([]Point, 0, (n+1)/2)
	for i := 0; i < n; i += 2 {
		v := float64(data[i]) / 128
		echo = append(echo, Point{X: float64(i) * slice, Y: v*amp + cy - amp + waveEchoOffset})
	}
	s.StrokePolyline(echo, math.Max(1, float64(cfg.StrokeWidth)/2), colors.Secondary)
}

// BarLayout describes how the bars strategy lays bars across the width.
type BarLayout struct {
	Count  int
	Step   int
	StartX float64
}

// LayoutBars computes the bar count, bin step and horizontal start for a
// surface width, bar width and bin count.
func LayoutBars(width float64, barWidth, bins int) BarLayout {
	bw := float64(barWidth)
	count := int(math.Floor(width / (bw + barGap)))
	if count <= 0 {
		return BarLayout{}
	}
	return BarLayout{
		Count:  count,
		Step:   max(1, int(math.Ceil(float64(bins)*barsCoverage/float64(count)))),
		StartX: (width - float64(count)*(bw+barGap)) / 2,
	}
}

func drawBars(s Surface, data []uint8, w, h, cy float64, cfg settings.RenderConfig, colors ColorSet) {
	bw := float64(cfg.StrokeWidth)
	layout := LayoutBars(w, cfg.StrokeWidth, len(data))

	for i := range layout.Count {
		idx := i * layout.Step
		if idx >= len(data) {
			break
		}
		height := float64(data[idx]) / 255 * (h / 2) * cfg.AmplitudeScale
		x := layout.StartX + float64(i)*(bw+barGap)

		s.FillRect(x, cy-height, bw, height, colors.Primary)

		s.SetAlpha(0.5)
		s.FillRect(x, cy, bw, height*0.5, colors.Secondary)
		s.SetAlpha(1)
	}
}

func drawCircle(s Surface, data []uint8, cx, cy, bass float64, cfg settings.RenderConfig, colors ColorSet) {
	radius := circleBaseScale*cfg.AmplitudeScale + bass*20
	step := int(math.Floor(float64(len(data)) * circleCoverage / circleBars))
	angleStep := 2 * math.Pi / circleBars
	width := math.Max(2, float64(cfg.StrokeWidth)/2)

	for i := range circleBars {
		v := 0.0
		if idx := i * step; idx < len(data) {
			v = float64(data[idx])
		}
		length := v / 255 * circleBaseScale * cfg.AmplitudeScale
		angle := float64(i) * angleStep
		cos, sin := math.Cos(angle), math.Sin(angle)

		s.StrokeLine(
			Point{X: cx + cos*radius, Y: cy + sin*radius},
			Point{X: cx + cos*(radius+length), Y: cy + sin*(radius+length)},
			width, colors.Primary,
		)
	}

	s.StrokeCircle(Point{X: cx, Y: cy}, radius-5, 2, colors.Secondary)
}

func drawDual(s Surface, data []uint8, cx, h, cy float64, cfg settings.RenderConfig, colors ColorSet) {
	bw := float64(cfg.StrokeWidth)
	maxBars := int(math.Floor((cx) / (bw + dualGap)))
	if maxBars <= 0 {
		return
	}
	step := max(1, int(math.Ceil(float64(len(data))*dualCoverage/float64(maxBars))))

	for i := range maxBars {
		idx := i * step
		if idx >= len(data) {
			break
		}
		height := float64(data[idx]) / 255 * (h / 2) * cfg.AmplitudeScale
		offset := float64(i) * (bw + dualGap)

		s.FillRect(cx-offset-bw, cy-height/2, bw, height, colors.Primary)
		s.FillRect(cx+offset, cy-height/2, bw, height, colors.Secondary)
	}
}
