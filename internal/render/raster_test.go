package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cybre/vinylviz/internal/features"
	"github.com/cybre/vinylviz/internal/settings"
)

func TestRasterPaintsBars(t *testing.T) {
	background := color.NRGBA{A: 0xff}
	r := NewRaster(200, 100, background)

	Render(r, flatFrame(128, 255), features.Features{}, configFor(settings.PlotBars), PresetColors(settings.PresetNeon))

	inside := r.Image().RGBAAt(9, 25)
	assert.InDelta(t, 0, int(inside.R), 2)
	assert.InDelta(t, 255, int(inside.G), 2)
	assert.InDelta(t, 255, int(inside.B), 2)

	untouched := r.Image().RGBAAt(199, 99)
	assert.Equal(t, color.RGBA{A: 0xff}, untouched)
}

func TestRasterClearResetsImage(t *testing.T) {
	background := color.NRGBA{R: 10, G: 20, B: 30, A: 0xff}
	r := NewRaster(64, 64, background)
	r.FillRect(0, 0, 64, 64, color.NRGBA{R: 255, A: 255})
	r.Clear()

	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 0xff}, r.Image().RGBAAt(32, 32))
}

func TestRasterGradientFades(t *testing.T) {
	r := NewRaster(20, 100, color.NRGBA{A: 0xff})
	r.FillGradientRect(0, 0, 20, 100, color.NRGBA{R: 255, A: 255}, Transparent)

	top := r.Image().RGBAAt(10, 0)
	bottom := r.Image().RGBAAt(10, 99)
	assert.Greater(t, top.R, bottom.R)
	assert.InDelta(t, 0, int(bottom.R), 2)
}

func TestRasterAlphaBlends(t *testing.T) {
	r := NewRaster(10, 10, color.NRGBA{A: 0xff})
	r.SetAlpha(0.5)
	r.FillRect(0, 0, 10, 10, color.NRGBA{G: 255, A: 255})

	assert.InDelta(t, 128, int(r.Image().RGBAAt(5, 5).G), 2)
}
