package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"

	"github.com/cybre/vinylviz/internal/settings"
)

// ColorSet is the palette a frame is drawn with.
type ColorSet struct {
	Primary   color.NRGBA
	Secondary color.NRGBA
	Glow      color.NRGBA
}

var presetColors = map[settings.Preset]ColorSet{
	settings.PresetNeon: {
		Primary:   hex(0x00ffff),
		Secondary: hex(0xff00ff),
		Glow:      rgba(0, 255, 255, 0.5),
	},
	settings.PresetFire: {
		Primary:   hex(0xff5500),
		Secondary: hex(0xffaa00),
		Glow:      rgba(255, 85, 0, 0.5),
	},
	settings.PresetElectric: {
		Primary:   hex(0xaa00ff),
		Secondary: hex(0x0055ff),
		Glow:      rgba(170, 0, 255, 0.5),
	},
	settings.PresetCyber: {
		Primary:   hex(0xff0055),
		Secondary: hex(0x00ff99),
		Glow:      rgba(255, 0, 85, 0.5),
	},
	settings.PresetDefault: {
		Primary:   hex(0x00ff99),
		Secondary: hex(0x009944),
		Glow:      rgba(0, 255, 153, 0.5),
	},
}

// PresetColors returns the palette of p. Unknown presets use the default palette.
func PresetColors(p settings.Preset) ColorSet {
	if c, ok := presetColors[p]; ok {
		return c
	}
	return presetColors[settings.PresetDefault]
}

// ResolveColors picks the renderer palette: the custom pair when the colour
// policy is custom (glowing in the custom primary), otherwise the preset.
// Unparseable custom colours fall back to the preset.
func ResolveColors(cfg settings.RenderConfig, preset settings.Preset) ColorSet {
	if cfg.ColorPolicy != settings.ColorCustom {
		return PresetColors(preset)
	}

	primary, err := ParseHex(cfg.CustomPrimary)
	if err != nil {
		return PresetColors(preset)
	}
	secondary, err := ParseHex(cfg.CustomSecondary)
	if err != nil {
		return PresetColors(preset)
	}
	return ColorSet{Primary: primary, Secondary: secondary, Glow: primary}
}

// ParseHex parses "#rrggbb" (or "#rgb") into an opaque colour.
func ParseHex(s string) (color.NRGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, eris.Wrapf(err, "parse colour %q", s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// CSS formats c the way a browser overlay consumes it.
func CSS(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%.2f)", c.R, c.G, c.B, float64(c.A)/255)
}

// WithAlpha scales the alpha channel of c by a in [0,1].
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	a = math.Max(0, math.Min(1, a))
	c.A = uint8(math.Round(float64(c.A) * a))
	return c
}

// Transparent is the gradient end stop.
var Transparent = color.NRGBA{}

func hex(v uint32) color.NRGBA {
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

func rgba(r, g, b uint8, a float64) color.NRGBA {
	return WithAlpha(color.NRGBA{R: r, G: g, B: b, A: 0xff}, a)
}
