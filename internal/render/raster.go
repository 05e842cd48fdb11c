package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// glowPasses is how many widening translucent underlays approximate a blur.
const glowPasses = 3

// Raster paints Surface calls into an RGBA image with an anti-aliasing
// rasteriser. Glow is approximated by stroking wider, fainter copies of each
// shape underneath it.
type Raster struct {
	img        *image.RGBA
	rasterizer *vector.Rasterizer
	background color.NRGBA

	alpha     float64
	glowColor color.NRGBA
	glowBlur  float64
}

// NewRaster allocates a width x height image cleared to background.
func NewRaster(width, height int, background color.NRGBA) *Raster {
	r := &Raster{
		img:        image.NewRGBA(image.Rect(0, 0, width, height)),
		rasterizer: vector.NewRasterizer(width, height),
		background: background,
		alpha:      1,
	}
	r.Clear()
	return r
}

// Image returns the backing image.
func (r *Raster) Image() *image.RGBA {
	return r.img
}

func (r *Raster) Size() (float64, float64) {
	b := r.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (r *Raster) Clear() {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)
	r.alpha = 1
	r.glowBlur = 0
}

func (r *Raster) SetGlow(c color.NRGBA, blur float64) {
	r.glowColor, r.glowBlur = c, blur
}

func (r *Raster) SetAlpha(a float64) {
	r.alpha = a
}

func (r *Raster) FillRect(x, y, w, h float64, c color.NRGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	r.withGlow(func(grow float64, c color.NRGBA) {
		r.polygon(rectPath(x-grow, y-grow, w+2*grow, h+2*grow), c)
	}, c)
}

func (r *Raster) FillGradientRect(x, y, w, h float64, top, bottom color.NRGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	rows := int(math.Ceil(h))
	for i := range rows {
		t := 0.0
		if rows > 1 {
			t = float64(i) / float64(rows-1)
		}
		rowH := math.Min(1, h-float64(i))
		r.polygon(rectPath(x, y+float64(i), w, rowH), r.faded(lerp(top, bottom, t)))
	}
}

func (r *Raster) StrokePolyline(points []Point, width float64, c color.NRGBA) {
	if len(points) < 2 {
		return
	}
	r.withGlow(func(grow float64, c color.NRGBA) {
		for i := 1; i < len(points); i++ {
			r.segment(points[i-1], points[i], width+2*grow, c)
		}
	}, c)
}

func (r *Raster) StrokeLine(from, to Point, width float64, c color.NRGBA) {
	r.withGlow(func(grow float64, c color.NRGBA) {
		r.segment(from, to, width+2*grow, c)
	}, c)
}

func (r *Raster) StrokeCircle(center Point, radius, width float64, c color.NRGBA) {
	if radius <= 0 {
		return
	}
	const segments = 96
	pts := make([]Point, segments+1)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / segments
		pts[i] = Point{X: center.X + math.Cos(a)*radius, Y: center.Y + math.Sin(a)*radius}
	}
	r.StrokePolyline(pts, width, c)
}

func (r *Raster) withGlow(paint func(grow float64, c color.NRGBA), c color.NRGBA) {
	if r.glowBlur > 0 {
		for pass := glowPasses; pass > 0; pass-- {
			grow := r.glowBlur * float64(pass) / glowPasses
			paint(grow, r.faded(WithAlpha(r.glowColor, 0.25)))
		}
	}
	paint(0, r.faded(c))
}

func (r *Raster) faded(c color.NRGBA) color.NRGBA {
	return WithAlpha(c, r.alpha)
}

// segment fills the quad covering a line of the given width.
func (r *Raster) segment(a, b Point, width float64, c color.NRGBA) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 || width <= 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	r.polygon([]Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}, c)
}

// polygon rasterises pts into a mask covering only their on-image bounding box.
func (r *Raster) polygon(pts []Point, c color.NRGBA) {
	if c.A == 0 || len(pts) < 3 {
		return
	}
	minX, minY, maxX, maxY := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	box := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	)
	clipped := box.Intersect(r.img.Bounds())
	if clipped.Empty() {
		return
	}

	ox, oy := float64(clipped.Min.X), float64(clipped.Min.Y)
	r.rasterizer.Reset(clipped.Dx(), clipped.Dy())
	r.rasterizer.DrawOp = draw.Over
	r.rasterizer.MoveTo(float32(pts[0].X-ox), float32(pts[0].Y-oy))
	for _, p := range pts[1:] {
		r.rasterizer.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	r.rasterizer.ClosePath()
	r.rasterizer.Draw(r.img, clipped, image.NewUniform(c), image.Point{})
}

func rectPath(x, y, w, h float64) []Point {
	return []Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
