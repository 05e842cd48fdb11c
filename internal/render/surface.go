// Package render draws the primary visualiser onto an abstract Surface.
//
// A Surface mirrors the subset of a 2D canvas the strategies need. Two
// implementations live here: DisplayList records the calls so they can be
// inspected, replayed or streamed, and Raster paints them into an RGBA image.
package render

import "image/color"

// Point is a position in surface units.
type Point struct {
	X, Y float64
}

// Surface is a 2D drawing target. Glow and alpha are sticky state, like the
// shadow and global alpha of a canvas context, and apply to every later call
// until changed.
type Surface interface {
	Size() (width, height float64)
	Clear()
	// SetGlow sets the glow colour and blur radius; a zero blur disables it.
	SetGlow(c color.NRGBA, blur float64)
	SetAlpha(a float64)
	FillRect(x, y, w, h float64, c color.NRGBA)
	// FillGradientRect fills with a vertical gradient from top to bottom.
	FillGradientRect(x, y, w, h float64, top, bottom color.NRGBA)
	StrokePolyline(points []Point, width float64, c color.NRGBA)
	StrokeLine(from, to Point, width float64, c color.NRGBA)
	StrokeCircle(center Point, radius, width float64, c color.NRGBA)
}
