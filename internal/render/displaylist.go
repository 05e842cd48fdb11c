package render

import (
	"encoding/json"
	"image/color"
)

// OpKind tags a recorded drawing call.
type OpKind string

const (
	OpClear        OpKind = "clear"
	OpGlow         OpKind = "glow"
	OpAlpha        OpKind = "alpha"
	OpFillRect     OpKind = "fillRect"
	OpGradientRect OpKind = "gradientRect"
	OpPolyline     OpKind = "polyline"
	OpLine         OpKind = "line"
	OpCircle       OpKind = "circle"
)

// Op is one recorded Surface call. Only the fields relevant to Kind are set.
type Op struct {
	Kind   OpKind
	Points []Point
	X, Y   float64
	W, H   float64
	Radius float64
	Width  float64
	Alpha  float64
	Blur   float64
	Color  color.NRGBA
	Color2 color.NRGBA
}

// DisplayList is a Surface that records calls instead of painting them.
type DisplayList struct {
	width, height float64
	ops           []Op
}

// NewDisplayList creates an empty list for a surface of the given size.
func NewDisplayList(width, height float64) *DisplayList {
	return &DisplayList{width: width, height: height}
}

func (d *DisplayList) Size() (float64, float64) { return d.width, d.height }

// Clear drops every recorded call and records the clear itself.
func (d *DisplayList) Clear() {
	d.ops = append(d.ops[:0], Op{Kind: OpClear})
}

func (d *DisplayList) SetGlow(c color.NRGBA, blur float64) {
	d.ops = append(d.ops, Op{Kind: OpGlow, Color: c, Blur: blur})
}

func (d *DisplayList) SetAlpha(a float64) {
	d.ops = append(d.ops, Op{Kind: OpAlpha, Alpha: a})
}

func (d *DisplayList) FillRect(x, y, w, h float64, c color.NRGBA) {
	d.ops = append(d.ops, Op{Kind: OpFillRect, X: x, Y: y, W: w, H: h, Color: c})
}

func (d *DisplayList) FillGradientRect(x, y, w, h float64, top, bottom color.NRGBA) {
	d.ops = append(d.ops, Op{Kind: OpGradientRect, X: x, Y: y, W: w, H: h, Color: top, Color2: bottom})
}

func (d *DisplayList) StrokePolyline(points []Point, width float64, c color.NRGBA) {
	d.ops = append(d.ops, Op{Kind: OpPolyline, Points: append([]Point(nil), points...), Width: width, Color: c})
}

func (d *DisplayList) StrokeLine(from, to Point, width float64, c color.NRGBA) {
	d.ops = append(d.ops, Op{Kind: OpLine, Points: []Point{from, to}, Width: width, Color: c})
}

func (d *DisplayList) StrokeCircle(center Point, radius, width float64, c color.NRGBA) {
	d.ops = append(d.ops, Op{Kind: OpCircle, X: center.X, Y: center.Y, Radius: radius, Width: width, Color: c})
}

// Ops returns the recorded calls. The slice is owned by the list.
func (d *DisplayList) Ops() []Op {
	return d.ops
}

// Count returns how many calls of kind were recorded.
func (d *DisplayList) Count(kind OpKind) int {
	n := 0
	for _, op := range d.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Clone returns an independent copy, safe to hand to another goroutine.
func (d *DisplayList) Clone() *DisplayList {
	out := &DisplayList{width: d.width, height: d.height, ops: make([]Op, len(d.ops))}
	for i, op := range d.ops {
		op.Points = append([]Point(nil), op.Points...)
		out.ops[i] = op
	}
	return out
}

// Replay issues every recorded call against dst in order.
func (d *DisplayList) Replay(dst Surface) {
	for _, op := range d.ops {
		switch op.Kind {
		case OpClear:
			dst.Clear()
		case OpGlow:
			dst.SetGlow(op.Color, op.Blur)
		case OpAlpha:
			dst.SetAlpha(op.Alpha)
		case OpFillRect:
			dst.FillRect(op.X, op.Y, op.W, op.H, op.Color)
		case OpGradientRect:
			dst.FillGradientRect(op.X, op.Y, op.W, op.H, op.Color, op.Color2)
		case OpPolyline:
			dst.StrokePolyline(op.Points, op.Width, op.Color)
		case OpLine:
			dst.StrokeLine(op.Points[0], op.Points[1], op.Width, op.Color)
		case OpCircle:
			dst.StrokeCircle(Point{X: op.X, Y: op.Y}, op.Radius, op.Width, op.Color)
		}
	}
}

type wireOp struct {
	Kind   OpKind       `json:"k"`
	Points [][2]float64 `json:"p,omitempty"`
	Rect   []float64    `json:"r,omitempty"`
	Radius float64      `json:"rad,omitempty"`
	Width  float64      `json:"w,omitempty"`
	Alpha  float64      `json:"a,omitempty"`
	Blur   float64      `json:"b,omitempty"`
	Color  string       `json:"c,omitempty"`
	Color2 string       `json:"c2,omitempty"`
}

type wireList struct {
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Ops    []wireOp `json:"ops"`
}

// MarshalJSON encodes the list in the compact form the browser overlay draws
// from: CSS colour strings and flat coordinate arrays.
func (d *DisplayList) MarshalJSON() ([]byte, error) {
	out := wireList{Width: d.width, Height: d.height, Ops: make([]wireOp, 0, len(d.ops))}
	for _, op := range d.ops {
		w := wireOp{Kind: op.Kind}
		switch op.Kind {
		case OpGlow:
			w.Color, w.Blur = CSS(op.Color), op.Blur
		case OpAlpha:
			w.Alpha = op.Alpha
		case OpFillRect:
			w.Rect, w.Color = []float64{op.X, op.Y, op.W, op.H}, CSS(op.Color)
		case OpGradientRect:
			w.Rect, w.Color, w.Color2 = []float64{op.X, op.Y, op.W, op.H}, CSS(op.Color), CSS(op.Color2)
		case OpPolyline, OpLine:
			w.Points = make([][2]float64, len(op.Points))
			for i, p := range op.Points {
				w.Points[i] = [2]float64{p.X, p.Y}
			}
			w.Width, w.Color = op.Width, CSS(op.Color)
		case OpCircle:
			w.Points = [][2]float64{{op.X, op.Y}}
			w.Radius, w.Width, w.Color = op.Radius, op.Width, CSS(op.Color)
		}
		out.Ops = append(out.Ops, w)
	}
	return json.Marshal(out)
}
