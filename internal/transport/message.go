package transport

import (
	"github.com/cybre/vinylviz/internal/console"
	"github.com/cybre/vinylviz/internal/lights"
	"github.com/cybre/vinylviz/internal/render"
)

// message is the JSON document pushed to websocket clients on every frame.
type message struct {
	Seq      uint64              `json:"seq"`
	Style    string              `json:"style"`
	Display  *render.DisplayList `json:"display"`
	Ambient  ambientMsg          `json:"ambient"`
	Rings    []ringMsg           `json:"rings"`
	Vinyl    lights.VinylPose    `json:"vinyl"`
	Spots    []spotMsg           `json:"spotlights"`
	Gauges   []gaugeMsg          `json:"gauges"`
	Melody   [][2]float64        `json:"melody"`
	Stats    console.Stats       `json:"stats"`
	Timeline timelineMsg         `json:"timeline"`
}

type ambientMsg struct {
	Opacity float64 `json:"opacity"`
	Color   string  `json:"color"`
}

type ringMsg struct {
	Arc      float64 `json:"arc"`
	Glow     float64 `json:"glow"`
	Rotation float64 `json:"rotation"`
	Color    string  `json:"color"`
}

type spotMsg struct {
	Opacity float64 `json:"opacity"`
	Height  float64 `json:"height"`
}

type gaugeMsg struct {
	Kind   string    `json:"kind"`
	Color  string    `json:"color"`
	Values []float64 `json:"values"`
}

type timelineMsg struct {
	Known   bool    `json:"known"`
	Percent float64 `json:"percent"`
	Elapsed string  `json:"elapsed"`
	Total   string  `json:"total"`
	Playing bool    `json:"playing"`
	Title   string  `json:"title"`
}

func newMessage(f console.Frame) message {
	scene := f.Scene
	m := message{
		Seq:     f.Seq,
		Style:   string(f.Style),
		Display: f.Display,
		Ambient: ambientMsg{Opacity: scene.Ambient.Opacity, Color: render.CSS(scene.Ambient.Color)},
		Vinyl:   scene.Vinyl,
		Stats:   f.Stats,
		Timeline: timelineMsg{
			Known:   f.Timeline.Known,
			Percent: f.Timeline.Percent,
			Elapsed: f.Timeline.Elapsed,
			Total:   f.Timeline.Total,
			Playing: f.Timeline.Playing,
			Title:   f.Timeline.Title,
		},
	}
	for _, r := range scene.Rings {
		m.Rings = append(m.Rings, ringMsg{Arc: r.ArcDegrees, Glow: r.GlowRadius, Rotation: r.Rotation, Color: render.CSS(r.Color)})
	}
	for _, s := range scene.Spotlights {
		m.Spots = append(m.Spots, spotMsg{Opacity: s.Opacity, Height: s.Height})
	}
	for _, g := range scene.Gauges {
		values := make([]float64, len(g.Points))
		for i, p := range g.Points {
			values[i] = p.Y
		}
		m.Gauges = append(m.Gauges, gaugeMsg{Kind: g.Kind.String(), Color: render.CSS(g.Color), Values: values})
	}
	m.Melody = make([][2]float64, len(scene.Melody))
	for i, p := range scene.Melody {
		m.Melody[i] = [2]float64{p.X, p.Y}
	}
	return m
}
