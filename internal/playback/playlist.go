package playback

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"

	"github.com/cybre/vinylviz/internal/utils"
)

// ErrNoSuchTrack is returned when selecting an index outside the playlist.
var ErrNoSuchTrack = eris.New("no such track")

// Track is one playlist entry.
type Track struct {
	Path  string
	Title string
	// Hue is the track's random colour, fixed when the track is added.
	Hue float64
}

// Background is the translucent row colour of an inactive track.
func (t Track) Background() string {
	return fmt.Sprintf("hsla(%d, 70%%, 50%%, 0.2)", int(t.Hue))
}

// ActiveBackground is the row colour of the playing track.
func (t Track) ActiveBackground() string {
	return fmt.Sprintf("hsla(%d, 100%%, 50%%, 0.5)", int(t.Hue))
}

// Accent is the fully saturated track colour as #rrggbb.
func (t Track) Accent() string {
	return colorful.Hsl(t.Hue, 1, 0.5).Hex()
}

// Swatch is the 70% saturation track colour as #rrggbb.
func (t Track) Swatch() string {
	return colorful.Hsl(t.Hue, 0.7, 0.5).Hex()
}

// Random supplies track hues. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
}

// Playlist is an ordered list of tracks with a current index. Tracks are never
// deduplicated and the index wraps when advancing past the end.
type Playlist struct {
	tracks  []Track
	current int
	rng     Random
}

// NewPlaylist creates an empty playlist drawing hues from rng.
func NewPlaylist(rng Random) *Playlist {
	if rng == nil {
		panic("playback: random source must not be nil")
	}
	return &Playlist{current: -1, rng: rng}
}

// Add appends tracks in order, assigning each a random hue. It reports whether
// the playlist was empty beforehand.
func (p *Playlist) Add(tracks ...Track) (wasEmpty bool) {
	wasEmpty = len(p.tracks) == 0
	for _, t := range tracks {
		t.Hue = math.Floor(p.rng.Float64() * 360)
		p.tracks = append(p.tracks, t)
	}
	return wasEmpty
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// Tracks returns a copy of the entries.
func (p *Playlist) Tracks() []Track {
	return append([]Track(nil), p.tracks...)
}

// Current returns the current track and index; ok is false before the first
// selection.
func (p *Playlist) Current() (Track, int, bool) {
	if p.current < 0 || p.current >= len(p.tracks) {
		return Track{}, -1, false
	}
	return p.tracks[p.current], p.current, true
}

// Track returns the entry at i.
func (p *Playlist) Track(i int) (Track, error) {
	if i < 0 || i >= len(p.tracks) {
		return Track{}, eris.Wrapf(ErrNoSuchTrack, "index %d of %d", i, len(p.tracks))
	}
	return p.tracks[i], nil
}

// Select makes i current.
func (p *Playlist) Select(i int) (Track, error) {
	t, err := p.Track(i)
	if err != nil {
		return Track{}, err
	}
	p.current = i
	return t, nil
}

// NextIndex is the index after the current one, wrapping to 0.
func (p *Playlist) NextIndex() int {
	return utils.WrapIndex(p.current+1, len(p.tracks))
}
