// Package playback owns the audio side of the console: the playlist, file
// decoding, the output device and the transport commands.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNoSource is returned by transport commands when no track is loaded.
var ErrNoSource = eris.New("no track loaded")

// Controller is the transport. It is safe for concurrent use; events are
// emitted after the controller lock is released.
type Controller struct {
	engine *Engine
	output Output
	open   Opener
	bus    *Bus
	logger *slog.Logger

	mu       sync.Mutex
	playlist *Playlist
	playing  bool
	// loadSeq numbers Select calls; a load only commits if it is the newest.
	loadSeq uint64

	ended chan struct{}
}

// NewController wires a playlist, engine and output together. open is used to
// decode tracks; OpenFile is the usual choice.
func NewController(engine *Engine, output Output, playlist *Playlist, open Opener, bus *Bus, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		engine:   engine,
		output:   output,
		open:     open,
		bus:      bus,
		logger:   logger,
		playlist: playlist,
		ended:    make(chan struct{}, 1),
	}
	engine.OnEnded(func() {
		select {
		case c.ended <- struct{}{}:
		default:
		}
	})
	return c
}

// Bus returns the event bus.
func (c *Controller) Bus() *Bus {
	return c.bus
}

// Add appends paths to the playlist. The first batch added to an empty
// playlist loads and plays its first track.
func (c *Controller) Add(paths ...string) {
	tracks := make([]Track, len(paths))
	for i, p := range paths {
		tracks[i] = NewTrack(p)
	}

	c.mu.Lock()
	wasEmpty := c.playlist.Add(tracks...)
	c.mu.Unlock()

	c.logger.Info("tracks added", slog.Int("count", len(paths)))
	if wasEmpty && len(paths) > 0 {
		if err := c.Select(0); err != nil {
			c.logger.Warn("could not load first track", slog.Any("error", err))
		}
	}
}

// Select loads track i and starts playing it. Decoding runs without holding
// the controller lock, so State stays responsive while a track loads; when
// several loads overlap the most recent Select wins. When decoding fails the
// error is logged and returned and the previous track keeps its state.
func (c *Controller) Select(i int) error {
	c.mu.Lock()
	track, err := c.playlist.Track(i)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()

	dec, err := c.open(track.Path)
	if err != nil {
		c.logger.Error("failed to load track",
			slog.String("path", track.Path),
			slog.Any("error", err))
		return err
	}

	c.mu.Lock()
	if seq != c.loadSeq {
		c.mu.Unlock()
		c.logger.Debug("track load superseded", slog.String("path", track.Path))
		return eris.Wrap(dec.Close(), "close superseded track")
	}
	c.playlist.Select(i)
	c.engine.Load(dec)
	c.playing = true
	c.output.Play()
	c.mu.Unlock()

	c.logger.Info("now playing", slog.Int("index", i), slog.String("title", track.Title))
	c.emit(EventTrackChanged)
	c.emit(EventPlay)
	return nil
}

// Play resumes the loaded track.
func (c *Controller) Play() error {
	c.mu.Lock()
	if !c.engine.Loaded() {
		c.mu.Unlock()
		return ErrNoSource
	}
	changed := !c.playing
	c.playing = true
	c.output.Play()
	c.mu.Unlock()

	if changed {
		c.emit(EventPlay)
	}
	return nil
}

// Pause halts output without unloading the track.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if !c.engine.Loaded() {
		c.mu.Unlock()
		return ErrNoSource
	}
	changed := c.playing
	c.playing = false
	c.output.Pause()
	c.mu.Unlock()

	if changed {
		c.emit(EventPause)
	}
	return nil
}

// Toggle flips between Play and Pause.
func (c *Controller) Toggle() error {
	if c.State().IsPlaying {
		return c.Pause()
	}
	return c.Play()
}

// Seek jumps to percent in [0,100] of the current track.
func (c *Controller) Seek(percent float64) error {
	if !c.engine.Loaded() {
		return ErrNoSource
	}
	if err := c.engine.Seek(percent / 100); err != nil {
		c.logger.Warn("seek failed", slog.Any("error", err))
		return err
	}
	c.emit(EventTimeUpdate)
	return nil
}

// SeekBy moves the position by delta.
func (c *Controller) SeekBy(delta time.Duration) error {
	st := c.State()
	if st.Duration <= 0 {
		return c.Seek(0)
	}
	return c.Seek(float64(st.CurrentTime+delta) / float64(st.Duration) * 100)
}

// Skip loads the next track, wrapping to the first after the last.
func (c *Controller) Skip() error {
	c.mu.Lock()
	n := c.playlist.Len()
	next := c.playlist.NextIndex()
	c.mu.Unlock()
	if n == 0 {
		return ErrNoSource
	}
	return c.Select(next)
}

// SetVolume sets the master gain in [0,1]. Gain is applied before the analyser
// tap so the spectrum follows the fader.
func (c *Controller) SetVolume(v float64) {
	c.engine.SetVolume(v)
}

// SetPlaybackRate changes the playback speed.
func (c *Controller) SetPlaybackRate(r float64) {
	c.engine.SetPlaybackRate(r)
}

// Playlist returns a copy of the playlist entries and the current index.
func (c *Controller) Playlist() ([]Track, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, idx, _ := c.playlist.Current()
	return c.playlist.Tracks(), idx
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	track, idx, _ := c.playlist.Current()
	playing := c.playing
	c.mu.Unlock()

	current, duration := c.engine.Position()
	return State{
		IsPlaying:    playing,
		CurrentTime:  seconds(current),
		Duration:     seconds(duration),
		PlaybackRate: c.engine.PlaybackRate(),
		TrackIndex:   idx,
		Title:        track.Title,
	}
}

// Run handles end-of-track auto-advance and emits timeupdate events every
// interval until ctx is done.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ended:
			c.handleEnded()
		case <-ticker.C:
			if c.State().IsPlaying {
				c.emit(EventTimeUpdate)
			}
		}
	}
}

// Close stops output and releases the current track.
func (c *Controller) Close() error {
	c.output.Pause()
	return eris.Wrap(c.engine.Close(), "close engine")
}

func (c *Controller) handleEnded() {
	c.emit(EventEnded)
	if err := c.Skip(); err != nil {
		c.logger.Warn("auto-advance failed", slog.Any("error", err))
		c.mu.Lock()
		c.playing = false
		c.output.Pause()
		c.mu.Unlock()
		c.emit(EventPause)
	}
}

func (c *Controller) emit(kind EventKind) {
	if c.bus == nil {
		return
	}
	c.bus.Emit(Event{Kind: kind, State: c.State()})
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
