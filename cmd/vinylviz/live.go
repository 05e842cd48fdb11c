package main

import (
	"time"

	"github.com/cybre/vinylviz/internal/playback"
	"github.com/cybre/vinylviz/internal/scheduler"
)

// liveSource reports a line-in feed as an endless, always playing track.
type liveSource struct {
	title string
}

func (s liveSource) State() playback.State {
	return playback.State{IsPlaying: true, PlaybackRate: 1, Title: s.title}
}

// liveTransport maps the console's transport keys onto the scheduler: space
// freezes and resumes the visuals, seeking and skipping do nothing.
type liveTransport struct {
	scheduler *scheduler.Scheduler
}

func (t liveTransport) Toggle() error {
	if t.scheduler.State() == scheduler.Running {
		t.scheduler.Pause()
	} else {
		t.scheduler.Play()
	}
	return nil
}

func (liveTransport) Skip() error                       { return nil }
func (liveTransport) SeekBy(time.Duration) error        { return nil }
func (liveTransport) Playlist() ([]playback.Track, int) { return nil, 0 }
