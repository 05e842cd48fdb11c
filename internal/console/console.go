package console

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cybre/vinylviz/internal/playback"
	"github.com/cybre/vinylviz/internal/scheduler"
	"github.com/cybre/vinylviz/internal/settings"
)

// Transport is the subset of the playback controller the console drives.
type Transport interface {
	SetVolume(v float64)
}

// Console binds the pipeline, scheduler, settings and playback together.
type Console struct {
	Pipeline  *Pipeline
	Scheduler *scheduler.Scheduler
	store     *settings.Store
	logger    *slog.Logger

	bindOnce sync.Once
}

// New creates a console whose scheduler ticks pipeline with ticker.
func New(pipeline *Pipeline, ticker scheduler.Ticker, store *settings.Store, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		Pipeline:  pipeline,
		Scheduler: scheduler.New(ticker, pipeline.Tick, logger),
		store:     store,
		logger:    logger,
	}
}

// Bind starts and stops the scheduler with playback and pushes the volume
// fader to the transport. Only the first call has any effect.
func (c *Console) Bind(bus *playback.Bus, transport Transport) {
	c.bindOnce.Do(func() {
		bus.On(playback.EventPlay, func(playback.Event) { c.Scheduler.Play() })
		bus.On(playback.EventPause, func(playback.Event) { c.Scheduler.Pause() })

		lastVolume := c.store.Snapshot().Mixer.Volume
		transport.SetVolume(lastVolume)
		var mu sync.Mutex
		c.store.Subscribe(func(s settings.State) {
			mu.Lock()
			defer mu.Unlock()
			if s.Mixer.Volume != lastVolume {
				lastVolume = s.Mixer.Volume
				transport.SetVolume(lastVolume)
				c.logger.Debug("volume changed", slog.Float64("volume", lastVolume))
			}
		})
	})
}

// Run drives the scheduler until ctx is done.
func (c *Console) Run(ctx context.Context) error {
	return c.Scheduler.Run(ctx)
}
