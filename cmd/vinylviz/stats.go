package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cybre/vinylviz/internal/console"
)

const statsInterval = 2 * time.Second

// statsLogger is the headless stand-in for the terminal UI: it logs the
// stats panel periodically.
type statsLogger struct {
	logger *slog.Logger

	mu    sync.Mutex
	last  console.Frame
	fresh bool
}

func newStatsLogger(logger *slog.Logger) *statsLogger {
	return &statsLogger{logger: logger}
}

func (s *statsLogger) Publish(f console.Frame) {
	s.mu.Lock()
	s.last, s.fresh = f, true
	s.mu.Unlock()
}

func (s *statsLogger) Run(ctx context.Context) error {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.mu.Lock()
			f, fresh := s.last, s.fresh
			s.fresh = false
			s.mu.Unlock()
			if !fresh {
				continue
			}
			attrs := []any{
				slog.Uint64("frame", f.Seq),
				slog.String("plot", string(f.Style)),
				slog.Int("bpm", f.Stats.BPM),
				slog.Int("energy", f.Stats.EnergyPercent),
				slog.Int("bass_db", f.Stats.BassDecibels),
				slog.Int("treble_db", f.Stats.TrebleDecibels),
			}
			if f.Timeline.Known {
				attrs = append(attrs, slog.String("time", f.Timeline.Elapsed+"/"+f.Timeline.Total))
			}
			s.logger.Info("audio reactive state", attrs...)
		}
	}
}
