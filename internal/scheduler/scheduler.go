// Package scheduler drives the per-tick pipeline at the display refresh rate
// while playback is running.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is the scheduler run state.
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// TickFunc performs one tick. An error is logged and the next tick still runs.
type TickFunc func(ctx context.Context, now time.Time) error

// Scheduler runs TickFunc on a single goroutine, one tick to completion before
// the next. Play and Pause may be called from any goroutine; Pause waits for
// an in-flight tick, and once it returns no new tick starts.
type Scheduler struct {
	ticker Ticker
	tick   TickFunc
	logger *slog.Logger

	// gate serialises state changes with the start of each tick.
	gate   sync.Mutex
	state  atomic.Int32
	wake   chan struct{}
	ticks  atomic.Uint64
	errors atomic.Uint64
}

// New creates a stopped Scheduler.
func New(ticker Ticker, tick TickFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		ticker: ticker,
		tick:   tick,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Play moves to Running.
func (s *Scheduler) Play() {
	s.gate.Lock()
	defer s.gate.Unlock()
	if State(s.state.Swap(int32(Running))) != Running {
		s.logger.Debug("scheduler running")
	}
	s.notify()
}

// Pause moves to Stopped. Session state owned by the tick function is untouched.
func (s *Scheduler) Pause() {
	s.gate.Lock()
	defer s.gate.Unlock()
	if State(s.state.Swap(int32(Stopped))) != Stopped {
		s.logger.Debug("scheduler stopped")
	}
	s.notify()
}

// State returns the current run state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Ticks returns how many ticks have run.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Errors returns how many ticks failed.
func (s *Scheduler) Errors() uint64 {
	return s.errors.Load()
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run processes state changes and ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	tickerRunning := false
	defer func() {
		if tickerRunning {
			s.ticker.Stop()
		}
	}()

	reconcile := func() {
		want := s.State() == Running
		switch {
		case want && !tickerRunning:
			s.ticker.Start()
			tickerRunning = true
		case !want && tickerRunning:
			s.ticker.Stop()
			tickerRunning = false
		}
	}
	reconcile()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
			reconcile()
		case now := <-s.ticker.C():
			s.runTick(ctx, now)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context, now time.Time) {
	s.gate.Lock()
	defer s.gate.Unlock()
	if s.State() != Running {
		return
	}
	s.ticks.Add(1)
	if err := s.tick(ctx, now); err != nil {
		s.errors.Add(1)
		s.logger.Warn("tick failed", slog.Any("error", err))
	}
}
