package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTicker struct {
	c       chan time.Time
	running atomic.Bool
	starts  atomic.Int32
}

func newManualTicker() *manualTicker {
	return &manualTicker{c: make(chan time.Time)}
}

func (m *manualTicker) Start()              { m.running.Store(true); m.starts.Add(1) }
func (m *manualTicker) Stop()               { m.running.Store(false) }
func (m *manualTicker) C() <-chan time.Time { return m.c }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startScheduler(t *testing.T, tick TickFunc) (*Scheduler, *manualTicker) {
	t.Helper()
	ticker := newManualTicker()
	s := New(ticker, tick, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
	})
	return s, ticker
}

func TestTicksOnlyWhileRunning(t *testing.T) {
	var count atomic.Int32
	s, ticker := startScheduler(t, func(context.Context, time.Time) error {
		count.Add(1)
		return nil
	})

	assert.Equal(t, Stopped, s.State())
	ticker.c <- time.Now()
	assert.Zero(t, count.Load())

	s.Play()
	require.Eventually(t, ticker.running.Load, time.Second, time.Millisecond)
	ticker.c <- time.Now()
	ticker.c <- time.Now()

	s.Pause()
	ticker.c <- time.Now()
	require.Eventually(t, func() bool { return !ticker.running.Load() }, time.Second, time.Millisecond)

	s.Play()
	ticker.c <- time.Now()
	ticker.c <- time.Now()

	require.Eventually(t, func() bool { return s.Ticks() == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(4), count.Load())
}

func TestTickErrorsDoNotStopScheduler(t *testing.T) {
	var count atomic.Int32
	s, ticker := startScheduler(t, func(context.Context, time.Time) error {
		if count.Add(1) == 1 {
			return errors.New("decode failed")
		}
		return nil
	})

	s.Play()
	ticker.c <- time.Now()
	ticker.c <- time.Now()

	require.Eventually(t, func() bool { return s.Ticks() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), s.Errors())
}

func TestPlayIsIdempotent(t *testing.T) {
	s, ticker := startScheduler(t, func(context.Context, time.Time) error { return nil })

	s.Play()
	require.Eventually(t, ticker.running.Load, time.Second, time.Millisecond)
	s.Play()
	s.Play()
	ticker.c <- time.Now()

	require.Eventually(t, func() bool { return s.Ticks() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), ticker.starts.Load())
	assert.Equal(t, "running", s.State().String())
}

func TestTicksRunSequentially(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	s, ticker := startScheduler(t, func(context.Context, time.Time) error {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	s.Play()
	for range 10 {
		ticker.c <- time.Now()
	}
	require.Eventually(t, func() bool { return s.Ticks() == 10 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestPauseWaitsForInFlightTick(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var count atomic.Int32
	s, ticker := startScheduler(t, func(context.Context, time.Time) error {
		if count.Add(1) == 1 {
			close(entered)
			<-release
		}
		return nil
	})

	s.Play()
	ticker.c <- time.Now()
	<-entered

	paused := make(chan struct{})
	go func() {
		s.Pause()
		close(paused)
	}()
	select {
	case <-paused:
		t.Fatal("Pause returned while a tick was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-paused
	require.Eventually(t, func() bool { return !ticker.running.Load() }, time.Second, time.Millisecond)

	select {
	case ticker.c <- time.Now():
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, uint64(1), s.Ticks())
}

func TestIntervalTicker(t *testing.T) {
	ticker := NewFPSTicker(200)
	ticker.Start()
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire")
	}
}
