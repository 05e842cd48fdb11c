package scheduler

import "time"

// Ticker delivers refresh ticks while started.
type Ticker interface {
	Start()
	Stop()
	C() <-chan time.Time
}

// IntervalTicker is a Ticker backed by time.Ticker. The channel stays the same
// across Start and Stop.
type IntervalTicker struct {
	interval time.Duration
	ticker   *time.Ticker
}

// NewIntervalTicker creates a stopped ticker firing every interval once started.
func NewIntervalTicker(interval time.Duration) *IntervalTicker {
	t := time.NewTicker(interval)
	t.Stop()
	return &IntervalTicker{interval: interval, ticker: t}
}

// NewFPSTicker creates a stopped ticker for the given refresh rate.
func NewFPSTicker(fps int) *IntervalTicker {
	if fps <= 0 {
		fps = 60
	}
	return NewIntervalTicker(time.Second / time.Duration(fps))
}

func (t *IntervalTicker) Start()              { t.ticker.Reset(t.interval) }
func (t *IntervalTicker) Stop()               { t.ticker.Stop() }
func (t *IntervalTicker) C() <-chan time.Time { return t.ticker.C }
