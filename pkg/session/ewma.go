package session

import (
	"math"
	"sync"
	"time"
)

// ewmaTick is the minimum interval between folds of pending bytes into the
// average. Shorter intervals make the instantaneous rate too noisy.
const ewmaTick = time.Second

// EWMA is an exponentially-weighted moving average of a byte rate.
// Bytes are accumulated with Add and folded into the average lazily,
// at most once per second, using a decay factor derived from the window.
type EWMA struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	rate    float64
	pending int64
	last    time.Time
}

// NewEWMA creates a bandwidth average with the given decay window.
func NewEWMA(window time.Duration) *EWMA {
	return newEWMA(window, time.Now)
}

func newEWMA(window time.Duration, now func() time.Time) *EWMA {
	return &EWMA{
		window: window,
		now:    now,
		last:   now(),
	}
}

// Add records n transferred bytes.
func (e *EWMA) Add(n int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending += n
	e.fold(e.now())
}

// Rate returns the smoothed rate in bytes per second.
func (e *EWMA) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fold(e.now())
	return e.rate
}

func (e *EWMA) fold(now time.Time) {
	dt := now.Sub(e.last)
	if dt < ewmaTick {
		return
	}
	instant := float64(e.pending) / dt.Seconds()
	alpha := 1 - math.Exp(-dt.Seconds()/e.window.Seconds())
	e.rate += alpha * (instant - e.rate)
	e.pending = 0
	e.last = now
}
