package http

import (
	"sync/atomic"
	"time"
)

// rateLimiter caps events per connection per minute. A zero limit disables it.
// The counter is atomic: allow runs on the read loop while the reset goroutine
// zeroes it.
type rateLimiter struct {
	limit   int64
	counter atomic.Int64
	reset   *time.Ticker
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit: int64(limit),
		reset: time.NewTicker(time.Minute),
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	return r.counter.Add(1) <= r.limit
}

func (r *rateLimiter) resetWindow() {
	r.counter.Store(0)
}

func (r *rateLimiter) startReset(stop <-chan struct{}) {
	if r == nil || r.reset == nil {
		return
	}
	go func() {
		for {
			select {
			case <-r.reset.C:
				r.resetWindow()
			case <-stop:
				r.reset.Stop()
				return
			}
		}
	}()
}
