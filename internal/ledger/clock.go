package ledger

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the unix time seen by requests.
type Clock interface {
	Now(ctx context.Context) (int64, error)
}

// ManualClock is a settable clock for simulations and tests.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NewManualClock returns a clock stopped at now.
func NewManualClock(now int64) *ManualClock {
	return &ManualClock{now: now}
}

// Now returns the current setting.
func (c *ManualClock) Now(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

// Set moves the clock to now, backwards included.
func (c *ManualClock) Set(now int64) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Advance moves the clock forward by d seconds and returns the new time.
func (c *ManualClock) Advance(d int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now in unix seconds.
func (SystemClock) Now(context.Context) (int64, error) {
	return time.Now().Unix(), nil
}
