package clock

import (
	"context"
	"time"
)

type FakeClock struct {
	now    time.Time
	Sleeps []time.Duration
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Sleep records the requested duration and advances time without blocking.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) {
	c.Sleeps = append(c.Sleeps, d)
	c.now = c.now.Add(d)
}

func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
