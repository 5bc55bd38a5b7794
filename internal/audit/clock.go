package audit

import (
	"sync/atomic"
	"time"
)

// Clock hands out strictly increasing millisecond timestamps, so two entries
// recorded by the same process never share a sort key.
type Clock struct {
	last atomic.Int64
	now  func() time.Time
}

// NewClock returns a Clock reading wall time from now (time.Now when nil).
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Next returns the next timestamp, at least one millisecond after the previous one.
func (c *Clock) Next() time.Time {
	for {
		last := c.last.Load()
		ms := c.now().UnixMilli()
		if ms <= last {
			ms = last + 1
		}
		if c.last.CompareAndSwap(last, ms) {
			return time.UnixMilli(ms)
		}
	}
}
