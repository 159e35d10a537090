package sim

import (
	"sync/atomic"
	"time"
)

// Clock is a virtual microsecond tick counter advanced by the simulation.
type Clock struct {
	ticks atomic.Uint32
}

// NewClock returns a clock starting at start ticks.
func NewClock(start uint32) *Clock {
	var c Clock
	c.ticks.Store(start)
	return &c
}

// Ticks returns the current tick count. It wraps at 2^32.
func (c *Clock) Ticks() uint32 {
	return c.ticks.Load()
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.ticks.Add(uint32(d.Microseconds()))
}
