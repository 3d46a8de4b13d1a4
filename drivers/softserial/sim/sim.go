// Package sim is a deterministic stand-in for the hardware a software serial
// port runs on: a virtual cycle counter, pins joined into nets, and an
// interrupt controller.
//
// Time only moves when someone waits. A transmitter busy-waiting for its next
// bit edge jumps the clock straight to the deadline, and every level change
// on a net is delivered to the edge handlers of the pins on it before Set
// returns, stamped with the current virtual time.
package sim

import (
	"sync"

	"go.uber.org/atomic"

	"softserial-go/drivers/softserial"
)

// DefaultFrequency is the clock rate used when NewClock is given zero.
const DefaultFrequency = 80_000_000

// Clock is a virtual cycle counter.
type Clock struct {
	now  atomic.Uint32
	freq uint32
}

// NewClock returns a clock at zero running at freq Hz, or DefaultFrequency
// when freq is zero.
func NewClock(freq uint32) *Clock {
	if freq == 0 {
		freq = DefaultFrequency
	}
	return &Clock{freq: freq}
}

// Cycles returns the current virtual time.
func (c *Clock) Cycles() uint32 { return c.now.Load() }

// Frequency returns the cycle rate in Hz.
func (c *Clock) Frequency() uint32 { return c.freq }

// WaitUntil moves time forward to deadline. It never moves it back.
func (c *Clock) WaitUntil(deadline uint32) {
	for {
		now := c.now.Load()
		if int32(deadline-now) <= 0 {
			return
		}
		if c.now.CompareAndSwap(now, deadline) {
			return
		}
	}
}

// Advance moves time forward by n cycles.
func (c *Clock) Advance(n uint32) { c.now.Add(n) }

// Controller masks edge delivery. Edges raised while masked are latched and
// delivered, in order, when the outermost Restore unmasks.
type Controller struct {
	mu      sync.Mutex
	depth   uintptr
	pending []func()
	latched int
}

// Disable masks delivery and returns the state to hand back to Restore.
func (c *Controller) Disable() uintptr {
	c.mu.Lock()
	prev := c.depth
	c.depth++
	c.mu.Unlock()
	return prev
}

// Restore reinstates state. Returning to unmasked runs the latched edges.
func (c *Controller) Restore(state uintptr) {
	c.mu.Lock()
	c.depth = state
	if state != 0 {
		c.mu.Unlock()
		return
	}
	run := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, h := range run {
		h()
	}
}

// Masked reports whether delivery is currently held off.
func (c *Controller) Masked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth != 0
}

// Latched returns how many edges have been held off while masked so far.
func (c *Controller) Latched() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latched
}

func (c *Controller) deliver(h func()) {
	c.mu.Lock()
	if c.depth != 0 {
		c.pending = append(c.pending, h)
		c.latched++
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	h()
}

var (
	_ softserial.Clock      = (*Clock)(nil)
	_ softserial.Interrupts = (*Controller)(nil)
)
