package node

import (
	"time"
)

// ControlTimer is a polled one-shot timer. It never fires on its own: the
// node loop asks PassTime whether the delay has elapsed. A clock that moves
// backwards past the start also counts as elapsed, so a timer cannot get
// stuck.
type ControlTimer struct {
	now   func() time.Time
	start time.Time
	wait  time.Duration
	off   bool
}

// NewControlTimer returns a timer started now with the given delay. A
// non-positive delay creates it switched off.
func NewControlTimer(now func() time.Time, delay time.Duration) *ControlTimer {
	if now == nil {
		now = time.Now
	}
	return &ControlTimer{
		now:   now,
		start: now(),
		wait:  delay,
		off:   delay <= 0,
	}
}

// On sets the delay and switches the timer on. A timer that had already
// elapsed restarts from now; a running one keeps its start.
func (c *ControlTimer) On(delay time.Duration) {
	c.off = delay <= 0
	c.wait = delay
	if c.PassTime() {
		c.start = c.now()
	}
}

// Restart starts the timer again from now with its current delay.
func (c *ControlTimer) Restart() {
	c.start = c.now()
	c.off = false
}

// Off stops the timer.
func (c *ControlTimer) Off() {
	c.off = true
}

// IsOn reports whether the timer is running.
func (c *ControlTimer) IsOn() bool {
	return !c.off
}

// PassTime reports whether a running timer has elapsed.
func (c *ControlTimer) PassTime() bool {
	if c.off {
		return false
	}
	now := c.now()
	return now.Sub(c.start) > c.wait || now.Before(c.start)
}
