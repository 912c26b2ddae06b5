package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a SteppingClock reports by default.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// SteppingClock is a deterministic wall clock: every Now call advances
// by a fixed step.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewSteppingClock starts at Epoch and advances one second per call.
func NewSteppingClock() *SteppingClock {
	return &SteppingClock{next: Epoch, step: time.Second}
}

// Now returns the current instant and advances the clock.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Reset rewinds the clock to Epoch.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = Epoch
}
