package coresem

import (
	"sync"
	"time"

	"github.com/google/btree"
)

// Timer is an armed timeout.
type Timer interface {
	// Stop cancels the timer. It reports false when the timer already
	// fired or was stopped.
	Stop() bool
}

// Watchdog is the timer service used to bound blocking waits. fire
// runs on a context of the watchdog's choosing and must not be called
// while the caller of Arm holds a queue lock.
type Watchdog interface {
	Arm(d time.Duration, fire func()) Timer
}

// SystemWatchdog arms timers on the runtime clock.
type SystemWatchdog struct{}

func (SystemWatchdog) Arm(d time.Duration, fire func()) Timer {
	return time.AfterFunc(d, fire)
}

// ManualClock is a Watchdog whose time only moves when Advance is
// called. Expired timers fire synchronously on the caller of Advance,
// so Advance must not be called with a queue lock held.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers *btree.BTreeG[*manualTimer]
}

type manualTimer struct {
	clock    *ManualClock
	deadline time.Duration
	seq      uint64
	fire     func()
}

// NewManualClock returns a clock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{
		timers: btree.NewG[*manualTimer](priorityTreeDegree, func(a, b *manualTimer) bool {
			if a.deadline != b.deadline {
				return a.deadline < b.deadline
			}
			return a.seq < b.seq
		}),
	}
}

func (c *ManualClock) Arm(d time.Duration, fire func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	mt := &manualTimer{clock: c, deadline: c.now + d, seq: c.seq, fire: fire}
	c.timers.ReplaceOrInsert(mt)
	return mt
}

// Now returns the time elapsed since the clock was created.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending returns the number of armed timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers.Len()
}

// Advance moves the clock forward by d, firing every timer whose
// deadline is reached in deadline order. It returns the number of
// timers fired.
func (c *ManualClock) Advance(d time.Duration) int {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	fired := 0
	for {
		c.mu.Lock()
		mt, ok := c.timers.Min()
		if !ok || mt.deadline > target {
			c.now = target
			c.mu.Unlock()
			return fired
		}
		c.timers.Delete(mt)
		c.now = mt.deadline
		c.mu.Unlock()

		mt.fire()
		fired++
	}
}

func (mt *manualTimer) Stop() bool {
	mt.clock.mu.Lock()
	defer mt.clock.mu.Unlock()
	_, ok := mt.clock.timers.Delete(mt)
	return ok
}
