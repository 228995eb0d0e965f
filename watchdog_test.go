package coresem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualClock(t *testing.T) {
	r := require.New(t)

	c := NewManualClock()
	var fired []string
	arm := func(name string, d time.Duration) Timer {
		return c.Arm(d, func() { fired = append(fired, name) })
	}

	arm("late", 30*time.Millisecond)
	arm("early", 10*time.Millisecond)
	arm("early-too", 10*time.Millisecond)
	stopped := arm("stopped", 20*time.Millisecond)
	r.Equal(4, c.Pending())

	r.True(stopped.Stop())
	r.False(stopped.Stop())

	r.Equal(0, c.Advance(5*time.Millisecond))
	r.Equal(5*time.Millisecond, c.Now())

	r.Equal(2, c.Advance(20*time.Millisecond))
	r.Equal([]string{"early", "early-too"}, fired)
	r.Equal(25*time.Millisecond, c.Now())

	// Timers armed by a firing timer are relative to its deadline.
	c.Arm(time.Millisecond, func() {
		fired = append(fired, "chained")
		arm("chained-child", time.Millisecond)
	})
	r.Equal(3, c.Advance(10*time.Millisecond))
	r.Equal([]string{"early", "early-too", "chained", "chained-child", "late"}, fired)
	r.Equal(0, c.Pending())
}

func TestSystemWatchdog(t *testing.T) {
	r := require.New(t)

	done := make(chan struct{})
	SystemWatchdog{}.Arm(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		r.Fail("timer did not fire")
	}

	never := SystemWatchdog{}.Arm(time.Hour, func() { r.Fail("stopped timer fired") })
	r.True(never.Stop())
}
