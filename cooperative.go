package coresem

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
	"github.com/pkg/errors"
	"github.com/webriots/coro"
)

// Cooperative runs threads as coroutines dispatched one at a time, in
// ready order, from the goroutine that calls Run. A thread runs until
// it returns or suspends, which makes interleavings deterministic.
// Timer expiry may still ready threads from other goroutines.
type Cooperative struct {
	mu     sync.Mutex
	runq   deque.Deque[*Thread]
	live   int
	signal chan struct{}
}

// NewCooperative returns a coroutine-backed scheduler.
func NewCooperative() *Cooperative {
	return &Cooperative{signal: make(chan struct{}, 1)}
}

func (c *Cooperative) Start(t *Thread, body func()) {
	resume, cancel := coro.New(
		func(_ func(struct{}) struct{}, suspend func() struct{}) (z struct{}) {
			t.suspend = suspend
			body()
			return
		},
	)
	t.resume = resume
	t.cancel = cancel

	c.mu.Lock()
	c.live++
	c.runq.PushBack(t)
	c.mu.Unlock()
	c.notify()
}

func (c *Cooperative) Ready(t *Thread) {
	c.mu.Lock()
	c.runq.PushBack(t)
	c.mu.Unlock()
	c.notify()
}

func (c *Cooperative) Suspend(t *Thread) {
	if t.suspend == nil {
		panic("coresem: suspend outside of a cooperative thread")
	}
	t.suspend()
}

func (c *Cooperative) Yield(t *Thread) {
	c.Ready(t)
	c.Suspend(t)
}

func (c *Cooperative) Run(ctx context.Context) error {
	for {
		t, live := c.next()
		if live == 0 {
			return nil
		}

		if t == nil {
			select {
			case <-c.signal:
				continue
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "coresem: %d threads blocked", live)
			}
		}

		t.Log("RUN")
		if _, ok := t.resume(struct{}{}); !ok {
			t.cancel()
			c.mu.Lock()
			c.live--
			c.mu.Unlock()
		}
	}
}

// next pops the next ready thread, if any, and reports how many
// threads have not finished yet.
func (c *Cooperative) next() (*Thread, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runq.Len() == 0 {
		return nil, c.live
	}
	return c.runq.PopFront(), c.live
}

func (c *Cooperative) notify() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}
