package coresem

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// Scheduler is the part of the thread scheduler the synchronization
// core consumes.
type Scheduler interface {
	// Start makes a new thread eligible to run body.
	Start(t *Thread, body func())
	// Ready makes a thread that was suspended eligible to run again.
	// It may be called before the thread has actually suspended.
	Ready(t *Thread)
	// Suspend stops the calling thread until it is readied.
	Suspend(t *Thread)
	// Yield lets other ready threads run before t continues.
	Yield(t *Thread)
	// Run returns once every started thread has finished, or with an
	// error when ctx is done first.
	Run(ctx context.Context) error
}

// Preemptive runs every thread on its own goroutine, leaving
// interleaving to the Go runtime.
type Preemptive struct {
	wg sync.WaitGroup
}

// NewPreemptive returns a goroutine-backed scheduler.
func NewPreemptive() *Preemptive {
	return new(Preemptive)
}

func (p *Preemptive) Start(t *Thread, body func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		body()
	}()
}

func (p *Preemptive) Ready(t *Thread) {
	select {
	case t.wake <- struct{}{}:
	default:
		panic("coresem: thread readied twice")
	}
}

func (p *Preemptive) Suspend(t *Thread) {
	<-t.wake
}

func (p *Preemptive) Yield(t *Thread) {
	runtime.Gosched()
}

func (p *Preemptive) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "coresem: threads still running")
	}
}
