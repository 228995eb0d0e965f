package coresem

import "time"

// Barrier lets threads wait until a counter drops to zero. Threads
// doing work call Add(1) before they start and Done when they finish;
// other threads call Wait.
type Barrier struct {
	noCopy noCopy
	queue  ThreadQueue
	v      int32 // GUARDED_BY(queue.lock)
}

// Initialize prepares a barrier with a zero counter. Waiters are
// released in the order they blocked.
func (b *Barrier) Initialize(k *Kernel, name string) error {
	b.v = 0
	return b.queue.Initialize(k, name, DisciplineFIFO)
}

// Add adds delta to the counter. When it reaches zero every waiter is
// released with StatusSuccessful. Add panics if the counter goes
// negative.
func (b *Barrier) Add(delta int) {
	var qc QueueContext
	b.queue.Acquire(&qc)

	b.v += int32(delta)

	if b.v < 0 {
		qc.Release()
		panic("coresem: negative Barrier counter")
	}

	if b.v > 0 {
		qc.Release()
		return
	}

	b.queue.FlushCritical(&qc, StatusSuccessful)
}

// Done decrements the counter by one.
func (b *Barrier) Done() {
	b.Add(-1)
}

// Wait blocks t until the counter is zero, or until timeout expires.
func (b *Barrier) Wait(t *Thread, timeout time.Duration) Status {
	var qc QueueContext
	b.queue.Acquire(&qc)

	if b.v == 0 {
		qc.Release()
		return StatusSuccessful
	}

	return b.queue.EnqueueCritical(&qc, t, StateWaitingForBarrier, timeout)
}

// WaitCount returns the number of blocked threads.
func (b *Barrier) WaitCount() int {
	return b.queue.WaitCount()
}
