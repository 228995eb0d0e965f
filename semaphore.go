package coresem

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Semaphore is a counting semaphore with a bounded count. Units
// released while threads are blocked go straight to the first blocked
// thread, so a positive count and a non-empty queue never coexist.
type Semaphore struct {
	noCopy noCopy

	queue ThreadQueue

	// INVARIANT: count <= max
	// INVARIANT: count > 0 implies queue is empty
	//
	// GUARDED_BY(queue.lock)
	count   uint32
	max     uint32
	deleted bool
}

// NewSemaphore allocates and initializes a semaphore.
func NewSemaphore(k *Kernel, name string, d Discipline, initial, max uint32) (*Semaphore, error) {
	s := new(Semaphore)
	if err := s.Initialize(k, name, d, initial, max); err != nil {
		return nil, err
	}
	return s, nil
}

// Initialize prepares s with count initial and bound max.
func (s *Semaphore) Initialize(k *Kernel, name string, d Discipline, initial, max uint32) error {
	if initial > max {
		return errors.Errorf("coresem: semaphore %q initial value %d exceeds maximum count %d", name, initial, max)
	}
	if err := s.queue.Initialize(k, name, d); err != nil {
		return errors.Wrapf(err, "semaphore %q", name)
	}
	s.count = initial
	s.max = max
	s.deleted = false

	k.log.WithFields(logrus.Fields{
		"semaphore":  name,
		"discipline": d,
		"count":      initial,
		"max":        max,
	}).Debug("semaphore initialized")
	return nil
}

// Name returns the name given at initialization.
func (s *Semaphore) Name() string {
	return s.queue.name
}

// MaximumCount returns the bound fixed at initialization.
func (s *Semaphore) MaximumCount() uint32 {
	return s.max
}

// Acquire takes one unit for t. When none is available it returns
// StatusUnsatisfied if wait is false, and otherwise blocks t until a
// unit is handed over, the timeout expires, the semaphore is flushed
// or it is destroyed.
func (s *Semaphore) Acquire(t *Thread, wait bool, timeout time.Duration) Status {
	return s.seize(t, wait, timeout, StateWaitingForSemaphore, nil)
}

// seize is Acquire with the blocking state and a hook run under the
// lock when the fast path grants the unit.
func (s *Semaphore) seize(t *Thread, wait bool, timeout time.Duration, state State, granted func()) Status {
	m := s.queue.kernel.metrics

	var qc QueueContext
	s.queue.Acquire(&qc)

	if s.deleted {
		qc.Release()
		m.acquired(s.queue.name, outcomeDeleted)
		return StatusObjectWasDeleted
	}

	if s.count != 0 {
		s.count--
		if granted != nil {
			granted()
		}
		qc.Release()
		m.acquired(s.queue.name, outcomeFast)
		return StatusSuccessful
	}

	if !wait {
		qc.Release()
		m.acquired(s.queue.name, outcomeUnsatisfied)
		return StatusUnsatisfied
	}

	m.acquired(s.queue.name, outcomeBlocked)
	return s.queue.EnqueueCritical(&qc, t, state, timeout)
}

// Release gives back one unit, handing it to the first blocked thread
// if there is one.
func (s *Semaphore) Release() Status {
	return s.ReleaseBounded(s.max)
}

// ReleaseBounded is Release with a per-call bound on the count. The
// bound can only tighten the maximum given at initialization.
func (s *Semaphore) ReleaseBounded(bound uint32) Status {
	m := s.queue.kernel.metrics

	var qc QueueContext
	s.queue.Acquire(&qc)

	if s.deleted {
		qc.Release()
		m.released(s.queue.name, outcomeDeleted)
		return StatusObjectWasDeleted
	}

	if t := s.queue.FirstLocked(&qc); t != nil {
		s.queue.ExtractCritical(&qc, t, StatusSuccessful)
		m.released(s.queue.name, outcomeHandoff)
		return StatusSuccessful
	}

	status, outcome := StatusSuccessful, outcomeIncrement
	if s.count < min(bound, s.max) {
		s.count++
	} else {
		status, outcome = StatusMaximumCountExceeded, outcomeOverflow
	}
	qc.Release()

	m.released(s.queue.name, outcome)
	return status
}

// Flush wakes every blocked thread with StatusUnavailable and returns
// how many there were. The count is left unchanged and the semaphore
// remains usable.
func (s *Semaphore) Flush() int {
	var qc QueueContext
	s.queue.Acquire(&qc)
	if s.deleted {
		qc.Release()
		return 0
	}
	return s.queue.FlushCritical(&qc, StatusUnavailable)
}

// Count returns the number of available units.
func (s *Semaphore) Count() uint32 {
	var qc QueueContext
	s.queue.Acquire(&qc)
	defer qc.Release()
	return s.count
}

// WaitCount returns the number of blocked threads.
func (s *Semaphore) WaitCount() int {
	return s.queue.WaitCount()
}

// Destroy wakes every blocked thread with StatusObjectWasDeleted and
// releases the wait queue. Later calls on s report
// StatusObjectWasDeleted. Destroying twice is a no-op.
func (s *Semaphore) Destroy() {
	var qc QueueContext
	s.queue.Acquire(&qc)
	if s.deleted {
		qc.Release()
		return
	}
	s.deleted = true
	n := s.queue.FlushCritical(&qc, StatusObjectWasDeleted)
	s.queue.Destroy()

	s.queue.kernel.log.WithFields(logrus.Fields{
		"semaphore": s.queue.name,
		"woken":     n,
	}).Debug("semaphore destroyed")
}
