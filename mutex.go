package coresem

import "time"

// Mutex provides mutual exclusion between threads. It is a binary
// semaphore that also tracks its owner: on Unlock ownership passes
// directly to the first blocked thread. It is not recursive.
type Mutex struct {
	noCopy noCopy
	sema   Semaphore
	owner  *Thread // GUARDED_BY(sema.queue.lock)
}

// NewMutex allocates and initializes an unlocked mutex.
func NewMutex(k *Kernel, name string, d Discipline) (*Mutex, error) {
	m := new(Mutex)
	if err := m.Initialize(k, name, d); err != nil {
		return nil, err
	}
	return m, nil
}

// Initialize prepares an unlocked mutex.
func (m *Mutex) Initialize(k *Kernel, name string, d Discipline) error {
	m.owner = nil
	return m.sema.Initialize(k, name, d, 1, 1)
}

// Lock acquires the mutex for t, blocking while another thread owns
// it.
func (m *Mutex) Lock(t *Thread) Status {
	return m.lock(t, true, NoTimeout)
}

// TryLock acquires the mutex only if it is free.
func (m *Mutex) TryLock(t *Thread) bool {
	return m.lock(t, false, NoTimeout) == StatusSuccessful
}

// LockTimeout is Lock bounded by d.
func (m *Mutex) LockTimeout(t *Thread, d time.Duration) Status {
	return m.lock(t, true, d)
}

func (m *Mutex) lock(t *Thread, wait bool, timeout time.Duration) Status {
	return m.sema.seize(t, wait, timeout, StateWaitingForMutex, func() { m.owner = t })
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() {
	s := &m.sema

	var qc QueueContext
	s.queue.Acquire(&qc)

	if m.owner == nil {
		qc.Release()
		panic("coresem: unlock of unlocked Mutex")
	}

	if next := s.queue.FirstLocked(&qc); next != nil {
		m.owner = next
		s.queue.ExtractCritical(&qc, next, StatusSuccessful)
		s.queue.kernel.metrics.released(s.queue.name, outcomeHandoff)
		return
	}

	m.owner = nil
	s.count++
	qc.Release()
	s.queue.kernel.metrics.released(s.queue.name, outcomeIncrement)
}

// Owner returns the thread holding the mutex, or nil.
func (m *Mutex) Owner() *Thread {
	var qc QueueContext
	m.sema.queue.Acquire(&qc)
	defer qc.Release()
	return m.owner
}

// WaitCount returns the number of threads waiting to acquire the
// mutex.
func (m *Mutex) WaitCount() int {
	return m.sema.WaitCount()
}
