package coresem

import "sync"

// ISRLock is the critical section protecting a thread queue and the
// object that embeds it. While held, no other thread and no timer
// expiry can observe or modify the protected state.
type ISRLock struct {
	mu sync.Mutex
}

// QueueContext is the token of one critical section. It lives on the
// caller's stack for the duration of a single operation: Acquire
// fills it, and exactly one of Release, EnqueueCritical,
// ExtractCritical or FlushCritical consumes it.
type QueueContext struct {
	noCopy noCopy
	lock   *ISRLock
}

// Acquire enters the critical section and records it in qc.
func (l *ISRLock) Acquire(qc *QueueContext) {
	if qc.lock != nil {
		panic("coresem: queue context already holds a lock")
	}
	l.mu.Lock()
	qc.lock = l
}

// Release leaves the critical section recorded in qc.
func (qc *QueueContext) Release() {
	l := qc.lock
	if l == nil {
		panic("coresem: release of a queue context that holds no lock")
	}
	qc.lock = nil
	l.mu.Unlock()
}

// Held reports whether qc currently records an acquired lock.
func (qc *QueueContext) Held() bool {
	return qc.lock != nil
}

// assertHeld panics unless qc holds l.
func (qc *QueueContext) assertHeld(l *ISRLock) {
	if qc.lock != l {
		panic("coresem: operation requires the thread queue lock")
	}
}
