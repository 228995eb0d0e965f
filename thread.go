package coresem

import (
	"context"
	"fmt"
	"runtime/trace"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	threadTraceTaskType   = "coresem-thread"
	threadTraceRegionType = "coresem-region"
	threadTraceCategory   = "coresem"
)

// NoTimeout makes a blocking operation wait until it is granted,
// flushed or its object is destroyed.
const NoTimeout time.Duration = 0

// Priority orders threads under DisciplinePriority. Lower values are
// more important.
type Priority uint32

// State is the reason a thread is blocked.
type State uint32

const (
	StateReady               State = 0
	StateWaitingForSemaphore State = 1 << iota
	StateWaitingForMutex
	StateWaitingForBarrier
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateWaitingForSemaphore:
		return "waiting for semaphore"
	case StateWaitingForMutex:
		return "waiting for mutex"
	case StateWaitingForBarrier:
		return "waiting for barrier"
	default:
		return fmt.Sprintf("State(%#x)", uint32(s))
	}
}

// Thread is an execution context managed by a Kernel's Scheduler.
// Synchronization objects only reference threads; they never own
// them.
type Thread struct {
	id       uuid.UUID
	name     string
	priority Priority
	ctx      context.Context
	kernel   *Kernel

	// Current or most recent wait. Written by the thread itself while
	// holding the lock of the queue it blocks on.
	wait *waiter

	// Preemptive scheduler.
	wake chan struct{}

	// Cooperative scheduler.
	resume  func(struct{}) (struct{}, bool)
	suspend func() struct{}
	cancel  func()
}

func newThread(ctx context.Context, k *Kernel, name string, prio Priority) *Thread {
	t := &Thread{
		id:       uuid.New(),
		name:     name,
		priority: prio,
		kernel:   k,
		wake:     make(chan struct{}, 1),
	}
	t.ctx = withThreadContext(ctx, t)
	return t
}

// ID returns the unique identity of the thread.
func (t *Thread) ID() uuid.UUID {
	return t.id
}

// Name returns the name given to Kernel.Go.
func (t *Thread) Name() string {
	return t.name
}

// Priority returns the current priority.
func (t *Thread) Priority() Priority {
	return t.priority
}

// SetPriority changes the priority used by future waits. It must be
// called by the thread itself. A thread that is already queued keeps
// its position.
func (t *Thread) SetPriority(p Priority) {
	t.priority = p
}

// Context returns the context the thread body runs with.
func (t *Thread) Context() context.Context {
	return t.ctx
}

// Kernel returns the kernel that created the thread.
func (t *Thread) Kernel() *Kernel {
	return t.kernel
}

// Yield lets other ready threads run. It must be called by the
// thread itself.
func (t *Thread) Yield() {
	t.kernel.sched.Yield(t)
}

func (t *Thread) String() string {
	return t.name
}

func (t *Thread) Log(msg string) {
	if trace.IsEnabled() {
		trace.Log(t.ctx, threadTraceCategory, t.name+" "+msg)
	}
	if t.kernel.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		t.kernel.log.WithField("thread", t.name).Trace(msg)
	}
}

func (t *Thread) Logf(format string, args ...any) {
	if trace.IsEnabled() || t.kernel.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		t.Log(fmt.Sprintf(format, args...))
	}
}
