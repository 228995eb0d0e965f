package coresem

import (
	"strings"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/btree"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Discipline selects the order in which blocked threads are granted.
type Discipline uint8

const (
	// DisciplineFIFO grants threads in the order they blocked.
	DisciplineFIFO Discipline = iota
	// DisciplinePriority grants the thread with the lowest priority
	// value first, and threads of equal priority in the order they
	// blocked.
	DisciplinePriority
)

func (d Discipline) String() string {
	switch d {
	case DisciplineFIFO:
		return "fifo"
	case DisciplinePriority:
		return "priority"
	default:
		return "invalid"
	}
}

// ParseDiscipline parses "fifo" or "priority", ignoring case.
func ParseDiscipline(s string) (Discipline, error) {
	switch strings.ToLower(s) {
	case "fifo":
		return DisciplineFIFO, nil
	case "priority":
		return DisciplinePriority, nil
	default:
		return 0, errors.Errorf("coresem: unknown discipline %q", s)
	}
}

// waiter is the queue node of one blocking wait. A fresh node is
// allocated per wait so that a timer armed for an earlier wait can
// never touch a later one.
type waiter struct {
	thread   *Thread
	queue    *ThreadQueue
	state    State
	status   Status
	priority Priority
	seq      uint64
	timer    Timer
	since    time.Time
	queued   bool
}

// queueOps is the storage behind a discipline.
type queueOps interface {
	enqueue(w *waiter)
	extract(w *waiter)
	first() *waiter
	len() int
	drain(fn func(*waiter))
}

// fifoOps keeps waiters in insertion order.
type fifoOps struct {
	d deque.Deque[*waiter]
}

func (o *fifoOps) enqueue(w *waiter) {
	o.d.PushBack(w)
}

func (o *fifoOps) extract(w *waiter) {
	i := o.d.Index(func(x *waiter) bool { return x == w })
	if i < 0 {
		panic("coresem: waiter not found in fifo queue")
	}
	o.d.Remove(i)
}

func (o *fifoOps) first() *waiter {
	if o.d.Len() == 0 {
		return nil
	}
	return o.d.Front()
}

func (o *fifoOps) len() int {
	return o.d.Len()
}

func (o *fifoOps) drain(fn func(*waiter)) {
	for o.d.Len() > 0 {
		fn(o.d.PopFront())
	}
}

const priorityTreeDegree = 8

// priorityOps keeps waiters ordered by (priority, seq).
type priorityOps struct {
	t *btree.BTreeG[*waiter]
}

func newPriorityOps() *priorityOps {
	return &priorityOps{t: btree.NewG[*waiter](priorityTreeDegree, waiterLess)}
}

func waiterLess(a, b *waiter) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

func (o *priorityOps) enqueue(w *waiter) {
	o.t.ReplaceOrInsert(w)
}

func (o *priorityOps) extract(w *waiter) {
	if _, ok := o.t.Delete(w); !ok {
		panic("coresem: waiter not found in priority queue")
	}
}

func (o *priorityOps) first() *waiter {
	w, _ := o.t.Min()
	return w
}

func (o *priorityOps) len() int {
	return o.t.Len()
}

func (o *priorityOps) drain(fn func(*waiter)) {
	for {
		w, ok := o.t.DeleteMin()
		if !ok {
			return
		}
		fn(w)
	}
}

// ThreadQueue is an ordered set of threads blocked on one kernel
// object. Every method suffixed Locked or Critical requires the queue
// lock, taken with Acquire. The Critical methods also leave the
// critical section before returning.
type ThreadQueue struct {
	noCopy     noCopy
	lock       ISRLock
	kernel     *Kernel
	name       string
	discipline Discipline
	ops        queueOps // nil until Initialize and after Destroy
	seq        uint64
}

// Initialize prepares an empty queue ordered by d.
func (q *ThreadQueue) Initialize(k *Kernel, name string, d Discipline) error {
	if k == nil {
		return errors.New("coresem: thread queue requires a kernel")
	}

	var ops queueOps
	switch d {
	case DisciplineFIFO:
		ops = new(fifoOps)
	case DisciplinePriority:
		ops = newPriorityOps()
	default:
		return errors.Errorf("coresem: invalid discipline %d", d)
	}

	q.kernel = k
	q.name = name
	q.discipline = d
	q.ops = ops
	q.seq = 0
	return nil
}

// Name returns the name given at initialization.
func (q *ThreadQueue) Name() string {
	return q.name
}

// Discipline returns the ordering fixed at initialization.
func (q *ThreadQueue) Discipline() Discipline {
	return q.discipline
}

// Acquire enters the critical section of the queue.
func (q *ThreadQueue) Acquire(qc *QueueContext) {
	q.lock.Acquire(qc)
}

// FirstLocked returns the thread that would be granted next, or nil.
func (q *ThreadQueue) FirstLocked(qc *QueueContext) *Thread {
	qc.assertHeld(&q.lock)
	q.assertAlive()
	if w := q.ops.first(); w != nil {
		return w.thread
	}
	return nil
}

// LenLocked returns the number of blocked threads.
func (q *ThreadQueue) LenLocked(qc *QueueContext) int {
	qc.assertHeld(&q.lock)
	q.assertAlive()
	return q.ops.len()
}

// EnqueueCritical blocks t on the queue in the given state. The
// thread is queued, and its timer armed, before the lock is released,
// so a concurrent extract can never miss it. The call returns when
// the thread has been extracted, flushed or timed out, with the
// status assigned by whoever removed it. A zero timeout waits
// forever.
func (q *ThreadQueue) EnqueueCritical(qc *QueueContext, t *Thread, state State, timeout time.Duration) Status {
	qc.assertHeld(&q.lock)
	q.assertAlive()
	if t.wait != nil && t.wait.queued {
		panic("coresem: thread is already blocked")
	}

	q.seq++
	w := &waiter{
		thread:   t,
		queue:    q,
		state:    state,
		status:   StatusSuccessful,
		priority: t.Priority(),
		seq:      q.seq,
		since:    time.Now(),
		queued:   true,
	}
	t.wait = w
	q.ops.enqueue(w)

	if timeout != NoTimeout {
		w.timer = q.kernel.watchdog.Arm(timeout, func() { q.expire(w) })
	}

	qc.Release()

	q.debug(t, "blocked", logrus.Fields{"state": state, "timeout": timeout})
	q.kernel.sched.Suspend(t)

	return w.status
}

// ExtractCritical removes t from the queue, cancels its timer and
// makes it ready with the given status.
func (q *ThreadQueue) ExtractCritical(qc *QueueContext, t *Thread, status Status) {
	qc.assertHeld(&q.lock)
	q.assertAlive()

	w := t.wait
	if w == nil || !w.queued || w.queue != q {
		panic("coresem: thread is not blocked on this queue")
	}
	q.extractLocked(w, status)
	qc.Release()

	q.unblock(w)
}

// FlushCritical extracts every blocked thread in discipline order,
// assigning each the given status, and returns how many were woken.
func (q *ThreadQueue) FlushCritical(qc *QueueContext, status Status) int {
	qc.assertHeld(&q.lock)
	q.assertAlive()

	var woken []*waiter
	q.ops.drain(func(w *waiter) {
		q.settle(w, status)
		woken = append(woken, w)
	})
	qc.Release()

	for _, w := range woken {
		q.unblock(w)
	}
	if len(woken) > 0 {
		q.kernel.log.WithFields(logrus.Fields{
			"queue":  q.name,
			"status": status,
			"count":  len(woken),
		}).Debug("flushed")
	}
	return len(woken)
}

// Destroy releases the queue storage. The queue must be empty.
func (q *ThreadQueue) Destroy() {
	var qc QueueContext
	q.Acquire(&qc)
	defer qc.Release()

	q.assertAlive()
	if q.ops.len() != 0 {
		panic("coresem: destroy of a thread queue with blocked threads")
	}
	q.ops = nil
}

// WaitCount returns the number of blocked threads.
func (q *ThreadQueue) WaitCount() int {
	var qc QueueContext
	q.Acquire(&qc)
	defer qc.Release()
	if q.ops == nil {
		return 0
	}
	return q.ops.len()
}

func (q *ThreadQueue) assertAlive() {
	if q.ops == nil {
		panic("coresem: thread queue is not initialized")
	}
}

func (q *ThreadQueue) extractLocked(w *waiter, status Status) {
	q.ops.extract(w)
	q.settle(w, status)
}

// settle marks an already unlinked waiter as removed.
func (q *ThreadQueue) settle(w *waiter, status Status) {
	w.queued = false
	w.status = status
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (q *ThreadQueue) unblock(w *waiter) {
	q.kernel.metrics.observeWake(q.name, w.status, time.Since(w.since))
	q.debug(w.thread, "unblocked", logrus.Fields{"status": w.status})
	q.kernel.sched.Ready(w.thread)
}

// expire runs on timer expiry. Whoever takes the lock first wins: if
// the waiter was already granted or flushed it is left alone.
func (q *ThreadQueue) expire(w *waiter) {
	var qc QueueContext
	q.Acquire(&qc)
	if !w.queued || q.ops == nil {
		qc.Release()
		return
	}
	w.timer = nil
	q.extractLocked(w, StatusTimeout)
	qc.Release()

	q.unblock(w)
}

func (q *ThreadQueue) debug(t *Thread, msg string, fields logrus.Fields) {
	if !q.kernel.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	q.kernel.log.WithFields(fields).WithFields(logrus.Fields{
		"queue":  q.name,
		"thread": t.name,
	}).Debug(msg)
}
