// Package coresem provides the blocking synchronization core of a
// small real-time kernel: a thread queue that suspends threads in
// FIFO or priority order, and a bounded counting semaphore built on
// it.
//
// Key components:
//
//   - Kernel: binds a Scheduler, a Watchdog for wait timeouts,
//     logging and metrics. Threads are created with Kernel.Go.
//
//   - Scheduler: Preemptive runs each thread on its own goroutine;
//     Cooperative runs threads as coroutines from a single loop so
//     interleavings are deterministic.
//
//   - ThreadQueue: the wait queue. All of its Locked and Critical
//     operations run under the queue's ISRLock, whose token
//     (QueueContext) is handed to EnqueueCritical so the lock is
//     released only after the thread is visibly blocked.
//
//   - Semaphore: Acquire, Release, Flush, Count and Destroy with
//     direct hand-off of released units to blocked threads.
//
//   - Mutex and Barrier: higher-level objects built on the above.
//
// Every operation reports its outcome as a Status value.
package coresem
