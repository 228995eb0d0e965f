package coresem

import (
	"context"
	"fmt"
	"runtime/trace"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Kernel ties together the collaborators every synchronization object
// needs: the scheduler that suspends and readies threads, the
// watchdog that times out blocked waits, logging and metrics.
type Kernel struct {
	sched    Scheduler
	watchdog Watchdog
	log      *logrus.Entry
	metrics  *Metrics

	mu   sync.Mutex
	errs *multierror.Error
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithWatchdog replaces the SystemWatchdog.
func WithWatchdog(w Watchdog) Option {
	return func(k *Kernel) { k.watchdog = w }
}

// WithLogger replaces logrus.StandardLogger.
func WithLogger(l *logrus.Logger) Option {
	return func(k *Kernel) { k.log = logrus.NewEntry(l) }
}

// WithMetrics records operation outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(k *Kernel) { k.metrics = m }
}

// New creates a Kernel running its threads on sched.
func New(sched Scheduler, opts ...Option) *Kernel {
	k := &Kernel{
		sched:    sched,
		watchdog: SystemWatchdog{},
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Scheduler returns the scheduler the kernel was created with.
func (k *Kernel) Scheduler() Scheduler {
	return k.sched
}

// Watchdog returns the timer service used for wait timeouts.
func (k *Kernel) Watchdog() Watchdog {
	return k.watchdog
}

// Go creates a thread and hands it to the scheduler. An error
// returned or a panic raised by fn is reported by Wait.
func (k *Kernel) Go(
	ctx context.Context,
	name string,
	prio Priority,
	fn func(context.Context, *Thread) error,
) *Thread {
	t := newThread(ctx, k, name, prio)
	t.Log("GO")

	k.sched.Start(t, func() {
		tctx, task := trace.NewTask(t.ctx, threadTraceTaskType)
		region := trace.StartRegion(tctx, threadTraceRegionType)
		defer func() {
			if p := recover(); p != nil {
				k.fail(fmt.Errorf("thread %s panicked: %v", t.name, p))
			}
			region.End()
			task.End()
			t.Log("EXIT")
		}()

		if err := fn(t.ctx, t); err != nil {
			k.fail(errors.Wrapf(err, "thread %s", t.name))
		}
	})
	return t
}

// Wait runs the scheduler until every thread has returned, then
// reports the errors the threads returned.
func (k *Kernel) Wait(ctx context.Context) error {
	if err := k.sched.Run(ctx); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.errs.ErrorOrNil()
}

func (k *Kernel) fail(err error) {
	k.log.WithError(err).Debug("thread failed")
	k.mu.Lock()
	k.errs = multierror.Append(k.errs, err)
	k.mu.Unlock()
}
