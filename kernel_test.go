package coresem

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T, sched Scheduler, opts ...Option) (*Kernel, *ManualClock, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	clock := NewManualClock()
	opts = append([]Option{WithWatchdog(clock), WithLogger(logger)}, opts...)
	return New(sched, opts...), clock, hook
}

func waitKernel(t *testing.T, k *Kernel) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, k.Wait(ctx))
}

// sleeper returns a helper that suspends a thread for d on the
// kernel's watchdog.
func sleeper(t *testing.T, k *Kernel) func(*Thread, time.Duration) {
	t.Helper()
	s, err := NewSemaphore(k, "sleep", DisciplineFIFO, 0, 1)
	require.NoError(t, err)
	return func(th *Thread, d time.Duration) {
		s.Acquire(th, true, d)
	}
}

func TestKernelCollectsThreadErrors(t *testing.T) {
	r := require.New(t)

	k, _, _ := newTestKernel(t, NewCooperative())
	k.Go(context.Background(), "ok", 1, func(context.Context, *Thread) error {
		return nil
	})
	k.Go(context.Background(), "bad", 1, func(context.Context, *Thread) error {
		return fmt.Errorf("UH OH")
	})
	k.Go(context.Background(), "panicky", 1, func(context.Context, *Thread) error {
		panic("boom")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := k.Wait(ctx)
	r.Error(err)
	r.ErrorContains(err, "thread bad: UH OH")
	r.ErrorContains(err, "thread panicky panicked: boom")
}

func TestCooperativeBlockedThreadsHonorContext(t *testing.T) {
	r := require.New(t)

	k, _, _ := newTestKernel(t, NewCooperative())
	s, err := NewSemaphore(k, "never", DisciplineFIFO, 0, 1)
	r.NoError(err)

	k.Go(context.Background(), "stuck", 1, func(_ context.Context, th *Thread) error {
		s.Acquire(th, true, NoTimeout)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = k.Wait(ctx)
	r.ErrorIs(err, context.DeadlineExceeded)
	r.Equal(1, s.WaitCount())
}

func TestCooperativeRunsThreadsInStartOrder(t *testing.T) {
	r := require.New(t)

	k, _, _ := newTestKernel(t, NewCooperative())
	var order []string
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("t%d", i)
		k.Go(context.Background(), name, 1, func(_ context.Context, th *Thread) error {
			order = append(order, th.Name())
			th.Kernel().Go(th.Context(), th.Name()+"-child", 1, func(_ context.Context, child *Thread) error {
				order = append(order, child.Name())
				return nil
			})
			return nil
		})
	}
	waitKernel(t, k)

	r.Equal([]string{"t0", "t1", "t2", "t0-child", "t1-child", "t2-child"}, order)
}

func TestThreadContext(t *testing.T) {
	r := require.New(t)

	_, ok := ThreadFromContext(context.Background())
	r.False(ok)
	r.Panics(func() { MustThreadFromContext(context.Background()) })

	k, _, _ := newTestKernel(t, NewPreemptive())
	var self, found *Thread
	th := k.Go(context.Background(), "ctx", 7, func(ctx context.Context, th *Thread) error {
		self = th
		found = MustThreadFromContext(ctx)
		return nil
	})
	waitKernel(t, k)

	r.Same(th, self)
	r.Same(th, found)
	r.Equal(Priority(7), th.Priority())
	r.NotEqual(th.ID(), k.Go(context.Background(), "other", 1, func(context.Context, *Thread) error { return nil }).ID())
	waitKernel(t, k)
}
