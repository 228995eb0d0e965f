package coresem

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBarrier(t *testing.T) {
	r := require.New(t)

	k, _, _ := newTestKernel(t, NewCooperative())
	var b Barrier
	r.NoError(b.Initialize(k, "barrier"))

	expect, n := 100, 0
	var status Status
	k.Go(context.Background(), "waiter", 1, func(_ context.Context, th *Thread) error {
		for i := 0; i < expect-1; i++ {
			b.Add(1)
			k.Go(th.Context(), strconv.Itoa(i), 1, func(context.Context, *Thread) error {
				defer b.Done()
				n++
				return nil
			})
		}

		status = b.Wait(th, NoTimeout)
		n++
		return nil
	})
	waitKernel(t, k)

	r.Equal(StatusSuccessful, status)
	r.Equal(expect, n)
	r.Equal(0, b.WaitCount())
}

func TestBarrierReleasesAllWaiters(t *testing.T) {
	r := require.New(t)

	k, clock, _ := newTestKernel(t, NewCooperative())
	var b Barrier
	r.NoError(b.Initialize(k, "gate"))
	b.Add(1)

	statuses := map[string]Status{}
	for _, name := range []string{"a", "b", "c"} {
		k.Go(context.Background(), name, 1, func(_ context.Context, th *Thread) error {
			statuses[th.Name()] = b.Wait(th, NoTimeout)
			return nil
		})
	}
	k.Go(context.Background(), "impatient", 1, func(_ context.Context, th *Thread) error {
		statuses[th.Name()] = b.Wait(th, time.Millisecond)
		return nil
	})
	k.Go(context.Background(), "opener", 1, func(context.Context, *Thread) error {
		clock.Advance(time.Millisecond)
		b.Done()
		return nil
	})
	waitKernel(t, k)

	r.Equal(map[string]Status{
		"a":         StatusSuccessful,
		"b":         StatusSuccessful,
		"c":         StatusSuccessful,
		"impatient": StatusTimeout,
	}, statuses)
	r.Equal(StatusSuccessful, b.Wait(nil, NoTimeout))
	r.Panics(func() { b.Done() })
}
