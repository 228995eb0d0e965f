package coresem

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMutex(t *testing.T) {
	r := require.New(t)

	k, clock, _ := newTestKernel(t, NewCooperative())
	mux, err := NewMutex(k, "mux", DisciplineFIFO)
	r.NoError(err)
	sleep := sleeper(t, k)

	var order []string
	var waiting int
	critical, maxCritical := 0, 0

	k.Go(context.Background(), "main", 1, func(_ context.Context, th *Thread) error {
		if st := mux.Lock(th); st != StatusSuccessful {
			return st.Err()
		}

		for _, name := range []string{"ONE", "TWO", "THREE"} {
			k.Go(th.Context(), name, 1, func(_ context.Context, th *Thread) error {
				if st := mux.Lock(th); st != StatusSuccessful {
					return st.Err()
				}
				defer mux.Unlock()

				if mux.Owner() != th {
					return fmt.Errorf("%s does not own the mutex", th.Name())
				}
				critical++
				maxCritical = max(maxCritical, critical)
				order = append(order, th.Name())
				th.Yield()
				critical--
				return nil
			})
		}
		k.Go(th.Context(), "ticker", 1, func(context.Context, *Thread) error {
			clock.Advance(time.Millisecond)
			return nil
		})

		sleep(th, time.Millisecond)
		waiting = mux.WaitCount()
		mux.Unlock()
		return nil
	})
	waitKernel(t, k)

	r.Equal(3, waiting)
	r.Equal([]string{"ONE", "TWO", "THREE"}, order)
	r.Equal(1, maxCritical)
	r.Nil(mux.Owner())
	r.Equal(uint32(1), mux.sema.Count())
}

func TestMutexTryLockAndTimeout(t *testing.T) {
	r := require.New(t)

	k, clock, _ := newTestKernel(t, NewCooperative())
	mux, err := NewMutex(k, "try", DisciplinePriority)
	r.NoError(err)

	var tried bool
	var timed Status
	k.Go(context.Background(), "owner", 1, func(_ context.Context, th *Thread) error {
		if !mux.TryLock(th) {
			return fmt.Errorf("free mutex not acquired")
		}
		return nil
	})
	k.Go(context.Background(), "contender", 1, func(_ context.Context, th *Thread) error {
		tried = mux.TryLock(th)
		timed = mux.LockTimeout(th, 5*time.Millisecond)
		return nil
	})
	k.Go(context.Background(), "clock", 1, func(context.Context, *Thread) error {
		clock.Advance(5 * time.Millisecond)
		return nil
	})
	waitKernel(t, k)

	r.False(tried)
	r.Equal(StatusTimeout, timed)
	r.Equal("owner", mux.Owner().Name())

	mux.Unlock()
	r.Nil(mux.Owner())
	r.Panics(mux.Unlock)
}
