package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/datawire/dlib/dlog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"

	"github.com/webriots/coresem"
)

// tally counts acquire outcomes across threads.
type tally struct {
	mu sync.Mutex
	m  map[coresem.Status]int
}

func (t *tally) add(s coresem.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.m == nil {
		t.m = make(map[coresem.Status]int)
	}
	t.m[s]++
}

func (t *tally) write(out io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	statuses := make([]coresem.Status, 0, len(t.m))
	for s := range t.m {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	for _, s := range statuses {
		fmt.Fprintf(out, "%-24s %d\n", s, t.m[s])
	}
}

// runStress contends cfg.Threads threads for cfg.Units units and
// writes the outcome totals to out.
func runStress(ctx context.Context, cfg *Config, logger *logrus.Logger, out io.Writer) error {
	d, err := cfg.discipline()
	if err != nil {
		return err
	}
	sched, err := cfg.scheduler()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := coresem.NewMetrics(reg)
	if err != nil {
		return err
	}

	k := coresem.New(sched, coresem.WithLogger(logger), coresem.WithMetrics(metrics))
	sema, err := coresem.NewSemaphore(k, "stress", d, cfg.Units, cfg.Units)
	if err != nil {
		return err
	}
	defer sema.Destroy()

	dlog.Infof(ctx, "running %d threads x %d iterations on %s scheduler, %s discipline, %d units",
		cfg.Threads, cfg.Iterations, cfg.Scheduler, d, cfg.Units)

	var outcomes tally
	for i := 0; i < cfg.Threads; i++ {
		name := fmt.Sprintf("worker-%d", i)
		k.Go(ctx, name, coresem.Priority(i%4), func(_ context.Context, th *coresem.Thread) error {
			for j := 0; j < cfg.Iterations; j++ {
				status := sema.Acquire(th, true, cfg.Timeout)
				outcomes.add(status)
				if status != coresem.StatusSuccessful {
					continue
				}
				th.Yield()
				if status := sema.Release(); status != coresem.StatusSuccessful {
					return errors.Errorf("release: %s", status)
				}
			}
			return nil
		})
	}

	wctx, cancel := context.WithTimeout(ctx, cfg.Deadline)
	defer cancel()
	if err := k.Wait(wctx); err != nil {
		return err
	}

	if count := sema.Count(); count != cfg.Units {
		return errors.Errorf("lost units: count %d, want %d", count, cfg.Units)
	}
	dlog.Infof(ctx, "done, %d units available", sema.Count())

	outcomes.write(out)

	if cfg.Metrics {
		mfs, err := reg.Gather()
		if err != nil {
			return errors.Wrap(err, "gather metrics")
		}
		for _, mf := range mfs {
			if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
				return errors.Wrap(err, "write metrics")
			}
		}
	}
	return nil
}
