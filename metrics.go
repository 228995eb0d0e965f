package coresem

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts operation outcomes per synchronization object.
type Metrics struct {
	acquires *prometheus.CounterVec
	releases *prometheus.CounterVec
	wakeups  *prometheus.CounterVec
	waits    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		acquires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coresem",
			Name:      "acquires_total",
			Help:      "Acquire calls by object and outcome.",
		}, []string{"object", "outcome"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coresem",
			Name:      "releases_total",
			Help:      "Release calls by object and outcome.",
		}, []string{"object", "outcome"}),
		wakeups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coresem",
			Name:      "wakeups_total",
			Help:      "Blocked threads woken, by object and wait status.",
		}, []string{"object", "status"}),
		waits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coresem",
			Name:      "wait_seconds",
			Help:      "Time threads spent blocked.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 8),
		}, []string{"object"}),
	}

	for _, c := range []prometheus.Collector{m.acquires, m.releases, m.wakeups, m.waits} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "coresem: register metrics")
		}
	}
	return m, nil
}

// Acquire and release outcomes.
const (
	outcomeFast        = "fast"
	outcomeBlocked     = "blocked"
	outcomeUnsatisfied = "unsatisfied"
	outcomeDeleted     = "deleted"
	outcomeHandoff     = "handoff"
	outcomeIncrement   = "increment"
	outcomeOverflow    = "overflow"
)

func (m *Metrics) acquired(object, outcome string) {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues(object, outcome).Inc()
}

func (m *Metrics) released(object, outcome string) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(object, outcome).Inc()
}

func (m *Metrics) observeWake(object string, status Status, waited time.Duration) {
	if m == nil {
		return
	}
	m.wakeups.WithLabelValues(object, status.String()).Inc()
	m.waits.WithLabelValues(object).Observe(waited.Seconds())
}
