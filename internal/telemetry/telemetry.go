// Package telemetry wraps the prometheus/client_golang counters and
// histograms the action surface emits around every remember/recall/forget
// call.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry holds the two action-surface instruments. The zero value is
// not usable; construct with New.
type Telemetry struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// New registers the engine's instruments against reg. Passing
// prometheus.NewRegistry() (rather than the global DefaultRegisterer)
// keeps repeated test construction from panicking on duplicate
// registration.
func New(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "memoryengine",
			Subsystem: "actions",
			Name:      "duration_seconds",
			Help:      "Duration of remember/recall/forget calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memoryengine",
			Subsystem: "actions",
			Name:      "outcomes_total",
			Help:      "Count of remember/recall/forget calls by outcome.",
		}, []string{"action", "outcome"}),
	}
	reg.MustRegister(t.duration, t.outcomes)
	return t
}

// Outcome labels recorded against the outcomes_total counter.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Observe records one call's duration and outcome under action (one of
// "remember", "recall", "forget").
func (t *Telemetry) Observe(action, outcome string, elapsed time.Duration) {
	t.duration.WithLabelValues(action).Observe(elapsed.Seconds())
	t.outcomes.WithLabelValues(action, outcome).Inc()
}

// Track starts a timer for action and returns a func to call on return
// from the wrapped call, recording OutcomeError if err is non-nil.
func (t *Telemetry) Track(action string) func(err *error) {
	start := time.Now()
	return func(err *error) {
		outcome := OutcomeOK
		if err != nil && *err != nil {
			outcome = OutcomeError
		}
		t.Observe(action, outcome, time.Since(start))
	}
}
