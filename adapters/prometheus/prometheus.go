// Package prometheus binds the core instrumentation interfaces to
// prometheus/client_golang collectors.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dooyeoung/medops-sub001/core/metrics"
)

var defaultBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

type timer struct {
	t *prometheus.Timer
}

func (t timer) ObserveDuration() { t.t.ObserveDuration() }

func newTimer(o prometheus.Observer) metrics.Timer {
	return timer{t: prometheus.NewTimer(o)}
}

var _ metrics.Timer = timer{}
