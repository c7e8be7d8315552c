// Package metrics provides small instrumentation interfaces so core packages
// stay decoupled from any concrete backend (Prometheus, StatsD, ...).
package metrics

// Timer measures the duration of an operation. Call ObserveDuration when
// the operation completes to record the elapsed time.
type Timer interface {
	ObserveDuration()
}
