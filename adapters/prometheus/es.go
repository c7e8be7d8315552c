package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dooyeoung/medops-sub001/core/es"
	"github.com/dooyeoung/medops-sub001/core/metrics"
)

// esMetrics implements es.ESMetrics on Prometheus histograms and counters,
// all partitioned by aggregate type.
type esMetrics struct {
	storeLoadDuration    *prometheus.HistogramVec
	storeAppendDuration  *prometheus.HistogramVec
	eventsAppended       *prometheus.CounterVec
	repoLoadDuration     *prometheus.HistogramVec
	repoSaveDuration     *prometheus.HistogramVec
	concurrencyConflicts *prometheus.CounterVec
	snapLoadDuration     *prometheus.HistogramVec
	snapSaveDuration     *prometheus.HistogramVec
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
}

func NewESMetrics(reg prometheus.Registerer) es.ESMetrics {
	labels := []string{"agg_type"}

	m := &esMetrics{
		storeLoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medops_es_store_load_duration_seconds",
			Help:    "Duration of event store loads.",
			Buckets: defaultBuckets,
		}, labels),
		storeAppendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medops_es_store_append_duration_seconds",
			Help:    "Duration of event store appends.",
			Buckets: defaultBuckets,
		}, labels),
		eventsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medops_es_events_appended_total",
			Help: "Number of events appended to the store.",
		}, labels),
		repoLoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medops_es_repo_load_duration_seconds",
			Help:    "Duration of aggregate loads including replay.",
			Buckets: defaultBuckets,
		}, labels),
		repoSaveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medops_es_repo_save_duration_seconds",
			Help:    "Duration of aggregate saves.",
			Buckets: defaultBuckets,
		}, labels),
		concurrencyConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medops_es_concurrency_conflicts_total",
			Help: "Number of optimistic concurrency conflicts on append.",
		}, labels),
		snapLoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medops_es_snapshot_load_duration_seconds",
			Help:    "Duration of snapshot loads.",
			Buckets: defaultBuckets,
		}, labels),
		snapSaveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medops_es_snapshot_save_duration_seconds",
			Help:    "Duration of snapshot saves.",
			Buckets: defaultBuckets,
		}, labels),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medops_es_snapshot_cache_hits_total",
			Help: "Number of snapshot cache hits.",
		}, labels),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medops_es_snapshot_cache_misses_total",
			Help: "Number of snapshot cache misses.",
		}, labels),
	}

	reg.MustRegister(
		m.storeLoadDuration,
		m.storeAppendDuration,
		m.eventsAppended,
		m.repoLoadDuration,
		m.repoSaveDuration,
		m.concurrencyConflicts,
		m.snapLoadDuration,
		m.snapSaveDuration,
		m.cacheHits,
		m.cacheMisses,
	)

	return m
}

func (m *esMetrics) StoreLoadDuration(aggType string) metrics.Timer {
	return newTimer(m.storeLoadDuration.WithLabelValues(aggType))
}

func (m *esMetrics) StoreAppendDuration(aggType string) metrics.Timer {
	return newTimer(m.storeAppendDuration.WithLabelValues(aggType))
}

func (m *esMetrics) EventsAppended(aggType string, count int) {
	m.eventsAppended.WithLabelValues(aggType).Add(float64(count))
}

func (m *esMetrics) RepoLoadDuration(aggType string) metrics.Timer {
	return newTimer(m.repoLoadDuration.WithLabelValues(aggType))
}

func (m *esMetrics) RepoSaveDuration(aggType string) metrics.Timer {
	return newTimer(m.repoSaveDuration.WithLabelValues(aggType))
}

func (m *esMetrics) ConcurrencyConflict(aggType string) {
	m.concurrencyConflicts.WithLabelValues(aggType).Inc()
}

func (m *esMetrics) SnapshotLoadDuration(aggType string) metrics.Timer {
	return newTimer(m.snapLoadDuration.WithLabelValues(aggType))
}

func (m *esMetrics) SnapshotSaveDuration(aggType string) metrics.Timer {
	return newTimer(m.snapSaveDuration.WithLabelValues(aggType))
}

func (m *esMetrics) CacheHit(aggType string)  { m.cacheHits.WithLabelValues(aggType).Inc() }
func (m *esMetrics) CacheMiss(aggType string) { m.cacheMisses.WithLabelValues(aggType).Inc() }

var _ es.ESMetrics = (*esMetrics)(nil)
