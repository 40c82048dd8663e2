package records

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osf_records_updates_total",
		Help: "Update calls by lifecycle stage and outcome code.",
	}, []string{"lifecycle", "outcome"})

	stepSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "osf_records_update_step_seconds",
		Help:    "Duration of each update pipeline step.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})

	invalidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "osf_records_cache_invalidation_failures_total",
		Help: "Cache invalidations that failed after a committed update.",
	})
)
