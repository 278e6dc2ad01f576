// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StatisticsSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "examsviewer_statistics_saves_total",
		Help: "Statistics save attempts by outcome (ok, trimmed, quota_retry, quota_warning, error)",
	}, []string{"outcome"})

	StatisticsLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "examsviewer_statistics_loads_total",
		Help: "Statistics loads by source (plain, compact, default)",
	}, []string{"source"})

	StatisticsBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "examsviewer_statistics_bytes",
		Help: "Size of the last written statistics document in bytes",
	})

	SessionsTrimmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "examsviewer_sessions_trimmed_total",
		Help: "Historical sessions dropped to stay within the storage budget",
	})

	CorruptedStoresCleared = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "examsviewer_corrupted_stores_cleared_total",
		Help: "Stores deleted by the corruption guard, by key",
	}, []string{"key"})

	RecalculateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "examsviewer_recalculate_duration_seconds",
		Help:    "Time spent mutating, recounting and persisting statistics per request",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	StatusCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "examsviewer_status_cache_lookups_total",
		Help: "Question status cache lookups by result (hit, miss)",
	}, []string{"result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "examsviewer_http_requests_total",
		Help: "HTTP requests by method and status code",
	}, []string{"method", "code"})
)
