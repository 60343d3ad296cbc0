package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// cache operation results
const (
	CacheResultOK    = "ok"
	CacheResultMiss  = "miss"
	CacheResultError = "error"
)

// timetable snapshot lookups
const (
	SnapshotHit        = "hit"
	SnapshotMiss       = "miss"
	SnapshotUnreadable = "unreadable"
)

var (
	cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache calls by operation and result.",
		},
		[]string{"operation", "result"},
	)
	cacheOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Cache call latency in seconds.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)
	snapshotLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetable_snapshot_lookups_total",
			Help: "Timetable snapshot cache lookups by result.",
		},
		[]string{"result"},
	)
	cacheMemory = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_memory_bytes",
			Help: "Memory used by the cache server.",
		},
	)
)

func cacheCollectors() []prometheus.Collector {
	return []prometheus.Collector{cacheOps, cacheOpDuration, snapshotLookups, cacheMemory}
}

func ObserveCacheOp(op, result string, d time.Duration) {
	cacheOps.WithLabelValues(op, result).Inc()
	cacheOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

func IncSnapshotLookup(result string) { snapshotLookups.WithLabelValues(result).Inc() }

func SetCacheMemoryBytes(n int64) { cacheMemory.Set(float64(max(n, 0))) }
