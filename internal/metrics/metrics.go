// Package metrics holds the Prometheus metrics shared across the cluster's
// processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RateLimiterMetrics covers admission-decision counters for the
// PreprocessorRateLimiter.
type RateLimiterMetrics struct {
	MessagesDropped *prometheus.CounterVec
	BytesDropped    *prometheus.CounterVec
	MessagesAllowed prometheus.Counter
}

// NewRateLimiterMetrics registers rate-limiter metrics against the default
// registry, for use by cmd/indexer's /metrics endpoint.
func NewRateLimiterMetrics() *RateLimiterMetrics {
	return newRateLimiterMetrics(prometheus.DefaultRegisterer)
}

// NewRateLimiterMetricsWith registers against reg instead of the default
// registry, so callers that construct more than one limiter in the same
// process (notably tests) don't collide on metric names.
func NewRateLimiterMetricsWith(reg prometheus.Registerer) *RateLimiterMetrics {
	return newRateLimiterMetrics(reg)
}

func newRateLimiterMetrics(reg prometheus.Registerer) *RateLimiterMetrics {
	f := promauto.With(reg)
	return &RateLimiterMetrics{
		MessagesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestcluster",
			Subsystem: "preprocessor",
			Name:      "rate_limit_messages_dropped_total",
			Help:      "Total number of messages dropped by the rate limiter, by service and reason.",
		}, []string{"service", "reason"}), // reason: missing_service_name, not_provisioned, over_limit
		BytesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestcluster",
			Subsystem: "preprocessor",
			Name:      "rate_limit_bytes_dropped_total",
			Help:      "Total number of bytes dropped by the rate limiter, by service and reason.",
		}, []string{"service", "reason"}),
		MessagesAllowed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ingestcluster",
			Subsystem: "preprocessor",
			Name:      "rate_limit_messages_allowed_total",
			Help:      "Total number of messages admitted by the rate limiter.",
		}),
	}
}

// ChunkManagerMetrics covers the write/rollover path.
type ChunkManagerMetrics struct {
	LiveMessagesIndexed prometheus.Gauge
	LiveBytesIndexed    prometheus.Gauge
	RolloversStarted    prometheus.Counter
	RolloversSucceeded  prometheus.Counter
	RolloversFailed     prometheus.Counter
	ChunksEvicted       prometheus.Counter
}

// NewChunkManagerMetrics registers ChunkManager metrics against the default
// registry, for use by cmd/indexer and cmd/recovery's /metrics endpoints.
func NewChunkManagerMetrics() *ChunkManagerMetrics {
	return newChunkManagerMetrics(prometheus.DefaultRegisterer)
}

// NewChunkManagerMetricsWith registers against reg instead of the default
// registry; see NewRateLimiterMetricsWith.
func NewChunkManagerMetricsWith(reg prometheus.Registerer) *ChunkManagerMetrics {
	return newChunkManagerMetrics(reg)
}

func newChunkManagerMetrics(reg prometheus.Registerer) *ChunkManagerMetrics {
	f := promauto.With(reg)
	return &ChunkManagerMetrics{
		LiveMessagesIndexed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ingestcluster",
			Subsystem: "chunk_manager",
			Name:      "live_messages_indexed",
			Help:      "Number of messages indexed in the currently active chunk.",
		}),
		LiveBytesIndexed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ingestcluster",
			Subsystem: "chunk_manager",
			Name:      "live_bytes_indexed",
			Help:      "Number of bytes indexed in the currently active chunk.",
		}),
		RolloversStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ingestcluster",
			Subsystem: "chunk_manager",
			Name:      "rollovers_started_total",
			Help:      "Total number of chunk rollovers started.",
		}),
		RolloversSucceeded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ingestcluster",
			Subsystem: "chunk_manager",
			Name:      "rollovers_succeeded_total",
			Help:      "Total number of chunk rollovers that completed successfully.",
		}),
		RolloversFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ingestcluster",
			Subsystem: "chunk_manager",
			Name:      "rollovers_failed_total",
			Help:      "Total number of chunk rollovers that failed.",
		}),
		ChunksEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ingestcluster",
			Subsystem: "chunk_manager",
			Name:      "chunks_evicted_total",
			Help:      "Total number of chunks evicted from local disk after upload.",
		}),
	}
}

// ReconcileMetrics covers the reconciliation loop.
type ReconcileMetrics struct {
	RunsCompleted     prometheus.Counter
	OrphanFilesFound  prometheus.Gauge
	OrphanSnapsFound  prometheus.Gauge
	LastRunDurationMs prometheus.Gauge
}

// NewReconcileMetrics registers reconciliation metrics against the default
// registry, for use by cmd/manager's /metrics endpoint.
func NewReconcileMetrics() *ReconcileMetrics {
	return newReconcileMetrics(prometheus.DefaultRegisterer)
}

// NewReconcileMetricsWith registers against reg instead of the default
// registry; see NewRateLimiterMetricsWith.
func NewReconcileMetricsWith(reg prometheus.Registerer) *ReconcileMetrics {
	return newReconcileMetrics(reg)
}

func newReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	f := promauto.With(reg)
	return &ReconcileMetrics{
		RunsCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ingestcluster",
			Subsystem: "reconcile",
			Name:      "runs_completed_total",
			Help:      "Total number of reconciliation passes completed.",
		}),
		OrphanFilesFound: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ingestcluster",
			Subsystem: "reconcile",
			Name:      "orphan_files",
			Help:      "Number of object-store files with no matching snapshot, from the most recent pass.",
		}),
		OrphanSnapsFound: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ingestcluster",
			Subsystem: "reconcile",
			Name:      "orphan_snapshots",
			Help:      "Number of snapshots with no matching object-store file, from the most recent pass.",
		}),
		LastRunDurationMs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ingestcluster",
			Subsystem: "reconcile",
			Name:      "last_run_duration_ms",
			Help:      "Duration of the most recent reconciliation pass, in milliseconds.",
		}),
	}
}
