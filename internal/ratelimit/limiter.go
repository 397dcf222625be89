package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ingestcluster/core/internal/metrics"
	"github.com/ingestcluster/core/internal/span"
)

// DropReason tags why a record was dropped, matching the decision
// procedure's three drop cases one-for-one.
type DropReason string

const (
	ReasonMissingServiceName DropReason = "missing_service_name"
	ReasonNotProvisioned     DropReason = "not_provisioned"
	ReasonOverLimit          DropReason = "over_limit"
)

// ServiceConfig is one configured service's rate-limit budget.
type ServiceConfig struct {
	ServiceName      string
	PermitsPerSecond float64
	MaxBurstSeconds  int
	InitializeWarm   bool
}

// PreprocessorRateLimiter builds the (key, span) admission predicate: for
// each configured service it owns one bucket sized by
// serviceThroughput / preprocessorCount, so a fleet of N identical
// preprocessor instances collectively enforce the per-service budget.
type PreprocessorRateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	metrics *metrics.RateLimiterMetrics
	log     *slog.Logger
	now     func() time.Time
}

// New builds a limiter from the given per-service configs, dividing each
// config's PermitsPerSecond by preprocessorCount before constructing its
// bucket.
func New(configs []ServiceConfig, preprocessorCount int, m *metrics.RateLimiterMetrics, log *slog.Logger) *PreprocessorRateLimiter {
	return newWithClock(configs, preprocessorCount, m, log, nil)
}

// NewWithClock is New with an injectable clock, for deterministic tests of
// the boundary scenarios in spec.md §8 (cold start, warm burst).
func NewWithClock(configs []ServiceConfig, preprocessorCount int, m *metrics.RateLimiterMetrics, log *slog.Logger, now func() time.Time) *PreprocessorRateLimiter {
	return newWithClock(configs, preprocessorCount, m, log, now)
}

func newWithClock(configs []ServiceConfig, preprocessorCount int, m *metrics.RateLimiterMetrics, log *slog.Logger, now func() time.Time) *PreprocessorRateLimiter {
	if preprocessorCount < 1 {
		preprocessorCount = 1
	}
	buckets := make(map[string]*bucket, len(configs))
	for _, cfg := range configs {
		perInstance := cfg.PermitsPerSecond / float64(preprocessorCount)
		buckets[cfg.ServiceName] = newBucket(perInstance, cfg.MaxBurstSeconds, cfg.InitializeWarm, now)
	}
	return &PreprocessorRateLimiter{
		buckets: buckets,
		metrics: m,
		log:     log,
		now:     now,
	}
}

// Admit runs the decision procedure for one record and returns true iff it
// should be indexed. A record is charged exactly one drop reason.
func (r *PreprocessorRateLimiter) Admit(rec *span.Record) bool {
	if rec == nil {
		r.drop(ReasonMissingServiceName, "", 0)
		return false
	}

	if rec.ServiceName == "" {
		r.drop(ReasonMissingServiceName, "", rec.Size)
		return false
	}

	r.mu.RLock()
	b, ok := r.buckets[rec.ServiceName]
	r.mu.RUnlock()
	if !ok {
		r.drop(ReasonNotProvisioned, rec.ServiceName, rec.Size)
		return false
	}

	if !b.tryAcquire(float64(rec.Size)) {
		r.drop(ReasonOverLimit, rec.ServiceName, rec.Size)
		return false
	}

	r.metrics.MessagesAllowed.Inc()
	return true
}

func (r *PreprocessorRateLimiter) drop(reason DropReason, service string, bytes int64) {
	r.metrics.MessagesDropped.WithLabelValues(service, string(reason)).Inc()
	r.metrics.BytesDropped.WithLabelValues(service, string(reason)).Add(float64(bytes))
	r.log.Debug("rate limiter dropped record", "service", service, "reason", reason, "bytes", bytes)
}
