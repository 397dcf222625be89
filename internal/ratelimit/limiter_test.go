package ratelimit

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ingestcluster/core/internal/logging"
	"github.com/ingestcluster/core/internal/metrics"
	"github.com/ingestcluster/core/internal/span"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestPreprocessorRateLimiter_ColdStart(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	lim := NewWithClock([]ServiceConfig{
		{ServiceName: "checkout", PermitsPerSecond: 100, MaxBurstSeconds: 1, InitializeWarm: false},
	}, 1, metrics.NewRateLimiterMetricsWith(prometheus.NewRegistry()), logging.NewTest(), clock.now)

	rec := &span.Record{ServiceName: "checkout", Size: 50}
	require.False(t, lim.Admit(rec), "cold bucket should reject the first 50B record")

	clock.advance(time.Second)
	require.True(t, lim.Admit(rec), "bucket should have refilled after 1s at 100 permits/sec")
}

func TestPreprocessorRateLimiter_WarmBurst(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	lim := NewWithClock([]ServiceConfig{
		{ServiceName: "checkout", PermitsPerSecond: 1000, MaxBurstSeconds: 3, InitializeWarm: true},
	}, 1, metrics.NewRateLimiterMetricsWith(prometheus.NewRegistry()), logging.NewTest(), clock.now)

	require.True(t, lim.Admit(&span.Record{ServiceName: "checkout", Size: 3000}))
	require.False(t, lim.Admit(&span.Record{ServiceName: "checkout", Size: 1}))
}

func TestPreprocessorRateLimiter_MissingServiceName(t *testing.T) {
	lim := New(nil, 1, metrics.NewRateLimiterMetricsWith(prometheus.NewRegistry()), logging.NewTest())
	require.False(t, lim.Admit(&span.Record{ServiceName: "", Size: 10}))
}

func TestPreprocessorRateLimiter_NotProvisioned(t *testing.T) {
	lim := New(nil, 1, metrics.NewRateLimiterMetricsWith(prometheus.NewRegistry()), logging.NewTest())
	require.False(t, lim.Admit(&span.Record{ServiceName: "unknown-service", Size: 10}))
}

func TestPreprocessorRateLimiter_DividesByPreprocessorCount(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	lim := NewWithClock([]ServiceConfig{
		{ServiceName: "checkout", PermitsPerSecond: 100, MaxBurstSeconds: 1, InitializeWarm: true},
	}, 4, metrics.NewRateLimiterMetricsWith(prometheus.NewRegistry()), logging.NewTest(), clock.now)

	require.True(t, lim.Admit(&span.Record{ServiceName: "checkout", Size: 25}))
	require.False(t, lim.Admit(&span.Record{ServiceName: "checkout", Size: 1}), "each of 4 instances should only hold 25 permits/sec")
}
