package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m
}

func TestObserveRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RequestStarted()
	m.ObserveRequest("GET", "/{platform}/playtime/{subjectId...}", 429, 5*time.Millisecond)
	m.RequestFinished()

	labels := prometheus.Labels{"method": "GET", "route": "/{platform}/playtime/{subjectId...}", "status": "429"}
	if got := testutil.ToFloat64(m.Requests.With(labels)); got != 1 {
		t.Fatalf("expected request counter 1, got %f", got)
	}
	if got := testutil.ToFloat64(m.InFlight); got != 0 {
		t.Fatalf("expected in-flight gauge to return to 0, got %f", got)
	}
	if samples := testutil.CollectAndCount(m.Duration); samples == 0 {
		t.Fatal("expected histogram to have a sample")
	}
}

func TestDomainCounters(t *testing.T) {
	m := newTestMetrics(t)

	m.RateLimitDecision("riot", true)
	m.RateLimitDecision("riot", false)
	m.CacheLookup("steam", true)
	m.CacheLookup("steam", false)
	m.CacheLookup("steam", false)
	m.AdapterResult("steam", playtime.Success(nil), time.Millisecond)
	m.AdapterResult("steam", playtime.Failure("Failed to fetch Steam data"), time.Millisecond)
	m.AdapterResult("steam", playtime.Unsupported("no"), time.Millisecond)

	if got := testutil.ToFloat64(m.RateLimitDecisions.WithLabelValues("riot", "denied")); got != 1 {
		t.Fatalf("expected 1 denied decision, got %f", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("steam", "miss")); got != 2 {
		t.Fatalf("expected 2 misses, got %f", got)
	}
	for _, outcome := range []string{"success", "failure", "unsupported"} {
		if got := testutil.ToFloat64(m.AdapterResults.WithLabelValues("steam", outcome)); got != 1 {
			t.Fatalf("expected one %s result, got %f", outcome, got)
		}
	}
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(Options{Registerer: reg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := New(Options{Registerer: reg})
	if err != nil {
		t.Fatalf("unexpected error on second registration: %v", err)
	}
	if first.Requests != second.Requests {
		t.Fatal("expected existing collector to be reused")
	}
}

func TestNilMetricsNoop(t *testing.T) {
	var m *Metrics
	m.RequestStarted()
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.RequestFinished()
	m.RateLimitDecision("steam", true)
	m.CacheLookup("steam", true)
	m.AdapterResult("steam", playtime.Success(nil), time.Millisecond)
}
