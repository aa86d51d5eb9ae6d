// Package metrics owns the Prometheus collectors of the gateway.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
)

type Options struct {
	Registerer prometheus.Registerer
	Namespace  string
	Buckets    []float64
}

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge

	RateLimitDecisions *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	AdapterResults     *prometheus.CounterVec
	AdapterDuration    *prometheus.HistogramVec
}

func New(opts Options) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "playtime"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{}
	var err error

	if m.Requests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}

	if m.Duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Histogram of HTTP request latencies in seconds partitioned by method, route, and status code.",
		Buckets:   buckets,
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}

	if m.InFlight, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "in_flight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})); err != nil {
		return nil, err
	}

	if m.RateLimitDecisions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Rate limiter decisions partitioned by platform and outcome.",
	}, []string{"platform", "decision"})); err != nil {
		return nil, err
	}

	if m.CacheLookups, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups partitioned by platform and result.",
	}, []string{"platform", "result"})); err != nil {
		return nil, err
	}

	if m.AdapterResults, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "adapter",
		Name:      "results_total",
		Help:      "Platform adapter results partitioned by platform and outcome.",
	}, []string{"platform", "outcome"})); err != nil {
		return nil, err
	}

	if m.AdapterDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "adapter",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent in platform adapters, upstream calls included.",
		Buckets:   buckets,
	}, []string{"platform"})); err != nil {
		return nil, err
	}

	return m, nil
}

// register reuses a collector that is already registered under the same
// descriptor, so New can run more than once against one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.Requests.With(labels).Inc()
	m.Duration.With(labels).Observe(elapsed.Seconds())
}

func (m *Metrics) RequestStarted() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *Metrics) RequestFinished() {
	if m != nil {
		m.InFlight.Dec()
	}
}

func (m *Metrics) RateLimitDecision(platform string, allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.RateLimitDecisions.WithLabelValues(platform, decision).Inc()
}

func (m *Metrics) CacheLookup(platform string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(platform, result).Inc()
}

func (m *Metrics) AdapterResult(platform string, resp playtime.Response, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	switch {
	case resp.Success:
		outcome = "success"
	case !resp.Supported:
		outcome = "unsupported"
	}
	m.AdapterResults.WithLabelValues(platform, outcome).Inc()
	m.AdapterDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
}

var _ playtime.Recorder = (*Metrics)(nil)
