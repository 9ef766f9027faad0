// Package metrics provides Prometheus metrics for Bugzilla REST traffic.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes used as the "outcome" label.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport"
	OutcomeStatus    = "status"
	OutcomeAPI       = "api_error"
	OutcomeDecode    = "decode"
)

// Collector holds the client metrics. A nil *Collector records nothing.
type Collector struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	LoginsTotal      *prometheus.CounterVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bugzilla",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total number of REST requests issued",
			},
			[]string{"method", "endpoint", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bugzilla",
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "REST request duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "endpoint"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bugzilla",
				Subsystem: "client",
				Name:      "requests_in_flight",
				Help:      "Number of REST requests currently awaiting a response",
			},
		),
		LoginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bugzilla",
				Subsystem: "client",
				Name:      "logins_total",
				Help:      "Total number of password logins by result",
			},
			[]string{"result"},
		),
	}
}

// RequestStarted marks one request in flight and returns the func that ends
// it with the given outcome.
func (c *Collector) RequestStarted(method, path string) func(outcome string) {
	if c == nil {
		return func(string) {}
	}
	start := time.Now()
	endpoint := NormalizePath(path)
	c.RequestsInFlight.Inc()
	return func(outcome string) {
		c.RequestsInFlight.Dec()
		c.RequestsTotal.WithLabelValues(method, endpoint, outcome).Inc()
		c.RequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Login records a login attempt.
func (c *Collector) Login(ok bool) {
	if c == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	c.LoginsTotal.WithLabelValues(result).Inc()
}

// NormalizePath reduces cardinality by replacing id segments.
// e.g., bug/123/comment -> bug/:id/comment
func NormalizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "/"
	}
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if _, err := strconv.Atoi(s); err == nil {
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}
