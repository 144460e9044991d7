// Package metrics provides Prometheus metrics for the registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the registry.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	ContentOperations *prometheus.CounterVec

	AuthFailures    prometheus.Counter
	SessionsCleaned prometheus.Counter

	BackgroundRuns   *prometheus.CounterVec
	BackgroundErrors *prometheus.CounterVec
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// New returns the collector registered on the default registerer. The
// default registerer rejects duplicate registration, so the collector is
// created once per process.
func New() *Collector {
	defaultOnce.Do(func() {
		defaultCollector = newWith(prometheus.DefaultRegisterer)
	})
	return defaultCollector
}

// NewForTesting creates a collector on a private registry so tests do not
// collide on duplicate registration.
func NewForTesting() *Collector {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "registry",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "registry",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		ContentOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "registry",
				Name:      "content_operations_total",
				Help:      "Content mutations by action",
			},
			[]string{"action"},
		),
		AuthFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "registry",
				Name:      "auth_failures_total",
				Help:      "Rejected session verifications",
			},
		),
		SessionsCleaned: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "registry",
				Name:      "sessions_cleaned_total",
				Help:      "Expired sessions removed by the cleanup task",
			},
		),
		BackgroundRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "registry",
				Name:      "background_runs_total",
				Help:      "Background hook invocations",
			},
			[]string{"hook"},
		),
		BackgroundErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "registry",
				Name:      "background_errors_total",
				Help:      "Background hook failures",
			},
			[]string{"hook"},
		),
	}
}
