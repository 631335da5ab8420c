// Package metrics exposes reconciliation and registry activity as Prometheus
// metrics. A Metrics value satisfies both registry.Observer and
// reconcile.Recorder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/versync/pkg/errors"
	"github.com/agentstation/versync/pkg/reconcile"
	"github.com/agentstation/versync/pkg/registry"
	"github.com/agentstation/versync/pkg/rewriter"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "versync"

// Registry request outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeUnavailable = "unavailable"
)

// Config configures the collectors.
type Config struct {
	Namespace string
	Buckets   []float64
	// Registerer receives the collectors. Default: prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Option configures a Config.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithBuckets sets the reconcile duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegisterer sets where collectors are registered.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Config) { c.Registerer = r }
}

// Metrics holds the versync collectors.
type Metrics struct {
	registryRequests  *prometheus.CounterVec
	registryDuration  *prometheus.HistogramVec
	rewrites          *prometheus.CounterVec
	resources         *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
}

var (
	_ registry.Observer  = (*Metrics)(nil)
	_ reconcile.Recorder = (*Metrics)(nil)
)

// New registers the collectors and returns them. Registering twice on the
// same registerer panics, as with promauto.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace:  DefaultNamespace,
		Buckets:    prometheus.DefBuckets,
		Registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registerer)

	return &Metrics{
		registryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "registry_requests_total",
			Help:      "Catalog registry requests by lookup mode and outcome",
		}, []string{"mode", "outcome"}),

		registryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "registry_request_duration_seconds",
			Help:      "Catalog registry request latency in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"mode"}),

		rewrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "rewrites_total",
			Help:      "Element rewrites by pass and kind",
		}, []string{"pass", "kind"}),

		resources: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "resources_total",
			Help:      "Reconciled resources by final status",
		}, []string{"status"}),

		reconcileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of a full reconciliation in seconds",
			Buckets:   cfg.Buckets,
		}),
	}
}

// ObserveLookup implements registry.Observer.
func (m *Metrics) ObserveLookup(mode string, err error, d time.Duration) {
	m.registryRequests.WithLabelValues(mode, Outcome(err)).Inc()
	m.registryDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordChange implements reconcile.Recorder.
func (m *Metrics) RecordChange(pass reconcile.Pass, kind rewriter.Kind) {
	m.rewrites.WithLabelValues(string(pass), string(kind)).Inc()
}

// RecordOutcome implements reconcile.Recorder.
func (m *Metrics) RecordOutcome(status reconcile.Status) {
	m.resources.WithLabelValues(string(status)).Inc()
}

// ObserveReconcile implements reconcile.Recorder.
func (m *Metrics) ObserveReconcile(d time.Duration) {
	m.reconcileDuration.Observe(d.Seconds())
}

// Outcome classifies a registry error into a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.IsRateLimited(err):
		return OutcomeRateLimited
	case errors.IsRegistryUnavailable(err):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}
