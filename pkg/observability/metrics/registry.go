// Package metrics exposes document store metrics through a Prometheus registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry owns the Prometheus registry and the document store collectors.
type Registry struct {
	registry  *prometheus.Registry
	documents *DocumentMetrics
}

// NewRegistry creates a registry holding the document store metrics and the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	documents := NewDocumentMetrics()
	reg.MustRegister(documents.collectors()...)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Registry{registry: reg, documents: documents}
}

// Documents returns the document store collectors registered on r.
func (r *Registry) Documents() *DocumentMetrics {
	return r.documents
}

// Register registers a custom Prometheus collector.
func (r *Registry) Register(collector prometheus.Collector) error {
	return r.registry.Register(collector)
}

// Gatherer returns the underlying prometheus.Gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes every metric in the text exposition format to path, for
// node_exporter's textfile collector. The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// DocumentMetrics records one observation per store call.
type DocumentMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	charge     *prometheus.CounterVec
}

// NewDocumentMetrics creates unregistered document store collectors.
func NewDocumentMetrics() *DocumentMetrics {
	return &DocumentMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documentdb_operations_total",
				Help: "Total number of document store calls",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "documentdb_operation_duration_seconds",
				Help:    "Document store call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		charge: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documentdb_request_charge_total",
				Help: "Request units charged by the document store",
			},
			[]string{"operation"},
		),
	}
}

func (m *DocumentMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.operations, m.duration, m.charge}
}

// Observe records a store call. status is "ok", "not_found", "conflict" or "error".
func (m *DocumentMetrics) Observe(operation, status string, duration time.Duration, charge float64) {
	m.operations.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
	if charge > 0 {
		m.charge.WithLabelValues(operation).Add(charge)
	}
}
