// Package telemetry exports snapshot figures and fetch activity as
// Prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dbsmedya/outreachkpi/internal/kpi"
)

// Fetch results recorded by ObserveFetch.
const (
	ResultSuccess = "success"
	ResultEmpty   = "empty"
	ResultError   = "error"
)

// Collector holds all Prometheus metrics for outreachkpi.
type Collector struct {
	registry      *prometheus.Registry
	snapshotValue *prometheus.GaugeVec
	records       *prometheus.GaugeVec
	lastSuccess   *prometheus.GaugeVec
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	publishErrors *prometheus.CounterVec
}

// New creates a collector with its own registry, including the Go runtime
// and process collectors.
func New() *Collector {
	return newCollector("outreachkpi", true)
}

func newCollector(namespace string, runtime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		snapshotValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_value",
				Help:      "Scalar figure of the latest snapshot per dataset",
			},
			[]string{"dataset", "shape", "metric"},
		),
		records: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "records",
				Help:      "Number of records behind the latest snapshot",
			},
			[]string{"dataset"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful fetch",
			},
			[]string{"dataset"},
		),
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Fetches per dataset by result",
			},
			[]string{"dataset", "result"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of record fetches in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"dataset"},
		),
		publishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_errors_total",
				Help:      "Failed snapshot publications per dataset",
			},
			[]string{"dataset"},
		),
	}

	c.registry.MustRegister(
		c.snapshotValue,
		c.records,
		c.lastSuccess,
		c.fetchTotal,
		c.fetchDuration,
		c.publishErrors,
	)
	if runtime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return c
}

// ObserveSnapshot replaces the gauges of the snapshot's dataset.
func (c *Collector) ObserveSnapshot(snap *kpi.Snapshot) {
	if snap == nil {
		return
	}
	c.snapshotValue.DeletePartialMatch(prometheus.Labels{"dataset": snap.Dataset})
	for _, g := range snap.Gauges() {
		c.snapshotValue.WithLabelValues(snap.Dataset, string(snap.Shape), g.Name).Set(g.Value)
	}
	c.records.WithLabelValues(snap.Dataset).Set(float64(snap.RecordCount))
}

// ObserveFetch records one fetch attempt.
func (c *Collector) ObserveFetch(dataset, result string, d time.Duration, at time.Time) {
	c.fetchTotal.WithLabelValues(dataset, result).Inc()
	c.fetchDuration.WithLabelValues(dataset).Observe(d.Seconds())
	if result != ResultError {
		c.lastSuccess.WithLabelValues(dataset).Set(float64(at.Unix()))
	}
}

// PublishFailed increments the publish error counter.
func (c *Collector) PublishFailed(dataset string) {
	c.publishErrors.WithLabelValues(dataset).Inc()
}

// ClearSnapshot drops the snapshot gauges of a dataset.
func (c *Collector) ClearSnapshot(dataset string) {
	c.snapshotValue.DeletePartialMatch(prometheus.Labels{"dataset": dataset})
	c.records.DeleteLabelValues(dataset)
}

// RemoveDataset removes all metrics for a dataset.
func (c *Collector) RemoveDataset(dataset string) {
	c.ClearSnapshot(dataset)
	c.lastSuccess.DeleteLabelValues(dataset)
	c.fetchTotal.DeletePartialMatch(prometheus.Labels{"dataset": dataset})
	c.fetchDuration.DeleteLabelValues(dataset)
	c.publishErrors.DeleteLabelValues(dataset)
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
