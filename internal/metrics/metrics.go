package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "arbrec"

// Metrics holds the collectors for one recorder run
type Metrics struct {
	registry *prometheus.Registry

	Records        *prometheus.CounterVec
	RecordFailures *prometheus.CounterVec
	ROI            prometheus.Histogram
	RecordDuration prometheus.Histogram
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Opportunities written to the database",
		}, []string{"type"}),
		RecordFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_failures_total",
			Help:      "Failed record attempts by failure kind",
		}, []string{"kind"}),
		ROI: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "roi_percent",
			Help:      "ROI of recorded opportunities in percent",
			Buckets:   []float64{0.1, 0.3, 0.5, 1, 2, 5, 10},
		}),
		RecordDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_duration_seconds",
			Help:      "Time from connect to close for one record attempt",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	m.registry.MustRegister(m.Records, m.RecordFailures, m.ROI, m.RecordDuration)
	return m
}

// ObserveRecorded counts a stored opportunity
func (m *Metrics) ObserveRecorded(arbType string, roi float64, d time.Duration) {
	m.Records.WithLabelValues(arbType).Inc()
	m.ROI.Observe(roi)
	m.RecordDuration.Observe(d.Seconds())
}

// ObserveFailure counts a failed attempt
func (m *Metrics) ObserveFailure(kind string, d time.Duration) {
	m.RecordFailures.WithLabelValues(kind).Inc()
	m.RecordDuration.Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the registry to a Prometheus Pushgateway under job
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	err := push.New(gatewayURL, job).
		Gatherer(m.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
