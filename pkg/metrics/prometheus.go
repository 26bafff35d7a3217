package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles         *prometheus.CounterVec
	cycleDuration  *prometheus.HistogramVec
	snapshotPrices prometheus.Gauge
	snapshotPreds  prometheus.Gauge
	snapshotAge    prometheus.Gauge
	skippedPoints  *prometheus.CounterVec
	messagesSent   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cycles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freshsnap_refresh_cycles_total",
				Help: "Total number of refresh cycles by result",
			},
			[]string{"result"},
		),
		cycleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freshsnap_refresh_cycle_duration_seconds",
				Help:    "Duration of refresh cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		snapshotPrices: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "freshsnap_snapshot_prices",
				Help: "Number of latest-price entries in the published snapshot",
			},
		),
		snapshotPreds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "freshsnap_snapshot_predictions",
				Help: "Number of latest-prediction entries in the published snapshot",
			},
		),
		snapshotAge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "freshsnap_snapshot_age_seconds",
				Help: "Age of the currently published snapshot in seconds",
			},
		),
		skippedPoints: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freshsnap_skipped_points_total",
				Help: "Total number of series rows skipped during projection by reason",
			},
			[]string{"reason"},
		),
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freshsnap_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "pid"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freshsnap_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freshsnap_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records one refresh cycle with its result and duration.
func (r *Recorder) RecordCycle(result string, seconds float64) {
	r.cycles.WithLabelValues(result).Inc()
	r.cycleDuration.WithLabelValues(result).Observe(seconds)
}

// RecordSnapshotSize records the entry counts of the published snapshot.
func (r *Recorder) RecordSnapshotSize(prices, predictions int) {
	r.snapshotPrices.Set(float64(prices))
	r.snapshotPreds.Set(float64(predictions))
}

// RecordSnapshotAge records the age of the published snapshot.
func (r *Recorder) RecordSnapshotAge(seconds float64) {
	r.snapshotAge.Set(seconds)
}

// RecordSkippedPoint records a series row skipped during projection.
func (r *Recorder) RecordSkippedPoint(reason string) {
	r.skippedPoints.WithLabelValues(reason).Inc()
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, pid string) {
	r.messagesSent.WithLabelValues(backend, pid).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
