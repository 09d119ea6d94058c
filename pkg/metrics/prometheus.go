package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	pollsTotal    *prometheus.CounterVec
	eventsTotal   *prometheus.CounterVec
	activeStreams prometheus.Gauge
	pollLatency   prometheus.Histogram
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		pollsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wqminer_polls_total",
				Help: "Total number of status polls by outcome",
			},
			[]string{"outcome"},
		),
		eventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wqminer_events_emitted_total",
				Help: "Total number of push events emitted to clients",
			},
			[]string{"type"},
		),
		activeStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "wqminer_active_streams",
				Help: "Number of currently open relay streams",
			},
		),
		pollLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wqminer_poll_duration_seconds",
				Help:    "Duration of upstream status polls in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordPoll records one status poll by outcome.
func (r *Recorder) RecordPoll(outcome string) {
	r.pollsTotal.WithLabelValues(outcome).Inc()
}

// RecordEvent records one push event emitted to a client.
func (r *Recorder) RecordEvent(kind string) {
	r.eventsTotal.WithLabelValues(kind).Inc()
}

// RecordPollLatency records upstream poll latency in seconds.
func (r *Recorder) RecordPollLatency(seconds float64) {
	r.pollLatency.Observe(seconds)
}

// StreamOpened increments the active stream gauge.
func (r *Recorder) StreamOpened() {
	r.activeStreams.Inc()
}

// StreamClosed decrements the active stream gauge.
func (r *Recorder) StreamClosed() {
	r.activeStreams.Dec()
}
