package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	transitionsTotal      *prometheus.CounterVec
	transitionConflicts   *prometheus.CounterVec
	uploadRequestsTotal   *prometheus.CounterVec
	uploadRejectedTotal   *prometheus.CounterVec
	uploadLatencySeconds  prometheus.Histogram
	streamClientsActive   prometheus.Gauge
	changeEventsPublished *prometheus.CounterVec
	changeEventsDropped   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Committed workflow state transitions.",
		}, []string{"entity", "from", "to"})

		transitionConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_transition_conflicts_total",
			Help: "Transitions rejected because the record had already moved on.",
		}, []string{"entity", "from", "to"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "file_deposit_uploads_total",
			Help: "Files accepted by the deposit, by kind and mime type.",
		}, []string{"kind", "mime"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "file_deposit_rejected_total",
			Help: "Files rejected by the deposit, by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "file_deposit_latency_seconds",
			Help:    "Time spent storing a file in the deposit.",
			Buckets: prometheus.DefBuckets,
		})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "event_stream_clients_active",
			Help: "Number of connected SSE and websocket subscribers.",
		})

		changeEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "change_events_published_total",
			Help: "Change events fanned out to subscribers.",
		}, []string{"entity", "type"})

		changeEventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "change_events_dropped_total",
			Help: "Change events not delivered because a subscriber buffer was full.",
		}, []string{"entity"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			transitionsTotal,
			transitionConflicts,
			uploadRequestsTotal,
			uploadRejectedTotal,
			uploadLatencySeconds,
			streamClientsActive,
			changeEventsPublished,
			changeEventsDropped,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// Transitions exposes the committed transition counter.
func Transitions() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsTotal
}

// TransitionConflicts exposes the rejected transition counter.
func TransitionConflicts() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionConflicts
}

// UploadRequests exposes the accepted upload counter.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected exposes the rejected upload counter.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the deposit latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// StreamClientsActive exposes the subscriber gauge.
func StreamClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}

// ChangeEventsPublished exposes the change event counter.
func ChangeEventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return changeEventsPublished
}

// ChangeEventsDropped exposes the counter for events lost to slow subscribers.
func ChangeEventsDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return changeEventsDropped
}
