package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	portalRequestsTotal  *prometheus.CounterVec
	portalLatencySeconds *prometheus.HistogramVec
	portalErrorsTotal    *prometheus.CounterVec
	upstreamFallbacks    *prometheus.CounterVec
	gradeEventsTotal     *prometheus.CounterVec
	gradingStreamClients prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used for portal observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		portalRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Total number of portal API requests served.",
		}, []string{"method", "route", "status"})

		portalLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_latency_seconds",
			Help:    "Latency distribution for portal API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		portalErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_errors_total",
			Help: "Total number of error responses returned by portal endpoints.",
		}, []string{"method", "route", "status"})

		upstreamFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_upstream_fallbacks_total",
			Help: "Times a failed upstream fetch was retried against its alternate endpoint.",
		}, []string{"stage"})

		gradeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_grade_events_total",
			Help: "Grade events flowing through the portal, by origin node.",
		}, []string{"origin"})

		gradingStreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_grading_stream_clients",
			Help: "Grading pages currently subscribed to live grade events.",
		})

		prometheus.MustRegister(
			portalRequestsTotal,
			portalLatencySeconds,
			portalErrorsTotal,
			upstreamFallbacks,
			gradeEventsTotal,
			gradingStreamClients,
		)
	})
}

// PortalRequests exposes the counter for portal requests.
func PortalRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return portalRequestsTotal
}

// PortalLatency exposes the latency histogram for portal requests.
func PortalLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return portalLatencySeconds
}

// PortalErrors exposes the counter for portal error responses.
func PortalErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return portalErrorsTotal
}

// UpstreamFallbacks exposes the counter for alternate-endpoint retries.
func UpstreamFallbacks() *prometheus.CounterVec {
	RegisterMetrics()
	return upstreamFallbacks
}

// GradeEvents exposes the counter for grade events by origin.
func GradeEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeEventsTotal
}

// GradingStreamClients exposes the gauge of live grade-event subscribers.
func GradingStreamClients() prometheus.Gauge {
	RegisterMetrics()
	return gradingStreamClients
}
