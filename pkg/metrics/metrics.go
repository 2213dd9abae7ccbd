package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexuscore_nodes_total",
			Help: "Total number of registered nodes by status",
		},
		[]string{"status"},
	)

	PodsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexuscore_pods_total",
			Help: "Total number of pods by status",
		},
		[]string{"status"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexuscore_api_requests_total",
			Help: "Total number of API requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexuscore_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Scheduler metrics
	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexuscore_scheduling_latency_seconds",
			Help:    "Time taken to place a pod onto a node",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulingAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexuscore_scheduling_attempts_total",
			Help: "Total number of pod scheduling attempts",
		},
	)

	SchedulingFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexuscore_scheduling_failures_total",
			Help: "Total number of pod scheduling attempts that found no fitting node",
		},
	)

	// Health monitor metrics
	HealthHostLoopDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexuscore_health_host_loop_duration_seconds",
			Help:    "Duration of a host-sampling loop iteration",
			Buckets: prometheus.DefBuckets,
		},
	)

	HealthClusterLoopDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexuscore_health_cluster_loop_duration_seconds",
			Help:    "Duration of a cluster liveness/utilization loop iteration",
			Buckets: prometheus.DefBuckets,
		},
	)

	LivenessTransitionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexuscore_liveness_transitions_total",
			Help: "Total number of nodes transitioned offline due to stale heartbeats",
		},
	)

	OverloadDetectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexuscore_overload_detections_total",
			Help: "Total number of node overload detections handed to the fault handler",
		},
	)

	// Fault handler metrics
	PodsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexuscore_pods_failed_total",
			Help: "Total number of pods transitioned to failed by the fault handler",
		},
	)

	NodesCleanedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexuscore_nodes_cleaned_total",
			Help: "Total number of nodes processed by cleanup_node",
		},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(PodsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(SchedulingLatency)
	prometheus.MustRegister(SchedulingAttemptsTotal)
	prometheus.MustRegister(SchedulingFailuresTotal)
	prometheus.MustRegister(HealthHostLoopDuration)
	prometheus.MustRegister(HealthClusterLoopDuration)
	prometheus.MustRegister(LivenessTransitionsTotal)
	prometheus.MustRegister(OverloadDetectionsTotal)
	prometheus.MustRegister(PodsFailedTotal)
	prometheus.MustRegister(NodesCleanedTotal)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
