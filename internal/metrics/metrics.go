package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the gateway.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OptimizeSubmissions counts optimization submits by algorithm and outcome.
	OptimizeSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimize_submissions_total", Help: "Optimization submissions by algorithm and outcome."},
		[]string{"algorithm", "outcome"},
	)
	// UpstreamLatency tracks optimization API round-trip latency in seconds.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "upstream_request_duration_seconds", Help: "Upstream API round-trip duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"endpoint"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizeSubmissions)
		Registry.MustRegister(UpstreamLatency)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
