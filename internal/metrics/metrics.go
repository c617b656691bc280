package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// RateLimited counts requests rejected by the per-client limiter
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected with 429."},
	)

	// Solves counts finished solves by metaheuristic and outcome
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vrp_solves_total", Help: "Solves by metaheuristic and outcome."},
		[]string{"metaheuristic", "outcome"},
	)
	// SolveDuration is the wall time of the search phase
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "vrp_solve_duration_seconds", Help: "Search wall time in seconds.", Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}},
		[]string{"metaheuristic"},
	)
	// SolveIterations is the number of search iterations per solve
	SolveIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "vrp_solve_iterations", Help: "Search iterations per solve.", Buckets: prometheus.ExponentialBuckets(1, 4, 8)},
		[]string{"metaheuristic"},
	)
	// GeometryLookups counts directions lookups by outcome (hit, fetched, fallback)
	GeometryLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vrp_geometry_lookups_total", Help: "Route geometry lookups by outcome."},
		[]string{"outcome"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RateLimited)
		Registry.MustRegister(Solves)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SolveIterations)
		Registry.MustRegister(GeometryLookups)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
