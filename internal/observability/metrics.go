package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlscribe_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	httpPanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlscribe_http_panics_total",
			Help: "Handler panics recovered and answered with a 500.",
		},
	)

	compileAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_compile_attempts_total",
			Help: "Compile attempts that reached the external compilation service, by outcome.",
		},
		[]string{"outcome"},
	)
	compileDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlscribe_compile_duration_seconds",
			Help:    "Wall time of one compile attempt including the external service call.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120},
		},
	)
	compileRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_compile_rejected_total",
			Help: "Compile triggers rejected before any service call, by reason.",
		},
		[]string{"reason"},
	)
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqlscribe_sessions_active",
			Help: "Workbench sessions currently held in memory.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		httpPanicsTotal,
		compileAttemptsTotal,
		compileDurationSeconds,
		compileRejectedTotal,
		sessionsActive,
	)
}

func ObserveCompile(outcome string, elapsed time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	compileAttemptsTotal.WithLabelValues(outcome).Inc()
	compileDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementCompileRejected(reason string) {
	compileRejectedTotal.WithLabelValues(reason).Inc()
}

func SetActiveSessions(count int) {
	if count < 0 {
		count = 0
	}
	sessionsActive.Set(float64(count))
}
