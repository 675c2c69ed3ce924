package gmpt

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	buildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of successfully committed builds",
			Name:      "builds_total",
			Namespace: "gmpt",
		},
		[]string{"strategy", "role"},
	)
	buildErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of failed builds",
			Name:      "build_errors_total",
			Namespace: "gmpt",
		},
		[]string{"strategy"},
	)
	buildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Help:      "Build and commit duration",
			Name:      "build_duration_seconds",
			Namespace: "gmpt",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"strategy"},
	)
	keysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of inserted keys",
			Name:      "keys_total",
			Namespace: "gmpt",
		},
		[]string{"strategy"},
	)
	olcRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of OLC insertion retries caused by contention",
			Name:      "olc_retries_total",
			Namespace: "gmpt",
		},
	)
)

func init() {
	prometheus.MustRegister(
		buildsTotal,
		buildErrors,
		buildDuration,
		keysTotal,
		olcRetries,
	)
}

func updateBuildMetrics(s Strategy, role TrieType, keys int, retries uint64, d time.Duration) {
	buildsTotal.WithLabelValues(s.String(), role.String()).Inc()
	buildDuration.WithLabelValues(s.String()).Observe(d.Seconds())
	keysTotal.WithLabelValues(s.String()).Add(float64(keys))
	if retries != 0 {
		olcRetries.Add(float64(retries))
	}
}

func updateBuildErrorMetric(s Strategy) {
	buildErrors.WithLabelValues(s.String()).Inc()
}
