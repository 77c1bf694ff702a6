package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks reconciliation evaluations by resulting status.
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recon_evaluations_total",
			Help: "Total number of reconciliation evaluations by resulting status.",
		},
		[]string{"status"}, // PENDING | MATCHED | MISMATCHED | ERROR | skipped
	)

	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recon_evaluation_duration_seconds",
			Help:    "Duration of reconciliation evaluations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms → ~4s
		},
		[]string{"status"},
	)

	// Counts records promoted to RECONCILIATION_TIMEOUT by the sweeper.
	SweepTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recon_sweep_timeouts_total",
			Help: "Total number of pending reconciliations promoted to timeout.",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recon_sweep_duration_seconds",
			Help:    "Duration of timeout sweep passes in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Tracks AMQP task messages processed by result.
	TasksConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recon_tasks_consumed_total",
			Help: "Total number of reconciliation task messages consumed.",
		},
		[]string{"result"}, // ok | error | malformed
	)

	// Tracks NATS event publishes by result.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recon_events_published_total",
			Help: "Total number of outcome events published to NATS.",
		},
		[]string{"result"}, // ok | error
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recon_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful sweep time (seconds since epoch).
	LastSweepTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recon_last_sweep_timestamp",
			Help: "Timestamp (unix seconds) of the last completed timeout sweep.",
		},
	)
)

// ObserveDuration records the time since start on the given histogram.
func ObserveDuration(h *prometheus.HistogramVec, start time.Time, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
}

func IncEvaluation(status string) {
	EvaluationsTotal.WithLabelValues(status).Inc()
}

func IncTaskConsumed(result string) {
	TasksConsumedTotal.WithLabelValues(result).Inc()
}

func IncEventPublished(result string) {
	EventsPublishedTotal.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastSweep(t time.Time) {
	LastSweepTimestamp.Set(float64(t.Unix()))
}
