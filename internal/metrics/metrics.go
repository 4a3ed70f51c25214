package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "attendance"

type Metrics struct {
	Submissions          *prometheus.CounterVec
	LifecycleTransitions *prometheus.CounterVec
	TokensRotated        prometheus.Counter
	WorkerFailures       *prometheus.CounterVec
	LastRotation         prometheus.Gauge
}

// New registers every collector on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Submissions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Attendance submissions by outcome code.",
		}, []string{"outcome"}),
		LifecycleTransitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Event lifecycle transitions applied by the scheduler.",
		}, []string{"transition"}),
		TokensRotated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_rotated_total",
			Help:      "Proof tokens replaced by the rotation worker.",
		}),
		WorkerFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failures_total",
			Help:      "Per-event failures in background workers.",
		}, []string{"worker"}),
		LastRotation: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_rotation_timestamp_seconds",
			Help:      "Unix time of the last rotation tick.",
		}),
	}
}
