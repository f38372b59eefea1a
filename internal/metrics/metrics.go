// Package metrics holds the Prometheus instrumentation for the API and
// worker, exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	WorkoutsLogged   *prometheus.CounterVec
	CoachRequests    prometheus.Counter
	CoachErrors      prometheus.Counter
	CoachDuration    prometheus.Histogram
	StravaSyncs      prometheus.Counter
	StravaSyncErrors prometheus.Counter
	RecapsSent       prometheus.Counter
}

func New(namespace string) *Metrics {
	return NewWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewTest registers on a private registry so parallel tests don't
// collide on duplicate collector names.
func NewTest() *Metrics {
	return NewWithRegisterer("trilog_test", prometheus.NewRegistry())
}

func NewWithRegisterer(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		WorkoutsLogged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workouts_logged_total",
			Help:      "Workouts saved, by discipline",
		}, []string{"discipline"}),
		CoachRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coach_requests_total",
			Help:      "Chat messages sent to the coach",
		}),
		CoachErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coach_errors_total",
			Help:      "Coach requests that failed",
		}),
		CoachDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "coach_request_duration_seconds",
			Help:      "End to end latency of a coach reply",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30},
		}),
		StravaSyncs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strava_syncs_total",
			Help:      "Completed Strava import runs",
		}),
		StravaSyncErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strava_sync_errors_total",
			Help:      "Failed Strava import runs",
		}),
		RecapsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weekly_recaps_sent_total",
			Help:      "Weekly recap emails delivered",
		}),
	}
}
