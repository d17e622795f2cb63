package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postqueue_worker_cycles_total",
			Help: "Worker cycles by outcome",
		},
		[]string{"outcome"}, // "ok", "store_error"
	)

	WorkerCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "postqueue_worker_cycle_duration_seconds",
			Help:    "Duration of one worker cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PostsClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postqueue_posts_claimed_total",
			Help: "Pending posts picked up by the worker",
		},
	)

	PostsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postqueue_posts_processed_total",
			Help: "Posts handled by the worker by platform and result",
		},
		[]string{"platform", "result"}, // "sent", "failed", "skipped", "error"
	)

	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postqueue_publish_duration_seconds",
			Help:    "Duration of outbound publish calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"platform"},
	)

	TokenValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postqueue_token_validations_total",
			Help: "Token introspection results",
		},
		[]string{"result"}, // "valid", "invalid"
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postqueue_token_refreshes_total",
			Help: "Scheduled token refresh attempts by result",
		},
		[]string{"result"}, // "refreshed", "failed"
	)
)

func RecordCycle(duration time.Duration, err error) {
	WorkerCycleDuration.Observe(duration.Seconds())
	if err != nil {
		WorkerCycles.WithLabelValues("store_error").Inc()
		return
	}
	WorkerCycles.WithLabelValues("ok").Inc()
}

func RecordPost(platform, result string) {
	PostsProcessed.WithLabelValues(platform, result).Inc()
}

func RecordPublish(platform string, duration time.Duration) {
	PublishDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

func RecordValidation(valid bool) {
	if valid {
		TokenValidations.WithLabelValues("valid").Inc()
		return
	}
	TokenValidations.WithLabelValues("invalid").Inc()
}
