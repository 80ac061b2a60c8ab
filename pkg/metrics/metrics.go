// Package metrics registers claimcheck's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimcheck_votes_total",
		Help: "Votes applied by target kind and resulting user vote (upvote, downvote, removed)",
	}, []string{"kind", "outcome"})

	ScoreRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "claimcheck_score_recompute_duration_seconds",
		Help:    "Duration of claim score recomputation",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	ScoreRecomputeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimcheck_score_recompute_failures_total",
		Help: "Recompute failures swallowed by trigger paths",
	}, []string{"trigger"})

	ModerationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimcheck_moderation_transitions_total",
		Help: "Moderation decisions by target kind and resulting status",
	}, []string{"kind", "status"})

	SEOGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimcheck_seo_generations_total",
		Help: "SEO regeneration attempts by result (success, failure, skipped, superseded)",
	}, []string{"result"})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "claimcheck_notification_failures_total",
		Help: "Notifications that could not be published",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claimcheck_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route pattern and status code",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveRecompute records how long a recompute took.
func ObserveRecompute(start time.Time) {
	ScoreRecomputeDuration.Observe(time.Since(start).Seconds())
}
