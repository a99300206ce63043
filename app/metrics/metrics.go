// Package metrics provides Prometheus metrics for the feed poller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transmission_rss"

var (
	// FeedFetchTotal counts feed processing runs by outcome.
	FeedFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_total",
			Help:      "Total number of feed fetches",
		},
		[]string{"feed", "status"},
	)

	// FeedErrorsTotal counts feeds skipped for a cycle.
	FeedErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_errors_total",
			Help:      "Total number of feed errors by stage",
		},
		[]string{"feed", "stage"},
	)

	// FeedDuration measures one feed processing run.
	FeedDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_duration_seconds",
			Help:      "Duration of feed processing in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"feed"},
	)

	// SubmissionsTotal counts torrent-add calls by outcome.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of torrent-add submissions",
		},
		[]string{"feed", "status"},
	)

	// EntriesSkippedTotal counts entries that were not submitted.
	EntriesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_skipped_total",
			Help:      "Total number of skipped entries by reason",
		},
		[]string{"feed", "reason"},
	)

	SeenEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seen_entries",
			Help:      "Number of identities in the seen store",
		},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full polling cycle in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)

// RecordFeedFetch records the outcome of a feed fetch.
func RecordFeedFetch(feed, status string, duration float64) {
	FeedFetchTotal.WithLabelValues(feed, status).Inc()
	FeedDuration.WithLabelValues(feed).Observe(duration)
}

func RecordFeedError(feed, stage string) {
	FeedErrorsTotal.WithLabelValues(feed, stage).Inc()
}

func RecordSubmission(feed, status string) {
	SubmissionsTotal.WithLabelValues(feed, status).Inc()
}

func RecordSkipped(feed, reason string) {
	EntriesSkippedTotal.WithLabelValues(feed, reason).Inc()
}

func SetSeenEntries(n int) {
	SeenEntries.Set(float64(n))
}

func RecordCycle(duration float64) {
	CycleDuration.Observe(duration)
}
