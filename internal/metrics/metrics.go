// Package metrics provides Prometheus metrics for the story radar services.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storyradar"

var (
	// RefreshTotal counts refresh runs by outcome.
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Total number of cluster and index refresh runs",
		},
		[]string{"status"},
	)

	// RefreshDuration measures how long a refresh takes.
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of refresh runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// Clusters is the number of story clusters in the current snapshot.
	Clusters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clusters",
			Help:      "Story clusters in the current snapshot",
		},
	)

	// IndexedDocuments is the number of documents in the search index.
	IndexedDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_documents",
			Help:      "Documents in the current search index generation",
		},
	)

	// FeedFetchTotal counts feed fetches by source and outcome.
	FeedFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_total",
			Help:      "Total number of feed fetches",
		},
		[]string{"source", "status"},
	)

	// FeedArticles observes how many articles each fetch produced.
	FeedArticles = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_articles",
			Help:      "Articles parsed per feed fetch",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"source"},
	)

	// ArticlesProcessed counts articles handled by the worker.
	ArticlesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_processed_total",
			Help:      "Articles consumed by the worker",
		},
		[]string{"status"},
	)

	// SearchRequests counts API searches by kind.
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests served by the API",
		},
		[]string{"kind"},
	)
)

// RecordRefresh records a refresh run.
func RecordRefresh(status string, duration time.Duration, clusters, documents int) {
	RefreshTotal.WithLabelValues(status).Inc()
	RefreshDuration.Observe(duration.Seconds())
	if status == "success" {
		Clusters.Set(float64(clusters))
		IndexedDocuments.Set(float64(documents))
	}
}

// RecordFeedFetch records one feed fetch.
func RecordFeedFetch(source string, articles int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	FeedFetchTotal.WithLabelValues(source, status).Inc()
	FeedArticles.WithLabelValues(source).Observe(float64(articles))
}

// RecordArticle records a worker outcome: indexed, duplicate, invalid or failed.
func RecordArticle(status string) {
	ArticlesProcessed.WithLabelValues(status).Inc()
}

// RecordSearch records a search request.
func RecordSearch(kind string) {
	SearchRequests.WithLabelValues(kind).Inc()
}
