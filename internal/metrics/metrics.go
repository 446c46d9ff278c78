// Package metrics defines the process-wide Prometheus collectors. Exposed on
// /metrics by the web server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SeriesScrapes counts series reconcile runs by outcome:
	// updated, unchanged, blocked, notfound, failed.
	SeriesScrapes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animirror_series_scrapes_total",
		Help: "Series scrape runs by outcome.",
	}, []string{"outcome"})

	// EpisodeScrapes counts episode cache lookups by outcome:
	// skipped, success, failed.
	EpisodeScrapes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animirror_episode_scrapes_total",
		Help: "Episode cache lookups by outcome.",
	}, []string{"outcome"})

	// ImageMaterializations counts image cache activity: hit, downloaded, failed.
	ImageMaterializations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animirror_image_materializations_total",
		Help: "Image materializer activity.",
	}, []string{"outcome"})

	// IndexNotifications counts indexing API submissions: ok, quota, denied,
	// error, disabled.
	IndexNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animirror_index_notifications_total",
		Help: "Indexing API submission attempts by outcome.",
	}, []string{"outcome"})
)
