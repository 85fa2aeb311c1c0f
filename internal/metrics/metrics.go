// Package metrics exposes Prometheus collectors for the scraping service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scraperEventsSavedTotal  *prometheus.CounterVec
	scraperPagesFetchedTotal *prometheus.CounterVec
	scraperRunsTotal         *prometheus.CounterVec
	scraperSweptTotal        *prometheus.CounterVec
	scraperRunSeconds        *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call multiple
// times.
func Init() {
	once.Do(func() {
		scraperEventsSavedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_events_saved_total",
				Help: "Total number of event records upserted, labeled by source.",
			},
			[]string{"source"},
		)

		scraperPagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_fetched_total",
				Help: "Total number of listing pages fetched, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		scraperRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_runs_total",
				Help: "Total number of per-source scraper runs, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		scraperSweptTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_expired_swept_total",
				Help: "Total number of records marked expired by sweeps, labeled by source.",
			},
			[]string{"source"},
		)

		scraperRunSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_run_duration_seconds",
				Help:    "Duration of per-source scraper runs.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"source"},
		)
	})
}

// ObserveEventsSaved records upserted candidates for a source.
func ObserveEventsSaved(source string, n int) {
	if scraperEventsSavedTotal == nil || n <= 0 {
		return
	}
	scraperEventsSavedTotal.WithLabelValues(source).Add(float64(n))
}

// ObservePageFetch records one listing page fetch attempt.
func ObservePageFetch(source, outcome string) {
	if scraperPagesFetchedTotal == nil {
		return
	}
	scraperPagesFetchedTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveRun records one completed per-source run.
func ObserveRun(source, outcome string, duration time.Duration) {
	if scraperRunsTotal == nil {
		return
	}
	scraperRunsTotal.WithLabelValues(source, outcome).Inc()
	scraperRunSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveSwept records records expired by a sweep.
func ObserveSwept(source string, n int64) {
	if scraperSweptTotal == nil || n <= 0 {
		return
	}
	scraperSweptTotal.WithLabelValues(source).Add(float64(n))
}
