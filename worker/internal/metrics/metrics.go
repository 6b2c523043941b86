package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposed by the worker. Job metrics are labeled by insert mode so
// dashboards can separate cheap audio-only jobs from lip-sync runs.
var (
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidx",
		Subsystem: "worker",
		Name:      "jobs_processed_total",
		Help:      "Jobs processed, by insert mode and final status.",
	}, []string{"mode", "status"})

	RecipientsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidx",
		Subsystem: "worker",
		Name:      "recipients_processed_total",
		Help:      "Recipients processed, by outcome.",
	}, []string{"outcome"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vidx",
		Subsystem: "worker",
		Name:      "job_duration_seconds",
		Help:      "End-to-end job processing time, by insert mode.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"mode"})

	NameCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidx",
		Subsystem: "worker",
		Name:      "name_cache_lookups_total",
		Help:      "Name audio cache lookups, by result.",
	}, []string{"result"})

	TTSRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidx",
		Subsystem: "worker",
		Name:      "tts_requests_total",
		Help:      "TTS provider requests, by provider and result.",
	}, []string{"provider", "result"})
)
