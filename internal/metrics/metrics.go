// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

// Package metrics exposes Prometheus instrumentation for the Labboard
// server: recommendation serving, strategy health, behavior event
// ingestion, the similarity batch job, database queries and the API
// surface. All collectors are registered on the default registry and
// served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Metrics
	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "End-to-end recommendation request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"domain"},
	)

	RecommendationResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_results",
			Help:    "Number of recommendations returned per request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"domain"},
	)

	StrategyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_strategy_failures_total",
			Help: "Total number of strategy invocations that failed or panicked",
		},
		[]string{"strategy"},
	)

	RecommendationFeedback = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_feedback_total",
			Help: "Total number of feedback submissions by kind",
		},
		[]string{"feedback"},
	)

	// Behavior Event Metrics
	EventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "behavior_events_recorded_total",
			Help: "Total number of behavior events accepted for ingestion",
		},
		[]string{"event_type"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "behavior_events_dropped_total",
			Help: "Total number of behavior events dropped before persistence",
		},
	)

	EventStoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "behavior_event_store_breaker_open",
			Help: "1 when the event store circuit breaker is open, 0 otherwise",
		},
	)

	// Similarity Batch Job Metrics
	SimilarityBatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarity_batch_runs_total",
			Help: "Total number of similarity batch runs by outcome",
		},
		[]string{"item_type", "outcome"},
	)

	SimilarityBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "similarity_batch_duration_seconds",
			Help:    "Duration of one similarity batch run in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"item_type"},
	)

	SimilarityPairsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarity_pairs_stored_total",
			Help: "Total number of similarity pairs upserted by batch runs",
		},
		[]string{"item_type"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// ObserveRecommendation records one served recommendation request.
func ObserveRecommendation(domain string, results int, elapsed time.Duration) {
	RecommendationDuration.WithLabelValues(domain).Observe(elapsed.Seconds())
	RecommendationResults.WithLabelValues(domain).Observe(float64(results))
}

// RecordStrategyFailure counts a failed or panicked strategy invocation.
func RecordStrategyFailure(strategy string) {
	StrategyFailures.WithLabelValues(strategy).Inc()
}

// RecordFeedback counts one feedback submission.
func RecordFeedback(feedback string) {
	RecommendationFeedback.WithLabelValues(feedback).Inc()
}

// RecordEvent counts one accepted behavior event.
func RecordEvent(eventType string) {
	EventsRecorded.WithLabelValues(eventType).Inc()
}

// RecordEventDropped counts one behavior event lost before persistence.
func RecordEventDropped() {
	EventsDropped.Inc()
}

// SetBreakerOpen reflects the event store circuit breaker state.
func SetBreakerOpen(open bool) {
	if open {
		EventStoreBreakerState.Set(1)
		return
	}
	EventStoreBreakerState.Set(0)
}

// ObserveSimilarityBatch records one completed batch run.
func ObserveSimilarityBatch(itemType, outcome string, pairs int, elapsed time.Duration) {
	SimilarityBatchRuns.WithLabelValues(itemType, outcome).Inc()
	SimilarityBatchDuration.WithLabelValues(itemType).Observe(elapsed.Seconds())
	if pairs > 0 {
		SimilarityPairsStored.WithLabelValues(itemType).Add(float64(pairs))
	}
}

// ObserveDBQuery records one database query.
func ObserveDBQuery(operation, table string, elapsed time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// ObserveAPIRequest records one HTTP request.
func ObserveAPIRequest(method, endpoint string, status int, elapsed time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}
