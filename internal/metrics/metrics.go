// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursemate_recommend_requests_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"}, // "items", "exhausted", "unknown_user", "invalid", "not_ready"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coursemate_recommend_duration_seconds",
			Help:    "Time spent computing a recommendation in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	RecommendCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursemate_recommend_cache_total",
			Help: "Recommendation result cache lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Model Metrics
	ModelLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursemate_model_loads_total",
			Help: "Total number of model load attempts by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	ModelLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coursemate_model_load_duration_seconds",
			Help:    "Duration of model loads in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coursemate_model_version",
			Help: "Version number of the currently published model",
		},
	)

	ModelUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coursemate_model_users",
			Help: "Number of users in the published model",
		},
	)

	ModelItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coursemate_model_items",
			Help: "Number of learning materials in the published model",
		},
	)

	ModelLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coursemate_model_loaded",
			Help: "1 if a model is published, 0 otherwise",
		},
	)

	// Cluster Label Metrics
	ClusterLabels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coursemate_cluster_labels",
			Help: "Number of users with a cluster label",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursemate_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursemate_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coursemate_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coursemate_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursemate_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordRecommendation records the outcome and latency of one recommendation.
func RecordRecommendation(outcome string, duration time.Duration) {
	RecommendRequests.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records a result cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		RecommendCache.WithLabelValues("hit").Inc()
		return
	}
	RecommendCache.WithLabelValues("miss").Inc()
}

// RecordModelLoad records a load attempt. On success the model gauges are
// updated to describe the newly published model.
func RecordModelLoad(duration time.Duration, err error, version int64, users, items int) {
	ModelLoadDuration.Observe(duration.Seconds())
	if err != nil {
		ModelLoads.WithLabelValues("failure").Inc()
		return
	}
	ModelLoads.WithLabelValues("success").Inc()
	ModelVersion.Set(float64(version))
	ModelUsers.Set(float64(users))
	ModelItems.Set(float64(items))
	ModelLoaded.Set(1)
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBreakerTransition records a circuit breaker state change. States use
// gobreaker's names: "closed", "half-open", "open".
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	var v float64
	switch to {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}
