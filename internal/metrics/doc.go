// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

/*
Package metrics provides Prometheus metrics for the recommendation service.

All collectors are registered on the default registry through promauto and are
exposed at /metrics by the API router:

	curl http://localhost:8080/metrics

# Available Metrics

Recommendation:
  - coursemate_recommend_requests_total{outcome}
  - coursemate_recommend_duration_seconds
  - coursemate_recommend_cache_total{result}

Model:
  - coursemate_model_loads_total{result}
  - coursemate_model_load_duration_seconds
  - coursemate_model_version, coursemate_model_users, coursemate_model_items
  - coursemate_model_loaded

HTTP:
  - coursemate_api_requests_total{method,endpoint,status_code}
  - coursemate_api_request_duration_seconds{method,endpoint}
  - coursemate_api_active_requests

Circuit breaker (remote bundle source):
  - coursemate_circuit_breaker_state{name}
  - coursemate_circuit_breaker_state_transitions_total{name,from_state,to_state}

# Usage

	start := time.Now()
	result, err := engine.Recommend(ctx, req)
	metrics.RecordRecommendation(result.Outcome.String(), time.Since(start))
*/
package metrics
