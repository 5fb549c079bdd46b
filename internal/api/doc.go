// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

/*
Package api provides the HTTP interface of the recommendation service.

# Endpoints

	POST /api/recommend                        front-end endpoint, plain JSON
	GET  /api/v1/recommendations/user/{userID} full result in the API envelope
	GET  /api/v1/recommendations/stats         engine request and cache counters
	GET  /api/v1/model/status                  model store status
	POST /api/v1/model/reload                  reload the bundle (throttled)
	GET  /api/v1/health/live                   liveness
	GET  /api/v1/health/ready                  readiness (model loaded)
	GET  /metrics                              Prometheus

POST /api/recommend keeps the shape the learning portal expects:

	{"user_id": "1001", "cluster_id": 2, "cluster_status": "Active Learner",
	 "recommendations": ["quiz-3"], "outcome": "items", "fallback": false}

user_id may be sent as a string or a number. When no model can be loaded the
reply carries the configured fallback materials and fallback=true. Input
errors answer 400 with {"error": "..."}.

The /api/v1 endpoints use the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "MODEL_NOT_READY", "message": "..."}}
*/
package api
