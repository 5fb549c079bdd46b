// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

/*
Package middleware provides HTTP middleware shared by the API router.

All middleware use the func(http.Handler) http.Handler shape and are mounted
with chi's Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)          // X-Request-ID + logging context
	r.Use(middleware.AccessLog)          // one zerolog line per request
	r.Use(middleware.PrometheusMetrics)  // coursemate_api_* series

PrometheusMetrics and AccessLog label requests by chi route pattern, so they
must be mounted on a chi router; outside one the route is "unmatched".
*/
package middleware
