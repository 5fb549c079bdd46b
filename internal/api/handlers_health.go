// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package api

import (
	"net/http"
	"time"
)

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of the model.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Ready means a model snapshot is published; until then 503.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	status := h.models.Status()

	if !status.Loaded {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeModelNotReady, "model not loaded", status)
		return
	}

	rw.Success(map[string]interface{}{
		"ready":         true,
		"model_version": status.Version,
		"users":         status.Users,
		"items":         status.Items,
	})
}
