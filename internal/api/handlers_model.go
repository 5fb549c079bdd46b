// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/tomtom215/coursemate/internal/logging"
	"github.com/tomtom215/coursemate/internal/model"
)

// ModelStatus handles GET /api/v1/model/status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.models.Status())
}

// reloadFailure is the error detail of a rejected reload.
type reloadFailure struct {
	Reason string       `json:"reason,omitempty"`
	Status model.Status `json:"status"`
}

// ReloadModel handles POST /api/v1/model/reload. It re-reads the bundle and
// swaps it in. Requests closer together than the configured interval get
// 429. A failed load answers 422 and leaves the previous model serving.
func (h *Handler) ReloadModel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	reservation := h.reloadLimiter.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
		rw.TooManyRequests("model reload requested too frequently")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.reloadTimeout)
	defer cancel()

	logger := logging.Ctx(r.Context())
	logger.Info().Msg("Model reload requested")

	if _, err := h.models.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("Model reload failed")

		detail := reloadFailure{Status: h.models.Status()}
		var loadErr *model.LoadError
		if errors.As(err, &loadErr) {
			detail.Reason = loadErr.Reason
		}
		rw.ErrorWithDetails(http.StatusUnprocessableEntity, ErrCodeModelLoadFailed, err.Error(), detail)
		return
	}

	rw.Success(h.models.Status())
}
