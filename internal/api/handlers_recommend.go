// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/coursemate/internal/logging"
	"github.com/tomtom215/coursemate/internal/recommend"
	"github.com/tomtom215/coursemate/internal/validation"
)

// outcomeFallback marks a reply built from the static fallback list.
const outcomeFallback = "fallback"

// Recommend handles POST /api/recommend, the endpoint the learning portal
// front end calls. It accepts {"user_id": <string|number>, "top_n": <int>}
// and always answers with a list: when the model cannot be used the static
// fallback materials are returned with fallback=true.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var body recommendBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: "invalid request body: " + err.Error()})
		return
	}
	if verr := validation.ValidateStruct(&body); verr != nil {
		writeJSON(w, http.StatusBadRequest, legacyError{Error: verr.Error()})
		return
	}

	userID := string(body.UserID)
	code, label := h.label(userID)
	reply := recommendReply{
		UserID:        userID,
		ClusterID:     code,
		ClusterStatus: label,
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.recommender.Recommend(ctx, recommend.Request{
		UserID:    userID,
		N:         body.topN(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
	switch {
	case errors.Is(err, recommend.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, legacyError{Error: err.Error()})
		return
	case err != nil:
		logging.Ctx(r.Context()).Warn().Err(err).
			Str("user_id", userID).
			Msg("Serving fallback recommendations")
		reply.Recommendations = h.fallbackList()
		reply.Outcome = outcomeFallback
		reply.Fallback = true
	default:
		reply.Recommendations = result.Sequence()
		reply.Outcome = result.Outcome.String()
	}

	writeJSON(w, http.StatusOK, reply)
}

// userRecommendations is the payload of GET /api/v1/recommendations/user/{userID}.
type userRecommendations struct {
	*recommend.Result
	ClusterID     int    `json:"cluster_id"`
	ClusterStatus string `json:"cluster_status"`
}

// GetRecommendations handles GET /api/v1/recommendations/user/{userID}?n=.
// Unlike Recommend it reports model unavailability as 503 instead of
// substituting fallback content.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := recommend.Request{
		UserID:    chi.URLParam(r, "userID"),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		n, err := strconv.Atoi(nStr)
		if err != nil {
			rw.BadRequest("n must be an integer")
			return
		}
		if n <= 0 {
			rw.ValidationError("n must be positive", map[string]interface{}{"n": nStr})
			return
		}
		req.N = n
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.recommender.Recommend(ctx, req)
	switch {
	case errors.Is(err, recommend.ErrInvalidInput):
		rw.BadRequest(err.Error())
		return
	case errors.Is(err, recommend.ErrModelNotReady):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Recommendation model not ready")
		rw.Error(http.StatusServiceUnavailable, ErrCodeModelNotReady, "recommendation model is not available")
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		rw.ServiceUnavailable("recommendation timed out")
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Recommendation failed")
		rw.InternalError("failed to generate recommendations")
		return
	}

	code, label := h.label(result.UserID)
	rw.Success(userRecommendations{
		Result:        result,
		ClusterID:     code,
		ClusterStatus: label,
	})
}

// RecommendationStats handles GET /api/v1/recommendations/stats.
func (h *Handler) RecommendationStats(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.recommender.Stats())
}
