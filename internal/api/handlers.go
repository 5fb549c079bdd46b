// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package api

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/coursemate/internal/cluster"
	"github.com/tomtom215/coursemate/internal/model"
	"github.com/tomtom215/coursemate/internal/recommend"
)

// Recommender produces recommendations. *recommend.Engine implements it.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Result, error)
	Stats() recommend.Stats
}

// ModelManager exposes model lifecycle operations. *model.Store implements it.
type ModelManager interface {
	Load(ctx context.Context) (*model.Snapshot, error)
	Status() model.Status
}

// Labeler maps users to learner segments. *cluster.Lookup implements it.
type Labeler interface {
	Label(user string) (code int, label string)
}

// HandlerConfig tunes request handling.
type HandlerConfig struct {
	// FallbackMaterials is returned by the public endpoint when no model is
	// available.
	FallbackMaterials []string

	// RequestTimeout bounds a single recommendation call. Default: 10s.
	RequestTimeout time.Duration

	// ReloadTimeout bounds an admin-triggered reload. Default: 2m.
	ReloadTimeout time.Duration

	// ReloadMinInterval is the minimum spacing between admin reloads. Zero
	// disables the throttle.
	ReloadMinInterval time.Duration
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_recommend.go: recommendation endpoints
//   - handlers_model.go: model status and reload
//   - handlers_health.go: liveness and readiness probes
type Handler struct {
	recommender    Recommender
	models         ModelManager
	labels         Labeler
	fallback       []string
	requestTimeout time.Duration
	reloadTimeout  time.Duration
	reloadLimiter  *rate.Limiter
	startTime      time.Time
}

// NewHandler creates a new API handler. labels may be nil, in which case
// every user is in the Unknown segment.
//
//	handler, err := api.NewHandler(engine, store, lookup, api.HandlerConfig{...})
//	router := api.NewRouter(handler, api.NewChiMiddleware(mwConfig))
//	srv := &http.Server{Handler: router.SetupChi()}
func NewHandler(recommender Recommender, models ModelManager, labels Labeler, cfg HandlerConfig) (*Handler, error) {
	if recommender == nil {
		return nil, errors.New("recommender is required")
	}
	if models == nil {
		return nil, errors.New("model manager is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.ReloadTimeout <= 0 {
		cfg.ReloadTimeout = model.DefaultLoadTimeout
	}

	limit := rate.Inf
	if cfg.ReloadMinInterval > 0 {
		limit = rate.Every(cfg.ReloadMinInterval)
	}

	fallback := make([]string, len(cfg.FallbackMaterials))
	copy(fallback, cfg.FallbackMaterials)

	return &Handler{
		recommender:    recommender,
		models:         models,
		labels:         labels,
		fallback:       fallback,
		requestTimeout: cfg.RequestTimeout,
		reloadTimeout:  cfg.ReloadTimeout,
		reloadLimiter:  rate.NewLimiter(limit, 1),
		startTime:      time.Now(),
	}, nil
}

func (h *Handler) label(user string) (int, string) {
	if h.labels == nil {
		return cluster.CodeUnknown, cluster.LabelUnknown
	}
	return h.labels.Label(user)
}

func (h *Handler) fallbackList() []string {
	out := make([]string, len(h.fallback))
	copy(out, h.fallback)
	return out
}
