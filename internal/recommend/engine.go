// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package recommend

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/coursemate/internal/cache"
	"github.com/tomtom215/coursemate/internal/metrics"
	"github.com/tomtom215/coursemate/internal/model"
)

// ModelProvider hands out the model snapshot a request should use, loading it
// on first use. *model.Store implements it.
type ModelProvider interface {
	EnsureLoaded(ctx context.Context) (*model.Snapshot, error)
}

// Engine produces recommendations from the published model snapshot.
// It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger
	models ModelProvider

	// Results keyed by model version, N and user. Nil when disabled.
	cache *cache.LRU[*Result]

	requestCount atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	errorCount   atomic.Int64
}

// NewEngine creates a recommendation engine reading from models.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(models ModelProvider, cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if models == nil {
		return nil, fmt.Errorf("model provider is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		config: cfg.Clone(),
		logger: logger.With().Str("component", "recommend").Logger(),
		models: models,
	}
	if cfg.Cache.Enabled {
		e.cache = cache.NewLRU[*Result](cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}
	return e, nil
}

// Recommend returns up to req.N materials for req.UserID.
//
// An unknown user is not an error: the result has OutcomeUnknownUser. Errors
// wrap ErrInvalidInput or ErrModelNotReady.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	e.requestCount.Add(1)

	req, err := e.prepareRequest(req)
	if err != nil {
		e.errorCount.Add(1)
		metrics.RecordRecommendation("invalid", time.Since(start))
		return nil, err
	}
	logger := e.logger.With().
		Str("request_id", req.RequestID).
		Str("user_id", req.UserID).
		Int("n", req.N).
		Logger()

	snap, err := e.models.EnsureLoaded(ctx)
	if err != nil {
		e.errorCount.Add(1)
		metrics.RecordRecommendation("not_ready", time.Since(start))
		logger.Error().Err(err).Msg("model not available")
		return nil, fmt.Errorf("%w: %w", ErrModelNotReady, err)
	}

	key := cacheKey(snap.Version(), req)
	if cached := e.lookupCache(key); cached != nil {
		cached.Metadata.RequestID = req.RequestID
		cached.Metadata.CacheHit = true
		cached.Metadata.LatencyMS = time.Since(start).Milliseconds()
		cached.Metadata.Timestamp = time.Now()
		metrics.RecordRecommendation(cached.Outcome.String(), time.Since(start))
		logger.Debug().Msg("cache hit")
		return cached, nil
	}

	result := e.compute(snap, req)
	result.Metadata = Metadata{
		RequestID: req.RequestID,
		N:         req.N,
		LatencyMS: time.Since(start).Milliseconds(),
		Timestamp: time.Now(),
	}

	switch result.Outcome {
	case OutcomeUnknownUser:
		logger.Warn().Int64("model_version", snap.Version()).Msg("unknown user, no recommendations")
	default:
		logger.Debug().
			Str("outcome", result.Outcome.String()).
			Int("returned", len(result.Items)).
			Int("neighbors", len(result.Neighbors)).
			Msg("recommendation complete")
	}

	e.storeCache(key, result)
	metrics.RecordRecommendation(result.Outcome.String(), time.Since(start))
	return result, nil
}

// compute runs the neighbor scan against one snapshot. It does no I/O.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) compute(snap *model.Snapshot, req Request) *Result {
	result := &Result{
		UserID:       req.UserID,
		Items:        []string{},
		Neighbors:    []Neighbor{},
		ModelVersion: snap.Version(),
	}

	if !snap.HasUser(req.UserID) {
		result.Outcome = OutcomeUnknownUser
		return result
	}

	result.Neighbors = selectNeighbors(snap, req.UserID, e.config.NeighborCount)
	result.Items = collectItems(snap, req.UserID, result.Neighbors, req.N)
	if len(result.Items) == 0 {
		result.Outcome = OutcomeExhausted
	} else {
		result.Outcome = OutcomeItems
	}
	return result
}

// prepareRequest validates req and applies defaults.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) (Request, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return req, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if req.N < 0 {
		return req, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidInput, req.N)
	}

	if req.N == 0 {
		req.N = e.config.Limits.DefaultN
	}
	if req.N > e.config.Limits.MaxN {
		req.N = e.config.Limits.MaxN
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	return req, nil
}

//nolint:gocritic // hugeParam: req passed by value for simplicity
func cacheKey(version int64, req Request) string {
	return fmt.Sprintf("rec:%d:%d:%s", version, req.N, req.UserID)
}

func (e *Engine) lookupCache(key string) *Result {
	if e.cache == nil {
		return nil
	}
	cached, ok := e.cache.Get(key)
	metrics.RecordCacheLookup(ok)
	if !ok {
		e.cacheMisses.Add(1)
		return nil
	}
	e.cacheHits.Add(1)
	return copyResult(cached)
}

func (e *Engine) storeCache(key string, result *Result) {
	if e.cache == nil {
		return
	}
	e.cache.Add(key, copyResult(result))
}

// copyResult keeps cached results isolated from callers.
func copyResult(r *Result) *Result {
	c := *r
	c.Items = append([]string{}, r.Items...)
	c.Neighbors = append([]Neighbor{}, r.Neighbors...)
	return &c
}

// PurgeCache drops every cached result. Called after a model swap.
func (e *Engine) PurgeCache() {
	if e.cache == nil {
		return
	}
	e.cache.Purge()
	e.logger.Debug().Msg("result cache purged")
}

// Stats returns request and cache counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		RequestCount: e.requestCount.Load(),
		CacheHits:    e.cacheHits.Load(),
		CacheMisses:  e.cacheMisses.Load(),
		ErrorCount:   e.errorCount.Load(),
	}
	if e.cache != nil {
		_, _, s.CacheSize = e.cache.Stats()
	}
	return s
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}
