// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/coursemate/internal/bundle"
	"github.com/tomtom215/coursemate/internal/metrics"
)

const loadKey = "load"

// DefaultLoadTimeout bounds a single load when StoreConfig.LoadTimeout is unset.
const DefaultLoadTimeout = 2 * time.Minute

// StoreConfig tunes a Store.
type StoreConfig struct {
	// LoadTimeout bounds one fetch-validate-publish cycle. A load is shared
	// by every caller waiting on it, so it does not inherit any one caller's
	// cancellation.
	LoadTimeout time.Duration
}

// Store owns the published Snapshot. Loads build a complete snapshot off to
// the side and publish it with a single atomic swap, so readers always see
// either the old or the new model in full. It is safe for concurrent use.
type Store struct {
	source bundle.Source
	logger zerolog.Logger
	cfg    StoreConfig

	current atomic.Pointer[Snapshot]
	group   singleflight.Group
	version atomic.Int64
	// started counts loads that have begun fetching.
	started atomic.Int64

	loads    atomic.Int64
	failures atomic.Int64

	mu          sync.RWMutex
	lastErr     error
	lastAttempt time.Time
	listeners   []func(*Snapshot)
}

// NewStore creates an empty store reading from source.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(source bundle.Source, cfg StoreConfig, logger zerolog.Logger) *Store {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	return &Store{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "model").Str("source", source.String()).Logger(),
	}
}

// OnSwap registers fn to run after every successful publish. Listeners run
// synchronously on the loading goroutine.
func (s *Store) OnSwap(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns the published snapshot, or nil.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// IsLoaded reports whether a snapshot is published.
func (s *Store) IsLoaded() bool {
	return s.current.Load() != nil
}

// Load fetches, validates and publishes the bundle, replacing any previous
// snapshot. The bundle is always read after Load is called: a Load that
// arrives while an earlier load is already fetching waits for it and then
// runs a fresh one, sharing that with any other callers. On failure the
// previous snapshot stays published and the error wraps ErrModelLoad.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	return s.do(ctx, true)
}

// EnsureLoaded returns the published snapshot, loading it first if there is
// none. Concurrent callers share one load.
func (s *Store) EnsureLoaded(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	return s.do(ctx, false)
}

// flight is the shared result of one load.
type flight struct {
	snap *Snapshot
	seq  int64
}

func (s *Store) do(ctx context.Context, force bool) (*Snapshot, error) {
	after := s.started.Load()
	for {
		f, err := s.join(ctx, force)
		if err != nil && f == nil {
			return nil, err
		}
		// A forced load must not reuse a fetch that began before the call.
		if force && f.seq <= after {
			continue
		}
		if err != nil {
			return nil, err
		}
		return f.snap, nil
	}
}

func (s *Store) join(ctx context.Context, force bool) (*flight, error) {
	ch := s.group.DoChan(loadKey, func() (any, error) {
		if !force {
			if snap := s.current.Load(); snap != nil {
				return &flight{snap: snap}, nil
			}
		}
		seq := s.started.Add(1)
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LoadTimeout)
		defer cancel()
		snap, err := s.load(loadCtx)
		return &flight{snap: snap, seq: seq}, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		f, _ := res.Val.(*flight)
		return f, res.Err
	}
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	snap, err := s.build(ctx)

	s.mu.Lock()
	s.lastAttempt = start
	s.lastErr = err
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	if err != nil {
		s.failures.Add(1)
		metrics.RecordModelLoad(time.Since(start), err, 0, 0, 0)
		ev := s.logger.Error().Err(err).Dur("duration", time.Since(start))
		if prev := s.current.Load(); prev != nil {
			ev = ev.Int64("serving_version", prev.version)
		}
		ev.Msg("model load failed")
		return nil, err
	}

	snap.version = s.version.Add(1)
	snap.loadedAt = time.Now()
	s.current.Store(snap)
	s.loads.Add(1)

	metrics.RecordModelLoad(time.Since(start), nil, snap.version, snap.UserCount(), snap.ItemCount())
	s.logger.Info().
		Int64("version", snap.version).
		Int("users", snap.UserCount()).
		Int("items", snap.ItemCount()).
		Str("checksum", snap.checksum).
		Dur("duration", time.Since(start)).
		Msg("model published")

	for _, fn := range listeners {
		fn(snap)
	}
	return snap, nil
}

func (s *Store) build(ctx context.Context) (*Snapshot, error) {
	payload, err := s.source.Fetch(ctx)
	if err != nil {
		reason := ReasonUnreadable
		if errors.Is(err, bundle.ErrNotFound) {
			reason = ReasonNotFound
		}
		return nil, &LoadError{Source: s.source.String(), Reason: reason, Err: err}
	}

	snap, err := NewSnapshot(payload.Bundle)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = s.source.String()
			return nil, le
		}
		return nil, &LoadError{Source: s.source.String(), Reason: ReasonUnreadable, Err: err}
	}

	snap.checksum = payload.Checksum
	snap.source = s.source.String()
	return snap, nil
}

// Status describes the store for health and admin endpoints.
type Status struct {
	Loaded        bool       `json:"loaded"`
	Version       int64      `json:"version"`
	Users         int        `json:"users"`
	Items         int        `json:"items"`
	Checksum      string     `json:"checksum,omitempty"`
	Source        string     `json:"source"`
	LoadedAt      *time.Time `json:"loaded_at,omitempty"`
	TrainedAt     *time.Time `json:"trained_at,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Loads         int64      `json:"loads"`
	Failures      int64      `json:"failures"`
}

// Status reports the published snapshot and the outcome of the last load.
func (s *Store) Status() Status {
	st := Status{
		Source:   s.source.String(),
		Loads:    s.loads.Load(),
		Failures: s.failures.Load(),
	}

	s.mu.RLock()
	if !s.lastAttempt.IsZero() {
		t := s.lastAttempt
		st.LastAttemptAt = &t
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	s.mu.RUnlock()

	snap := s.current.Load()
	if snap == nil {
		return st
	}
	st.Loaded = true
	st.Version = snap.version
	st.Users = snap.UserCount()
	st.Items = snap.ItemCount()
	st.Checksum = snap.checksum
	loaded := snap.loadedAt
	st.LoadedAt = &loaded
	if !snap.trainedAt.IsZero() {
		trained := snap.trainedAt
		st.TrainedAt = &trained
	}
	return st
}

// String implements fmt.Stringer.
func (s *Store) String() string {
	if snap := s.current.Load(); snap != nil {
		return fmt.Sprintf("model store (%s, version %d)", s.source, snap.version)
	}
	return fmt.Sprintf("model store (%s, empty)", s.source)
}
