// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tomtom215/coursemate/internal/logging"
	"github.com/tomtom215/coursemate/internal/model"
)

// ModelLoader reloads the model bundle. *model.Store satisfies it.
type ModelLoader interface {
	Load(ctx context.Context) (*model.Snapshot, error)
}

// ReloadService re-reads the model bundle on a cron schedule. Runs never
// overlap: a tick that arrives while a reload is still in flight is skipped.
// A failed reload is logged and counted; the store keeps serving the
// previous snapshot, so the service itself never fails because of it.
type ReloadService struct {
	loader   ModelLoader
	spec     string
	schedule cron.Schedule
	timeout  time.Duration
	logger   zerolog.Logger

	runs     atomic.Int64
	failures atomic.Int64
}

// NewReloadService parses spec (standard five-field cron or a descriptor
// such as "@hourly" or "@every 30m"). timeout bounds each reload.
func NewReloadService(loader ModelLoader, spec string, timeout time.Duration) (*ReloadService, error) {
	if loader == nil {
		return nil, fmt.Errorf("reload service: loader is required")
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("reload service: invalid schedule %q: %w", spec, err)
	}
	if timeout <= 0 {
		timeout = model.DefaultLoadTimeout
	}
	return &ReloadService{
		loader:   loader,
		spec:     spec,
		schedule: schedule,
		timeout:  timeout,
		logger:   logging.WithComponent("model-reload"),
	}, nil
}

// Serve implements suture.Service.
func (s *ReloadService) Serve(ctx context.Context) error {
	clog := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.Reload(ctx) }))
	c.Start()

	s.logger.Info().Str("schedule", s.spec).Time("next", s.schedule.Next(time.Now())).Msg("Scheduled model reloads")

	<-ctx.Done()

	// Stop waits for a running job; Load itself is bounded by the timeout.
	select {
	case <-c.Stop().Done():
	case <-time.After(s.timeout):
		s.logger.Warn().Msg("Model reload still running at shutdown")
	}
	return ctx.Err()
}

// Reload performs one reload and reports whether it succeeded.
func (s *ReloadService) Reload(ctx context.Context) bool {
	correlationID := logging.GenerateCorrelationID()
	ctx = logging.ContextWithCorrelationID(ctx, correlationID)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.runs.Add(1)
	start := time.Now()
	logger := s.logger.With().Str("correlation_id", correlationID).Logger()

	snap, err := s.loader.Load(ctx)
	if err != nil {
		s.failures.Add(1)
		logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Scheduled model reload failed")
		return false
	}

	logger.Info().
		Int64("version", snap.Version()).
		Int("users", snap.UserCount()).
		Int("items", snap.ItemCount()).
		Dur("duration", time.Since(start)).
		Msg("Scheduled model reload complete")
	return true
}

// Runs is the number of reloads attempted.
func (s *ReloadService) Runs() int64 { return s.runs.Load() }

// Failures is the number of reloads that failed.
func (s *ReloadService) Failures() int64 { return s.failures.Load() }

// String implements fmt.Stringer.
func (s *ReloadService) String() string {
	return "model-reload"
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
