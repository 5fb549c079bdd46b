// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/coursemate/internal/api"
	"github.com/tomtom215/coursemate/internal/bundle"
	"github.com/tomtom215/coursemate/internal/cluster"
	"github.com/tomtom215/coursemate/internal/config"
	"github.com/tomtom215/coursemate/internal/logging"
	"github.com/tomtom215/coursemate/internal/metrics"
	"github.com/tomtom215/coursemate/internal/model"
	"github.com/tomtom215/coursemate/internal/recommend"
	"github.com/tomtom215/coursemate/internal/supervisor"
	"github.com/tomtom215/coursemate/internal/supervisor/services"
)

// httpDrainTimeout bounds connection draining on shutdown.
const httpDrainTimeout = 10 * time.Second

// app is the wired server: everything main needs, built from a Config.
type app struct {
	cfg    *config.Config
	source bundle.Source
	store  *model.Store
	engine *recommend.Engine
	labels *cluster.Lookup
	router http.Handler
}

func newApp(cfg *config.Config) (*app, error) {
	labels := loadClusterLabels(cfg.Cluster.CSVPath)

	source, err := bundle.Open(bundle.SourceConfig{
		Location:    cfg.Model.Source,
		BadgerKey:   cfg.Model.BadgerKey,
		HTTPTimeout: cfg.Model.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open model source: %w", err)
	}

	store := model.NewStore(source, model.StoreConfig{LoadTimeout: cfg.Model.LoadTimeout}, logging.WithComponent("model"))

	engine, err := recommend.NewEngine(store, engineConfig(cfg), logging.WithComponent("recommend"))
	if err != nil {
		closeSource(source)
		return nil, fmt.Errorf("create recommendation engine: %w", err)
	}
	// Cached results belong to the snapshot that produced them.
	store.OnSwap(func(*model.Snapshot) { engine.PurgeCache() })

	handler, err := api.NewHandler(engine, store, labels, api.HandlerConfig{
		FallbackMaterials: cfg.Recommend.FallbackMaterials,
		RequestTimeout:    cfg.Server.Timeout,
		ReloadTimeout:     cfg.Model.LoadTimeout,
		ReloadMinInterval: cfg.Security.ReloadMinInterval,
	})
	if err != nil {
		closeSource(source)
		return nil, fmt.Errorf("create API handler: %w", err)
	}

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Security.RateLimitReqs
	mwCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	mwCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled
	router := api.NewRouter(handler, api.NewChiMiddleware(mwCfg))

	return &app{
		cfg:    cfg,
		source: source,
		store:  store,
		engine: engine,
		labels: labels,
		router: router.SetupChi(),
	}, nil
}

func engineConfig(cfg *config.Config) *recommend.Config {
	rc := recommend.DefaultConfig()
	rc.NeighborCount = cfg.Recommend.Neighbors
	rc.Limits.DefaultN = cfg.Recommend.DefaultN
	rc.Limits.MaxN = cfg.Recommend.MaxN
	rc.Cache.Enabled = cfg.Recommend.CacheEnabled
	rc.Cache.TTL = cfg.Recommend.CacheTTL
	rc.Cache.MaxEntries = cfg.Recommend.CacheSize
	return rc
}

// loadClusterLabels reads the cluster CSV. Labels are decoration, so a
// missing or broken file leaves every user "Unknown" instead of failing.
func loadClusterLabels(path string) *cluster.Lookup {
	if path == "" {
		logging.Info().Msg("Cluster labels disabled (CLUSTER_CSV_PATH empty)")
		return cluster.NewLookup(nil)
	}
	labels, err := cluster.LoadCSV(path)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Cluster labels unavailable; all users will be Unknown")
		return cluster.NewLookup(nil)
	}
	metrics.ClusterLabels.Set(float64(labels.Len()))
	logging.Info().Int("users", labels.Len()).Str("path", path).Msg("Cluster labels loaded")
	return labels
}

// loadInitialModel performs the startup load. Failure is logged and the
// server starts anyway, serving fallback content until a reload succeeds.
func (a *app) loadInitialModel(ctx context.Context) {
	snap, err := a.store.Load(ctx)
	if err != nil {
		logging.Error().Err(err).Str("source", a.source.String()).
			Msg("Initial model load failed; serving fallback recommendations until a reload succeeds")
		return
	}
	logging.Info().
		Int64("version", snap.Version()).
		Int("users", snap.UserCount()).
		Int("items", snap.ItemCount()).
		Msg("Recommendation model ready")
}

// buildTree assembles the supervisor tree around srv.
func (a *app) buildTree(srv services.HTTPServer) (*supervisor.SupervisorTree, error) {
	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(srv, a.cfg.Server.Addr(), httpDrainTimeout))

	if spec := a.cfg.Model.ReloadSchedule; spec != "" {
		reload, err := services.NewReloadService(a.store, spec, a.cfg.Model.LoadTimeout)
		if err != nil {
			return nil, err
		}
		tree.AddModelService(reload)
	} else {
		logging.Info().Msg("Scheduled model reloads disabled (MODEL_RELOAD_SCHEDULE empty)")
	}
	return tree, nil
}

// serve runs the HTTP server and reload loop until ctx is canceled.
func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           a.router,
		ReadTimeout:       a.cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      a.cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := a.buildTree(srv)
	if err != nil {
		return err
	}

	err = tree.Serve(ctx)

	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *app) close() {
	closeSource(a.source)
}

func closeSource(src bundle.Source) {
	c, ok := src.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing model source")
	}
}
