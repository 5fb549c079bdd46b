// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

/*
Package config provides centralized configuration management for Coursemate.

Configuration is layered with Koanf. Later layers override earlier ones:

 1. Struct defaults (defaultConfig)
 2. A YAML file: $CONFIG_PATH, else config.yaml, config.yml,
    /etc/coursemate/config.yaml or /etc/coursemate/config.yml
 3. Environment variables

A .env file is loaded into the environment by cmd/server before Load runs.

# Environment Variables

HTTP server:
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 8080)
  - HTTP_TIMEOUT: Per-request timeout (default: 30s)

Model bundle:
  - MODEL_SOURCE: Path, file://, http(s):// or badger://<dir> (default: model_bundle.json.gz)
  - MODEL_LOAD_ON_STARTUP: Load before serving (default: true)
  - MODEL_RELOAD_SCHEDULE: Cron expression for periodic reloads (default: disabled)
  - MODEL_HTTP_TIMEOUT: Remote fetch timeout (default: 30s)
  - MODEL_BADGER_KEY: Key inside a badger source (default: bundle:current)
  - MODEL_LOAD_TIMEOUT: Upper bound for one load (default: 2m)

Recommendations:
  - RECOMMEND_DEFAULT_N, RECOMMEND_MAX_N: Result size default and cap (3, 100)
  - RECOMMEND_NEIGHBORS: Neighbors consulted per request (default: 5)
  - RECOMMEND_CACHE_ENABLED, RECOMMEND_CACHE_TTL, RECOMMEND_CACHE_SIZE
  - RECOMMEND_FALLBACK_MATERIALS: Comma-separated list served when no model loads

Other:
  - CLUSTER_CSV_PATH: Learner segment CSV (default: Output_User_Clusters.csv)
  - CORS_ORIGINS: Comma-separated allowed origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - RELOAD_MIN_INTERVAL: Minimum spacing of admin reloads (default: 10s)
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
*/
package config
