// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Model     ModelConfig     `koanf:"model"`
	Recommend RecommendConfig `koanf:"recommend"`
	Cluster   ClusterConfig   `koanf:"cluster"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ModelConfig controls where the model bundle comes from and when it is
// (re)loaded.
type ModelConfig struct {
	// Source is a file path, file:// or http(s):// URL, or badger://<dir>.
	Source string `koanf:"source"`

	// LoadOnStartup loads the bundle before the HTTP server starts. A failed
	// startup load is logged and the first request retries lazily.
	LoadOnStartup bool `koanf:"load_on_startup"`

	// ReloadSchedule is a cron expression for periodic reloads ("" disables).
	// Descriptors such as "@every 1h" are accepted.
	ReloadSchedule string `koanf:"reload_schedule"`

	HTTPTimeout time.Duration `koanf:"http_timeout"`
	BadgerKey   string        `koanf:"badger_key"`
	LoadTimeout time.Duration `koanf:"load_timeout"`
}

// RecommendConfig tunes the recommendation engine and the public endpoint.
type RecommendConfig struct {
	DefaultN     int           `koanf:"default_n"`
	MaxN         int           `koanf:"max_n"`
	Neighbors    int           `koanf:"neighbors"`
	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	CacheSize    int           `koanf:"cache_size"`

	// FallbackMaterials is served when no model can be loaded.
	FallbackMaterials []string `koanf:"fallback_materials"`
}

// ClusterConfig locates the learner-segment CSV.
type ClusterConfig struct {
	CSVPath string `koanf:"csv_path"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// ReloadMinInterval is the minimum spacing between admin reloads.
	ReloadMinInterval time.Duration `koanf:"reload_min_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in that order of precedence.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// String renders a one-line summary for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("addr=%s model=%s reload=%q neighbors=%d default_n=%d max_n=%d cache=%t",
		c.Server.Addr(), c.Model.Source, c.Model.ReloadSchedule,
		c.Recommend.Neighbors, c.Recommend.DefaultN, c.Recommend.MaxN, c.Recommend.CacheEnabled)
}
