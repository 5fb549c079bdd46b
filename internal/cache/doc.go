// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

// Package cache provides a generic, thread-safe LRU cache with lazy TTL
// expiration. The recommendation engine keeps computed results in it,
// keyed by model version so a model swap never serves stale entries.
package cache
