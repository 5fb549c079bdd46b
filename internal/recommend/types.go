// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package recommend

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput is returned for an empty user ID or a negative count.
	ErrInvalidInput = errors.New("invalid recommendation request")

	// ErrModelNotReady is returned when no model is published and loading one
	// failed. The load error is wrapped alongside it.
	ErrModelNotReady = errors.New("recommendation model not ready")
)

// NoNewMaterial is the marker the legacy list view returns for a known user
// whose neighbors have nothing left to offer.
const NoNewMaterial = "No new recommendations (all material completed)."

// Outcome classifies a recommendation result.
type Outcome int

const (
	// OutcomeItems means at least one item was recommended.
	OutcomeItems Outcome = iota
	// OutcomeExhausted means the user is known but nothing new qualified.
	OutcomeExhausted
	// OutcomeUnknownUser means the user is not in the model.
	OutcomeUnknownUser
)

// String returns the outcome name used in logs, metrics and JSON.
func (o Outcome) String() string {
	switch o {
	case OutcomeItems:
		return "items"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeUnknownUser:
		return "unknown_user"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "items":
		*o = OutcomeItems
	case "exhausted":
		*o = OutcomeExhausted
	case "unknown_user":
		*o = OutcomeUnknownUser
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// Request asks for up to N recommendations for UserID.
type Request struct {
	// UserID identifies the student. Required.
	UserID string `json:"user_id" validate:"notblank"`

	// N is the maximum number of items. Zero means Limits.DefaultN; values
	// above Limits.MaxN are clamped.
	N int `json:"n" validate:"gte=0"`

	// RequestID is carried into logs. Generated when empty.
	RequestID string `json:"request_id,omitempty"`
}

// Neighbor is one of the users whose engagement fed a result.
type Neighbor struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// Result is the answer to a Request.
type Result struct {
	UserID       string     `json:"user_id"`
	Outcome      Outcome    `json:"outcome"`
	Items        []string   `json:"items"`
	Neighbors    []Neighbor `json:"neighbors"`
	ModelVersion int64      `json:"model_version"`
	Metadata     Metadata   `json:"metadata"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	RequestID string    `json:"request_id"`
	N         int       `json:"n"`
	CacheHit  bool      `json:"cache_hit"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Sequence returns the legacy list view: the items, the single NoNewMaterial
// marker for an exhausted user, or an empty list for an unknown user.
func (r *Result) Sequence() []string {
	switch r.Outcome {
	case OutcomeExhausted:
		return []string{NoNewMaterial}
	case OutcomeUnknownUser:
		return []string{}
	default:
		return append([]string{}, r.Items...)
	}
}

// Stats summarizes engine activity since start.
type Stats struct {
	RequestCount int64 `json:"request_count"`
	CacheHits    int64 `json:"cache_hits"`
	CacheMisses  int64 `json:"cache_misses"`
	ErrorCount   int64 `json:"error_count"`
	CacheSize    int   `json:"cache_size"`
}
