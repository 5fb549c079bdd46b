// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/coursemate/internal/metrics"
)

// ErrSourceUnavailable is returned while the remote source's circuit breaker
// is open.
var ErrSourceUnavailable = errors.New("bundle source unavailable")

const defaultMaxBytes = 256 << 20

// HTTPSourceConfig tunes an HTTPSource.
type HTTPSourceConfig struct {
	// Timeout bounds a single fetch. Default: 30s.
	Timeout time.Duration

	// MaxBytes caps the payload size. Default: 256 MiB.
	MaxBytes int64

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Default: 3.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	// Default: 1m.
	OpenTimeout time.Duration

	// Client overrides the HTTP client. Mostly for tests.
	Client *http.Client
}

// HTTPSource fetches a bundle from an HTTP(S) endpoint, typically the object
// store the training job publishes to. Repeated failures open a circuit
// breaker so a dead endpoint is not hammered by lazy loads.
type HTTPSource struct {
	url      string
	client   *http.Client
	maxBytes int64
	breaker  *gobreaker.CircuitBreaker[[]byte]
}

// NewHTTPSource creates a source for the bundle at url.
func NewHTTPSource(url string, cfg HTTPSourceConfig) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "bundle-http",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
		// A missing bundle is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return &HTTPSource{
		url:      url,
		client:   client,
		maxBytes: cfg.MaxBytes,
		breaker:  breaker,
	}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) (*Payload, error) {
	data, err := s.breaker.Execute(func() ([]byte, error) {
		return s.download(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.url, err)
		}
		return nil, err
	}

	return Decode(data)
}

func (s *HTTPSource) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build bundle request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bundle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // body fully consumed or abandoned

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.url)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("fetch bundle: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read bundle body: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("bundle exceeds %d bytes", s.maxBytes)
	}

	return data, nil
}

// String implements Source.
func (s *HTTPSource) String() string {
	return s.url
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (s *HTTPSource) BreakerState() string {
	return s.breaker.State().String()
}
