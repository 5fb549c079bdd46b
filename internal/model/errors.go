// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package model

import (
	"errors"
	"fmt"
)

// ErrModelLoad is matched (errors.Is) by every load failure.
var ErrModelLoad = errors.New("model load failed")

// Load failure reasons.
const (
	ReasonNotFound     = "not_found"
	ReasonUnreadable   = "unreadable"
	ReasonSchema       = "schema"
	ReasonMissingTable = "missing_table"
	ReasonShape        = "shape"
	ReasonIdentifiers  = "identifiers"
	ReasonInvalidValue = "invalid_value"
	ReasonUserMismatch = "user_mismatch"
	ReasonAsymmetric   = "asymmetric"
)

// LoadError describes why a bundle could not be published.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("model load failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("model load from %s failed (%s): %v", e.Source, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrModelLoad.
func (e *LoadError) Is(target error) bool {
	return target == ErrModelLoad
}

func invalid(reason, format string, args ...any) *LoadError {
	return &LoadError{Reason: reason, Err: fmt.Errorf(format, args...)}
}
