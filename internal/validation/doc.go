// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is created on first use and shared; it caches
// struct metadata and is safe for concurrent use. Fields are reported by
// their JSON names, and a "notblank" rule rejects whitespace-only strings.
//
//	type recommendBody struct {
//	    UserID string `json:"user_id" validate:"notblank,max=256"`
//	    TopN   int    `json:"top_n" validate:"gte=0,lte=100"`
//	}
//
//	if verr := validation.ValidateStruct(&body); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package validation
