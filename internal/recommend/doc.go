// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

// Package recommend suggests learning materials a student has not engaged with
// yet, using the materials their most similar peers engaged with.
//
// # Algorithm
//
// For a target user U and a count N:
//
//  1. Neighbors: every other user in U's similarity row, stable-sorted by
//     similarity descending (ties keep similarity column order), truncated to
//     Config.NeighborCount (default 5). N does not affect the neighbor set.
//  2. Completed: the items U scored above zero.
//  3. Candidates: for each neighbor in order, the items that neighbor scored
//     above zero, in engagement column order. An item is taken the first
//     time it is seen unless U completed it. The scan stops at N items.
//
// # Outcomes
//
// A Result has one of three outcomes:
//
//   - OutcomeItems: one or more recommendations.
//   - OutcomeExhausted: U is known but neighbors offer nothing new. The
//     legacy list view is the single NoNewMaterial marker.
//   - OutcomeUnknownUser: U is not in the model. The list view is empty.
//
// Unknown users are not errors. Errors are reserved for bad input
// (ErrInvalidInput) and a model that cannot be loaded (ErrModelNotReady).
//
// # Usage
//
//	engine, err := recommend.NewEngine(store, recommend.DefaultConfig(), logger)
//	result, err := engine.Recommend(ctx, recommend.Request{UserID: "1042", N: 3})
//	if errors.Is(err, recommend.ErrModelNotReady) {
//	    // serve the static fallback list
//	}
//	fmt.Println(result.Sequence())
package recommend
