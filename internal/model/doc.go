// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

/*
Package model holds the precomputed engagement and similarity tables the
recommendation engine reads.

A Store fetches a bundle from a bundle.Source, validates it into an immutable
Snapshot and publishes it with an atomic pointer swap. Readers call
EnsureLoaded (which loads on first use) or Snapshot and keep the returned
snapshot for the whole computation, so a concurrent reload can never mix rows
of one model with columns of another.

Validation rejects a bundle when:
  - the schema version is not bundle.SchemaVersion
  - either table is absent
  - a user or item identifier is empty or duplicated
  - a row has the wrong number of scores
  - the engagement and similarity user sets differ
  - a similarity entry is null, NaN or infinite
  - the similarity table is not symmetric within SymmetryTolerance

Engagement nulls are read as zero. All failures wrap ErrModelLoad and carry a
*LoadError with a short Reason code.

Example:

	src := bundle.NewFileSource("data/model.json.gz")
	store := model.NewStore(src, model.StoreConfig{}, logger)
	snap, err := store.EnsureLoaded(ctx)
	if errors.Is(err, model.ErrModelLoad) {
		// serve the fallback list
	}
*/
package model
