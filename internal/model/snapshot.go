// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package model

import (
	"math"
	"strings"
	"time"

	"github.com/tomtom215/coursemate/internal/bundle"
)

// SymmetryTolerance is the largest accepted |sim(a,b) - sim(b,a)|.
const SymmetryTolerance = 1e-9

// Snapshot is one validated, immutable engagement/similarity pair. All
// accessors are safe for concurrent use; returned slices must not be modified.
type Snapshot struct {
	version   int64
	checksum  string
	source    string
	loadedAt  time.Time
	trainedAt time.Time

	items []string

	// Engagement rows in bundle order.
	engUsers   []string
	engIndex   map[string]int
	engagement [][]float64
	positive   [][]int

	// Similarity rows and columns in bundle order.
	simUsers   []string
	simIndex   map[string]int
	similarity [][]float64
}

// NewSnapshot validates b and builds a snapshot from it. The returned error is
// a *LoadError. Engagement nulls become 0; similarity nulls are rejected.
func NewSnapshot(b *bundle.Bundle) (*Snapshot, error) {
	if b == nil {
		return nil, invalid(ReasonMissingTable, "bundle is empty")
	}
	if b.SchemaVersion != bundle.SchemaVersion {
		return nil, invalid(ReasonSchema, "unsupported schema_version %d (want %d)", b.SchemaVersion, bundle.SchemaVersion)
	}
	if b.Engagement == nil {
		return nil, invalid(ReasonMissingTable, "engagement table is absent")
	}
	if b.Similarity == nil {
		return nil, invalid(ReasonMissingTable, "similarity table is absent")
	}

	eng, sim := b.Engagement, b.Similarity

	if len(eng.Users) == 0 {
		return nil, invalid(ReasonShape, "engagement table has no users")
	}
	engIndex, err := indexIDs("engagement user", eng.Users)
	if err != nil {
		return nil, err
	}
	if _, err := indexIDs("item", eng.Items); err != nil {
		return nil, err
	}
	simIndex, err := indexIDs("similarity user", sim.Users)
	if err != nil {
		return nil, err
	}

	if len(eng.Scores) != len(eng.Users) {
		return nil, invalid(ReasonShape, "engagement has %d rows for %d users", len(eng.Scores), len(eng.Users))
	}
	if len(sim.Scores) != len(sim.Users) {
		return nil, invalid(ReasonShape, "similarity has %d rows for %d users", len(sim.Scores), len(sim.Users))
	}

	if len(sim.Users) != len(eng.Users) {
		return nil, invalid(ReasonUserMismatch, "engagement has %d users, similarity has %d", len(eng.Users), len(sim.Users))
	}
	for _, u := range eng.Users {
		if _, ok := simIndex[u]; !ok {
			return nil, invalid(ReasonUserMismatch, "user %q has engagement but no similarity row", u)
		}
	}

	engagement := make([][]float64, len(eng.Scores))
	positive := make([][]int, len(eng.Scores))
	for r, row := range eng.Scores {
		if len(row) != len(eng.Items) {
			return nil, invalid(ReasonShape, "engagement row %q has %d scores for %d items", eng.Users[r], len(row), len(eng.Items))
		}
		vals := make([]float64, len(row))
		for c, v := range row {
			if v == nil {
				continue
			}
			if math.IsNaN(*v) || math.IsInf(*v, 0) {
				return nil, invalid(ReasonInvalidValue, "engagement[%q][%q] is not finite", eng.Users[r], eng.Items[c])
			}
			vals[c] = *v
			if *v > 0 {
				positive[r] = append(positive[r], c)
			}
		}
		engagement[r] = vals
	}

	n := len(sim.Users)
	similarity := make([][]float64, n)
	for r, row := range sim.Scores {
		if len(row) != n {
			return nil, invalid(ReasonShape, "similarity row %q has %d scores for %d users", sim.Users[r], len(row), n)
		}
		vals := make([]float64, n)
		for c, v := range row {
			if v == nil {
				return nil, invalid(ReasonInvalidValue, "similarity[%q][%q] is null", sim.Users[r], sim.Users[c])
			}
			if math.IsNaN(*v) || math.IsInf(*v, 0) {
				return nil, invalid(ReasonInvalidValue, "similarity[%q][%q] is not finite", sim.Users[r], sim.Users[c])
			}
			vals[c] = *v
		}
		similarity[r] = vals
	}

	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			if math.Abs(similarity[a][b]-similarity[b][a]) > SymmetryTolerance {
				return nil, invalid(ReasonAsymmetric, "sim(%q,%q)=%g but sim(%q,%q)=%g",
					sim.Users[a], sim.Users[b], similarity[a][b],
					sim.Users[b], sim.Users[a], similarity[b][a])
			}
		}
	}

	return &Snapshot{
		trainedAt:  b.TrainedAt,
		items:      append([]string(nil), eng.Items...),
		engUsers:   append([]string(nil), eng.Users...),
		engIndex:   engIndex,
		engagement: engagement,
		positive:   positive,
		simUsers:   append([]string(nil), sim.Users...),
		simIndex:   simIndex,
		similarity: similarity,
	}, nil
}

func indexIDs(kind string, ids []string) (map[string]int, error) {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, invalid(ReasonIdentifiers, "%s at position %d is empty", kind, i)
		}
		if prev, dup := index[id]; dup {
			return nil, invalid(ReasonIdentifiers, "%s %q appears at positions %d and %d", kind, id, prev, i)
		}
		index[id] = i
	}
	return index, nil
}

// Version is the store-assigned version, 0 for snapshots never published.
func (s *Snapshot) Version() int64 { return s.version }

// Checksum is the SHA-256 of the bundle this snapshot was built from.
func (s *Snapshot) Checksum() string { return s.checksum }

// Source names where the bundle came from.
func (s *Snapshot) Source() string { return s.source }

// LoadedAt is when the snapshot was published.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// TrainedAt is the bundle's training timestamp, zero if the bundle had none.
func (s *Snapshot) TrainedAt() time.Time { return s.trainedAt }

// UserCount returns the number of users.
func (s *Snapshot) UserCount() int { return len(s.engUsers) }

// ItemCount returns the number of items.
func (s *Snapshot) ItemCount() int { return len(s.items) }

// Users returns the users in engagement-table order.
func (s *Snapshot) Users() []string { return s.engUsers }

// Items returns the items in engagement column order.
func (s *Snapshot) Items() []string { return s.items }

// ItemAt returns the item in engagement column i.
func (s *Snapshot) ItemAt(i int) string { return s.items[i] }

// HasUser reports whether user is a row of the engagement table.
func (s *Snapshot) HasUser(user string) bool {
	_, ok := s.engIndex[user]
	return ok
}

// Engagement returns user's scores in item column order.
func (s *Snapshot) Engagement(user string) ([]float64, bool) {
	r, ok := s.engIndex[user]
	if !ok {
		return nil, false
	}
	return s.engagement[r], true
}

// PositiveItems returns the column indexes of items user scored above zero,
// ascending.
func (s *Snapshot) PositiveItems(user string) ([]int, bool) {
	r, ok := s.engIndex[user]
	if !ok {
		return nil, false
	}
	return s.positive[r], true
}

// Similarity returns user's similarity row and the user's own column index
// in that row.
func (s *Snapshot) Similarity(user string) (row []float64, self int, ok bool) {
	r, ok := s.simIndex[user]
	if !ok {
		return nil, -1, false
	}
	return s.similarity[r], r, true
}

// SimilarityUserAt returns the user in similarity column i.
func (s *Snapshot) SimilarityUserAt(i int) string { return s.simUsers[i] }
