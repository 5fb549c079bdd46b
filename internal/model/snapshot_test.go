// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/coursemate/internal/bundle"
)

func s(v float64) *float64 { return bundle.Score(v) }

// exampleBundle is the three-student worked example: A did x and z, B did x
// and y, C did y and z. A is much closer to B than to C.
func exampleBundle() *bundle.Bundle {
	return &bundle.Bundle{
		SchemaVersion: bundle.SchemaVersion,
		Engagement: &bundle.EngagementTable{
			Users: []string{"A", "B", "C"},
			Items: []string{"x", "y", "z"},
			Scores: [][]*float64{
				{s(1), s(0), s(1)},
				{s(1), s(1), s(0)},
				{s(0), s(1), s(1)},
			},
		},
		Similarity: &bundle.SimilarityTable{
			Users: []string{"A", "B", "C"},
			Scores: [][]*float64{
				{s(1), s(0.9), s(0.1)},
				{s(0.9), s(1), s(0.3)},
				{s(0.1), s(0.3), s(1)},
			},
		},
	}
}

func TestNewSnapshot_Valid(t *testing.T) {
	snap, err := NewSnapshot(exampleBundle())
	require.NoError(t, err)

	assert.Equal(t, 3, snap.UserCount())
	assert.Equal(t, 3, snap.ItemCount())
	assert.True(t, snap.HasUser("B"))
	assert.False(t, snap.HasUser("Z"))
	assert.Equal(t, "y", snap.ItemAt(1))

	row, ok := snap.Engagement("A")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 1}, row)

	pos, ok := snap.PositiveItems("B")
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, pos)

	simRow, self, ok := snap.Similarity("C")
	require.True(t, ok)
	assert.Equal(t, 2, self)
	assert.Equal(t, []float64{0.1, 0.3, 1}, simRow)
	assert.Equal(t, "B", snap.SimilarityUserAt(1))
}

func TestNewSnapshot_NullEngagementIsZero(t *testing.T) {
	b := exampleBundle()
	b.Engagement.Scores[0][0] = nil

	snap, err := NewSnapshot(b)
	require.NoError(t, err)

	row, _ := snap.Engagement("A")
	assert.Equal(t, []float64{0, 0, 1}, row)
	pos, _ := snap.PositiveItems("A")
	assert.Equal(t, []int{2}, pos)
}

func TestNewSnapshot_NegativeEngagementIsNotPositive(t *testing.T) {
	b := exampleBundle()
	b.Engagement.Scores[1][1] = s(-0.5)

	snap, err := NewSnapshot(b)
	require.NoError(t, err)
	pos, _ := snap.PositiveItems("B")
	assert.Equal(t, []int{0}, pos)
}

func TestNewSnapshot_DifferentUserOrder(t *testing.T) {
	b := exampleBundle()
	b.Similarity = &bundle.SimilarityTable{
		Users: []string{"C", "A", "B"},
		Scores: [][]*float64{
			{s(1), s(0.1), s(0.3)},
			{s(0.1), s(1), s(0.9)},
			{s(0.3), s(0.9), s(1)},
		},
	}

	snap, err := NewSnapshot(b)
	require.NoError(t, err)
	row, self, ok := snap.Similarity("A")
	require.True(t, ok)
	assert.Equal(t, 1, self)
	assert.InDelta(t, 0.9, row[2], 0)
}

func TestNewSnapshot_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *bundle.Bundle) *bundle.Bundle
		reason string
	}{
		{
			name:   "nil bundle",
			mutate: func(*bundle.Bundle) *bundle.Bundle { return nil },
			reason: ReasonMissingTable,
		},
		{
			name:   "unknown schema version",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.SchemaVersion = 2; return b },
			reason: ReasonSchema,
		},
		{
			name:   "missing engagement",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Engagement = nil; return b },
			reason: ReasonMissingTable,
		},
		{
			name:   "missing similarity",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Similarity = nil; return b },
			reason: ReasonMissingTable,
		},
		{
			name: "no users",
			mutate: func(b *bundle.Bundle) *bundle.Bundle {
				b.Engagement.Users, b.Engagement.Scores = nil, nil
				return b
			},
			reason: ReasonShape,
		},
		{
			name:   "empty user id",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Engagement.Users[1] = " "; return b },
			reason: ReasonIdentifiers,
		},
		{
			name:   "duplicate item",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Engagement.Items[2] = "x"; return b },
			reason: ReasonIdentifiers,
		},
		{
			name:   "duplicate similarity user",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Similarity.Users[2] = "A"; return b },
			reason: ReasonIdentifiers,
		},
		{
			name:   "short engagement row",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Engagement.Scores[2] = b.Engagement.Scores[2][:2]; return b },
			reason: ReasonShape,
		},
		{
			name:   "missing engagement row",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Engagement.Scores = b.Engagement.Scores[:2]; return b },
			reason: ReasonShape,
		},
		{
			name:   "non-square similarity",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Similarity.Scores[0] = b.Similarity.Scores[0][:2]; return b },
			reason: ReasonShape,
		},
		{
			name:   "user sets differ",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Similarity.Users[2] = "D"; return b },
			reason: ReasonUserMismatch,
		},
		{
			name: "user counts differ",
			mutate: func(b *bundle.Bundle) *bundle.Bundle {
				b.Similarity.Users = b.Similarity.Users[:2]
				b.Similarity.Scores = [][]*float64{{s(1), s(0.9)}, {s(0.9), s(1)}}
				return b
			},
			reason: ReasonUserMismatch,
		},
		{
			name:   "null similarity",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Similarity.Scores[0][1] = nil; return b },
			reason: ReasonInvalidValue,
		},
		{
			name:   "NaN engagement",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Engagement.Scores[0][1] = s(math.NaN()); return b },
			reason: ReasonInvalidValue,
		},
		{
			name:   "infinite similarity",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Similarity.Scores[1][1] = s(math.Inf(1)); return b },
			reason: ReasonInvalidValue,
		},
		{
			name:   "asymmetric similarity",
			mutate: func(b *bundle.Bundle) *bundle.Bundle { b.Similarity.Scores[2][0] = s(0.2); return b },
			reason: ReasonAsymmetric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSnapshot(tt.mutate(exampleBundle()))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrModelLoad)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.reason, le.Reason)
		})
	}
}

func TestNewSnapshot_SymmetryTolerance(t *testing.T) {
	b := exampleBundle()
	b.Similarity.Scores[2][0] = s(0.1 + SymmetryTolerance/2)

	_, err := NewSnapshot(b)
	require.NoError(t, err)
}

func TestNewSnapshot_CopiesInput(t *testing.T) {
	b := exampleBundle()
	snap, err := NewSnapshot(b)
	require.NoError(t, err)

	b.Engagement.Items[0] = "changed"
	*b.Engagement.Scores[0][0] = 42

	assert.Equal(t, "x", snap.ItemAt(0))
	row, _ := snap.Engagement("A")
	assert.InDelta(t, 1.0, row[0], 0)
}

func TestLoadError(t *testing.T) {
	cause := errors.New("disk on fire")
	err := &LoadError{Source: "file:///m.json", Reason: ReasonUnreadable, Err: cause}

	assert.ErrorIs(t, err, ErrModelLoad)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "file:///m.json")
	assert.Contains(t, err.Error(), "unreadable")
	assert.NotContains(t, (&LoadError{Reason: ReasonSchema, Err: cause}).Error(), " from ")
}
