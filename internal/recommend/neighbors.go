// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package recommend

import (
	"sort"

	"github.com/tomtom215/coursemate/internal/model"
)

// selectNeighbors returns the k users most similar to user, most similar
// first. The user is excluded by position, not by score, so a peer with a
// perfect similarity still counts. Equal similarities keep column order.
func selectNeighbors(snap *model.Snapshot, user string, k int) []Neighbor {
	row, self, ok := snap.Similarity(user)
	if !ok {
		return nil
	}

	neighbors := make([]Neighbor, 0, len(row))
	for j, sim := range row {
		if j == self {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			UserID:     snap.SimilarityUserAt(j),
			Similarity: sim,
		})
	}

	sort.SliceStable(neighbors, func(a, b int) bool {
		return neighbors[a].Similarity > neighbors[b].Similarity
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

// collectItems walks the neighbors' positively scored items in order and
// returns up to n items user has not completed, without duplicates.
func collectItems(snap *model.Snapshot, user string, neighbors []Neighbor, n int) []string {
	// seen starts as the completed set and grows with every item taken.
	seen := make([]bool, snap.ItemCount())
	completed, _ := snap.PositiveItems(user)
	for _, c := range completed {
		seen[c] = true
	}

	items := make([]string, 0, n)
	for _, nb := range neighbors {
		offered, ok := snap.PositiveItems(nb.UserID)
		if !ok {
			continue
		}
		for _, c := range offered {
			if seen[c] {
				continue
			}
			seen[c] = true
			items = append(items, snap.ItemAt(c))
			if len(items) == n {
				return items
			}
		}
	}
	return items
}
