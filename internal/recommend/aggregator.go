// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package recommend

import (
	"sort"
)

// itemKey identifies a recommendable item across strategy outputs.
type itemKey struct {
	itemType string
	itemID   string
}

// Aggregate merges per-strategy candidate lists into one ranked result.
//
// Duplicates by (item type, item id) collapse to a single entry keeping
// the strictly higher score, so the first strategy to propose an item
// wins ties and its reason survives. The merged list is sorted by score
// descending with item id as a deterministic tiebreak, then truncated
// to limit.
func Aggregate(lists [][]Recommendation, limit int) []Recommendation {
	best := make(map[itemKey]Recommendation)

	for _, list := range lists {
		for _, rec := range list {
			key := itemKey{itemType: rec.ItemType, itemID: rec.ItemID}
			if existing, ok := best[key]; ok && rec.Score <= existing.Score {
				continue
			}
			best[key] = rec
		}
	}

	merged := make([]Recommendation, 0, len(best))
	for _, rec := range best {
		merged = append(merged, rec)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if merged[i].ItemType != merged[j].ItemType {
			return merged[i].ItemType < merged[j].ItemType
		}
		return merged[i].ItemID < merged[j].ItemID
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	return merged
}
