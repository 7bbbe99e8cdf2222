// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package strategies

import (
	"context"
	"fmt"
	"sort"

	"github.com/labboard/labboard/internal/recommend"
)

const itemSimBase = 0.88

// ItemSimilarity recommends items similar to the user's recent history
// using the precomputed pairwise index. Unlike the other strategies its
// score is not purely positional: the stored Jaccard score scales the
// base, so a strong neighbor of one history item can outrank a weak
// neighbor of several.
type ItemSimilarity struct {
	store        DataStore
	itemType     string
	historyLimit int
}

// NewItemSimilarity creates the similarity index strategy for one item
// type.
func NewItemSimilarity(store DataStore, itemType string, historyLimit int) *ItemSimilarity {
	return &ItemSimilarity{store: store, itemType: itemType, historyLimit: historyLimit}
}

func (s *ItemSimilarity) Name() string { return "item_similarity" }

func (s *ItemSimilarity) Recommend(ctx context.Context, userID string, rctx recommend.Context) ([]recommend.Recommendation, error) {
	ownItems, err := s.store.UserItemIDs(ctx, userID, s.itemType, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load user history: %w", err)
	}

	// Anchor on the item in view when there is one; the index lookup is
	// the same either way.
	anchors := ownItems
	if rctx.CurrentItemID != "" && rctx.CurrentItemType == s.itemType {
		anchors = append([]string{rctx.CurrentItemID}, ownItems...)
	}
	if len(anchors) == 0 {
		return nil, nil
	}

	limit := resolveCandidateLimit(rctx.Limit)
	pairs, err := s.store.SimilarToItems(ctx, s.itemType, anchors, limit*2)
	if err != nil {
		return nil, fmt.Errorf("read similarity index: %w", err)
	}

	anchorSet := toSet(anchors)
	own := toSet(ownItems)

	// One candidate can neighbor several anchors; keep its best score.
	bestScore := make(map[string]float64)
	for _, pair := range pairs {
		for _, side := range []string{pair.ItemID1, pair.ItemID2} {
			other := pair.Other(side)
			if _, ok := anchorSet[side]; !ok {
				continue
			}
			if _, ok := own[other]; ok {
				continue
			}
			if _, ok := anchorSet[other]; ok {
				continue
			}
			if pair.Score > bestScore[other] {
				bestScore[other] = pair.Score
			}
		}
	}

	ids := make([]string, 0, len(bestScore))
	for id := range bestScore {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if bestScore[ids[i]] != bestScore[ids[j]] {
			return bestScore[ids[i]] > bestScore[ids[j]]
		}
		return ids[i] < ids[j]
	})

	if len(ids) > limit {
		ids = ids[:limit]
	}

	recs := make([]recommend.Recommendation, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, recommend.Recommendation{
			ItemID:    id,
			ItemType:  s.itemType,
			Score:     itemSimBase * bestScore[id],
			Reason:    "Similar to items you have worked with",
			Algorithm: s.Name(),
			Metadata: map[string]string{
				"similarity": fmt.Sprintf("%.3f", bestScore[id]),
			},
		})
	}

	return recs, nil
}
