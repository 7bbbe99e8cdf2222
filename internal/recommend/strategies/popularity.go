// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package strategies

import (
	"context"
	"fmt"
	"time"

	"github.com/labboard/labboard/internal/recommend"
)

const (
	popularityBase  = 0.60
	popularityDecay = 0.02
)

// Popularity recommends the most interacted-with items inside a recent
// window. It is the cold-start fallback: it needs nothing from the
// user, narrows by declared interests when a profile exists, and
// widens back out when that narrowing leaves nothing. Its base score
// sits below every personalized strategy so popular items only fill
// the gaps.
type Popularity struct {
	store        DataStore
	itemType     string
	window       time.Duration
	historyLimit int
}

// NewPopularity creates the popularity strategy for one item type.
func NewPopularity(store DataStore, itemType string, window time.Duration, historyLimit int) *Popularity {
	return &Popularity{store: store, itemType: itemType, window: window, historyLimit: historyLimit}
}

func (s *Popularity) Name() string { return "popularity" }

func (s *Popularity) Recommend(ctx context.Context, userID string, rctx recommend.Context) ([]recommend.Recommendation, error) {
	// Interests narrow the pool when present; a profile load failure
	// falls back to the unfiltered ranking rather than failing cold start.
	categories, err := s.store.Interests(ctx, userID)
	if err != nil {
		categories = nil
	}

	limit := resolveCandidateLimit(rctx.Limit)
	filter := dedupeLower(categories)
	candidates, err := s.store.PopularItems(ctx, s.itemType, s.window, filter, limit*2)
	if err != nil {
		return nil, fmt.Errorf("load popular items: %w", err)
	}

	// Interests that match nothing in the catalog must not defeat the
	// cold-start guarantee; widen to the unfiltered ranking.
	if len(candidates) == 0 && len(filter) > 0 {
		candidates, err = s.store.PopularItems(ctx, s.itemType, s.window, nil, limit*2)
		if err != nil {
			return nil, fmt.Errorf("load popular items: %w", err)
		}
	}

	ownItems, err := s.store.UserItemIDs(ctx, userID, s.itemType, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load user history: %w", err)
	}
	own := toSet(ownItems)

	recs := make([]recommend.Recommendation, 0, limit)
	for _, cand := range candidates {
		if _, ok := own[cand.ID]; ok {
			continue
		}
		recs = append(recs, recommend.Recommendation{
			ItemID:    cand.ID,
			ItemType:  s.itemType,
			Score:     rankScore(popularityBase, popularityDecay, len(recs)),
			Reason:    "Popular in the community right now",
			Algorithm: s.Name(),
			Metadata: map[string]string{
				"interactions": fmt.Sprintf("%.0f", cand.Weight),
			},
		})
		if len(recs) >= limit {
			break
		}
	}

	return recs, nil
}
