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

const (
	collaborativeBase  = 0.90
	collaborativeDecay = 0.03

	// minOverlap is how many shared items make another user a neighbor.
	minOverlap = 2
)

// Collaborative recommends items that users with overlapping interaction
// histories have interacted with. It finds neighbors through shared
// items, then surfaces the neighbors' items the target user has not
// touched yet.
type Collaborative struct {
	store        DataStore
	itemType     string
	historyLimit int
}

// NewCollaborative creates the collaborative filtering strategy for one
// item type.
func NewCollaborative(store DataStore, itemType string, historyLimit int) *Collaborative {
	return &Collaborative{store: store, itemType: itemType, historyLimit: historyLimit}
}

func (s *Collaborative) Name() string { return "collaborative" }

func (s *Collaborative) Recommend(ctx context.Context, userID string, rctx recommend.Context) ([]recommend.Recommendation, error) {
	ownItems, err := s.store.UserItemIDs(ctx, userID, s.itemType, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load user history: %w", err)
	}
	if len(ownItems) == 0 {
		return nil, nil
	}

	overlaps, err := s.store.CoInteractors(ctx, userID, s.itemType, ownItems)
	if err != nil {
		return nil, fmt.Errorf("find co-interactors: %w", err)
	}

	neighbors := make([]string, 0, len(overlaps))
	for uid, overlap := range overlaps {
		if overlap >= minOverlap {
			neighbors = append(neighbors, uid)
		}
	}
	if len(neighbors) == 0 {
		return nil, nil
	}
	sort.Strings(neighbors)

	limit := resolveCandidateLimit(rctx.Limit)
	candidates, err := s.store.ItemsForUsers(ctx, s.itemType, neighbors, limit+len(ownItems))
	if err != nil {
		return nil, fmt.Errorf("load neighbor items: %w", err)
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
			Score:     rankScore(collaborativeBase, collaborativeDecay, len(recs)),
			Reason:    "Researchers with similar activity also used this",
			Algorithm: s.Name(),
			Metadata: map[string]string{
				"neighbor_users": fmt.Sprintf("%d", len(neighbors)),
				"neighbor_count": fmt.Sprintf("%.0f", cand.Weight),
			},
		})
		if len(recs) >= limit {
			break
		}
	}

	return recs, nil
}

// resolveCandidateLimit converts the request limit to a per-strategy
// fetch size. Strategies over-fetch slightly so the merge still fills
// the list after deduplication.
func resolveCandidateLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	}
	return limit * 2
}
