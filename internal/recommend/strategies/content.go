// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package strategies

import (
	"context"
	"fmt"
	"strings"

	"github.com/labboard/labboard/internal/recommend"
)

const (
	contentBase  = 0.85
	contentDecay = 0.03
)

// Content recommends items whose tags overlap the user's declared
// interests and skills. It needs no interaction history, which makes it
// the first strategy to fire for fresh profiles.
type Content struct {
	store        DataStore
	itemType     string
	historyLimit int
}

// NewContent creates the content-based strategy for one item type.
func NewContent(store DataStore, itemType string, historyLimit int) *Content {
	return &Content{store: store, itemType: itemType, historyLimit: historyLimit}
}

func (s *Content) Name() string { return "content" }

func (s *Content) Recommend(ctx context.Context, userID string, rctx recommend.Context) ([]recommend.Recommendation, error) {
	interests, err := s.store.Interests(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load interests: %w", err)
	}
	skills, err := s.store.Skills(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}

	tags := dedupeLower(append(interests, skills...))
	if len(tags) == 0 {
		return nil, nil
	}

	limit := resolveCandidateLimit(rctx.Limit)
	candidates, err := s.store.ItemsByTags(ctx, s.itemType, tags, limit*2)
	if err != nil {
		return nil, fmt.Errorf("match items by tags: %w", err)
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
		reason := "Matches your research profile"
		if cand.Label != "" {
			reason = fmt.Sprintf("Matches your interest in %s", cand.Label)
		}
		recs = append(recs, recommend.Recommendation{
			ItemID:    cand.ID,
			ItemType:  s.itemType,
			Score:     rankScore(contentBase, contentDecay, len(recs)),
			Reason:    reason,
			Algorithm: s.Name(),
			Metadata: map[string]string{
				"matched_tags": fmt.Sprintf("%.0f", cand.Weight),
			},
		})
		if len(recs) >= limit {
			break
		}
	}

	return recs, nil
}

// dedupeLower lowercases and deduplicates tags preserving order.
func dedupeLower(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
