// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package strategies

import (
	"context"
	"fmt"

	"github.com/labboard/labboard/internal/recommend"
)

const (
	projectBase  = 0.80
	projectDecay = 0.03

	queryBase  = 0.75
	queryDecay = 0.03

	// maxKeywords caps keyword extraction per signal source.
	maxKeywords = 10
)

// ProjectContext recommends items relevant to the user's active
// projects. Project titles and descriptions are reduced to keywords and
// matched against item titles and tags.
type ProjectContext struct {
	store        DataStore
	itemType     string
	historyLimit int
	projectLimit int
}

// NewProjectContext creates the project-context strategy for one item
// type.
func NewProjectContext(store DataStore, itemType string, historyLimit int) *ProjectContext {
	return &ProjectContext{store: store, itemType: itemType, historyLimit: historyLimit, projectLimit: 5}
}

func (s *ProjectContext) Name() string { return "project_context" }

func (s *ProjectContext) Recommend(ctx context.Context, userID string, rctx recommend.Context) ([]recommend.Recommendation, error) {
	texts, err := s.store.ProjectTexts(ctx, userID, s.projectLimit)
	if err != nil {
		return nil, fmt.Errorf("load project texts: %w", err)
	}
	return recommendByKeywords(ctx, s.store, s.itemType, s.historyLimit, userID, rctx,
		texts, s.Name(), "Relevant to your active projects", projectBase, projectDecay)
}

// QueryHistory recommends items relevant to the user's recent research
// assistant queries, on the theory that what a user asks about is what
// they are working on right now.
type QueryHistory struct {
	store        DataStore
	itemType     string
	historyLimit int
	queryLimit   int
}

// NewQueryHistory creates the query-history strategy for one item type.
func NewQueryHistory(store DataStore, itemType string, historyLimit int) *QueryHistory {
	return &QueryHistory{store: store, itemType: itemType, historyLimit: historyLimit, queryLimit: 20}
}

func (s *QueryHistory) Name() string { return "query_history" }

func (s *QueryHistory) Recommend(ctx context.Context, userID string, rctx recommend.Context) ([]recommend.Recommendation, error) {
	texts, err := s.store.RecentQueryTexts(ctx, userID, s.queryLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent queries: %w", err)
	}
	return recommendByKeywords(ctx, s.store, s.itemType, s.historyLimit, userID, rctx,
		texts, s.Name(), "Related to your recent questions", queryBase, queryDecay)
}

// recommendByKeywords is the shared keyword-match path for the two
// contextual strategies.
func recommendByKeywords(ctx context.Context, store DataStore, itemType string, historyLimit int,
	userID string, rctx recommend.Context, texts []string, algorithm, reason string,
	base, decay float64) ([]recommend.Recommendation, error) {

	keywords := extractKeywords(texts, maxKeywords)
	if len(keywords) == 0 {
		return nil, nil
	}

	limit := resolveCandidateLimit(rctx.Limit)
	candidates, err := store.ItemsByRelevance(ctx, itemType, keywords, limit*2)
	if err != nil {
		return nil, fmt.Errorf("match items by keywords: %w", err)
	}

	ownItems, err := store.UserItemIDs(ctx, userID, itemType, historyLimit)
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
			ItemType:  itemType,
			Score:     rankScore(base, decay, len(recs)),
			Reason:    reason,
			Algorithm: algorithm,
			Metadata: map[string]string{
				"matched_keywords": fmt.Sprintf("%.0f", cand.Weight),
			},
		})
		if len(recs) >= limit {
			break
		}
	}

	return recs, nil
}
