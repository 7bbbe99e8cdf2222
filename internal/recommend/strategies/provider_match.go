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
	providerMatchBase  = 0.90
	providerMatchDecay = 0.03
)

// ProviderMatch recommends service providers for one specific service
// request, ranked by how many of the request's required skills each
// provider declares. It only fires when the request context carries a
// request id.
type ProviderMatch struct {
	store DataStore
}

// NewProviderMatch creates the provider matching strategy.
func NewProviderMatch(store DataStore) *ProviderMatch {
	return &ProviderMatch{store: store}
}

func (s *ProviderMatch) Name() string { return "provider_match" }

func (s *ProviderMatch) Recommend(ctx context.Context, userID string, rctx recommend.Context) ([]recommend.Recommendation, error) {
	if rctx.RequestID == "" {
		return nil, nil
	}

	skills, err := s.store.RequestSkills(ctx, rctx.RequestID)
	if err != nil {
		return nil, fmt.Errorf("load request skills: %w", err)
	}
	skills = dedupeLower(skills)
	if len(skills) == 0 {
		return nil, nil
	}

	limit := resolveCandidateLimit(rctx.Limit)
	providers, err := s.store.ProvidersBySkills(ctx, skills, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("match providers by skills: %w", err)
	}

	recs := make([]recommend.Recommendation, 0, len(providers))
	for _, p := range providers {
		reason := "Offers the skills this request needs"
		if p.Label != "" {
			reason = fmt.Sprintf("Offers %s", p.Label)
		}
		recs = append(recs, recommend.Recommendation{
			ItemID:    p.ID,
			ItemType:  recommend.ItemTypeService,
			Score:     rankScore(providerMatchBase, providerMatchDecay, len(recs)),
			Reason:    reason,
			Algorithm: s.Name(),
			Metadata: map[string]string{
				"matched_skills":  fmt.Sprintf("%.0f", p.Weight),
				"required_skills": fmt.Sprintf("%d", len(skills)),
			},
		})
		if len(recs) >= limit {
			break
		}
	}

	return recs, nil
}
