// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package strategies

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labboard/labboard/internal/recommend"
)

// fakeStore is an in-memory DataStore with canned responses per method.
type fakeStore struct {
	userItems     map[string][]string
	coInteractors map[string]int
	itemsForUsers []RankedItem
	interests     []string
	skills        []string
	itemsByTags   []RankedItem
	itemsByRel    []RankedItem
	projectTexts  []string
	queryTexts    []string

	// popular answers unfiltered calls, popularFiltered answers calls
	// narrowed by categories.
	popular         []RankedItem
	popularFiltered []RankedItem

	similar       []recommend.ItemSimilarity
	requestSkills []string
	providers     []RankedItem

	err error
}

func (f *fakeStore) UserItemIDs(_ context.Context, userID, _ string, _ int) ([]string, error) {
	return f.userItems[userID], f.err
}

func (f *fakeStore) CoInteractors(_ context.Context, _, _ string, _ []string) (map[string]int, error) {
	return f.coInteractors, f.err
}

func (f *fakeStore) ItemsForUsers(_ context.Context, _ string, _ []string, _ int) ([]RankedItem, error) {
	return f.itemsForUsers, f.err
}

func (f *fakeStore) Interests(_ context.Context, _ string) ([]string, error) {
	return f.interests, f.err
}

func (f *fakeStore) Skills(_ context.Context, _ string) ([]string, error) {
	return f.skills, f.err
}

func (f *fakeStore) ItemsByTags(_ context.Context, _ string, _ []string, _ int) ([]RankedItem, error) {
	return f.itemsByTags, f.err
}

func (f *fakeStore) ItemsByRelevance(_ context.Context, _ string, _ []string, _ int) ([]RankedItem, error) {
	return f.itemsByRel, f.err
}

func (f *fakeStore) ProjectTexts(_ context.Context, _ string, _ int) ([]string, error) {
	return f.projectTexts, f.err
}

func (f *fakeStore) RecentQueryTexts(_ context.Context, _ string, _ int) ([]string, error) {
	return f.queryTexts, f.err
}

func (f *fakeStore) PopularItems(_ context.Context, _ string, _ time.Duration, categories []string, _ int) ([]RankedItem, error) {
	if len(categories) > 0 {
		return f.popularFiltered, f.err
	}
	return f.popular, f.err
}

func (f *fakeStore) SimilarToItems(_ context.Context, _ string, _ []string, _ int) ([]recommend.ItemSimilarity, error) {
	return f.similar, f.err
}

func (f *fakeStore) RequestSkills(_ context.Context, _ string) ([]string, error) {
	return f.requestSkills, f.err
}

func (f *fakeStore) ProvidersBySkills(_ context.Context, _ []string, _ string, _ int) ([]RankedItem, error) {
	return f.providers, f.err
}

func TestCollaborativeRecommends(t *testing.T) {
	store := &fakeStore{
		userItems:     map[string][]string{"u1": {"p1", "p2"}},
		coInteractors: map[string]int{"u2": 2, "u3": 1},
		itemsForUsers: []RankedItem{{ID: "p3", Weight: 2}, {ID: "p1", Weight: 2}, {ID: "p4", Weight: 1}},
	}

	s := NewCollaborative(store, recommend.ItemTypeProtocol, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 2, "own items are excluded")

	assert.Equal(t, "p3", recs[0].ItemID)
	assert.InDelta(t, 0.90, recs[0].Score, 1e-9)
	assert.Equal(t, "p4", recs[1].ItemID)
	assert.InDelta(t, 0.87, recs[1].Score, 1e-9)
	assert.Equal(t, "collaborative", recs[0].Algorithm)
	assert.NotEmpty(t, recs[0].Reason)
}

func TestCollaborativeNoHistory(t *testing.T) {
	s := NewCollaborative(&fakeStore{}, recommend.ItemTypeProtocol, 200)
	recs, err := s.Recommend(context.Background(), "new-user", recommend.Context{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCollaborativeRequiresMinOverlap(t *testing.T) {
	store := &fakeStore{
		userItems:     map[string][]string{"u1": {"p1", "p2"}},
		coInteractors: map[string]int{"u2": 1},
		itemsForUsers: []RankedItem{{ID: "p3", Weight: 1}},
	}

	s := NewCollaborative(store, recommend.ItemTypeProtocol, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{})
	require.NoError(t, err)
	assert.Empty(t, recs, "single-item overlap is not a neighbor")
}

func TestItemSimilarityRecommends(t *testing.T) {
	store := &fakeStore{
		userItems: map[string][]string{"u1": {"p1"}},
		similar: []recommend.ItemSimilarity{
			{ItemType: recommend.ItemTypeProtocol, ItemID1: "p1", ItemID2: "p5", Score: 0.6},
			{ItemType: recommend.ItemTypeProtocol, ItemID1: "p1", ItemID2: "p6", Score: 0.3},
		},
	}

	s := NewItemSimilarity(store, recommend.ItemTypeProtocol, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "p5", recs[0].ItemID)
	assert.InDelta(t, 0.88*0.6, recs[0].Score, 1e-9)
	assert.Equal(t, "p6", recs[1].ItemID)
}

func TestItemSimilarityExcludesHistory(t *testing.T) {
	store := &fakeStore{
		userItems: map[string][]string{"u1": {"p1", "p5"}},
		similar: []recommend.ItemSimilarity{
			{ItemType: recommend.ItemTypeProtocol, ItemID1: "p1", ItemID2: "p5", Score: 0.6},
		},
	}

	s := NewItemSimilarity(store, recommend.ItemTypeProtocol, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestItemSimilarityAnchorsOnCurrentItem(t *testing.T) {
	store := &fakeStore{
		similar: []recommend.ItemSimilarity{
			{ItemType: recommend.ItemTypeProtocol, ItemID1: "p1", ItemID2: "p5", Score: 0.6},
		},
	}

	s := NewItemSimilarity(store, recommend.ItemTypeProtocol, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{
		CurrentItemID:   "p1",
		CurrentItemType: recommend.ItemTypeProtocol,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p5", recs[0].ItemID)
}

func TestContentRecommends(t *testing.T) {
	store := &fakeStore{
		interests:   []string{"CRISPR", "genomics"},
		skills:      []string{"crispr"},
		itemsByTags: []RankedItem{{ID: "p7", Weight: 2, Label: "crispr"}, {ID: "p8", Weight: 1}},
	}

	s := NewContent(store, recommend.ItemTypeProtocol, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "p7", recs[0].ItemID)
	assert.InDelta(t, 0.85, recs[0].Score, 1e-9)
	assert.Contains(t, recs[0].Reason, "crispr")
}

func TestContentNoProfile(t *testing.T) {
	s := NewContent(&fakeStore{}, recommend.ItemTypeProtocol, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestProjectContextRecommends(t *testing.T) {
	store := &fakeStore{
		projectTexts: []string{"Protein folding simulation pipeline"},
		itemsByRel:   []RankedItem{{ID: "paper1", Weight: 2}},
	}

	s := NewProjectContext(store, recommend.ItemTypePaper, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 0.80, recs[0].Score, 1e-9)
	assert.Equal(t, "project_context", recs[0].Algorithm)
}

func TestQueryHistoryRecommends(t *testing.T) {
	store := &fakeStore{
		queryTexts: []string{"how to calibrate a mass spectrometer"},
		itemsByRel: []RankedItem{{ID: "paper2", Weight: 1}},
	}

	s := NewQueryHistory(store, recommend.ItemTypePaper, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 0.75, recs[0].Score, 1e-9)
	assert.Equal(t, "query_history", recs[0].Algorithm)
}

func TestPopularityRecommends(t *testing.T) {
	store := &fakeStore{
		userItems: map[string][]string{"u1": {"p1"}},
		popular:   []RankedItem{{ID: "p1", Weight: 50}, {ID: "p2", Weight: 40}, {ID: "p3", Weight: 30}},
	}

	s := NewPopularity(store, recommend.ItemTypeProtocol, 90*24*time.Hour, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 2, "interacted items excluded")

	assert.Equal(t, "p2", recs[0].ItemID)
	assert.InDelta(t, 0.60, recs[0].Score, 1e-9)
	assert.InDelta(t, 0.58, recs[1].Score, 1e-9)
}

func TestPopularityPrefersInterestFilteredPool(t *testing.T) {
	store := &fakeStore{
		interests:       []string{"genomics"},
		popular:         []RankedItem{{ID: "p9", Weight: 90}},
		popularFiltered: []RankedItem{{ID: "p2", Weight: 40}},
	}

	s := NewPopularity(store, recommend.ItemTypeProtocol, 90*24*time.Hour, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p2", recs[0].ItemID)
}

func TestPopularityWidensWhenInterestsMatchNothing(t *testing.T) {
	store := &fakeStore{
		interests: []string{"astrobiology"},
		popular:   []RankedItem{{ID: "p2", Weight: 40}, {ID: "p3", Weight: 30}},
	}

	s := NewPopularity(store, recommend.ItemTypeProtocol, 90*24*time.Hour, 200)
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 2, "off-catalog interests fall back to the unfiltered ranking")
	assert.Equal(t, "p2", recs[0].ItemID)
}

func TestPopularityScoresBelowPersonalized(t *testing.T) {
	assert.Less(t, popularityBase, contentBase)
	assert.Less(t, popularityBase, collaborativeBase)
	assert.Less(t, popularityBase, queryBase)
}

func TestProviderMatchRecommends(t *testing.T) {
	store := &fakeStore{
		requestSkills: []string{"Mass Spectrometry", "HPLC"},
		providers:     []RankedItem{{ID: "svc1", Weight: 2, Label: "mass spectrometry"}, {ID: "svc2", Weight: 1}},
	}

	s := NewProviderMatch(store)
	recs, err := s.Recommend(context.Background(), "requester", recommend.Context{RequestID: "req1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "svc1", recs[0].ItemID)
	assert.Equal(t, recommend.ItemTypeService, recs[0].ItemType)
	assert.Contains(t, recs[0].Reason, "mass spectrometry")
}

func TestProviderMatchWithoutRequestID(t *testing.T) {
	s := NewProviderMatch(&fakeStore{requestSkills: []string{"hplc"}})
	recs, err := s.Recommend(context.Background(), "u1", recommend.Context{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStrategiesPropagateStoreErrors(t *testing.T) {
	store := &fakeStore{
		err:       errors.New("db closed"),
		userItems: map[string][]string{"u1": {"p1"}},
	}

	_, err := NewCollaborative(store, recommend.ItemTypeProtocol, 200).
		Recommend(context.Background(), "u1", recommend.Context{})
	assert.Error(t, err)

	_, err = NewContent(store, recommend.ItemTypeProtocol, 200).
		Recommend(context.Background(), "u1", recommend.Context{})
	assert.Error(t, err)
}

func TestExtractKeywords(t *testing.T) {
	keywords := extractKeywords([]string{
		"Protein folding, protein STRUCTURE",
		"the and for with short",
	}, 10)

	assert.Equal(t, []string{"protein", "folding", "structure", "short"}, keywords)
}

func TestExtractKeywordsCap(t *testing.T) {
	keywords := extractKeywords([]string{
		"alpha1 bravo2 charlie delta1 echo12 foxtrot",
	}, 3)
	assert.Len(t, keywords, 3)
}

func TestRankScoreFloorsAtZero(t *testing.T) {
	assert.Equal(t, 0.0, rankScore(0.1, 0.03, 50))
}
