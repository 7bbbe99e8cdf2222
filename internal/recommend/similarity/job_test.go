// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labboard/labboard/internal/recommend"
)

type fakeSimStore struct {
	userSets map[string]map[string]struct{}
	loadErr  error

	stored    []recommend.ItemSimilarity
	failPairs map[string]error
}

func users(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (f *fakeSimStore) ItemUserSets(_ context.Context, _ string) (map[string]map[string]struct{}, error) {
	return f.userSets, f.loadErr
}

func (f *fakeSimStore) UpsertSimilarity(_ context.Context, sim recommend.ItemSimilarity) error {
	key := sim.ItemID1 + "|" + sim.ItemID2
	if err, ok := f.failPairs[key]; ok {
		return err
	}
	f.stored = append(f.stored, sim)
	return nil
}

func TestRunComputesJaccard(t *testing.T) {
	store := &fakeSimStore{userSets: map[string]map[string]struct{}{
		"item1": users("u1", "u2", "u3", "u4"),
		"item2": users("u2", "u3", "u4", "u5"),
	}}

	job := NewJob(store, Config{MinCommonUsers: 3, MinSimilarity: 0.1})
	stats, err := job.Run(context.Background(), "protocol")
	require.NoError(t, err)

	require.Len(t, store.stored, 1)
	sim := store.stored[0]
	assert.Equal(t, "item1", sim.ItemID1)
	assert.Equal(t, "item2", sim.ItemID2)
	assert.InDelta(t, 0.6, sim.Score, 1e-9)
	assert.Equal(t, 3, sim.SampleSize)
	assert.Equal(t, Method, sim.Method)
	assert.False(t, sim.LastCalculated.IsZero())

	assert.Equal(t, 2, stats.Items)
	assert.Equal(t, 1, stats.PairsExamined)
	assert.Equal(t, 1, stats.PairsStored)
}

func TestRunPrunesBelowMinCommonUsers(t *testing.T) {
	store := &fakeSimStore{userSets: map[string]map[string]struct{}{
		"a": users("u1", "u2"),
		"b": users("u1", "u2"),
	}}

	job := NewJob(store, Config{MinCommonUsers: 3, MinSimilarity: 0.1})
	stats, err := job.Run(context.Background(), "protocol")
	require.NoError(t, err)
	assert.Empty(t, store.stored)
	assert.Equal(t, 1, stats.PairsExamined)
}

func TestRunDiscardsNoiseFloor(t *testing.T) {
	// 3 common out of 30 distinct gives 0.1, which is at the floor and
	// must be dropped.
	a := users("u1", "u2", "u3")
	b := make(map[string]struct{})
	for _, u := range []string{"u1", "u2", "u3"} {
		b[u] = struct{}{}
	}
	for i := 0; i < 27; i++ {
		b[string(rune('A'+i))] = struct{}{}
	}

	store := &fakeSimStore{userSets: map[string]map[string]struct{}{"a": a, "b": b}}
	job := NewJob(store, Config{MinCommonUsers: 3, MinSimilarity: 0.1})
	_, err := job.Run(context.Background(), "protocol")
	require.NoError(t, err)
	assert.Empty(t, store.stored)
}

func TestRunCanonicalPairOrdering(t *testing.T) {
	store := &fakeSimStore{userSets: map[string]map[string]struct{}{
		"zzz": users("u1", "u2", "u3"),
		"aaa": users("u1", "u2", "u3"),
	}}

	job := NewJob(store, Config{})
	_, err := job.Run(context.Background(), "paper")
	require.NoError(t, err)

	require.Len(t, store.stored, 1)
	assert.Equal(t, "aaa", store.stored[0].ItemID1)
	assert.Equal(t, "zzz", store.stored[0].ItemID2)
	assert.Less(t, store.stored[0].ItemID1, store.stored[0].ItemID2)
}

func TestRunContinuesPastUpsertFailure(t *testing.T) {
	shared := users("u1", "u2", "u3")
	store := &fakeSimStore{
		userSets: map[string]map[string]struct{}{
			"a": shared, "b": shared, "c": shared,
		},
		failPairs: map[string]error{"a|b": errors.New("constraint violation")},
	}

	job := NewJob(store, Config{})
	stats, err := job.Run(context.Background(), "protocol")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.PairsFailed)
	assert.Equal(t, 2, stats.PairsStored)
	require.Len(t, store.stored, 2)
}

func TestRunFatalOnLoadFailure(t *testing.T) {
	store := &fakeSimStore{loadErr: errors.New("ledger unavailable")}
	job := NewJob(store, Config{})
	_, err := job.Run(context.Background(), "protocol")
	assert.Error(t, err)
}

func TestRunHonorsCancellation(t *testing.T) {
	shared := users("u1", "u2", "u3")
	store := &fakeSimStore{userSets: map[string]map[string]struct{}{
		"a": shared, "b": shared, "c": shared, "d": shared,
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewJob(store, Config{})
	_, err := job.Run(ctx, "protocol")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIntersectionSize(t *testing.T) {
	assert.Equal(t, 2, intersectionSize(users("a", "b", "c"), users("b", "c", "d")))
	assert.Equal(t, 0, intersectionSize(users("a"), users("b")))
	assert.Equal(t, 0, intersectionSize(nil, users("a")))
}
