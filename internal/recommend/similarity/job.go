// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

// Package similarity implements the offline batch job that keeps the
// pairwise item similarity index current. The job recomputes Jaccard
// similarity over distinct interacting users for every item pair of a
// type and upserts qualifying pairs, so reads between runs always see
// the previous complete snapshot.
package similarity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/labboard/labboard/internal/logging"
	"github.com/labboard/labboard/internal/metrics"
	"github.com/labboard/labboard/internal/recommend"
)

// Method is the similarity method recorded on every stored pair.
const Method = "jaccard"

// Store is the persistence surface the batch job needs.
type Store interface {
	// ItemUserSets returns, per item of the given type, the set of
	// distinct users that interacted with it.
	ItemUserSets(ctx context.Context, itemType string) (map[string]map[string]struct{}, error)

	// UpsertSimilarity inserts or replaces one canonical pair row.
	UpsertSimilarity(ctx context.Context, sim recommend.ItemSimilarity) error
}

// Config tunes one batch job.
type Config struct {
	// MinCommonUsers prunes pairs with fewer co-interacting users.
	MinCommonUsers int

	// MinSimilarity is the noise floor; scores at or below it are
	// discarded rather than stored.
	MinSimilarity float64

	// UpsertsPerSecond throttles index writes. 0 disables throttling.
	UpsertsPerSecond int
}

func (c Config) withDefaults() Config {
	if c.MinCommonUsers <= 0 {
		c.MinCommonUsers = 3
	}
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = 0.1
	}
	return c
}

// RunStats summarizes one batch run.
type RunStats struct {
	Items         int
	PairsExamined int
	PairsStored   int
	PairsFailed   int
	Elapsed       time.Duration
}

// Job computes and stores pairwise Jaccard similarities for one item
// type at a time.
type Job struct {
	store   Store
	cfg     Config
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewJob creates a batch job.
func NewJob(store Store, cfg Config) *Job {
	cfg = cfg.withDefaults()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.UpsertsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.UpsertsPerSecond), cfg.UpsertsPerSecond)
	}

	return &Job{
		store:   store,
		cfg:     cfg,
		limiter: limiter,
		logger:  logging.With().Str("component", "similarity").Logger(),
	}
}

// Run recomputes the index for one item type. Loading the interaction
// ledger is fatal for the run; a failed upsert skips that pair and the
// run continues.
func (j *Job) Run(ctx context.Context, itemType string) (RunStats, error) {
	start := time.Now()
	stats := RunStats{}

	userSets, err := j.store.ItemUserSets(ctx, itemType)
	if err != nil {
		metrics.ObserveSimilarityBatch(itemType, "error", 0, time.Since(start))
		return stats, fmt.Errorf("load item user sets for %s: %w", itemType, err)
	}
	stats.Items = len(userSets)

	// Canonical order: every pair is visited once with itemID1 < itemID2,
	// matching the index's storage convention.
	ids := make([]string, 0, len(userSets))
	for id := range userSets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now().UTC()
	for i := 0; i < len(ids); i++ {
		for k := i + 1; k < len(ids); k++ {
			if err := ctx.Err(); err != nil {
				metrics.ObserveSimilarityBatch(itemType, "canceled", stats.PairsStored, time.Since(start))
				return stats, err
			}

			stats.PairsExamined++

			common := intersectionSize(userSets[ids[i]], userSets[ids[k]])
			if common < j.cfg.MinCommonUsers {
				continue
			}

			union := len(userSets[ids[i]]) + len(userSets[ids[k]]) - common
			score := float64(common) / float64(union)
			if score <= j.cfg.MinSimilarity {
				continue
			}

			if err := j.limiter.Wait(ctx); err != nil {
				metrics.ObserveSimilarityBatch(itemType, "canceled", stats.PairsStored, time.Since(start))
				return stats, err
			}

			sim := recommend.ItemSimilarity{
				ItemType:       itemType,
				ItemID1:        ids[i],
				ItemID2:        ids[k],
				Score:          score,
				Method:         Method,
				SampleSize:     common,
				LastCalculated: now,
			}
			if err := j.store.UpsertSimilarity(ctx, sim); err != nil {
				stats.PairsFailed++
				j.logger.Warn().
					Err(err).
					Str("item_type", itemType).
					Str("item_id_1", ids[i]).
					Str("item_id_2", ids[k]).
					Msg("similarity upsert failed, skipping pair")
				continue
			}
			stats.PairsStored++
		}
	}

	stats.Elapsed = time.Since(start)
	metrics.ObserveSimilarityBatch(itemType, "success", stats.PairsStored, stats.Elapsed)

	j.logger.Info().
		Str("item_type", itemType).
		Int("items", stats.Items).
		Int("pairs_examined", stats.PairsExamined).
		Int("pairs_stored", stats.PairsStored).
		Int("pairs_failed", stats.PairsFailed).
		Dur("elapsed", stats.Elapsed).
		Msg("similarity batch run complete")

	return stats, nil
}

// intersectionSize counts members shared by both sets, iterating the
// smaller one.
func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for member := range a {
		if _, ok := b[member]; ok {
			n++
		}
	}
	return n
}
