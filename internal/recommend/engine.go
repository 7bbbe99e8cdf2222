// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/labboard/labboard/internal/logging"
	"github.com/labboard/labboard/internal/metrics"
)

// Strategy produces ranked candidates from one signal source. A strategy
// that has nothing to say returns an empty list and a nil error; errors
// are reserved for data-store failures.
type Strategy interface {
	// Name identifies the strategy in logs, metrics and served results.
	Name() string

	// Recommend returns ranked candidates for the user, honoring ctx.
	Recommend(ctx context.Context, userID string, rctx Context) ([]Recommendation, error)
}

// SimilarityReader reads the precomputed pairwise similarity index.
type SimilarityReader interface {
	SimilarItems(ctx context.Context, itemType, itemID string, limit int) ([]ItemSimilarity, error)
}

// Config tunes the engine. Zero values fall back to conservative defaults.
type Config struct {
	// DefaultLimit is used when a request does not specify a limit.
	DefaultLimit int

	// MaxLimit caps the requested limit.
	MaxLimit int

	// StrategyTimeout bounds each strategy invocation.
	StrategyTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 100
	}
	if c.StrategyTimeout <= 0 {
		c.StrategyTimeout = 2 * time.Second
	}
	return c
}

// Engine fans a recommendation request out to the strategies registered
// for its domain and merges their candidates. Strategy failures degrade
// to empty lists; the request fails only on invalid input.
type Engine struct {
	cfg        Config
	similarity SimilarityReader
	logger     zerolog.Logger

	mu         sync.RWMutex
	strategies map[Domain][]Strategy
	fallbacks  map[Domain]Strategy
}

// NewEngine creates an engine. The similarity reader may be nil if
// SimilarItems is never served.
func NewEngine(cfg Config, similarity SimilarityReader) *Engine {
	return &Engine{
		cfg:        cfg.withDefaults(),
		similarity: similarity,
		logger:     logging.With().Str("component", "recommend").Logger(),
		strategies: make(map[Domain][]Strategy),
		fallbacks:  make(map[Domain]Strategy),
	}
}

// Register appends a strategy to a domain's battery. Registration order
// fixes tie-breaking in the merged output: on equal scores the earlier
// strategy's entry survives.
func (e *Engine) Register(domain Domain, s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[domain] = append(e.strategies[domain], s)
}

// RegisterFallback sets the last-resort strategy for a domain, consulted
// only when the whole battery comes back empty.
func (e *Engine) RegisterFallback(domain Domain, s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallbacks[domain] = s
}

// Strategies returns the registered battery for a domain.
func (e *Engine) Strategies(domain Domain) []Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.strategies[domain]
}

// Recommend serves one recommendation request.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]Recommendation, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("recommend: user id is required")
	}
	if !req.Domain.Valid() {
		return nil, fmt.Errorf("recommend: unknown domain %q", req.Domain)
	}

	limit := e.resolveLimit(req.Context.Limit)

	e.mu.RLock()
	battery := e.strategies[req.Domain]
	fallback := e.fallbacks[req.Domain]
	e.mu.RUnlock()

	start := time.Now()
	lists := e.runBattery(ctx, battery, req)
	merged := Aggregate(lists, limit)

	if len(merged) == 0 && fallback != nil {
		e.logger.Debug().
			Str("user_id", req.UserID).
			Str("domain", string(req.Domain)).
			Msg("all strategies returned empty, using fallback")
		list := e.runStrategy(ctx, fallback, req)
		merged = Aggregate([][]Recommendation{list}, limit)
	}

	metrics.ObserveRecommendation(string(req.Domain), len(merged), time.Since(start))

	e.logger.Debug().
		Str("user_id", req.UserID).
		Str("domain", string(req.Domain)).
		Int("strategies", len(battery)).
		Int("results", len(merged)).
		Dur("elapsed", time.Since(start)).
		Msg("recommendation request served")

	return merged, nil
}

// SimilarItems serves items similar to a given item, straight from the
// precomputed index, ranked by stored score.
func (e *Engine) SimilarItems(ctx context.Context, itemType, itemID string, limit int) ([]Recommendation, error) {
	if itemType == "" || itemID == "" {
		return nil, fmt.Errorf("recommend: item type and item id are required")
	}
	if e.similarity == nil {
		return nil, fmt.Errorf("recommend: similarity index not configured")
	}

	limit = e.resolveLimit(limit)

	pairs, err := e.similarity.SimilarItems(ctx, itemType, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("read similarity index: %w", err)
	}

	recs := make([]Recommendation, 0, len(pairs))
	for _, pair := range pairs {
		recs = append(recs, Recommendation{
			ItemID:    pair.Other(itemID),
			ItemType:  pair.ItemType,
			Score:     pair.Score,
			Reason:    "Frequently used together with this item",
			Algorithm: "item_similarity",
			Metadata: map[string]string{
				"sample_size": fmt.Sprintf("%d", pair.SampleSize),
			},
		})
	}

	return recs, nil
}

func (e *Engine) resolveLimit(limit int) int {
	if limit <= 0 {
		return e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		return e.cfg.MaxLimit
	}
	return limit
}

// runBattery invokes every strategy concurrently and collects results in
// registration order.
func (e *Engine) runBattery(ctx context.Context, battery []Strategy, req Request) [][]Recommendation {
	lists := make([][]Recommendation, len(battery))

	var wg sync.WaitGroup
	for i, s := range battery {
		wg.Add(1)
		go func(i int, s Strategy) {
			defer wg.Done()
			lists[i] = e.runStrategy(ctx, s, req)
		}(i, s)
	}
	wg.Wait()

	return lists
}

// runStrategy invokes one strategy under its own timeout. Failures and
// panics degrade to an empty list so one bad signal source cannot take
// the whole request down.
func (e *Engine) runStrategy(ctx context.Context, s Strategy, req Request) (list []Recommendation) {
	sctx, cancel := context.WithTimeout(ctx, e.cfg.StrategyTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordStrategyFailure(s.Name())
			e.logger.Error().
				Str("strategy", s.Name()).
				Interface("panic", r).
				Msg("strategy panicked")
			list = nil
		}
	}()

	start := time.Now()
	list, err := s.Recommend(sctx, req.UserID, req.Context)
	if err != nil {
		metrics.RecordStrategyFailure(s.Name())
		e.logger.Warn().
			Err(err).
			Str("strategy", s.Name()).
			Str("user_id", req.UserID).
			Dur("elapsed", time.Since(start)).
			Msg("strategy failed, continuing without it")
		return nil
	}

	return list
}
