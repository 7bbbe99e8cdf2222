// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/labboard/labboard/internal/recommend/similarity"
)

// BatchRunner runs one similarity batch for an item type.
type BatchRunner interface {
	Run(ctx context.Context, itemType string) (similarity.RunStats, error)
}

// SimilarityServiceConfig holds the similarity scheduler settings.
type SimilarityServiceConfig struct {
	// Interval is how often the full cycle runs.
	Interval time.Duration

	// RunOnStartup triggers a cycle when the service starts.
	RunOnStartup bool

	// ItemTypes lists the item types recomputed each cycle.
	ItemTypes []string
}

// SimilarityService runs the offline similarity batch job on a schedule
// and on demand. Manual triggers share the schedule's goroutine, so at
// most one cycle runs at a time.
type SimilarityService struct {
	job     BatchRunner
	cfg     SimilarityServiceConfig
	logger  zerolog.Logger
	trigger chan string
	busy    atomic.Bool
}

// NewSimilarityService creates the scheduler.
func NewSimilarityService(job BatchRunner, cfg SimilarityServiceConfig, logger zerolog.Logger) *SimilarityService {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	return &SimilarityService{
		job:     job,
		cfg:     cfg,
		logger:  logger.With().Str("service", "similarity").Logger(),
		trigger: make(chan string, 1),
	}
}

// Trigger requests an out-of-schedule run. An empty item type means the
// full configured cycle. It reports false when a run is already in
// progress or pending.
func (s *SimilarityService) Trigger(itemType string) bool {
	if s.busy.Load() {
		return false
	}
	select {
	case s.trigger <- itemType:
		return true
	default:
		return false
	}
}

// Serve implements suture.Service.
func (s *SimilarityService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Bool("run_on_startup", s.cfg.RunOnStartup).
		Strs("item_types", s.cfg.ItemTypes).
		Msg("similarity scheduler starting")

	if s.cfg.RunOnStartup {
		s.runCycle(ctx, "")
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("similarity scheduler shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.runCycle(ctx, "")

		case itemType := <-s.trigger:
			s.runCycle(ctx, itemType)
		}
	}
}

// runCycle recomputes one item type, or the full configured set when
// itemType is empty. Failures are logged and the cycle moves on; the
// next tick retries anyway.
func (s *SimilarityService) runCycle(ctx context.Context, itemType string) {
	s.busy.Store(true)
	defer s.busy.Store(false)

	itemTypes := s.cfg.ItemTypes
	if itemType != "" {
		itemTypes = []string{itemType}
	}

	for _, it := range itemTypes {
		if ctx.Err() != nil {
			return
		}
		stats, err := s.job.Run(ctx, it)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("item_type", it).
				Msg("similarity batch run failed")
			continue
		}
		s.logger.Debug().
			Str("item_type", it).
			Int("pairs_stored", stats.PairsStored).
			Msg("similarity batch run finished")
	}
}

// String names the service in supervisor logs.
func (s *SimilarityService) String() string {
	return "similarity-scheduler"
}
