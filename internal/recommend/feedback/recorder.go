// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

// Package feedback persists shown recommendations and records the
// user's reaction to them. The stored rows are the raw material for
// offline evaluation of strategy quality.
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labboard/labboard/internal/logging"
	"github.com/labboard/labboard/internal/metrics"
	"github.com/labboard/labboard/internal/recommend"
)

// Store is the persistence surface the recorder needs.
type Store interface {
	// InsertShownRecommendations persists a served list in one batch.
	InsertShownRecommendations(ctx context.Context, recs []recommend.StoredRecommendation) error

	// UpdateFeedback sets the feedback and notes on one stored row.
	// When clicked is true it stamps clicked_at if still unset; when
	// false the timestamp is left alone. An unknown id yields an error
	// wrapping database.ErrNotFound.
	UpdateFeedback(ctx context.Context, id string, fb recommend.Feedback, clicked bool, notes string, clickedAt time.Time) error
}

// Recorder stores shown recommendations and applies feedback to them.
type Recorder struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder.
func NewRecorder(store Store) *Recorder {
	return &Recorder{
		store:  store,
		logger: logging.With().Str("component", "feedback").Logger(),
		now:    time.Now,
	}
}

// StoreShown persists a served recommendation list and returns the
// stored rows, ids assigned. Positions follow list order.
func (r *Recorder) StoreShown(ctx context.Context, userID string, recs []recommend.Recommendation) ([]recommend.StoredRecommendation, error) {
	if userID == "" {
		return nil, fmt.Errorf("feedback: user id is required")
	}
	if len(recs) == 0 {
		return nil, nil
	}

	shownAt := r.now().UTC()
	stored := make([]recommend.StoredRecommendation, len(recs))
	for i, rec := range recs {
		stored[i] = recommend.StoredRecommendation{
			ID:             uuid.NewString(),
			UserID:         userID,
			Recommendation: rec,
			Position:       i,
			ShownAt:        shownAt,
			Feedback:       recommend.FeedbackNone,
		}
	}

	if err := r.store.InsertShownRecommendations(ctx, stored); err != nil {
		r.logger.Error().
			Err(err).
			Str("user_id", userID).
			Int("count", len(stored)).
			Msg("failed to store shown recommendations")
		return nil, fmt.Errorf("store shown recommendations: %w", err)
	}

	return stored, nil
}

// RecordFeedback applies one feedback submission to a stored
// recommendation. The clicked flag records whether the user actually
// opened the item; a dismissal arrives with clicked=false and must not
// produce a click timestamp.
func (r *Recorder) RecordFeedback(ctx context.Context, id string, fb recommend.Feedback, clicked bool, notes string) error {
	if id == "" {
		return fmt.Errorf("feedback: recommendation id is required")
	}
	if !fb.Valid() || fb == recommend.FeedbackNone {
		return fmt.Errorf("feedback: invalid feedback value %q", fb)
	}

	if err := r.store.UpdateFeedback(ctx, id, fb, clicked, notes, r.now().UTC()); err != nil {
		r.logger.Error().
			Err(err).
			Str("recommendation_id", id).
			Str("feedback", string(fb)).
			Msg("failed to record feedback")
		return fmt.Errorf("record feedback for %s: %w", id, err)
	}

	metrics.RecordFeedback(string(fb))
	return nil
}
