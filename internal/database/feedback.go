// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/labboard/labboard/internal/recommend"
)

// InsertShownRecommendations persists a served list in one transaction.
func (db *DB) InsertShownRecommendations(ctx context.Context, recs []recommend.StoredRecommendation) (err error) {
	if len(recs) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { track("insert", "stored_recommendations", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stored recommendations tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, rec := range recs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stored_recommendations
				(id, user_id, item_type, item_id, score, reason, algorithm, position, shown_at, feedback)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.UserID, rec.Recommendation.ItemType, rec.Recommendation.ItemID,
			rec.Recommendation.Score, rec.Recommendation.Reason, rec.Recommendation.Algorithm,
			rec.Position, rec.ShownAt, string(rec.Feedback))
		if err != nil {
			return fmt.Errorf("insert stored recommendation %s: %w", rec.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit stored recommendations: %w", err)
	}

	return nil
}

// UpdateFeedback applies feedback to one stored recommendation. The
// click timestamp is stamped only by the first feedback that reports a
// click; feedback without a click leaves it untouched.
func (db *DB) UpdateFeedback(ctx context.Context, id string, fb recommend.Feedback, clicked bool, notes string, clickedAt time.Time) (err error) {
	start := time.Now()
	defer func() { track("update", "stored_recommendations", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE stored_recommendations
		SET feedback = ?,
			feedback_notes = ?,
			clicked_at = COALESCE(clicked_at, ?)
		WHERE id = ?`,
		string(fb), notes, sql.NullTime{Time: clickedAt, Valid: clicked}, id)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update feedback rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("stored recommendation %s: %w", id, ErrNotFound)
	}

	return nil
}

// StoredRecommendation loads one stored row by id.
func (db *DB) StoredRecommendation(ctx context.Context, id string) (_ *recommend.StoredRecommendation, err error) {
	start := time.Now()
	defer func() { track("query", "stored_recommendations", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		rec       recommend.StoredRecommendation
		reason    sql.NullString
		feedback  string
		clickedAt sql.NullTime
		notes     sql.NullString
	)
	err = db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, item_type, item_id, score, reason, algorithm,
			position, shown_at, feedback, clicked_at, feedback_notes
		FROM stored_recommendations
		WHERE id = ?`, id).
		Scan(&rec.ID, &rec.UserID, &rec.Recommendation.ItemType, &rec.Recommendation.ItemID,
			&rec.Recommendation.Score, &reason, &rec.Recommendation.Algorithm,
			&rec.Position, &rec.ShownAt, &feedback, &clickedAt, &notes)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("stored recommendation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query stored recommendation: %w", err)
	}

	rec.Recommendation.Reason = reason.String
	rec.Feedback = recommend.Feedback(feedback)
	rec.FeedbackNotes = notes.String
	if clickedAt.Valid {
		t := clickedAt.Time
		rec.ClickedAt = &t
	}

	return &rec, nil
}
