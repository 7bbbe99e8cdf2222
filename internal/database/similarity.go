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

// ItemUserSets returns, per item of one type, the set of distinct users
// that interacted with it. This is the batch job's working set.
func (db *DB) ItemUserSets(ctx context.Context, itemType string) (_ map[string]map[string]struct{}, err error) {
	start := time.Now()
	defer func() { track("query", "behavior_events", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT item_id, user_id
		FROM behavior_events
		WHERE item_type = ?`,
		itemType)
	if err != nil {
		return nil, fmt.Errorf("query item user sets: %w", err)
	}
	defer rows.Close()

	sets := make(map[string]map[string]struct{})
	for rows.Next() {
		var itemID, userID string
		if err = rows.Scan(&itemID, &userID); err != nil {
			return nil, fmt.Errorf("scan item user pair: %w", err)
		}
		if sets[itemID] == nil {
			sets[itemID] = make(map[string]struct{})
		}
		sets[itemID][userID] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item user pairs: %w", err)
	}

	return sets, nil
}

// UpsertSimilarity inserts or replaces one canonical pair row.
func (db *DB) UpsertSimilarity(ctx context.Context, sim recommend.ItemSimilarity) (err error) {
	start := time.Now()
	defer func() { track("upsert", "item_similarities", start, err) }()

	if sim.ItemID1 >= sim.ItemID2 {
		return fmt.Errorf("similarity pair not canonical: %q >= %q", sim.ItemID1, sim.ItemID2)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO item_similarities
			(item_type, item_id_1, item_id_2, similarity_score, method, sample_size, last_calculated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (item_type, item_id_1, item_id_2) DO UPDATE SET
			similarity_score = excluded.similarity_score,
			method = excluded.method,
			sample_size = excluded.sample_size,
			last_calculated = excluded.last_calculated`,
		sim.ItemType, sim.ItemID1, sim.ItemID2, sim.Score, sim.Method, sim.SampleSize, sim.LastCalculated)
	if err != nil {
		return fmt.Errorf("upsert similarity pair: %w", err)
	}

	return nil
}

// SimilarItems returns index rows touching one item, best first.
func (db *DB) SimilarItems(ctx context.Context, itemType, itemID string, limit int) (_ []recommend.ItemSimilarity, err error) {
	start := time.Now()
	defer func() { track("query", "item_similarities", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT item_type, item_id_1, item_id_2, similarity_score, method, sample_size, last_calculated
		FROM item_similarities
		WHERE item_type = ? AND (item_id_1 = ? OR item_id_2 = ?)
		ORDER BY similarity_score DESC, item_id_1, item_id_2
		LIMIT ?`,
		itemType, itemID, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar items: %w", err)
	}
	defer rows.Close()

	return scanSimilarities(rows)
}

// SimilarToItems returns index rows touching any of the given items,
// best first.
func (db *DB) SimilarToItems(ctx context.Context, itemType string, itemIDs []string, limit int) (_ []recommend.ItemSimilarity, err error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { track("query", "item_similarities", start, err) }()

	marks := placeholders(len(itemIDs))
	query := fmt.Sprintf(`
		SELECT item_type, item_id_1, item_id_2, similarity_score, method, sample_size, last_calculated
		FROM item_similarities
		WHERE item_type = ? AND (item_id_1 IN (%s) OR item_id_2 IN (%s))
		ORDER BY similarity_score DESC, item_id_1, item_id_2
		LIMIT ?`,
		marks, marks)

	args := make([]any, 0, 2*len(itemIDs)+2)
	args = append(args, itemType)
	for _, id := range itemIDs {
		args = append(args, id)
	}
	for _, id := range itemIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query similarities for items: %w", err)
	}
	defer rows.Close()

	return scanSimilarities(rows)
}

func scanSimilarities(rows *sql.Rows) ([]recommend.ItemSimilarity, error) {
	var sims []recommend.ItemSimilarity
	for rows.Next() {
		var sim recommend.ItemSimilarity
		if err := rows.Scan(&sim.ItemType, &sim.ItemID1, &sim.ItemID2,
			&sim.Score, &sim.Method, &sim.SampleSize, &sim.LastCalculated); err != nil {
			return nil, fmt.Errorf("scan similarity pair: %w", err)
		}
		sims = append(sims, sim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similarity pairs: %w", err)
	}
	return sims, nil
}
