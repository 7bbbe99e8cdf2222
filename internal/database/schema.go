// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package database

import (
	"context"
	"fmt"
)

// createSchema creates tables and indexes. Statements are idempotent so
// startup is safe against an existing database file.
func (db *DB) createSchema() error {
	ctx, cancel := withTimeout(context.Background())
	defer cancel()

	for _, query := range schemaQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}

func schemaQueries() []string {
	return []string{
		// Append-only interaction ledger. Rows are never updated.
		`CREATE TABLE IF NOT EXISTS behavior_events (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			event_type VARCHAR NOT NULL,
			item_type VARCHAR NOT NULL,
			item_id VARCHAR NOT NULL,
			metadata VARCHAR,
			created_at TIMESTAMP NOT NULL
		)`,

		// Pairwise similarity index. One row per pair, item_id_1 < item_id_2.
		`CREATE TABLE IF NOT EXISTS item_similarities (
			item_type VARCHAR NOT NULL,
			item_id_1 VARCHAR NOT NULL,
			item_id_2 VARCHAR NOT NULL,
			similarity_score DOUBLE NOT NULL,
			method VARCHAR NOT NULL,
			sample_size INTEGER NOT NULL,
			last_calculated TIMESTAMP NOT NULL,
			PRIMARY KEY (item_type, item_id_1, item_id_2)
		)`,

		// Served recommendations awaiting feedback.
		`CREATE TABLE IF NOT EXISTS stored_recommendations (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			item_type VARCHAR NOT NULL,
			item_id VARCHAR NOT NULL,
			score DOUBLE NOT NULL,
			reason VARCHAR,
			algorithm VARCHAR NOT NULL,
			position INTEGER NOT NULL,
			shown_at TIMESTAMP NOT NULL,
			feedback VARCHAR NOT NULL DEFAULT 'none',
			clicked_at TIMESTAMP,
			feedback_notes VARCHAR
		)`,

		// Catalog surrogate. Tags are stored as a comma-separated,
		// lowercased list; services carry their provider in owner_id.
		`CREATE TABLE IF NOT EXISTS items (
			item_type VARCHAR NOT NULL,
			item_id VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			tags VARCHAR,
			category VARCHAR,
			owner_id VARCHAR,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (item_type, item_id)
		)`,

		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id VARCHAR PRIMARY KEY,
			interests VARCHAR,
			skills VARCHAR,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS projects (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			description VARCHAR,
			status VARCHAR NOT NULL DEFAULT 'active',
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS assistant_queries (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			query_text VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS service_requests (
			id VARCHAR PRIMARY KEY,
			requester_id VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			required_skills VARCHAR,
			status VARCHAR NOT NULL DEFAULT 'open',
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_user
			ON behavior_events (user_id, item_type, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_item
			ON behavior_events (item_type, item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_similarities_lookup
			ON item_similarities (item_type, item_id_1, item_id_2)`,
		`CREATE INDEX IF NOT EXISTS idx_stored_recs_user
			ON stored_recommendations (user_id, shown_at)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_user
			ON assistant_queries (user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_user
			ON projects (user_id, status)`,
	}
}
