// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Item is one catalog row. Labboard owns the canonical catalog
// elsewhere; this table is the denormalized copy the strategies match
// against.
type Item struct {
	Type     string    `json:"item_type" validate:"required"`
	ID       string    `json:"item_id" validate:"required"`
	Title    string    `json:"title" validate:"required"`
	Tags     []string  `json:"tags,omitempty"`
	Category string    `json:"category,omitempty"`
	OwnerID  string    `json:"owner_id,omitempty"`
	Created  time.Time `json:"created_at,omitempty"`
}

// Project is one research project row.
type Project struct {
	ID          string `json:"id" validate:"required"`
	UserID      string `json:"user_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

// ServiceRequest is one open service request row.
type ServiceRequest struct {
	ID             string   `json:"id" validate:"required"`
	RequesterID    string   `json:"requester_id" validate:"required"`
	Title          string   `json:"title" validate:"required"`
	RequiredSkills []string `json:"required_skills,omitempty"`
	Status         string   `json:"status,omitempty"`
}

// UpsertItem inserts or replaces one catalog row.
func (db *DB) UpsertItem(ctx context.Context, item Item) (err error) {
	start := time.Now()
	defer func() { track("upsert", "items", start, err) }()

	created := item.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO items (item_type, item_id, title, tags, category, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (item_type, item_id) DO UPDATE SET
			title = excluded.title,
			tags = excluded.tags,
			category = excluded.category,
			owner_id = excluded.owner_id`,
		item.Type, item.ID, item.Title, joinCSV(item.Tags),
		strings.ToLower(item.Category), item.OwnerID, created)
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}

	return nil
}

// UpsertUserProfile inserts or replaces a user's declared interests and
// skills.
func (db *DB) UpsertUserProfile(ctx context.Context, userID string, interests, skills []string) (err error) {
	start := time.Now()
	defer func() { track("upsert", "user_profiles", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, interests, skills, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			interests = excluded.interests,
			skills = excluded.skills,
			updated_at = excluded.updated_at`,
		userID, joinCSV(interests), joinCSV(skills), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert user profile: %w", err)
	}

	return nil
}

// UpsertProject inserts or replaces one project row.
func (db *DB) UpsertProject(ctx context.Context, p Project) (err error) {
	start := time.Now()
	defer func() { track("upsert", "projects", start, err) }()

	status := p.Status
	if status == "" {
		status = "active"
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO projects (id, user_id, title, description, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		p.ID, p.UserID, p.Title, p.Description, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	return nil
}

// InsertAssistantQuery appends one assistant query to the history.
func (db *DB) InsertAssistantQuery(ctx context.Context, id, userID, queryText string) (err error) {
	start := time.Now()
	defer func() { track("insert", "assistant_queries", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO assistant_queries (id, user_id, query_text, created_at)
		VALUES (?, ?, ?, ?)`,
		id, userID, queryText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert assistant query: %w", err)
	}

	return nil
}

// UpsertServiceRequest inserts or replaces one service request row.
func (db *DB) UpsertServiceRequest(ctx context.Context, req ServiceRequest) (err error) {
	start := time.Now()
	defer func() { track("upsert", "service_requests", start, err) }()

	status := req.Status
	if status == "" {
		status = "open"
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO service_requests (id, requester_id, title, required_skills, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			required_skills = excluded.required_skills,
			status = excluded.status`,
		req.ID, req.RequesterID, req.Title, joinCSV(req.RequiredSkills), status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert service request: %w", err)
	}

	return nil
}

// joinCSV lowercases, trims and joins a tag list for storage.
func joinCSV(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ",")
}
