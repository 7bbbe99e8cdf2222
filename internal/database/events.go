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

	json "github.com/goccy/go-json"

	"github.com/labboard/labboard/internal/database/query"
	"github.com/labboard/labboard/internal/recommend"
)

// EventFilter narrows a behavior event query. Zero fields are ignored.
type EventFilter struct {
	UserID     string
	ItemType   string
	EventTypes []string
	Since      time.Time
	Limit      int
}

// InsertBehaviorEvent appends one event to the ledger.
func (db *DB) InsertBehaviorEvent(ctx context.Context, ev recommend.BehaviorEvent) (err error) {
	start := time.Now()
	defer func() { track("insert", "behavior_events", start, err) }()

	var metadata sql.NullString
	if len(ev.Metadata) > 0 {
		raw, merr := json.Marshal(ev.Metadata)
		if merr != nil {
			return fmt.Errorf("marshal event metadata: %w", merr)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO behavior_events (id, user_id, event_type, item_type, item_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.EventType, ev.ItemType, ev.ItemID, metadata, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert behavior event: %w", err)
	}

	return nil
}

// BehaviorEvents returns ledger rows matching the filter, newest first.
func (db *DB) BehaviorEvents(ctx context.Context, filter EventFilter) (_ []recommend.BehaviorEvent, err error) {
	start := time.Now()
	defer func() { track("query", "behavior_events", start, err) }()

	where, args := query.NewWhereBuilder().
		AddEq("user_id", filter.UserID).
		AddEq("item_type", filter.ItemType).
		AddIn("event_type", filter.EventTypes).
		AddSince("created_at", filter.Since).
		Build()

	q := fmt.Sprintf(`
		SELECT id, user_id, event_type, item_type, item_id, metadata, created_at
		FROM behavior_events
		WHERE %s
		ORDER BY created_at DESC, id DESC`, where)
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query behavior events: %w", err)
	}
	defer rows.Close()

	var events []recommend.BehaviorEvent
	for rows.Next() {
		var (
			ev       recommend.BehaviorEvent
			metadata sql.NullString
		)
		if err = rows.Scan(&ev.ID, &ev.UserID, &ev.EventType, &ev.ItemType, &ev.ItemID, &metadata, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan behavior event: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if uerr := json.Unmarshal([]byte(metadata.String), &ev.Metadata); uerr != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", uerr)
			}
		}
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate behavior events: %w", err)
	}

	return events, nil
}
