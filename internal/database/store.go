// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/labboard/labboard/internal/recommend/strategies"
)

// Compile-time check: DB is the data store the strategies read.
var _ strategies.DataStore = (*DB)(nil)

// UserItemIDs returns distinct items of one type the user interacted
// with, most recent interaction first.
func (db *DB) UserItemIDs(ctx context.Context, userID, itemType string, limit int) (_ []string, err error) {
	start := time.Now()
	defer func() { track("query", "behavior_events", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT item_id
		FROM behavior_events
		WHERE user_id = ? AND item_type = ?
		GROUP BY item_id
		ORDER BY MAX(created_at) DESC, item_id
		LIMIT ?`,
		userID, itemType, limit)
	if err != nil {
		return nil, fmt.Errorf("query user items: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows, "user item")
}

// CoInteractors counts, per other user, how many of the given items
// they interacted with.
func (db *DB) CoInteractors(ctx context.Context, userID, itemType string, itemIDs []string) (_ map[string]int, err error) {
	if len(itemIDs) == 0 {
		return map[string]int{}, nil
	}

	start := time.Now()
	defer func() { track("query", "behavior_events", start, err) }()

	query := fmt.Sprintf(`
		SELECT user_id, COUNT(DISTINCT item_id) AS overlap
		FROM behavior_events
		WHERE item_type = ? AND user_id <> ? AND item_id IN (%s)
		GROUP BY user_id`,
		placeholders(len(itemIDs)))

	args := make([]any, 0, len(itemIDs)+2)
	args = append(args, itemType, userID)
	for _, id := range itemIDs {
		args = append(args, id)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query co-interactors: %w", err)
	}
	defer rows.Close()

	overlaps := make(map[string]int)
	for rows.Next() {
		var (
			uid     string
			overlap int
		)
		if err = rows.Scan(&uid, &overlap); err != nil {
			return nil, fmt.Errorf("scan co-interactor: %w", err)
		}
		overlaps[uid] = overlap
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate co-interactors: %w", err)
	}

	return overlaps, nil
}

// ItemsForUsers returns items the listed users interacted with,
// weighted by distinct interacting users.
func (db *DB) ItemsForUsers(ctx context.Context, itemType string, userIDs []string, limit int) (_ []strategies.RankedItem, err error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { track("query", "behavior_events", start, err) }()

	query := fmt.Sprintf(`
		SELECT item_id, COUNT(DISTINCT user_id) AS weight
		FROM behavior_events
		WHERE item_type = ? AND user_id IN (%s)
		GROUP BY item_id
		ORDER BY weight DESC, item_id
		LIMIT ?`,
		placeholders(len(userIDs)))

	args := make([]any, 0, len(userIDs)+2)
	args = append(args, itemType)
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items for users: %w", err)
	}
	defer rows.Close()

	return scanRanked(rows, "item for users")
}

// Interests returns the user's declared research interests.
func (db *DB) Interests(ctx context.Context, userID string) ([]string, error) {
	return db.profileList(ctx, userID, "interests")
}

// Skills returns the user's declared skills.
func (db *DB) Skills(ctx context.Context, userID string) ([]string, error) {
	return db.profileList(ctx, userID, "skills")
}

func (db *DB) profileList(ctx context.Context, userID, column string) (_ []string, err error) {
	start := time.Now()
	defer func() { track("query", "user_profiles", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	// column is one of two hardcoded call sites, never user input.
	var csv sql.NullString
	err = db.conn.QueryRowContext(ctx,
		"SELECT "+column+" FROM user_profiles WHERE user_id = ?", userID).Scan(&csv)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user profile %s: %w", column, err)
	}

	return splitCSV(csv.String), nil
}

// ItemsByTags returns items carrying any of the tags, weighted by
// matched tag count and broken by recent popularity. Label carries the
// first matched tag for explanation text.
func (db *DB) ItemsByTags(ctx context.Context, itemType string, tags []string, limit int) (_ []strategies.RankedItem, err error) {
	if len(tags) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { track("query", "items", start, err) }()

	var matched strings.Builder
	args := make([]any, 0, len(tags)+3)
	for i, tag := range tags {
		if i > 0 {
			matched.WriteString(" + ")
		}
		matched.WriteString("(CASE WHEN list_contains(string_split(lower(COALESCE(tags, '')), ','), ?) THEN 1 ELSE 0 END)")
		args = append(args, tag)
	}

	query := fmt.Sprintf(`
		WITH matches AS (
			SELECT item_id, lower(COALESCE(tags, '')) AS tag_csv, (%s) AS matched
			FROM items
			WHERE item_type = ?
		), popularity AS (
			SELECT item_id, COUNT(*) AS interactions
			FROM behavior_events
			WHERE item_type = ?
			GROUP BY item_id
		)
		SELECT m.item_id, m.matched, m.tag_csv
		FROM matches m
		LEFT JOIN popularity p USING (item_id)
		WHERE m.matched > 0
		ORDER BY m.matched DESC, COALESCE(p.interactions, 0) DESC, m.item_id
		LIMIT ?`,
		matched.String())

	args = append(args, itemType, itemType, limit)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items by tags: %w", err)
	}
	defer rows.Close()

	var items []strategies.RankedItem
	for rows.Next() {
		var (
			item   strategies.RankedItem
			tagCSV string
		)
		if err = rows.Scan(&item.ID, &item.Weight, &tagCSV); err != nil {
			return nil, fmt.Errorf("scan item by tags: %w", err)
		}
		item.Label = firstMatch(tags, splitCSV(tagCSV))
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items by tags: %w", err)
	}

	return items, nil
}

// ItemsByRelevance returns items whose title or tags contain any of the
// keywords, weighted by matched keyword count.
func (db *DB) ItemsByRelevance(ctx context.Context, itemType string, keywords []string, limit int) (_ []strategies.RankedItem, err error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { track("query", "items", start, err) }()

	var matched strings.Builder
	args := make([]any, 0, 2*len(keywords)+2)
	for i, kw := range keywords {
		if i > 0 {
			matched.WriteString(" + ")
		}
		matched.WriteString("(CASE WHEN lower(title) LIKE ? OR list_contains(string_split(lower(COALESCE(tags, '')), ','), ?) THEN 1 ELSE 0 END)")
		args = append(args, "%"+strings.ToLower(kw)+"%", strings.ToLower(kw))
	}

	query := fmt.Sprintf(`
		SELECT item_id, matched FROM (
			SELECT item_id, (%s) AS matched
			FROM items
			WHERE item_type = ?
		)
		WHERE matched > 0
		ORDER BY matched DESC, item_id
		LIMIT ?`,
		matched.String())

	args = append(args, itemType, limit)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items by relevance: %w", err)
	}
	defer rows.Close()

	return scanRanked(rows, "item by relevance")
}

// ProjectTexts returns title and description of the user's active
// projects, most recently updated first.
func (db *DB) ProjectTexts(ctx context.Context, userID string, limit int) (_ []string, err error) {
	start := time.Now()
	defer func() { track("query", "projects", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT title || ' ' || COALESCE(description, '')
		FROM projects
		WHERE user_id = ? AND status = 'active'
		ORDER BY updated_at DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query project texts: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows, "project text")
}

// RecentQueryTexts returns the user's recent assistant queries, newest
// first.
func (db *DB) RecentQueryTexts(ctx context.Context, userID string, limit int) (_ []string, err error) {
	start := time.Now()
	defer func() { track("query", "assistant_queries", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT query_text
		FROM assistant_queries
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent assistant queries: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows, "assistant query")
}

// PopularItems returns the most interacted-with items of one type
// inside the window, optionally narrowed to categories matched against
// the item category or tags.
func (db *DB) PopularItems(ctx context.Context, itemType string, window time.Duration, categories []string, limit int) (_ []strategies.RankedItem, err error) {
	start := time.Now()
	defer func() { track("query", "behavior_events", start, err) }()

	var sb strings.Builder
	sb.WriteString(`
		SELECT e.item_id, COUNT(*) AS weight
		FROM behavior_events e`)

	args := make([]any, 0, len(categories)*2+3)

	if len(categories) > 0 {
		sb.WriteString(`
		JOIN items i ON i.item_type = e.item_type AND i.item_id = e.item_id`)
	}

	sb.WriteString(`
		WHERE e.item_type = ? AND e.created_at >= ?`)
	args = append(args, itemType, time.Now().UTC().Add(-window))

	if len(categories) > 0 {
		sb.WriteString(" AND (")
		for i, cat := range categories {
			if i > 0 {
				sb.WriteString(" OR ")
			}
			sb.WriteString("lower(COALESCE(i.category, '')) = ? OR list_contains(string_split(lower(COALESCE(i.tags, '')), ','), ?)")
			args = append(args, cat, cat)
		}
		sb.WriteString(")")
	}

	sb.WriteString(`
		GROUP BY e.item_id
		ORDER BY weight DESC, e.item_id
		LIMIT ?`)
	args = append(args, limit)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query popular items: %w", err)
	}
	defer rows.Close()

	return scanRanked(rows, "popular item")
}

// RequestSkills returns the skills one service request asks for.
func (db *DB) RequestSkills(ctx context.Context, requestID string) (_ []string, err error) {
	start := time.Now()
	defer func() { track("query", "service_requests", start, err) }()

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var csv sql.NullString
	err = db.conn.QueryRowContext(ctx,
		"SELECT required_skills FROM service_requests WHERE id = ?", requestID).Scan(&csv)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("service request %s: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query service request skills: %w", err)
	}

	return splitCSV(csv.String), nil
}

// ProvidersBySkills returns service items whose tags cover any of the
// skills, weighted by matched skill count, excluding services owned by
// one user.
func (db *DB) ProvidersBySkills(ctx context.Context, skills []string, excludeUserID string, limit int) (_ []strategies.RankedItem, err error) {
	if len(skills) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { track("query", "items", start, err) }()

	var matched strings.Builder
	args := make([]any, 0, len(skills)+2)
	for i, skill := range skills {
		if i > 0 {
			matched.WriteString(" + ")
		}
		matched.WriteString("(CASE WHEN list_contains(string_split(lower(COALESCE(tags, '')), ','), ?) THEN 1 ELSE 0 END)")
		args = append(args, skill)
	}

	query := fmt.Sprintf(`
		SELECT item_id, matched, tag_csv FROM (
			SELECT item_id, lower(COALESCE(tags, '')) AS tag_csv, (%s) AS matched
			FROM items
			WHERE item_type = 'service' AND COALESCE(owner_id, '') <> ?
		)
		WHERE matched > 0
		ORDER BY matched DESC, item_id
		LIMIT ?`,
		matched.String())

	args = append(args, excludeUserID, limit)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query providers by skills: %w", err)
	}
	defer rows.Close()

	var providers []strategies.RankedItem
	for rows.Next() {
		var (
			item   strategies.RankedItem
			tagCSV string
		)
		if err = rows.Scan(&item.ID, &item.Weight, &tagCSV); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		item.Label = firstMatch(skills, splitCSV(tagCSV))
		providers = append(providers, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}

	return providers, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// splitCSV splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// firstMatch returns the first wanted entry present in have.
func firstMatch(wanted, have []string) string {
	haveSet := make(map[string]struct{}, len(have))
	for _, h := range have {
		haveSet[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	for _, w := range wanted {
		if _, ok := haveSet[strings.ToLower(w)]; ok {
			return strings.ToLower(w)
		}
	}
	return ""
}

// scanStrings drains a single-column string result set.
func scanStrings(rows *sql.Rows, what string) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %ss: %w", what, err)
	}
	return out, nil
}

// scanRanked drains an (id, weight) result set.
func scanRanked(rows *sql.Rows, what string) ([]strategies.RankedItem, error) {
	var out []strategies.RankedItem
	for rows.Next() {
		var item strategies.RankedItem
		if err := rows.Scan(&item.ID, &item.Weight); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %ss: %w", what, err)
	}
	return out, nil
}
