// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

// Package strategies contains the scoring strategies behind the
// recommendation engine. Each strategy reads the shared data store at
// request time, ranks candidates from one signal source and hands the
// ranked list back to the engine for merging.
//
// Scores are positional: a strategy assigns its best candidate a fixed
// base score and walks down by a fixed decay per rank. Bases are chosen
// so that stronger signal sources (collaborative overlap, explicit
// skill matches) outrank weaker ones (popularity) when both fire.
package strategies

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/labboard/labboard/internal/recommend"
)

// RankedItem is a candidate with a source-specific weight (an
// interaction count, a matched-tag count, a relevance score). Weights
// order candidates within one query; they never leave the strategy.
type RankedItem struct {
	ID     string
	Weight float64

	// Label carries optional display context, such as the matched tag.
	Label string
}

// DataStore is the read surface strategies need. The database package
// implements it over DuckDB; tests implement it in memory.
type DataStore interface {
	// UserItemIDs returns the distinct items of the given type the user
	// has interacted with, newest interaction first.
	UserItemIDs(ctx context.Context, userID, itemType string, limit int) ([]string, error)

	// CoInteractors returns, for users other than userID, how many of
	// the given items each of them has interacted with.
	CoInteractors(ctx context.Context, userID, itemType string, itemIDs []string) (map[string]int, error)

	// ItemsForUsers returns items of the given type the listed users
	// interacted with, weighted by distinct interacting users.
	ItemsForUsers(ctx context.Context, itemType string, userIDs []string, limit int) ([]RankedItem, error)

	// Interests returns the user's declared research interests.
	Interests(ctx context.Context, userID string) ([]string, error)

	// Skills returns the user's declared skills.
	Skills(ctx context.Context, userID string) ([]string, error)

	// ItemsByTags returns items of the given type carrying any of the
	// tags, weighted by matched-tag count and recent popularity.
	ItemsByTags(ctx context.Context, itemType string, tags []string, limit int) ([]RankedItem, error)

	// ItemsByRelevance returns items of the given type whose title or
	// tags contain any of the keywords, weighted by match count.
	ItemsByRelevance(ctx context.Context, itemType string, keywords []string, limit int) ([]RankedItem, error)

	// ProjectTexts returns titles and descriptions of the user's active
	// projects.
	ProjectTexts(ctx context.Context, userID string, limit int) ([]string, error)

	// RecentQueryTexts returns the user's recent assistant queries,
	// newest first.
	RecentQueryTexts(ctx context.Context, userID string, limit int) ([]string, error)

	// PopularItems returns the most interacted-with items of the given
	// type inside the window, optionally restricted to categories.
	PopularItems(ctx context.Context, itemType string, window time.Duration, categories []string, limit int) ([]RankedItem, error)

	// SimilarToItems returns similarity index rows touching any of the
	// given items, highest score first.
	SimilarToItems(ctx context.Context, itemType string, itemIDs []string, limit int) ([]recommend.ItemSimilarity, error)

	// RequestSkills returns the skills a service request asks for.
	RequestSkills(ctx context.Context, requestID string) ([]string, error)

	// ProvidersBySkills returns service providers matching any of the
	// skills, weighted by matched-skill count, excluding one user.
	ProvidersBySkills(ctx context.Context, skills []string, excludeUserID string, limit int) ([]RankedItem, error)
}

// rankScore returns the positional score for rank i.
func rankScore(base, decay float64, i int) float64 {
	score := base - float64(i)*decay
	if score < 0 {
		return 0
	}
	return score
}

// toSet builds a membership set from ids.
func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// extractKeywords lowercases the texts, splits on non-letter/digit runs
// and keeps distinct tokens longer than four characters, preserving
// first-seen order and capping the result at max.
func extractKeywords(texts []string, max int) []string {
	seen := make(map[string]struct{})
	var keywords []string

	for _, text := range texts {
		fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, field := range fields {
			if len(field) <= 4 {
				continue
			}
			if _, ok := seen[field]; ok {
				continue
			}
			seen[field] = struct{}{}
			keywords = append(keywords, field)
			if len(keywords) >= max {
				return keywords
			}
		}
	}

	return keywords
}
