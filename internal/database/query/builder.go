// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

// Package query builds parameterized SQL WHERE clauses for the database
// package. All conditions use ? placeholders; values are bound by the
// driver, never concatenated into the statement.
package query

import (
	"fmt"
	"strings"
	"time"
)

// WhereBuilder accumulates WHERE conditions joined with AND. The zero
// builder is not usable; create one with NewWhereBuilder. Instances are
// not safe for concurrent use.
type WhereBuilder struct {
	clauses []string
	args    []any
}

// NewWhereBuilder creates an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddClause appends a raw condition fragment with its bound arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...any) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddEq appends "column = ?" unless value is empty.
func (wb *WhereBuilder) AddEq(column, value string) *WhereBuilder {
	if value != "" {
		wb.clauses = append(wb.clauses, column+" = ?")
		wb.args = append(wb.args, value)
	}
	return wb
}

// AddSince appends "column >= ?" unless t is the zero time.
func (wb *WhereBuilder) AddSince(column string, t time.Time) *WhereBuilder {
	if !t.IsZero() {
		wb.clauses = append(wb.clauses, column+" >= ?")
		wb.args = append(wb.args, t)
	}
	return wb
}

// AddIn appends "column IN (?, ...)" unless values is empty.
func (wb *WhereBuilder) AddIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return wb
}

// Build returns the WHERE clause body (no "WHERE" keyword) and its
// arguments. An empty builder yields "1=1" so callers can interpolate
// unconditionally.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// IsEmpty reports whether no conditions were added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
