// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labboard/labboard/internal/config"
	"github.com/labboard/labboard/internal/database"
	"github.com/labboard/labboard/internal/recommend"
)

func strategyNames(e *recommend.Engine, domain recommend.Domain) []string {
	battery := e.Strategies(domain)
	names := make([]string, len(battery))
	for i, s := range battery {
		names[i] = s.Name()
	}
	return names
}

func TestBuildEngineRunsPopularityInEveryItemBattery(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	engine := buildEngine(cfg, db)

	for _, domain := range []recommend.Domain{
		recommend.DomainProtocol,
		recommend.DomainPaper,
		recommend.DomainServiceRequester,
		recommend.DomainServiceProvider,
	} {
		names := strategyNames(engine, domain)
		assert.Contains(t, names, "popularity", "domain %s", domain)
		assert.Equal(t, "popularity", names[len(names)-1],
			"popularity registers last so personalized strategies win score ties")
	}

	assert.Equal(t, []string{"provider_match"},
		strategyNames(engine, recommend.DomainProviderForRequest),
		"provider matching is skill-driven only")
}
