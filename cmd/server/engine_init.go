// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package main

import (
	"github.com/labboard/labboard/internal/config"
	"github.com/labboard/labboard/internal/database"
	"github.com/labboard/labboard/internal/recommend"
	"github.com/labboard/labboard/internal/recommend/strategies"
)

// buildEngine assembles the recommendation engine with the strategy
// battery for every domain. Registration order fixes tie-breaking on
// equal scores, so stronger signal sources come first.
func buildEngine(cfg *config.Config, db *database.DB) *recommend.Engine {
	engine := recommend.NewEngine(recommend.Config{
		DefaultLimit:    cfg.Recommend.DefaultLimit,
		MaxLimit:        cfg.Recommend.MaxLimit,
		StrategyTimeout: cfg.Recommend.StrategyTimeout,
	}, db)

	historyLimit := cfg.Recommend.HistoryLimit
	window := cfg.Recommend.PopularityWindow

	// Item browsing domains share the same battery shape over their own
	// item type. Popularity always runs: its low base score fills the
	// tail of the list when the personalized strategies come up short,
	// and it doubles as the fallback when the whole battery is empty.
	for _, domain := range []recommend.Domain{
		recommend.DomainProtocol,
		recommend.DomainPaper,
		recommend.DomainServiceRequester,
	} {
		itemType := domain.ItemType()
		popularity := strategies.NewPopularity(db, itemType, window, historyLimit)
		engine.Register(domain, strategies.NewCollaborative(db, itemType, historyLimit))
		engine.Register(domain, strategies.NewItemSimilarity(db, itemType, historyLimit))
		engine.Register(domain, strategies.NewContent(db, itemType, historyLimit))
		engine.Register(domain, strategies.NewProjectContext(db, itemType, historyLimit))
		engine.Register(domain, strategies.NewQueryHistory(db, itemType, historyLimit))
		engine.Register(domain, popularity)
		engine.RegisterFallback(domain, popularity)
	}

	// Service discovery for requesters: profile matching plus history.
	serviceType := recommend.DomainServiceProvider.ItemType()
	servicePopularity := strategies.NewPopularity(db, serviceType, window, historyLimit)
	engine.Register(recommend.DomainServiceProvider, strategies.NewCollaborative(db, serviceType, historyLimit))
	engine.Register(recommend.DomainServiceProvider, strategies.NewContent(db, serviceType, historyLimit))
	engine.Register(recommend.DomainServiceProvider, strategies.NewProjectContext(db, serviceType, historyLimit))
	engine.Register(recommend.DomainServiceProvider, servicePopularity)
	engine.RegisterFallback(recommend.DomainServiceProvider, servicePopularity)

	// Provider matching for one specific request is skill-driven only.
	engine.Register(recommend.DomainProviderForRequest, strategies.NewProviderMatch(db))

	return engine
}
