// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

// Labboard server: serves personalized recommendations for lab
// protocols, papers and core-facility services, ingests the behavior
// events they are computed from, and keeps the item similarity index
// fresh with a scheduled batch job.
//
// Configuration comes from LABBOARD_* environment variables or a YAML
// file (CONFIG_PATH). All long-running components run under a suture
// supervisor tree and restart independently on failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labboard/labboard/internal/api"
	"github.com/labboard/labboard/internal/config"
	"github.com/labboard/labboard/internal/database"
	"github.com/labboard/labboard/internal/events"
	"github.com/labboard/labboard/internal/logging"
	"github.com/labboard/labboard/internal/recommend/feedback"
	"github.com/labboard/labboard/internal/recommend/similarity"
	"github.com/labboard/labboard/internal/supervisor"
	"github.com/labboard/labboard/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Int("port", cfg.Server.Port).
		Msg("starting labboard server")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()

	tracker := events.NewTracker(cfg.Events, db)
	defer func() {
		if err := tracker.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event tracker")
		}
	}()

	engine := buildEngine(cfg, db)
	recorder := feedback.NewRecorder(db)

	batchJob := similarity.NewJob(db, similarity.Config{
		MinCommonUsers:   cfg.Similarity.MinCommonUsers,
		MinSimilarity:    cfg.Similarity.MinSimilarity,
		UpsertsPerSecond: cfg.Similarity.UpsertsPerSecond,
	})
	scheduler := services.NewSimilarityService(batchJob, services.SimilarityServiceConfig{
		Interval:     cfg.Similarity.Interval,
		RunOnStartup: cfg.Similarity.RunOnStartup,
		ItemTypes:    cfg.Similarity.ItemTypes,
	}, logging.Logger())

	handler := api.NewHandler(engine, recorder, tracker, scheduler, db, db)
	router := api.NewRouter(cfg.API, handler)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewConsumerService(tracker, "event-consumer"))
	tree.AddJobService(scheduler)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", server.Addr).
		Msg("labboard server running")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor tree exited")
	}

	logging.Info().Msg("labboard server stopped")
}
