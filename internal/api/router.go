// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/labboard/labboard/internal/config"
)

// NewRouter builds the HTTP routing tree.
func NewRouter(cfg config.APIConfig, handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		r.Use(prometheusMetrics)

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/user/{userID}", handler.UserRecommendations)
			r.Get("/provider-for-request/{requestID}", handler.ProviderRecommendations)
			r.Get("/similar/{itemType}/{itemID}", handler.SimilarItems)
			r.Post("/shown", handler.StoreShown)
			r.Post("/{id}/feedback", handler.RecordFeedback)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Put("/items", handler.UpsertCatalogItem)
			r.Put("/profiles/{userID}", handler.UpsertUserProfile)
			r.Put("/projects", handler.UpsertProject)
			r.Post("/queries", handler.RecordAssistantQuery)
			r.Put("/requests", handler.UpsertServiceRequest)
		})

		r.Post("/events", handler.TrackEvent)
		r.Get("/events", handler.ListEvents)

		r.Post("/similarity/rebuild", handler.RebuildSimilarity)
	})

	return r
}
