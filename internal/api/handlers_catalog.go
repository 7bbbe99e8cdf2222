// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/labboard/labboard/internal/database"
)

// Catalog ingestion. Labboard's platform services own the canonical
// catalog; they push denormalized copies here so the content, context
// and provider-match strategies have something to rank against.

// UpsertCatalogItem serves PUT /api/v1/catalog/items.
func (h *Handler) UpsertCatalogItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var item database.Item
	if !h.decode(w, r, &item) {
		return
	}

	if err := h.catalog.UpsertItem(r.Context(), item); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	respond(w, http.StatusOK, map[string]string{"status": "stored"}, start, 0)
}

// profileRequest is the PUT /api/v1/catalog/profiles/{userID} body.
type profileRequest struct {
	Interests []string `json:"interests,omitempty"`
	Skills    []string `json:"skills,omitempty"`
}

// UpsertUserProfile serves PUT /api/v1/catalog/profiles/{userID}.
func (h *Handler) UpsertUserProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body profileRequest
	if !h.decodeLoose(w, r, &body) {
		return
	}

	err := h.catalog.UpsertUserProfile(r.Context(), chi.URLParam(r, "userID"), body.Interests, body.Skills)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	respond(w, http.StatusOK, map[string]string{"status": "stored"}, start, 0)
}

// UpsertProject serves PUT /api/v1/catalog/projects.
func (h *Handler) UpsertProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var project database.Project
	if !h.decode(w, r, &project) {
		return
	}

	if err := h.catalog.UpsertProject(r.Context(), project); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	respond(w, http.StatusOK, map[string]string{"status": "stored"}, start, 0)
}

// assistantQueryRequest is the POST /api/v1/catalog/queries body.
type assistantQueryRequest struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id" validate:"required"`
	QueryText string `json:"query_text" validate:"required"`
}

// RecordAssistantQuery serves POST /api/v1/catalog/queries.
func (h *Handler) RecordAssistantQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body assistantQueryRequest
	if !h.decode(w, r, &body) {
		return
	}

	if body.ID == "" {
		body.ID = uuid.NewString()
	}

	if err := h.catalog.InsertAssistantQuery(r.Context(), body.ID, body.UserID, body.QueryText); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	respond(w, http.StatusCreated, map[string]string{"id": body.ID}, start, 0)
}

// UpsertServiceRequest serves PUT /api/v1/catalog/requests.
func (h *Handler) UpsertServiceRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req database.ServiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.catalog.UpsertServiceRequest(r.Context(), req); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	respond(w, http.StatusOK, map[string]string{"status": "stored"}, start, 0)
}
