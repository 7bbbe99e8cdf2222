// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/labboard/labboard/internal/database"
	"github.com/labboard/labboard/internal/logging"
	"github.com/labboard/labboard/internal/recommend"
)

// Recommender serves recommendation requests.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) ([]recommend.Recommendation, error)
	SimilarItems(ctx context.Context, itemType, itemID string, limit int) ([]recommend.Recommendation, error)
}

// FeedbackRecorder stores shown lists and applies feedback.
type FeedbackRecorder interface {
	StoreShown(ctx context.Context, userID string, recs []recommend.Recommendation) ([]recommend.StoredRecommendation, error)
	RecordFeedback(ctx context.Context, id string, fb recommend.Feedback, clicked bool, notes string) error
}

// EventTracker ingests and reads behavior events.
type EventTracker interface {
	Record(ctx context.Context, ev recommend.BehaviorEvent) error
	Events(ctx context.Context, filter database.EventFilter) []recommend.BehaviorEvent
}

// SimilarityTrigger requests an out-of-schedule similarity batch run.
// It reports whether the run was accepted.
type SimilarityTrigger interface {
	Trigger(itemType string) bool
}

// CatalogStore ingests catalog state pushed by the platform services.
type CatalogStore interface {
	UpsertItem(ctx context.Context, item database.Item) error
	UpsertUserProfile(ctx context.Context, userID string, interests, skills []string) error
	UpsertProject(ctx context.Context, p database.Project) error
	InsertAssistantQuery(ctx context.Context, id, userID, queryText string) error
	UpsertServiceRequest(ctx context.Context, req database.ServiceRequest) error
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler implements the HTTP endpoints.
type Handler struct {
	engine   Recommender
	recorder FeedbackRecorder
	tracker  EventTracker
	batch    SimilarityTrigger
	catalog  CatalogStore
	db       Pinger
	validate *validator.Validate
}

// NewHandler creates the endpoint handler.
func NewHandler(engine Recommender, recorder FeedbackRecorder, tracker EventTracker, batch SimilarityTrigger, catalog CatalogStore, db Pinger) *Handler {
	return &Handler{
		engine:   engine,
		recorder: recorder,
		tracker:  tracker,
		batch:    batch,
		catalog:  catalog,
		db:       db,
		validate: validator.New(),
	}
}

// UserRecommendations serves GET /api/v1/recommendations/user/{userID}.
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	domain := recommend.Domain(r.URL.Query().Get("domain"))
	if domain == "" {
		domain = recommend.DomainProtocol
	}
	if !domain.Valid() {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "unknown domain")
		return
	}

	req := recommend.Request{
		UserID: chi.URLParam(r, "userID"),
		Domain: domain,
		Context: recommend.Context{
			CurrentItemID:   r.URL.Query().Get("current_item_id"),
			CurrentItemType: r.URL.Query().Get("current_item_type"),
			Limit:           queryInt(r, "limit"),
		},
	}

	recs, err := h.engine.Recommend(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	respond(w, http.StatusOK, recs, start, len(recs))
}

// ProviderRecommendations serves
// GET /api/v1/recommendations/provider-for-request/{requestID}.
func (h *Handler) ProviderRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "user_id query parameter is required")
		return
	}

	req := recommend.Request{
		UserID: userID,
		Domain: recommend.DomainProviderForRequest,
		Context: recommend.Context{
			RequestID: chi.URLParam(r, "requestID"),
			Limit:     queryInt(r, "limit"),
		},
	}

	recs, err := h.engine.Recommend(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	respond(w, http.StatusOK, recs, start, len(recs))
}

// SimilarItems serves GET /api/v1/recommendations/similar/{itemType}/{itemID}.
func (h *Handler) SimilarItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	recs, err := h.engine.SimilarItems(r.Context(),
		chi.URLParam(r, "itemType"), chi.URLParam(r, "itemID"), queryInt(r, "limit"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	respond(w, http.StatusOK, recs, start, len(recs))
}

// trackEventRequest is the POST /api/v1/events body.
type trackEventRequest struct {
	UserID    string            `json:"user_id" validate:"required"`
	EventType string            `json:"event_type" validate:"required"`
	ItemType  string            `json:"item_type" validate:"required"`
	ItemID    string            `json:"item_id" validate:"required"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TrackEvent serves POST /api/v1/events. Accepted events are persisted
// asynchronously, hence 202.
func (h *Handler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body trackEventRequest
	if !h.decode(w, r, &body) {
		return
	}

	err := h.tracker.Record(r.Context(), recommend.BehaviorEvent{
		UserID:    body.UserID,
		EventType: body.EventType,
		ItemType:  body.ItemType,
		ItemID:    body.ItemID,
		Metadata:  body.Metadata,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	}

	respond(w, http.StatusAccepted, map[string]string{"status": "accepted"}, start, 0)
}

// ListEvents serves GET /api/v1/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filter := database.EventFilter{
		UserID:   r.URL.Query().Get("user_id"),
		ItemType: r.URL.Query().Get("item_type"),
		Limit:    queryInt(r, "limit"),
	}
	if raw := r.URL.Query().Get("event_type"); raw != "" {
		filter.EventTypes = strings.Split(raw, ",")
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}

	events := h.tracker.Events(r.Context(), filter)
	respond(w, http.StatusOK, events, start, len(events))
}

// storeShownRequest is the POST /api/v1/recommendations/shown body.
type storeShownRequest struct {
	UserID          string                     `json:"user_id" validate:"required"`
	Recommendations []recommend.Recommendation `json:"recommendations" validate:"required,min=1,dive"`
}

// StoreShown serves POST /api/v1/recommendations/shown.
func (h *Handler) StoreShown(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body storeShownRequest
	if !h.decode(w, r, &body) {
		return
	}

	stored, err := h.recorder.StoreShown(r.Context(), body.UserID, body.Recommendations)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	ids := make([]string, len(stored))
	for i, s := range stored {
		ids[i] = s.ID
	}

	respond(w, http.StatusCreated, map[string]any{"ids": ids}, start, len(ids))
}

// feedbackRequest is the POST /api/v1/recommendations/{id}/feedback body.
type feedbackRequest struct {
	Feedback string `json:"feedback" validate:"required"`
	Clicked  bool   `json:"clicked,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// RecordFeedback serves POST /api/v1/recommendations/{id}/feedback.
func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body feedbackRequest
	if !h.decode(w, r, &body) {
		return
	}

	fb := recommend.Feedback(body.Feedback)
	if !fb.Valid() || fb == recommend.FeedbackNone {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, "invalid feedback value")
		return
	}

	err := h.recorder.RecordFeedback(r.Context(), chi.URLParam(r, "id"), fb, body.Clicked, body.Notes)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "recommendation not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	respond(w, http.StatusOK, map[string]string{"status": "recorded"}, start, 0)
}

// rebuildRequest is the POST /api/v1/similarity/rebuild body.
type rebuildRequest struct {
	ItemType string `json:"item_type,omitempty"`
}

// RebuildSimilarity serves POST /api/v1/similarity/rebuild. The run
// happens on the scheduler's goroutine; 202 means it was accepted, 409
// means a run is already in flight.
func (h *Handler) RebuildSimilarity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body rebuildRequest
	if r.ContentLength > 0 {
		if !h.decodeLoose(w, r, &body) {
			return
		}
	}

	if !h.batch.Trigger(body.ItemType) {
		respondError(w, http.StatusConflict, ErrCodeBadRequest, "a similarity run is already in progress")
		return
	}

	respond(w, http.StatusAccepted, map[string]string{"status": "scheduled"}, start, 0)
}

// Health serves GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.db.Ping(r.Context()); err != nil {
		logging.Warn().Err(err).Msg("health check failed")
		respondError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "storage unavailable")
		return
	}

	respond(w, http.StatusOK, map[string]string{"status": "ok"}, start, 0)
}

// decode parses and validates a JSON body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "malformed JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return false
	}
	return true
}

// decodeLoose parses a JSON body without struct validation.
func (h *Handler) decodeLoose(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "malformed JSON body")
		return false
	}
	return true
}

// queryInt parses an integer query parameter, 0 when absent or invalid.
func queryInt(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
