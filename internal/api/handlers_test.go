// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labboard/labboard/internal/config"
	"github.com/labboard/labboard/internal/database"
	"github.com/labboard/labboard/internal/recommend"
)

type fakeRecommender struct {
	recs []recommend.Recommendation
	err  error

	lastRequest recommend.Request
}

func (f *fakeRecommender) Recommend(_ context.Context, req recommend.Request) ([]recommend.Recommendation, error) {
	f.lastRequest = req
	return f.recs, f.err
}

func (f *fakeRecommender) SimilarItems(_ context.Context, _, _ string, _ int) ([]recommend.Recommendation, error) {
	return f.recs, f.err
}

type fakeRecorder struct {
	stored      []recommend.StoredRecommendation
	feedbackErr error
	lastID      string
	lastFb      recommend.Feedback
	lastClicked bool
}

func (f *fakeRecorder) StoreShown(_ context.Context, userID string, recs []recommend.Recommendation) ([]recommend.StoredRecommendation, error) {
	stored := make([]recommend.StoredRecommendation, len(recs))
	for i, rec := range recs {
		stored[i] = recommend.StoredRecommendation{
			ID: fmt.Sprintf("id-%d", i), UserID: userID, Recommendation: rec, Position: i,
		}
	}
	f.stored = stored
	return stored, nil
}

func (f *fakeRecorder) RecordFeedback(_ context.Context, id string, fb recommend.Feedback, clicked bool, _ string) error {
	f.lastID = id
	f.lastFb = fb
	f.lastClicked = clicked
	return f.feedbackErr
}

type fakeTracker struct {
	recorded []recommend.BehaviorEvent
	events   []recommend.BehaviorEvent
}

func (f *fakeTracker) Record(_ context.Context, ev recommend.BehaviorEvent) error {
	if ev.UserID == "" || ev.ItemID == "" {
		return fmt.Errorf("invalid event")
	}
	f.recorded = append(f.recorded, ev)
	return nil
}

func (f *fakeTracker) Events(_ context.Context, _ database.EventFilter) []recommend.BehaviorEvent {
	return f.events
}

type fakeTrigger struct {
	accepted bool
	itemType string
}

func (f *fakeTrigger) Trigger(itemType string) bool {
	f.itemType = itemType
	return f.accepted
}

type fakeCatalog struct {
	items     []database.Item
	profiles  map[string][]string
	projects  []database.Project
	queries   []string
	requests  []database.ServiceRequest
	upsertErr error
}

func (f *fakeCatalog) UpsertItem(_ context.Context, item database.Item) error {
	f.items = append(f.items, item)
	return f.upsertErr
}

func (f *fakeCatalog) UpsertUserProfile(_ context.Context, userID string, interests, _ []string) error {
	if f.profiles == nil {
		f.profiles = map[string][]string{}
	}
	f.profiles[userID] = interests
	return f.upsertErr
}

func (f *fakeCatalog) UpsertProject(_ context.Context, p database.Project) error {
	f.projects = append(f.projects, p)
	return f.upsertErr
}

func (f *fakeCatalog) InsertAssistantQuery(_ context.Context, id, _, _ string) error {
	f.queries = append(f.queries, id)
	return f.upsertErr
}

func (f *fakeCatalog) UpsertServiceRequest(_ context.Context, req database.ServiceRequest) error {
	f.requests = append(f.requests, req)
	return f.upsertErr
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

type testServer struct {
	srv      *httptest.Server
	engine   *fakeRecommender
	recorder *fakeRecorder
	tracker  *fakeTracker
	trigger  *fakeTrigger
	catalog  *fakeCatalog
	pinger   *fakePinger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		engine:   &fakeRecommender{},
		recorder: &fakeRecorder{},
		tracker:  &fakeTracker{},
		trigger:  &fakeTrigger{accepted: true},
		catalog:  &fakeCatalog{},
		pinger:   &fakePinger{},
	}

	handler := NewHandler(ts.engine, ts.recorder, ts.tracker, ts.trigger, ts.catalog, ts.pinger)
	router := NewRouter(config.APIConfig{
		CORSOrigins:     []string{"*"},
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
	}, handler)

	ts.srv = httptest.NewServer(router)
	t.Cleanup(ts.srv.Close)
	return ts
}

func decodeResponse(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var body APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func putJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestUserRecommendations(t *testing.T) {
	ts := newTestServer(t)
	ts.engine.recs = []recommend.Recommendation{
		{ItemID: "p1", ItemType: recommend.ItemTypeProtocol, Score: 0.9, Algorithm: "collaborative"},
	}

	resp, err := http.Get(ts.srv.URL + "/api/v1/recommendations/user/u1?domain=protocol&limit=5")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Meta.Count)

	assert.Equal(t, "u1", ts.engine.lastRequest.UserID)
	assert.Equal(t, recommend.DomainProtocol, ts.engine.lastRequest.Domain)
	assert.Equal(t, 5, ts.engine.lastRequest.Context.Limit)
}

func TestUserRecommendationsRejectsUnknownDomain(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/api/v1/recommendations/user/u1?domain=bogus")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.False(t, body.Success)
	assert.Equal(t, ErrCodeBadRequest, body.Error.Code)
}

func TestProviderRecommendations(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/api/v1/recommendations/provider-for-request/req1?user_id=u1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, recommend.DomainProviderForRequest, ts.engine.lastRequest.Domain)
	assert.Equal(t, "req1", ts.engine.lastRequest.Context.RequestID)
}

func TestProviderRecommendationsRequiresUserID(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/api/v1/recommendations/provider-for-request/req1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSimilarItemsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.engine.recs = []recommend.Recommendation{
		{ItemID: "p2", ItemType: recommend.ItemTypeProtocol, Score: 0.6, Algorithm: "item_similarity"},
	}

	resp, err := http.Get(ts.srv.URL + "/api/v1/recommendations/similar/protocol/p1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.True(t, body.Success)
}

func TestTrackEvent(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/api/v1/events", map[string]any{
		"user_id":    "u1",
		"event_type": "view",
		"item_type":  "protocol",
		"item_id":    "p1",
		"metadata":   map[string]string{"source": "search"},
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, ts.tracker.recorded, 1)
	assert.Equal(t, "view", ts.tracker.recorded[0].EventType)
}

func TestTrackEventValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/api/v1/events", map[string]any{
		"user_id": "u1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.Equal(t, ErrCodeValidationFailed, body.Error.Code)
	assert.Empty(t, ts.tracker.recorded)
}

func TestStoreShown(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/api/v1/recommendations/shown", map[string]any{
		"user_id": "u1",
		"recommendations": []recommend.Recommendation{
			{ItemID: "p1", ItemType: recommend.ItemTypeProtocol, Score: 0.9, Algorithm: "collaborative"},
		},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.True(t, body.Success)
	require.Len(t, ts.recorder.stored, 1)
}

func TestRecordFeedback(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/api/v1/recommendations/rec-1/feedback", map[string]any{
		"feedback": "positive",
		"clicked":  true,
		"notes":    "useful",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, "rec-1", ts.recorder.lastID)
	assert.Equal(t, recommend.FeedbackPositive, ts.recorder.lastFb)
	assert.True(t, ts.recorder.lastClicked)
}

func TestRecordFeedbackDismissWithoutClick(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/api/v1/recommendations/rec-1/feedback", map[string]any{
		"feedback": "dismissed",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, recommend.FeedbackDismissed, ts.recorder.lastFb)
	assert.False(t, ts.recorder.lastClicked)
}

func TestRecordFeedbackNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.recorder.feedbackErr = fmt.Errorf("stored recommendation rec-9: %w", database.ErrNotFound)

	resp := postJSON(t, ts.srv.URL+"/api/v1/recommendations/rec-9/feedback", map[string]any{
		"feedback": "negative",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.Equal(t, ErrCodeNotFound, body.Error.Code)
}

func TestRecordFeedbackRejectsInvalidValue(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/api/v1/recommendations/rec-1/feedback", map[string]any{
		"feedback": "meh",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRebuildSimilarity(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/api/v1/similarity/rebuild", map[string]string{"item_type": "protocol"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, "protocol", ts.trigger.itemType)
}

func TestRebuildSimilarityConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.trigger.accepted = false

	resp := postJSON(t, ts.srv.URL+"/api/v1/similarity/rebuild", map[string]string{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	ts.pinger.err = fmt.Errorf("connection refused")
	resp, err = http.Get(ts.srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestUpsertCatalogItem(t *testing.T) {
	ts := newTestServer(t)

	resp := putJSON(t, ts.srv.URL+"/api/v1/catalog/items", map[string]any{
		"item_type": "protocol",
		"item_id":   "p1",
		"title":     "CRISPR knock-in protocol",
		"tags":      []string{"crispr", "genome-editing"},
		"category":  "genomics",
		"owner_id":  "u1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, ts.catalog.items, 1)
	assert.Equal(t, "p1", ts.catalog.items[0].ID)
	assert.Equal(t, "genomics", ts.catalog.items[0].Category)
}

func TestUpsertCatalogItemValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := putJSON(t, ts.srv.URL+"/api/v1/catalog/items", map[string]any{
		"item_type": "protocol",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.Equal(t, ErrCodeValidationFailed, body.Error.Code)
	assert.Empty(t, ts.catalog.items)
}

func TestUpsertUserProfile(t *testing.T) {
	ts := newTestServer(t)

	resp := putJSON(t, ts.srv.URL+"/api/v1/catalog/profiles/u1", map[string]any{
		"interests": []string{"genomics", "proteomics"},
		"skills":    []string{"sequencing"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, []string{"genomics", "proteomics"}, ts.catalog.profiles["u1"])
}

func TestUpsertProject(t *testing.T) {
	ts := newTestServer(t)

	resp := putJSON(t, ts.srv.URL+"/api/v1/catalog/projects", map[string]any{
		"id":          "proj1",
		"user_id":     "u1",
		"title":       "Soil microbiome survey",
		"description": "16S sequencing of soil samples",
		"status":      "active",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, ts.catalog.projects, 1)
	assert.Equal(t, "proj1", ts.catalog.projects[0].ID)
}

func TestRecordAssistantQuery(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/api/v1/catalog/queries", map[string]any{
		"user_id":    "u1",
		"query_text": "how to stain mitochondria",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// The server assigns an identifier when the client omits one.
	require.Len(t, ts.catalog.queries, 1)
	assert.NotEmpty(t, ts.catalog.queries[0])
}

func TestUpsertServiceRequest(t *testing.T) {
	ts := newTestServer(t)

	resp := putJSON(t, ts.srv.URL+"/api/v1/catalog/requests", map[string]any{
		"id":              "req1",
		"requester_id":    "u1",
		"title":           "Mass spec analysis",
		"required_skills": []string{"mass-spectrometry"},
		"status":          "open",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, ts.catalog.requests, 1)
	assert.Equal(t, "req1", ts.catalog.requests[0].ID)
}

func TestListEvents(t *testing.T) {
	ts := newTestServer(t)
	ts.tracker.events = []recommend.BehaviorEvent{{ID: "e1", UserID: "u1"}}

	resp, err := http.Get(ts.srv.URL + "/api/v1/events?user_id=u1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.Equal(t, 1, body.Meta.Count)
}
