// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labboard/labboard/internal/config"
	"github.com/labboard/labboard/internal/database"
	"github.com/labboard/labboard/internal/recommend"
)

type memStore struct {
	mu        sync.Mutex
	events    []recommend.BehaviorEvent
	insertErr error
	queryErr  error
}

func (m *memStore) InsertBehaviorEvent(_ context.Context, ev recommend.BehaviorEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) BehaviorEvents(_ context.Context, _ database.EventFilter) ([]recommend.BehaviorEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	out := make([]recommend.BehaviorEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func testEventsConfig() config.EventsConfig {
	return config.EventsConfig{
		BufferSize:         64,
		BreakerMaxFailures: 3,
		BreakerOpenFor:     100 * time.Millisecond,
	}
}

func startTracker(t *testing.T, store Store) *Tracker {
	t.Helper()
	tracker := NewTracker(testEventsConfig(), store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tracker.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = tracker.Close()
	})

	return tracker
}

func validEvent() recommend.BehaviorEvent {
	return recommend.BehaviorEvent{
		UserID:    "u1",
		EventType: recommend.EventView,
		ItemType:  recommend.ItemTypeProtocol,
		ItemID:    "p1",
	}
}

func TestRecordPersistsEvent(t *testing.T) {
	store := &memStore{}
	tracker := startTracker(t, store)

	require.NoError(t, tracker.Record(context.Background(), validEvent()))

	require.Eventually(t, func() bool { return store.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	ev := store.events[0]
	assert.NotEmpty(t, ev.ID, "id assigned on ingestion")
	assert.False(t, ev.CreatedAt.IsZero(), "timestamp assigned on ingestion")
	assert.Equal(t, "u1", ev.UserID)
}

func TestRecordRejectsIncompleteEvents(t *testing.T) {
	tracker := NewTracker(testEventsConfig(), &memStore{})
	t.Cleanup(func() { _ = tracker.Close() })

	ev := validEvent()
	ev.UserID = ""
	assert.Error(t, tracker.Record(context.Background(), ev))

	ev = validEvent()
	ev.ItemID = ""
	assert.Error(t, tracker.Record(context.Background(), ev))
}

func TestRecordSurvivesStoreFailure(t *testing.T) {
	store := &memStore{insertErr: errors.New("disk full")}
	tracker := startTracker(t, store)

	// Recording never surfaces persistence failures.
	require.NoError(t, tracker.Record(context.Background(), validEvent()))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, store.count())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	store := &memStore{insertErr: errors.New("store down")}
	tracker := startTracker(t, store)

	for i := 0; i < 5; i++ {
		require.NoError(t, tracker.Record(context.Background(), validEvent()))
	}

	// Once open, reads short-circuit to empty without touching the store.
	require.Eventually(t, func() bool {
		return len(tracker.Events(context.Background(), database.EventFilter{})) == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestEventsReturnsLedger(t *testing.T) {
	store := &memStore{}
	tracker := startTracker(t, store)

	require.NoError(t, tracker.Record(context.Background(), validEvent()))
	require.Eventually(t, func() bool { return store.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	events := tracker.Events(context.Background(), database.EventFilter{UserID: "u1"})
	assert.Len(t, events, 1)
}

func TestEventsEmptyOnQueryFailure(t *testing.T) {
	store := &memStore{queryErr: errors.New("query failed")}
	tracker := startTracker(t, store)

	assert.Empty(t, tracker.Events(context.Background(), database.EventFilter{}))
}
