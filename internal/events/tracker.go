// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

// Package events ingests behavior events. Recording is fire-and-forget:
// the tracker validates and publishes onto an in-process channel and
// returns immediately; a supervised consumer drains the channel into
// the ledger behind a circuit breaker. A broken store therefore slows
// nothing down on the request path, it only drops events while open.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/labboard/labboard/internal/config"
	"github.com/labboard/labboard/internal/database"
	"github.com/labboard/labboard/internal/logging"
	"github.com/labboard/labboard/internal/metrics"
	"github.com/labboard/labboard/internal/recommend"
)

// eventsTopic is the in-process topic behavior events travel on.
const eventsTopic = "behavior.events"

// Store is the persistence surface the tracker needs.
type Store interface {
	InsertBehaviorEvent(ctx context.Context, ev recommend.BehaviorEvent) error
	BehaviorEvents(ctx context.Context, filter database.EventFilter) ([]recommend.BehaviorEvent, error)
}

// Tracker accepts behavior events and hands them to the consumer.
type Tracker struct {
	pubsub  *gochannel.GoChannel
	store   Store
	breaker *gobreaker.CircuitBreaker[any]
	logger  zerolog.Logger
}

// NewTracker creates a tracker with its in-process pub/sub channel and
// store circuit breaker.
func NewTracker(cfg config.EventsConfig, store Store) *Tracker {
	logger := logging.With().Str("component", "events").Logger()

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.BufferSize),
	}, newWatermillLogger(logger))

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "event-store",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerMaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerOpen(to == gobreaker.StateOpen)
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("event store circuit breaker state changed")
		},
	})

	return &Tracker{
		pubsub:  pubsub,
		store:   store,
		breaker: breaker,
		logger:  logger,
	}
}

// Record validates and enqueues one event. Invalid input is the only
// error; downstream persistence problems never reach the caller.
func (t *Tracker) Record(ctx context.Context, ev recommend.BehaviorEvent) error {
	if ev.UserID == "" || ev.EventType == "" || ev.ItemType == "" || ev.ItemID == "" {
		return fmt.Errorf("events: user id, event type, item type and item id are required")
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}

	if err := t.pubsub.Publish(eventsTopic, message.NewMessage(ev.ID, payload)); err != nil {
		metrics.RecordEventDropped()
		t.logger.Error().
			Err(err).
			Str("event_id", ev.ID).
			Msg("failed to enqueue behavior event")
		return nil
	}

	metrics.RecordEvent(ev.EventType)
	return nil
}

// Serve drains the channel into the ledger until ctx is canceled. It is
// run under the supervisor; returning an error triggers a restart.
func (t *Tracker) Serve(ctx context.Context) error {
	messages, err := t.pubsub.Subscribe(ctx, eventsTopic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", eventsTopic, err)
	}

	t.logger.Info().Msg("behavior event consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("event channel closed")
			}
			t.persist(ctx, msg)
		}
	}
}

// persist writes one message to the ledger. Failures drop the event;
// the message is always acked so a poisoned event cannot wedge the
// channel.
func (t *Tracker) persist(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var ev recommend.BehaviorEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		metrics.RecordEventDropped()
		t.logger.Error().
			Err(err).
			Str("message_id", msg.UUID).
			Msg("dropping malformed behavior event")
		return
	}

	_, err := t.breaker.Execute(func() (any, error) {
		return nil, t.store.InsertBehaviorEvent(ctx, ev)
	})
	if err != nil {
		metrics.RecordEventDropped()
		t.logger.Warn().
			Err(err).
			Str("event_id", ev.ID).
			Str("user_id", ev.UserID).
			Msg("dropping behavior event, store unavailable")
	}
}

// Events reads the ledger newest first. Read failures degrade to an
// empty result because every caller treats the ledger as advisory.
func (t *Tracker) Events(ctx context.Context, filter database.EventFilter) []recommend.BehaviorEvent {
	result, err := t.breaker.Execute(func() (any, error) {
		return t.store.BehaviorEvents(ctx, filter)
	})
	if err != nil {
		t.logger.Warn().Err(err).Msg("behavior event query failed, returning empty result")
		return nil
	}

	events, _ := result.([]recommend.BehaviorEvent)
	return events
}

// Close shuts the pub/sub channel down.
func (t *Tracker) Close() error {
	return t.pubsub.Close()
}
