// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

// Package recommend implements the Labboard hybrid recommendation engine.
//
// The engine scores and ranks candidate items (protocols, papers, service
// providers and requests) for a user by fanning out to several independent
// scoring strategies and merging their candidate lists into one ordered
// result. Strategies are heterogeneous in signal source (collaborative
// co-interaction, declared interests, project context, popularity) but
// homogeneous in shape: each returns a ranked []Recommendation.
//
// Generation is stateless per request. Persistent state lives in the
// behavior event ledger and the precomputed similarity index, both owned
// by the database package.
package recommend

import (
	"time"
)

// Item types recommendable by the engine. Item IDs are opaque; items
// themselves live in the platform catalog.
const (
	ItemTypeProtocol       = "protocol"
	ItemTypePaper          = "paper"
	ItemTypeService        = "service"
	ItemTypeServiceRequest = "service_request"
)

// Behavior event types recorded in the ledger. The set is open; unknown
// types are stored as-is and simply never qualify for similarity batches.
const (
	EventView     = "view"
	EventFork     = "fork"
	EventShare    = "share"
	EventComplete = "complete"
	EventBookmark = "bookmark"
)

// Domain selects which strategy battery serves a recommendation request.
type Domain string

const (
	// DomainProtocol recommends lab protocols.
	DomainProtocol Domain = "protocol"
	// DomainPaper recommends papers.
	DomainPaper Domain = "paper"
	// DomainServiceProvider recommends service offerings to a requester.
	DomainServiceProvider Domain = "service_provider"
	// DomainServiceRequester recommends open service requests to a provider.
	DomainServiceRequester Domain = "service_requester"
	// DomainProviderForRequest recommends providers for one specific request.
	DomainProviderForRequest Domain = "provider_for_request"
)

// Valid reports whether the domain is one the engine serves.
func (d Domain) Valid() bool {
	switch d {
	case DomainProtocol, DomainPaper, DomainServiceProvider,
		DomainServiceRequester, DomainProviderForRequest:
		return true
	default:
		return false
	}
}

// ItemType returns the catalog item type recommended for this domain.
func (d Domain) ItemType() string {
	switch d {
	case DomainProtocol:
		return ItemTypeProtocol
	case DomainPaper:
		return ItemTypePaper
	case DomainServiceRequester:
		return ItemTypeServiceRequest
	default:
		return ItemTypeService
	}
}

// BehaviorEvent is one row of the append-only interaction ledger.
// Events are immutable once written; corrections are new events.
type BehaviorEvent struct {
	// ID is the ledger row id.
	ID string `json:"id"`

	// UserID identifies the acting user.
	UserID string `json:"user_id"`

	// EventType classifies the interaction (view, fork, share, ...).
	EventType string `json:"event_type"`

	// ItemType is the type of the item acted on.
	ItemType string `json:"item_type"`

	// ItemID is the opaque id of the item acted on.
	ItemID string `json:"item_id"`

	// Metadata carries opaque key/value context supplied by the caller.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the event was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// ItemSimilarity is one precomputed pairwise similarity row. Pairs are
// stored once with ItemID1 < ItemID2; readers map either column to "the
// other item". Rows are written only by the offline batch job and are
// stale between runs by design.
type ItemSimilarity struct {
	ItemType       string    `json:"item_type"`
	ItemID1        string    `json:"item_id_1"`
	ItemID2        string    `json:"item_id_2"`
	Score          float64   `json:"similarity_score"`
	Method         string    `json:"method"`
	SampleSize     int       `json:"sample_size"`
	LastCalculated time.Time `json:"last_calculated"`
}

// Other returns the pair member that is not the given item id.
func (s ItemSimilarity) Other(itemID string) string {
	if s.ItemID1 == itemID {
		return s.ItemID2
	}
	return s.ItemID1
}

// Recommendation is one scored candidate. Within one served list no two
// entries share (ItemType, ItemID).
type Recommendation struct {
	// ItemID is the opaque id of the recommended item.
	ItemID string `json:"item_id"`

	// ItemType is the catalog type of the recommended item.
	ItemType string `json:"item_type"`

	// Score is the strategy's confidence, nominally in [0, 1].
	Score float64 `json:"score"`

	// Reason is a human-readable explanation for the recommendation.
	Reason string `json:"reason,omitempty"`

	// Algorithm names the strategy that produced the entry.
	Algorithm string `json:"algorithm"`

	// Metadata carries strategy-specific context (matched tags, counts).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Feedback is a user's reaction to a previously shown recommendation.
type Feedback string

const (
	FeedbackNone      Feedback = "none"
	FeedbackPositive  Feedback = "positive"
	FeedbackNegative  Feedback = "negative"
	FeedbackNeutral   Feedback = "neutral"
	FeedbackDismissed Feedback = "dismissed"
)

// Valid reports whether the feedback value is known.
func (f Feedback) Valid() bool {
	switch f {
	case FeedbackNone, FeedbackPositive, FeedbackNegative, FeedbackNeutral, FeedbackDismissed:
		return true
	default:
		return false
	}
}

// StoredRecommendation is the persisted copy of a shown recommendation,
// mutated exactly once by the feedback recorder.
type StoredRecommendation struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Recommendation Recommendation `json:"recommendation"`
	Position       int        `json:"position"`
	ShownAt        time.Time  `json:"shown_at"`
	Feedback       Feedback   `json:"feedback"`
	ClickedAt      *time.Time `json:"clicked_at,omitempty"`
	FeedbackNotes  string     `json:"feedback_notes,omitempty"`
}

// Context is the request-scoped recommendation context. It is never
// persisted.
type Context struct {
	// CurrentItemID is the item the user is looking at, if any.
	CurrentItemID string `json:"current_item_id,omitempty"`

	// CurrentItemType is the type of CurrentItemID.
	CurrentItemType string `json:"current_item_type,omitempty"`

	// RequestID targets provider-for-request recommendations.
	RequestID string `json:"request_id,omitempty"`

	// Limit caps the served list. Zero means the configured default.
	Limit int `json:"limit,omitempty"`
}

// Request is one recommendation request.
type Request struct {
	UserID  string  `json:"user_id"`
	Domain  Domain  `json:"domain"`
	Context Context `json:"context"`
}
