// Package storage declares the persistence contracts of the escrow engine.
//
// The event log is the only authoritative artifact. Checkpoints and scores
// are side stores that can be dropped and rebuilt from the log at any time.
package storage

import (
	"context"
	"errors"

	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the store refused a write that collided with
	// an existing record.
	ErrConflict = errors.New("storage conflict")
)

// EventStore is the append-only ledger.
type EventStore interface {
	// AppendEvent assigns the next global sequence number, seals the event
	// into its campaign's hash chain and commits it durably before
	// returning the stored event.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// ListCampaignEvents returns one campaign's events with seq > afterSeq,
	// ascending, at most limit of them.
	ListCampaignEvents(ctx context.Context, campaignID string, afterSeq uint64, limit int) ([]event.Event, error)
	// ListEvents returns events of every campaign with seq > afterSeq,
	// ascending, at most limit of them.
	ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error)
	// ListEventsPage returns a filtered page of one campaign's events.
	ListEventsPage(ctx context.Context, req ListEventsPageRequest) (ListEventsPageResult, error)
	// LatestSeq returns the highest assigned sequence number, 0 when empty.
	LatestSeq(ctx context.Context) (uint64, error)
	// CampaignIDs returns the ids of every campaign with at least one event.
	CampaignIDs(ctx context.Context) ([]string, error)
	// Close releases the store.
	Close() error
}

// ListEventsPageRequest selects a page of one campaign's events.
type ListEventsPageRequest struct {
	// CampaignID scopes the query (required).
	CampaignID string
	// PageSize is the maximum number of events to return.
	PageSize int
	// CursorSeq is the seq to continue from, 0 for the first page.
	CursorSeq uint64
	// Descending orders results newest first.
	Descending bool
	// Filter is an AIP-160 expression over type, actor_type, actor_id,
	// entity_type, entity_id and ts.
	Filter string
}

// ListEventsPageResult is one page of events.
type ListEventsPageResult struct {
	Events      []event.Event
	HasNextPage bool
	TotalCount  int
}

// CheckpointStore persists folded campaign state so startup only folds the
// tail of the log.
type CheckpointStore interface {
	// GetState returns the last saved state for a campaign, or ErrNotFound.
	GetState(ctx context.Context, campaignID string) (campaign.State, error)
	// SaveState stores state, replacing any older checkpoint. Saving a
	// state whose LastSeq is not newer than the stored one is a no-op.
	SaveState(ctx context.Context, state campaign.State) error
}

// ScoreStore persists the externally supplied ranking scores.
type ScoreStore interface {
	SetScore(ctx context.Context, campaignID string, score float64) error
	// Scores returns every stored score keyed by campaign id.
	Scores(ctx context.Context) (map[string]float64, error)
}
