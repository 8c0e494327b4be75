// Package query serves the read side of the escrow engine: ranked campaign
// listings, investor portfolios and campaign activity feeds.
//
// Everything here reads the registry projection or the ledger and never
// writes either. Scores are the one exception; they live in a side store
// fed by the external ranking job.
package query

import (
	"context"
	"errors"
	"iter"

	"github.com/rs/zerolog"

	"github.com/taliva/escrow/internal/platform/grpc/pagination"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/storage"
)

var (
	// ErrProjectionRequired indicates a missing campaign projection.
	ErrProjectionRequired = errors.New("campaign projection is required")
	// ErrEventsRequired indicates a missing event source.
	ErrEventsRequired = errors.New("event source is required")
	// ErrScoresRequired indicates a missing score store.
	ErrScoresRequired = errors.New("score store is required")
)

var (
	campaignPageSize = pagination.PageSizeConfig{Default: 20, Max: 100}
	activityPageSize = pagination.PageSizeConfig{Default: 20, Max: 100}
)

// Projection is the registry surface queries read from.
type Projection interface {
	Snapshot(campaignID string) (campaign.State, error)
	Snapshots() []campaign.State
	InvestorCampaigns(investorID string) []string
}

// EventSource streams one campaign's stored events in seq order.
type EventSource interface {
	FoldSince(ctx context.Context, campaignID string, cursor uint64) iter.Seq2[event.Event, error]
}

// Service answers read queries.
type Service struct {
	projection Projection
	events     EventSource
	scores     storage.ScoreStore
	logger     zerolog.Logger
}

// New builds a query service.
func New(projection Projection, events EventSource, scores storage.ScoreStore, logger zerolog.Logger) (*Service, error) {
	if projection == nil {
		return nil, ErrProjectionRequired
	}
	if events == nil {
		return nil, ErrEventsRequired
	}
	if scores == nil {
		return nil, ErrScoresRequired
	}
	return &Service{
		projection: projection,
		events:     events,
		scores:     scores,
		logger:     logger.With().Str("component", "query").Logger(),
	}, nil
}
