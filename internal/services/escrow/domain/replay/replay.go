// Package replay rebuilds campaign state by folding the ledger, resuming
// from the newest checkpoint when one exists.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/storage"
)

const defaultPageSize = 200

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrCampaignIDRequired indicates a missing campaign id.
	ErrCampaignIDRequired = errors.New("campaign id is required")
)

// EventStore lists one campaign's events for replay.
type EventStore interface {
	ListCampaignEvents(ctx context.Context, campaignID string, afterSeq uint64, limit int) ([]event.Event, error)
}

// Options configures replay behavior.
type Options struct {
	// UntilSeq stops replay after the given seq. Zero means the tail.
	UntilSeq uint64
	PageSize int
	// IgnoreCheckpoint folds from the first event even when a checkpoint
	// exists. Used to cross-check incremental state.
	IgnoreCheckpoint bool
}

// Result captures replay outcomes.
type Result struct {
	State   campaign.State
	Applied int
	// FromCheckpoint is the seq the replay resumed after, zero for a full
	// fold.
	FromCheckpoint uint64
}

// Replay folds campaignID's events after the checkpoint (if any) and saves
// the resulting state back as the new checkpoint. A nil checkpoint store
// folds from scratch and saves nothing.
func Replay(ctx context.Context, store EventStore, checkpoints storage.CheckpointStore, campaignID string, options Options) (Result, error) {
	if store == nil {
		return Result{}, ErrEventStoreRequired
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return Result{}, ErrCampaignIDRequired
	}

	var result Result
	if checkpoints != nil && !options.IgnoreCheckpoint {
		state, err := checkpoints.GetState(ctx, campaignID)
		switch {
		case err == nil:
			result.State = state
			result.FromCheckpoint = state.LastSeq
		case !errors.Is(err, storage.ErrNotFound):
			return result, fmt.Errorf("load checkpoint %s: %w", campaignID, err)
		}
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	lastSeq := result.State.LastSeq
	for {
		events, err := store.ListCampaignEvents(ctx, campaignID, lastSeq, pageSize)
		if err != nil {
			return result, err
		}
		if len(events) == 0 {
			break
		}
		done := false
		for _, evt := range events {
			if options.UntilSeq > 0 && evt.Seq > options.UntilSeq {
				done = true
				break
			}
			// The ledger sequence is global, so a campaign's events skip
			// numbers but must never repeat or go backwards.
			if evt.Seq <= lastSeq {
				return result, fmt.Errorf("event sequence regression: %d after %d", evt.Seq, lastSeq)
			}
			next, err := campaign.Fold(result.State, evt)
			if err != nil {
				return result, fmt.Errorf("fold seq %d: %w", evt.Seq, err)
			}
			result.State = next
			result.Applied++
			lastSeq = evt.Seq
		}
		if done {
			break
		}
	}

	if checkpoints != nil && !options.IgnoreCheckpoint && result.Applied > 0 {
		if err := checkpoints.SaveState(ctx, result.State); err != nil {
			return result, fmt.Errorf("save checkpoint %s: %w", campaignID, err)
		}
	}
	return result, nil
}
