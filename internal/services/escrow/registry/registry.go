// Package registry holds the in-memory projection of every campaign.
//
// Each campaign's folded state sits behind an atomic pointer. Writers fold a
// stored event into a copy and swap it in; readers load the pointer and never
// block. States handed out by the registry share their maps and slices with
// the projection and must be treated as read-only.
package registry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/domain/replay"
	"github.com/taliva/escrow/internal/services/escrow/storage"
)

// Source is the ledger read surface the registry folds from.
type Source interface {
	replay.EventStore
	FoldSince(ctx context.Context, campaignID string, cursor uint64) iter.Seq2[event.Event, error]
	All(ctx context.Context, cursor uint64) iter.Seq2[event.Event, error]
	CampaignIDs(ctx context.Context) ([]string, error)
}

// Registry is the campaign projection.
type Registry struct {
	source      Source
	checkpoints storage.CheckpointStore
	logger      zerolog.Logger

	campaigns sync.Map // campaign id -> *entry

	investorsMu sync.RWMutex
	investors   map[string][]string // investor id -> campaign ids, first deposit order
}

type entry struct {
	state atomic.Pointer[campaign.State]
}

// New builds an empty registry. checkpoints may be nil.
func New(source Source, checkpoints storage.CheckpointStore, logger zerolog.Logger) *Registry {
	return &Registry{
		source:      source,
		checkpoints: checkpoints,
		logger:      logger.With().Str("component", "registry").Logger(),
		investors:   make(map[string][]string),
	}
}

// Snapshot returns the current state of campaignID.
func (r *Registry) Snapshot(campaignID string) (campaign.State, error) {
	if value, ok := r.campaigns.Load(campaignID); ok {
		if state := value.(*entry).state.Load(); state != nil {
			return *state, nil
		}
	}
	return campaign.State{}, apperrors.WithMetadata(apperrors.CodeNotFound,
		fmt.Sprintf("campaign %s not found", campaignID),
		map[string]string{"CampaignID": campaignID})
}

// State returns the current state of campaignID, or the zero State when the
// campaign is unknown. Deciders use the zero State to reject with NOT_FOUND.
func (r *Registry) State(campaignID string) campaign.State {
	state, _ := r.Snapshot(campaignID)
	return state
}

// Snapshots returns every campaign's state in no particular order.
func (r *Registry) Snapshots() []campaign.State {
	var out []campaign.State
	r.campaigns.Range(func(_, value any) bool {
		if state := value.(*entry).state.Load(); state != nil {
			out = append(out, *state)
		}
		return true
	})
	return out
}

// Len returns the number of campaigns.
func (r *Registry) Len() int {
	n := 0
	r.campaigns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// InvestorCampaigns returns the campaigns investorID has deposited into.
func (r *Registry) InvestorCampaigns(investorID string) []string {
	r.investorsMu.RLock()
	defer r.investorsMu.RUnlock()
	return slices.Clone(r.investors[investorID])
}

// Apply folds one stored event into the projection and checkpoints the
// result. Events already reflected are ignored. A checkpoint failure is
// logged and does not fail the apply.
func (r *Registry) Apply(ctx context.Context, evt event.Event) (campaign.State, error) {
	value, _ := r.campaigns.LoadOrStore(evt.CampaignID, &entry{})
	e := value.(*entry)

	for {
		current := e.state.Load()
		var base campaign.State
		if current != nil {
			base = *current
		}
		next, err := campaign.Fold(base, evt)
		if err != nil {
			if current == nil {
				r.campaigns.CompareAndDelete(evt.CampaignID, e)
			}
			return base, fmt.Errorf("apply seq %d: %w", evt.Seq, err)
		}
		if next.LastSeq == base.LastSeq && current != nil {
			return base, nil
		}
		if !e.state.CompareAndSwap(current, &next) {
			continue
		}
		r.index(evt)
		r.checkpoint(ctx, next)
		return next, nil
	}
}

// Refresh folds any events of campaignID the projection has not seen yet.
func (r *Registry) Refresh(ctx context.Context, campaignID string) (campaign.State, error) {
	state := r.State(campaignID)
	for evt, err := range r.source.FoldSince(ctx, campaignID, state.LastSeq) {
		if err != nil {
			return state, err
		}
		if state, err = r.Apply(ctx, evt); err != nil {
			return state, err
		}
	}
	if !state.Created {
		return r.Snapshot(campaignID)
	}
	return state, nil
}

// Load restores every campaign from its checkpoint and folds the events
// recorded after it. It returns the number of events folded.
func (r *Registry) Load(ctx context.Context) (int, error) {
	ids, err := r.source.CampaignIDs(ctx)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, id := range ids {
		result, err := replay.Replay(ctx, r.source, r.checkpoints, id, replay.Options{})
		if err != nil {
			return applied, fmt.Errorf("load campaign %s: %w", id, err)
		}
		r.install(result.State)
		applied += result.Applied
		r.logger.Debug().
			Str("campaign_id", id).
			Uint64("checkpoint_seq", result.FromCheckpoint).
			Int("applied", result.Applied).
			Msg("campaign loaded")
	}
	return applied, nil
}

// Rebuild discards the projection and folds the whole ledger from seq 1.
// Checkpoints are overwritten with the rebuilt states.
func (r *Registry) Rebuild(ctx context.Context) (int, error) {
	states := make(map[string]campaign.State)
	applied := 0
	for evt, err := range r.source.All(ctx, 0) {
		if err != nil {
			return applied, err
		}
		next, err := campaign.Fold(states[evt.CampaignID], evt)
		if err != nil {
			return applied, fmt.Errorf("rebuild seq %d: %w", evt.Seq, err)
		}
		states[evt.CampaignID] = next
		applied++
	}

	r.campaigns.Clear()
	r.investorsMu.Lock()
	clear(r.investors)
	r.investorsMu.Unlock()
	for _, state := range states {
		r.install(state)
		r.checkpoint(ctx, state)
	}
	return applied, nil
}

func (r *Registry) install(state campaign.State) {
	if !state.Created {
		return
	}
	e := &entry{}
	e.state.Store(&state)
	r.campaigns.Store(state.ID, e)

	r.investorsMu.Lock()
	defer r.investorsMu.Unlock()
	for _, investorID := range state.InvestorIDs() {
		if !slices.Contains(r.investors[investorID], state.ID) {
			r.investors[investorID] = append(r.investors[investorID], state.ID)
		}
	}
}

func (r *Registry) index(evt event.Event) {
	if evt.Type != event.TypeInvestmentDeposited {
		return
	}
	payload, err := event.DecodePayload[event.InvestmentDepositedPayload](evt)
	if err != nil {
		return
	}
	r.investorsMu.Lock()
	defer r.investorsMu.Unlock()
	if !slices.Contains(r.investors[payload.InvestorID], evt.CampaignID) {
		r.investors[payload.InvestorID] = append(r.investors[payload.InvestorID], evt.CampaignID)
	}
}

func (r *Registry) checkpoint(ctx context.Context, state campaign.State) {
	if r.checkpoints == nil {
		return
	}
	if err := r.checkpoints.SaveState(ctx, state); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn().Err(err).Str("campaign_id", state.ID).Uint64("seq", state.LastSeq).Msg("save checkpoint")
	}
}
