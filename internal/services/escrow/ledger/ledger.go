// Package ledger is the single write path into the event log. It checks the
// money invariants every event must respect before the store assigns a
// sequence number, and exposes lazy folds over what was committed.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/shopspring/decimal"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/storage"
	"github.com/taliva/escrow/internal/services/escrow/storage/eventfilter"
	"github.com/taliva/escrow/internal/services/escrow/storage/integrity"
)

const pageSize = 200

// Ledger guards appends to an event store.
type Ledger struct {
	store   storage.EventStore
	keyring *integrity.Keyring

	// balances holds one *balance per campaign, loaded on first touch.
	balances sync.Map
}

// New wraps store. keyring is used by VerifyChain and may be nil when the
// store writes unsigned events.
func New(store storage.EventStore, keyring *integrity.Keyring) *Ledger {
	return &Ledger{store: store, keyring: keyring}
}

// Store returns the underlying event store.
func (l *Ledger) Store() storage.EventStore { return l.store }

// Append validates evt, checks it against the campaign's balance and commits
// it. The returned event carries its seq and integrity fields. Invariant
// violations fail with LEDGER_CONFLICT, store failures with STORAGE_FAILURE;
// neither records anything.
func (l *Ledger) Append(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	evt, err := event.ValidateForAppend(evt)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}

	bal, err := l.balance(ctx, evt.CampaignID)
	if err != nil {
		return event.Event{}, err
	}

	bal.mu.Lock()
	defer bal.mu.Unlock()

	effect, err := bal.check(evt)
	if err != nil {
		return event.Event{}, err
	}
	stored, err := l.store.AppendEvent(ctx, evt)
	if err != nil {
		return event.Event{}, storeError("append event", err)
	}
	effect(bal)
	return stored, nil
}

// FoldSince yields campaignID's events with seq > cursor in ledger order.
// The sequence pages through the store lazily and can be ranged again.
// Iteration stops at the first error, which is yielded with a zero event.
func (l *Ledger) FoldSince(ctx context.Context, campaignID string, cursor uint64) iter.Seq2[event.Event, error] {
	return l.pages(ctx, cursor, func(after uint64) ([]event.Event, error) {
		return l.store.ListCampaignEvents(ctx, campaignID, after, pageSize)
	})
}

// All yields every event with seq > cursor across campaigns.
func (l *Ledger) All(ctx context.Context, cursor uint64) iter.Seq2[event.Event, error] {
	return l.pages(ctx, cursor, func(after uint64) ([]event.Event, error) {
		return l.store.ListEvents(ctx, after, pageSize)
	})
}

func (l *Ledger) pages(ctx context.Context, cursor uint64, list func(after uint64) ([]event.Event, error)) iter.Seq2[event.Event, error] {
	return func(yield func(event.Event, error) bool) {
		after := cursor
		for {
			if err := ctx.Err(); err != nil {
				yield(event.Event{}, err)
				return
			}
			events, err := list(after)
			if err != nil {
				yield(event.Event{}, storeError("list events", err))
				return
			}
			for _, evt := range events {
				if !yield(evt, nil) {
					return
				}
				after = evt.Seq
			}
			if len(events) < pageSize {
				return
			}
		}
	}
}

// ListEventsPage returns a filtered page of one campaign's events.
func (l *Ledger) ListEventsPage(ctx context.Context, req storage.ListEventsPageRequest) (storage.ListEventsPageResult, error) {
	page, err := l.store.ListEventsPage(ctx, req)
	if err != nil {
		if errors.Is(err, eventfilter.ErrInvalid) {
			return storage.ListEventsPageResult{}, apperrors.Wrap(apperrors.CodeInvalidFilter, err.Error(), err)
		}
		return storage.ListEventsPageResult{}, storeError("list events page", err)
	}
	return page, nil
}

// LatestSeq returns the highest committed seq.
func (l *Ledger) LatestSeq(ctx context.Context) (uint64, error) {
	seq, err := l.store.LatestSeq(ctx)
	if err != nil {
		return 0, storeError("latest seq", err)
	}
	return seq, nil
}

// CampaignIDs returns every campaign in the ledger in launch order.
func (l *Ledger) CampaignIDs(ctx context.Context) ([]string, error) {
	ids, err := l.store.CampaignIDs(ctx)
	if err != nil {
		return nil, storeError("campaign ids", err)
	}
	return ids, nil
}

// ListCampaignEvents satisfies replay.EventStore.
func (l *Ledger) ListCampaignEvents(ctx context.Context, campaignID string, afterSeq uint64, limit int) ([]event.Event, error) {
	events, err := l.store.ListCampaignEvents(ctx, campaignID, afterSeq, limit)
	if err != nil {
		return nil, storeError("list campaign events", err)
	}
	return events, nil
}

// VerifyChain recomputes hashes, chain links and signatures of one
// campaign's events and returns how many verified.
func (l *Ledger) VerifyChain(ctx context.Context, campaignID string) (int, error) {
	verifier := integrity.NewVerifier(l.keyring)
	for evt, err := range l.FoldSince(ctx, campaignID, 0) {
		if err != nil {
			return verifier.Checked(), err
		}
		if err := verifier.Check(evt); err != nil {
			return verifier.Checked(), fmt.Errorf("campaign %s: %w", campaignID, err)
		}
	}
	return verifier.Checked(), nil
}

// balance loads the guard state for campaignID, folding its history on
// first use.
func (l *Ledger) balance(ctx context.Context, campaignID string) (*balance, error) {
	if cached, ok := l.balances.Load(campaignID); ok {
		return cached.(*balance), nil
	}
	fresh := newBalance()
	for evt, err := range l.FoldSince(ctx, campaignID, 0) {
		if err != nil {
			return nil, err
		}
		effect, err := fresh.check(evt)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageFailure,
				fmt.Sprintf("ledger history of %s violates its own invariants at seq %d", campaignID, evt.Seq), err)
		}
		effect(fresh)
	}
	actual, _ := l.balances.LoadOrStore(campaignID, fresh)
	return actual.(*balance), nil
}

func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, storage.ErrConflict) {
		return apperrors.Wrap(apperrors.CodeLedgerConflict, op+": "+err.Error(), err)
	}
	return apperrors.Wrap(apperrors.CodeStorageFailure, op+": "+err.Error(), err)
}

func conflict(format string, args ...any) error {
	return apperrors.Newf(apperrors.CodeLedgerConflict, format, args...)
}

// stake is the ledger's view of one investment.
type stake struct {
	investorID string
	amount     decimal.Decimal
	refunded   bool
}

// balance is the minimum state needed to check money invariants.
type balance struct {
	mu       sync.Mutex
	created  bool
	raised   decimal.Decimal
	released decimal.Decimal
	stakes   map[string]stake
}

func newBalance() *balance {
	return &balance{stakes: make(map[string]stake)}
}

// check returns the update evt applies to b, or a LEDGER_CONFLICT error.
// The update runs only after the store commits.
func (b *balance) check(evt event.Event) (func(*balance), error) {
	noop := func(*balance) {}
	if evt.Type == event.TypeCampaignCreated {
		if b.created {
			return nil, conflict("campaign %s already has a creation event", evt.CampaignID)
		}
		return func(b *balance) { b.created = true }, nil
	}
	if !b.created {
		return nil, conflict("campaign %s does not exist in the ledger", evt.CampaignID)
	}

	switch evt.Type {
	case event.TypeInvestmentDeposited:
		p, err := event.DecodePayload[event.InvestmentDepositedPayload](evt)
		if err != nil {
			return nil, err
		}
		if !p.Amount.IsPositive() {
			return nil, conflict("deposit amount must be positive, got %s", p.Amount)
		}
		if _, exists := b.stakes[p.InvestmentID]; exists {
			return nil, conflict("investment %s is already recorded", p.InvestmentID)
		}
		return func(b *balance) {
			b.stakes[p.InvestmentID] = stake{investorID: p.InvestorID, amount: p.Amount}
			b.raised = b.raised.Add(p.Amount)
		}, nil

	case event.TypeInvestmentRefunded:
		p, err := event.DecodePayload[event.InvestmentRefundedPayload](evt)
		if err != nil {
			return nil, err
		}
		if !p.Amount.IsPositive() {
			return nil, conflict("refund amount must be positive, got %s", p.Amount)
		}
		s, ok := b.stakes[p.InvestmentID]
		if !ok || s.refunded {
			return nil, conflict("investment %s has no committed stake to refund", p.InvestmentID)
		}
		if p.Amount.GreaterThan(s.amount) {
			return nil, conflict("refund %s exceeds stake %s of investment %s", p.Amount, s.amount, p.InvestmentID)
		}
		if undistributed := b.raised.Sub(b.released); p.Amount.GreaterThan(undistributed) {
			return nil, conflict("refund %s exceeds undistributed funds %s", p.Amount, undistributed)
		}
		return func(b *balance) {
			s.refunded = true
			b.stakes[p.InvestmentID] = s
			b.raised = b.raised.Sub(p.Amount)
		}, nil

	case event.TypeMilestoneReleased:
		p, err := event.DecodePayload[event.MilestoneReleasedPayload](evt)
		if err != nil {
			return nil, err
		}
		if !p.Amount.IsPositive() {
			return nil, conflict("release amount must be positive, got %s", p.Amount)
		}
		if undistributed := b.raised.Sub(b.released); p.Amount.GreaterThan(undistributed) {
			return nil, conflict("release %s exceeds undistributed funds %s", p.Amount, undistributed)
		}
		return func(b *balance) { b.released = b.released.Add(p.Amount) }, nil
	}
	return noop, nil
}
