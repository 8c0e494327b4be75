// Package campaigntest builds campaign event histories for tests.
package campaigntest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

// Epoch is the timestamp of the first event a Builder emits.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Builder appends events for one campaign and keeps the folded state.
type Builder struct {
	t      testing.TB
	id     string
	seq    uint64
	state  campaign.State
	events []event.Event
}

// New returns a builder for campaignID whose first event gets seq 1.
func New(t testing.TB, campaignID string) *Builder {
	t.Helper()
	return &Builder{t: t, id: campaignID}
}

// StartAt makes the next event use seq+1. Useful when several builders
// share one global sequence.
func (b *Builder) StartAt(seq uint64) *Builder {
	b.seq = seq
	return b
}

// Spec is shorthand for a schedule entry.
func Spec(tier, percentage string) event.MilestoneSpec {
	return event.MilestoneSpec{Tier: tier, Percentage: decimal.RequireFromString(percentage)}
}

// Grades is the D/C/B/A schedule used across the product: 10/15/25/50.
func Grades() []event.MilestoneSpec {
	return []event.MilestoneSpec{Spec("D", "10"), Spec("C", "15"), Spec("B", "25"), Spec("A", "50")}
}

// Launch emits campaign.created with the given goal and schedule. The
// category is "athletics", the cap ratio zero and the scale six.
func (b *Builder) Launch(goal string, schedule ...event.MilestoneSpec) *Builder {
	return b.LaunchWith(event.CampaignCreatedPayload{
		AthleteName: "Test Athlete",
		Category:    "athletics",
		Currency:    campaign.DefaultCurrency,
		Goal:        decimal.RequireFromString(goal),
		AmountScale: campaign.DefaultAmountScale,
		Milestones:  schedule,
	})
}

// LaunchWith emits campaign.created with an explicit payload.
func (b *Builder) LaunchWith(payload event.CampaignCreatedPayload) *Builder {
	return b.emit(event.TypeCampaignCreated, event.EntityCampaign, b.id, payload)
}

// Deposit emits investment.deposited.
func (b *Builder) Deposit(investmentID, investorID, amount string) *Builder {
	return b.emit(event.TypeInvestmentDeposited, event.EntityInvestment, investmentID, event.InvestmentDepositedPayload{
		InvestmentID: investmentID,
		InvestorID:   investorID,
		Amount:       decimal.RequireFromString(amount),
	})
}

// Refund emits investment.refunded for a previously deposited investment.
func (b *Builder) Refund(investmentID, reason string) *Builder {
	inv, ok := b.state.Investments[investmentID]
	if !ok {
		b.t.Fatalf("refund of unknown investment %s", investmentID)
	}
	return b.emit(event.TypeInvestmentRefunded, event.EntityInvestment, investmentID, event.InvestmentRefundedPayload{
		InvestmentID: investmentID,
		InvestorID:   inv.InvestorID,
		Amount:       inv.Amount,
		Reason:       reason,
	})
}

// Submit emits milestone.submitted.
func (b *Builder) Submit(tier string) *Builder {
	return b.emit(event.TypeMilestoneSubmitted, event.EntityMilestone, tier, event.MilestoneSubmittedPayload{Tier: tier})
}

// Release emits milestone.released with the tier's planned amount.
func (b *Builder) Release(tier string) *Builder {
	m, ok := b.state.Milestone(tier)
	if !ok {
		b.t.Fatalf("release of unknown tier %s", tier)
	}
	return b.emit(event.TypeMilestoneReleased, event.EntityMilestone, m.Tier, event.MilestoneReleasedPayload{
		Tier:   m.Tier,
		Amount: m.PlannedAmount,
	})
}

// Reject emits milestone.rejected.
func (b *Builder) Reject(tier, reason string) *Builder {
	return b.emit(event.TypeMilestoneRejected, event.EntityMilestone, tier, event.MilestoneRejectedPayload{Tier: tier, Reason: reason})
}

// Close emits campaign.closed.
func (b *Builder) Close(reason string) *Builder {
	return b.emit(event.TypeCampaignClosed, event.EntityCampaign, b.id, event.CampaignClosedPayload{Reason: reason})
}

// State returns the folded state.
func (b *Builder) State() campaign.State {
	return b.state
}

// Events returns a copy of the emitted events.
func (b *Builder) Events() []event.Event {
	return append([]event.Event(nil), b.events...)
}

// Seq returns the seq of the last emitted event.
func (b *Builder) Seq() uint64 {
	return b.seq
}

func (b *Builder) emit(eventType event.Type, entityType, entityID string, payload any) *Builder {
	b.t.Helper()
	data, err := event.EncodePayload(payload)
	if err != nil {
		b.t.Fatalf("encode %s: %v", eventType, err)
	}
	b.seq++
	evt := event.Event{
		Seq:         b.seq,
		CampaignID:  b.id,
		Type:        eventType,
		Timestamp:   Epoch.Add(time.Duration(len(b.events)) * time.Minute),
		ActorType:   event.ActorTypeSystem,
		EntityType:  entityType,
		EntityID:    entityID,
		PayloadJSON: data,
	}
	next, err := campaign.Fold(b.state, evt)
	if err != nil {
		b.t.Fatalf("fold %s: %v", eventType, err)
	}
	b.state = next
	b.events = append(b.events, evt)
	return b
}
