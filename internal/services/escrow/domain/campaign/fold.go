package campaign

import (
	"fmt"
	"time"

	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

// Fold applies an event to campaign state and returns the next state.
// Events at or below state.LastSeq are ignored, which makes refolding an
// already-applied suffix a no-op.
func Fold(state State, evt event.Event) (State, error) {
	if evt.Seq != 0 && evt.Seq <= state.LastSeq {
		return state, nil
	}
	if state.Created && evt.CampaignID != state.ID {
		return state, fmt.Errorf("event seq=%d belongs to campaign %s, not %s", evt.Seq, evt.CampaignID, state.ID)
	}

	next, err := foldEvent(state, evt)
	if err != nil {
		return state, err
	}
	if evt.Seq != 0 {
		next.LastSeq = evt.Seq
	}
	if !evt.Timestamp.IsZero() {
		next.UpdatedAt = evt.Timestamp
	}
	return next, nil
}

// FoldAll folds events in order starting from state.
func FoldAll(state State, events []event.Event) (State, error) {
	var err error
	for _, evt := range events {
		state, err = Fold(state, evt)
		if err != nil {
			return state, err
		}
	}
	return state, nil
}

func foldEvent(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case event.TypeCampaignCreated:
		return foldCreated(state, evt)
	case event.TypeCampaignClosed:
		return foldClosed(state, evt)
	}

	if !state.Created {
		return state, fmt.Errorf("%s seq=%d for campaign %s before campaign.created", evt.Type, evt.Seq, evt.CampaignID)
	}

	switch evt.Type {
	case event.TypeInvestmentDeposited:
		return foldDeposited(state, evt)
	case event.TypeInvestmentRefunded:
		return foldRefunded(state, evt)
	case event.TypeMilestoneSubmitted:
		return foldSubmitted(state, evt)
	case event.TypeMilestoneReleased:
		return foldReleased(state, evt)
	case event.TypeMilestoneRejected:
		return foldRejected(state, evt)
	default:
		return state, nil
	}
}

func foldCreated(state State, evt event.Event) (State, error) {
	if state.Created {
		return state, fmt.Errorf("campaign %s created twice (seq=%d)", evt.CampaignID, evt.Seq)
	}
	payload, err := event.DecodePayload[event.CampaignCreatedPayload](evt)
	if err != nil {
		return state, err
	}

	planned := PlanReleases(payload.Goal, payload.AmountScale, payload.Milestones)
	milestones := make([]Milestone, len(payload.Milestones))
	for i, spec := range payload.Milestones {
		milestones[i] = Milestone{
			Tier:          NormalizeTier(spec.Tier),
			Rank:          i,
			Percentage:    spec.Percentage,
			Status:        MilestoneLocked,
			PlannedAmount: planned[i],
		}
	}

	return State{
		Created:          true,
		ID:               evt.CampaignID,
		AthleteName:      payload.AthleteName,
		City:             payload.City,
		Category:         payload.Category,
		Currency:         payload.Currency,
		Goal:             payload.Goal,
		OverfundCapRatio: payload.OverfundCapRatio,
		AmountScale:      payload.AmountScale,
		Status:           StatusOpen,
		Milestones:       milestones,
		Investments:      map[string]Investment{},
		CreatedAt:        evt.Timestamp,
		CreatedSeq:       evt.Seq,
	}, nil
}

func foldClosed(state State, evt event.Event) (State, error) {
	if !state.Created {
		return state, fmt.Errorf("campaign.closed seq=%d for unknown campaign %s", evt.Seq, evt.CampaignID)
	}
	payload, err := event.DecodePayload[event.CampaignClosedPayload](evt)
	if err != nil {
		return state, err
	}
	state.Status = StatusClosed
	state.CloseReason = payload.Reason
	state.ClosedAt = evt.Timestamp
	return state, nil
}

func foldDeposited(state State, evt event.Event) (State, error) {
	payload, err := event.DecodePayload[event.InvestmentDepositedPayload](evt)
	if err != nil {
		return state, err
	}
	if _, exists := state.Investments[payload.InvestmentID]; exists {
		return state, fmt.Errorf("investment %s deposited twice (seq=%d)", payload.InvestmentID, evt.Seq)
	}

	next := state.Clone()
	if next.Investments == nil {
		next.Investments = map[string]Investment{}
	}
	next.Investments[payload.InvestmentID] = Investment{
		ID:         payload.InvestmentID,
		InvestorID: payload.InvestorID,
		Amount:     payload.Amount,
		Status:     InvestmentCommitted,
		CreatedAt:  evt.Timestamp,
		Seq:        evt.Seq,
	}
	next.Raised = next.Raised.Add(payload.Amount)
	if next.Status == StatusOpen && next.Raised.GreaterThanOrEqual(next.Goal) {
		next.Status = StatusFullyFunded
		next.FullyFundedAt = evt.Timestamp
	}
	return next, nil
}

func foldRefunded(state State, evt event.Event) (State, error) {
	payload, err := event.DecodePayload[event.InvestmentRefundedPayload](evt)
	if err != nil {
		return state, err
	}
	inv, ok := state.Investments[payload.InvestmentID]
	if !ok {
		return state, fmt.Errorf("refund seq=%d for unknown investment %s", evt.Seq, payload.InvestmentID)
	}
	if inv.Status == InvestmentRefunded {
		return state, fmt.Errorf("investment %s refunded twice (seq=%d)", payload.InvestmentID, evt.Seq)
	}

	next := state.Clone()
	inv.Status = InvestmentRefunded
	inv.RefundedAt = evt.Timestamp
	inv.RefundReason = payload.Reason
	next.Investments[inv.ID] = inv
	next.Raised = next.Raised.Sub(payload.Amount)
	next.Refunded = next.Refunded.Add(payload.Amount)
	return next, nil
}

func foldSubmitted(state State, evt event.Event) (State, error) {
	payload, err := event.DecodePayload[event.MilestoneSubmittedPayload](evt)
	if err != nil {
		return state, err
	}
	return updateMilestone(state, evt, payload.Tier, func(m *Milestone) {
		m.Status = MilestonePendingApproval
		m.SubmittedAt = evt.Timestamp
	})
}

func foldReleased(state State, evt event.Event) (State, error) {
	payload, err := event.DecodePayload[event.MilestoneReleasedPayload](evt)
	if err != nil {
		return state, err
	}
	next, err := updateMilestone(state, evt, payload.Tier, func(m *Milestone) {
		m.Status = MilestoneReleased
		m.ReleasedAmount = payload.Amount
		m.ReleasedAt = evt.Timestamp
		m.ReleasedSeq = evt.Seq
	})
	if err != nil {
		return state, err
	}
	next.Released = next.Released.Add(payload.Amount)
	return next, nil
}

func foldRejected(state State, evt event.Event) (State, error) {
	payload, err := event.DecodePayload[event.MilestoneRejectedPayload](evt)
	if err != nil {
		return state, err
	}
	return updateMilestone(state, evt, payload.Tier, func(m *Milestone) {
		m.Status = MilestoneLocked
		m.Rejections++
		m.LastRejection = payload.Reason
		m.SubmittedAt = time.Time{}
	})
}

func updateMilestone(state State, evt event.Event, tier string, update func(*Milestone)) (State, error) {
	idx := state.milestoneIndex(tier)
	if idx < 0 {
		return state, fmt.Errorf("%s seq=%d names unknown tier %q", evt.Type, evt.Seq, tier)
	}
	next := state.Clone()
	update(&next.Milestones[idx])
	return next, nil
}
