// Package milestone governs tier progression: submission for committee
// review, approval with fund release, and rejection back to locked.
//
// A tier moves Locked → PendingApproval → Released, or back to Locked on
// rejection. At most one tier per campaign is pending, and a tier may only
// be submitted once every lower tier has been released.
package milestone

import (
	"strings"
	"time"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/command"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

// SubmitPayload is the input of a milestone.submit command.
type SubmitPayload struct {
	Tier     string `json:"tier"`
	Evidence string `json:"evidence,omitempty"`
}

// ApprovePayload is the input of a milestone.approve command.
type ApprovePayload struct {
	Tier string `json:"tier"`
}

// RejectPayload is the input of a milestone.reject command.
type RejectPayload struct {
	Tier   string `json:"tier"`
	Reason string `json:"reason"`
}

// Decide returns the decision for a milestone command.
func Decide(state campaign.State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}
	switch cmd.Type {
	case command.TypeMilestoneSubmit:
		return decideSubmit(state, cmd, now)
	case command.TypeMilestoneApprove:
		return decideApprove(state, cmd, now)
	case command.TypeMilestoneReject:
		return decideReject(state, cmd, now)
	default:
		return command.Reject(command.Rejection{
			Code:    apperrors.CodeInvalidArgument,
			Message: "unsupported milestone command " + string(cmd.Type),
		})
	}
}

func decideSubmit(state campaign.State, cmd command.Command, now func() time.Time) command.Decision {
	payload, err := command.Payload[SubmitPayload](cmd)
	if err != nil {
		return command.RejectError(err)
	}
	m, rejected, ok := lookup(state, cmd, payload.Tier)
	if !ok {
		return rejected
	}
	if pending, ok := state.PendingMilestone(); ok && pending.Tier != m.Tier {
		return command.Reject(command.Rejection{
			Code:    apperrors.CodeMilestoneAlreadyPending,
			Message: "tier " + pending.Tier + " is already pending approval",
			Metadata: map[string]string{
				"CampaignID": state.ID,
				"Tier":       m.Tier,
				"Pending":    pending.Tier,
			},
		})
	}
	if m.Status != campaign.MilestoneLocked {
		return outOfOrder(state, m, "tier "+m.Tier+" is "+string(m.Status))
	}
	for _, lower := range state.Milestones[:m.Rank] {
		if lower.Status != campaign.MilestoneReleased {
			return outOfOrder(state, m, "tier "+lower.Tier+" must be released before "+m.Tier)
		}
	}

	payloadJSON, err := event.EncodePayload(event.MilestoneSubmittedPayload{
		Tier:     m.Tier,
		Evidence: strings.TrimSpace(payload.Evidence),
	})
	if err != nil {
		return command.RejectError(err)
	}
	return command.Accept(command.NewEvent(cmd, event.TypeMilestoneSubmitted, event.EntityMilestone, m.Tier, payloadJSON, now()))
}

func decideApprove(state campaign.State, cmd command.Command, now func() time.Time) command.Decision {
	payload, err := command.Payload[ApprovePayload](cmd)
	if err != nil {
		return command.RejectError(err)
	}
	m, rejected, ok := lookup(state, cmd, payload.Tier)
	if !ok {
		return rejected
	}
	if m.Status != campaign.MilestonePendingApproval {
		return notPending(state, m)
	}

	amount := m.PlannedAmount
	available := state.Escrow()
	if available.LessThan(amount) {
		return command.Reject(command.Rejection{
			Code:    apperrors.CodeMilestoneInsufficientFunds,
			Message: "escrow holds " + available.String() + ", tier " + m.Tier + " releases " + amount.String(),
			Metadata: map[string]string{
				"CampaignID": state.ID,
				"Tier":       m.Tier,
				"Available":  available.String(),
				"Amount":     amount.String(),
			},
		})
	}

	payloadJSON, err := event.EncodePayload(event.MilestoneReleasedPayload{Tier: m.Tier, Amount: amount})
	if err != nil {
		return command.RejectError(err)
	}
	return command.Accept(command.NewEvent(cmd, event.TypeMilestoneReleased, event.EntityMilestone, m.Tier, payloadJSON, now()))
}

func decideReject(state campaign.State, cmd command.Command, now func() time.Time) command.Decision {
	payload, err := command.Payload[RejectPayload](cmd)
	if err != nil {
		return command.RejectError(err)
	}
	reason := strings.TrimSpace(payload.Reason)
	if reason == "" {
		return command.Reject(command.Rejection{
			Code:    apperrors.CodeMilestoneReasonRequired,
			Message: "rejection reason is required",
		})
	}
	m, rejected, ok := lookup(state, cmd, payload.Tier)
	if !ok {
		return rejected
	}
	if m.Status != campaign.MilestonePendingApproval {
		return notPending(state, m)
	}

	payloadJSON, err := event.EncodePayload(event.MilestoneRejectedPayload{Tier: m.Tier, Reason: reason})
	if err != nil {
		return command.RejectError(err)
	}
	return command.Accept(command.NewEvent(cmd, event.TypeMilestoneRejected, event.EntityMilestone, m.Tier, payloadJSON, now()))
}

// lookup resolves the addressed tier and applies the checks every
// milestone command shares.
func lookup(state campaign.State, cmd command.Command, tier string) (campaign.Milestone, command.Decision, bool) {
	if !state.Created {
		return campaign.Milestone{}, campaign.NotFound(cmd.CampaignID), false
	}
	normalized := campaign.NormalizeTier(tier)
	if normalized == "" {
		return campaign.Milestone{}, command.Reject(command.Rejection{
			Code:     apperrors.CodeInvalidArgument,
			Message:  "tier is required",
			Metadata: map[string]string{"Field": "tier"},
		}), false
	}
	m, ok := state.Milestone(normalized)
	if !ok {
		return campaign.Milestone{}, command.Reject(command.Rejection{
			Code:     apperrors.CodeMilestoneUnknownTier,
			Message:  "tier " + normalized + " is not in the schedule",
			Metadata: map[string]string{"CampaignID": state.ID, "Tier": normalized},
		}), false
	}
	if state.Status == campaign.StatusClosed {
		return campaign.Milestone{}, campaign.Closed(state.ID), false
	}
	return m, command.Decision{}, true
}

func outOfOrder(state campaign.State, m campaign.Milestone, message string) command.Decision {
	return command.Reject(command.Rejection{
		Code:     apperrors.CodeMilestoneOutOfOrder,
		Message:  message,
		Metadata: map[string]string{"CampaignID": state.ID, "Tier": m.Tier},
	})
}

func notPending(state campaign.State, m campaign.Milestone) command.Decision {
	return command.Reject(command.Rejection{
		Code:     apperrors.CodeMilestoneNotPending,
		Message:  "tier " + m.Tier + " is " + string(m.Status) + ", not pending approval",
		Metadata: map[string]string{"CampaignID": state.ID, "Tier": m.Tier, "Status": string(m.Status)},
	})
}
