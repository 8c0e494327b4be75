package milestone

import (
	"strings"

	"github.com/taliva/escrow/internal/services/escrow/domain/command"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

// Verdict is one committee decision from the review feed.
type Verdict struct {
	CampaignID string `json:"campaign_id"`
	Tier       string `json:"tier"`
	Approved   bool   `json:"approved"`
	Reason     string `json:"reason,omitempty"`
	// ReviewerID identifies the committee member who signed the verdict.
	ReviewerID string `json:"reviewer_id,omitempty"`
}

// Command routes a verdict to the approve or reject command it stands for.
func (v Verdict) Command() (command.Command, error) {
	var (
		cmd command.Command
		err error
	)
	if v.Approved {
		cmd, err = command.New(command.TypeMilestoneApprove, v.CampaignID, ApprovePayload{Tier: v.Tier})
	} else {
		cmd, err = command.New(command.TypeMilestoneReject, v.CampaignID, RejectPayload{Tier: v.Tier, Reason: v.Reason})
	}
	if err != nil {
		return command.Command{}, err
	}
	return cmd.WithActor(event.ActorTypeCommittee, strings.TrimSpace(v.ReviewerID)), nil
}
