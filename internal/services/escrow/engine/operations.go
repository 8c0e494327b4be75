package engine

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/platform/id"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/command"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/domain/intake"
	"github.com/taliva/escrow/internal/services/escrow/domain/milestone"
)

func defaultNewID() (string, error) { return id.NewID() }

// Receipt identifies the ledger entry a command produced.
type Receipt struct {
	CampaignID string
	Seq        uint64
	EventHash  string
	Status     campaign.Status
}

func receipt(result Result) Receipt {
	return Receipt{
		CampaignID: result.Event.CampaignID,
		Seq:        result.Event.Seq,
		EventHash:  result.Event.Hash,
		Status:     result.State.Status,
	}
}

// CreateCampaignInput launches a campaign. CampaignID is generated when
// empty; currency defaults to the engine policy.
type CreateCampaignInput struct {
	CampaignID  string
	AthleteName string
	City        string
	Category    string
	Currency    string
	Goal        decimal.Decimal
	Milestones  []event.MilestoneSpec
	RequestID   string
}

// CampaignReceipt is returned by CreateCampaign.
type CampaignReceipt struct {
	Receipt
	Milestones []campaign.Milestone
}

// CreateCampaign validates the schedule and records campaign.created. The
// engine's overfund cap and amount scale are frozen into the campaign.
func (e *Engine) CreateCampaign(ctx context.Context, in CreateCampaignInput) (CampaignReceipt, error) {
	campaignID := strings.TrimSpace(in.CampaignID)
	if campaignID == "" {
		generated, err := e.newID()
		if err != nil {
			return CampaignReceipt{}, apperrors.Wrap(apperrors.CodeUnknown, "generate campaign id", err)
		}
		campaignID = generated
	}
	currency := in.Currency
	if strings.TrimSpace(currency) == "" {
		currency = e.policy.Currency
	}
	cmd, err := command.New(command.TypeCampaignCreate, campaignID, campaign.CreatePayload{
		AthleteName:      in.AthleteName,
		City:             in.City,
		Category:         in.Category,
		Currency:         currency,
		Goal:             in.Goal,
		OverfundCapRatio: e.policy.OverfundCapRatio,
		AmountScale:      e.policy.AmountScale,
		Milestones:       in.Milestones,
	})
	if err != nil {
		return CampaignReceipt{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}
	cmd = cmd.WithActor(event.ActorTypeAthlete, "").WithRequestID(in.RequestID)

	result, err := e.Execute(ctx, "create_campaign", cmd, campaign.Decide)
	if err != nil {
		return CampaignReceipt{}, err
	}
	return CampaignReceipt{Receipt: receipt(result), Milestones: result.State.Milestones}, nil
}

// CloseCampaignInput closes a campaign for good.
type CloseCampaignInput struct {
	CampaignID string
	Reason     string
	RequestID  string
}

// CloseCampaign records campaign.closed. Every later write fails with
// CAMPAIGN_CLOSED.
func (e *Engine) CloseCampaign(ctx context.Context, in CloseCampaignInput) (Receipt, error) {
	cmd, err := command.New(command.TypeCampaignClose, in.CampaignID, campaign.ClosePayload{Reason: in.Reason})
	if err != nil {
		return Receipt{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}
	result, err := e.Execute(ctx, "close_campaign", cmd.WithRequestID(in.RequestID), campaign.Decide)
	if err != nil {
		return Receipt{}, err
	}
	return receipt(result), nil
}

// DepositInput commits money from an investor. InvestmentID is generated
// when empty; callers that retry should supply one so a replayed request
// is rejected as a duplicate instead of double counted.
type DepositInput struct {
	CampaignID   string
	InvestorID   string
	InvestmentID string
	Amount       decimal.Decimal
	RequestID    string
}

// DepositReceipt is returned by Deposit.
type DepositReceipt struct {
	Receipt
	InvestmentID string
	Raised       decimal.Decimal
}

// Deposit records investment.deposited if the campaign accepts it.
func (e *Engine) Deposit(ctx context.Context, in DepositInput) (DepositReceipt, error) {
	investmentID := strings.TrimSpace(in.InvestmentID)
	if investmentID == "" {
		generated, err := e.newID()
		if err != nil {
			return DepositReceipt{}, apperrors.Wrap(apperrors.CodeUnknown, "generate investment id", err)
		}
		investmentID = generated
	}
	cmd, err := command.New(command.TypeInvestmentDeposit, in.CampaignID, intake.DepositPayload{
		InvestmentID: investmentID,
		InvestorID:   strings.TrimSpace(in.InvestorID),
		Amount:       in.Amount,
	})
	if err != nil {
		return DepositReceipt{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}
	cmd = cmd.WithActor(event.ActorTypeInvestor, in.InvestorID).WithRequestID(in.RequestID)

	result, err := e.Execute(ctx, "deposit", cmd, intake.Decide)
	if err != nil {
		return DepositReceipt{}, err
	}
	return DepositReceipt{Receipt: receipt(result), InvestmentID: investmentID, Raised: result.State.Raised}, nil
}

// RefundInput returns one investment to its investor.
type RefundInput struct {
	CampaignID   string
	InvestmentID string
	Reason       string
	RequestID    string
}

// RefundReceipt is returned by RefundInvestment.
type RefundReceipt struct {
	Receipt
	InvestmentID string
	Amount       decimal.Decimal
	Raised       decimal.Decimal
}

// RefundInvestment records investment.refunded. Only open campaigns refund.
func (e *Engine) RefundInvestment(ctx context.Context, in RefundInput) (RefundReceipt, error) {
	cmd, err := command.New(command.TypeInvestmentRefund, in.CampaignID, intake.RefundPayload{
		InvestmentID: strings.TrimSpace(in.InvestmentID),
		Reason:       in.Reason,
	})
	if err != nil {
		return RefundReceipt{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}
	cmd = cmd.WithActor(event.ActorTypeSettlement, "").WithRequestID(in.RequestID)

	result, err := e.Execute(ctx, "refund", cmd, intake.Decide)
	if err != nil {
		return RefundReceipt{}, err
	}
	payload, err := event.DecodePayload[event.InvestmentRefundedPayload](result.Event)
	if err != nil {
		return RefundReceipt{}, err
	}
	return RefundReceipt{
		Receipt:      receipt(result),
		InvestmentID: payload.InvestmentID,
		Amount:       payload.Amount,
		Raised:       result.State.Raised,
	}, nil
}

// MilestoneInput addresses one tier of a campaign.
type MilestoneInput struct {
	CampaignID string
	Tier       string
	// Evidence is an optional reference to what the athlete submitted.
	Evidence  string
	RequestID string
}

// MilestoneReceipt is returned by submit and reject.
type MilestoneReceipt struct {
	Receipt
	Tier            string
	MilestoneStatus campaign.MilestoneStatus
}

// ReleaseReceipt is returned by ApproveMilestone.
type ReleaseReceipt struct {
	Receipt
	Tier     string
	Amount   decimal.Decimal
	Released decimal.Decimal
}

// SubmitMilestone moves a locked tier to pending approval.
func (e *Engine) SubmitMilestone(ctx context.Context, in MilestoneInput) (MilestoneReceipt, error) {
	cmd, err := command.New(command.TypeMilestoneSubmit, in.CampaignID, milestone.SubmitPayload{Tier: in.Tier, Evidence: in.Evidence})
	if err != nil {
		return MilestoneReceipt{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}
	cmd = cmd.WithActor(event.ActorTypeAthlete, "").WithRequestID(in.RequestID)
	result, err := e.Execute(ctx, "submit_milestone", cmd, milestone.Decide)
	if err != nil {
		return MilestoneReceipt{}, err
	}
	return milestoneReceipt(result, in.Tier), nil
}

// ApproveMilestone releases the tier's planned amount from escrow.
func (e *Engine) ApproveMilestone(ctx context.Context, in MilestoneInput) (ReleaseReceipt, error) {
	cmd, err := command.New(command.TypeMilestoneApprove, in.CampaignID, milestone.ApprovePayload{Tier: in.Tier})
	if err != nil {
		return ReleaseReceipt{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}
	cmd = cmd.WithActor(event.ActorTypeCommittee, "").WithRequestID(in.RequestID)
	return e.approve(ctx, cmd)
}

func (e *Engine) approve(ctx context.Context, cmd command.Command) (ReleaseReceipt, error) {
	result, err := e.Execute(ctx, "approve_milestone", cmd, milestone.Decide)
	if err != nil {
		return ReleaseReceipt{}, err
	}
	payload, err := event.DecodePayload[event.MilestoneReleasedPayload](result.Event)
	if err != nil {
		return ReleaseReceipt{}, err
	}
	return ReleaseReceipt{
		Receipt:  receipt(result),
		Tier:     payload.Tier,
		Amount:   payload.Amount,
		Released: result.State.Released,
	}, nil
}

// RejectMilestoneInput rejects a pending tier.
type RejectMilestoneInput struct {
	CampaignID string
	Tier       string
	Reason     string
	RequestID  string
}

// RejectMilestone returns a pending tier to locked. It can be resubmitted.
func (e *Engine) RejectMilestone(ctx context.Context, in RejectMilestoneInput) (MilestoneReceipt, error) {
	cmd, err := command.New(command.TypeMilestoneReject, in.CampaignID, milestone.RejectPayload{Tier: in.Tier, Reason: in.Reason})
	if err != nil {
		return MilestoneReceipt{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}
	cmd = cmd.WithActor(event.ActorTypeCommittee, "").WithRequestID(in.RequestID)
	result, err := e.Execute(ctx, "reject_milestone", cmd, milestone.Decide)
	if err != nil {
		return MilestoneReceipt{}, err
	}
	r := milestoneReceipt(result, in.Tier)
	r.MilestoneStatus = campaign.MilestoneRejected
	return r, nil
}

// VerdictReceipt is returned by ApplyVerdict. Release is set for approvals.
type VerdictReceipt struct {
	Receipt
	Tier     string
	Approved bool
	Release  *ReleaseReceipt
}

// ApplyVerdict consumes one committee decision and routes it to approve or
// reject.
func (e *Engine) ApplyVerdict(ctx context.Context, verdict milestone.Verdict) (VerdictReceipt, error) {
	cmd, err := verdict.Command()
	if err != nil {
		return VerdictReceipt{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}
	if verdict.Approved {
		release, err := e.approve(ctx, cmd)
		if err != nil {
			return VerdictReceipt{}, err
		}
		return VerdictReceipt{Receipt: release.Receipt, Tier: release.Tier, Approved: true, Release: &release}, nil
	}
	result, err := e.Execute(ctx, "reject_milestone", cmd, milestone.Decide)
	if err != nil {
		return VerdictReceipt{}, err
	}
	return VerdictReceipt{Receipt: receipt(result), Tier: campaign.NormalizeTier(verdict.Tier)}, nil
}

func milestoneReceipt(result Result, tier string) MilestoneReceipt {
	tier = campaign.NormalizeTier(tier)
	r := MilestoneReceipt{Receipt: receipt(result), Tier: tier}
	if m, ok := result.State.Milestone(tier); ok {
		r.MilestoneStatus = m.Status
	}
	return r
}
