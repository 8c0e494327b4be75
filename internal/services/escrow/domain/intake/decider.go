// Package intake admits investor contributions and settlement refunds.
package intake

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/command"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

// DepositPayload is the input of an investment.deposit command. The engine
// assigns InvestmentID before the command is decided.
type DepositPayload struct {
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// RefundPayload is the input of an investment.refund command.
type RefundPayload struct {
	InvestmentID string `json:"investment_id"`
	Reason       string `json:"reason"`
}

// Decide returns the decision for an intake command.
func Decide(state campaign.State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}
	switch cmd.Type {
	case command.TypeInvestmentDeposit:
		return decideDeposit(state, cmd, now)
	case command.TypeInvestmentRefund:
		return decideRefund(state, cmd, now)
	default:
		return command.Reject(command.Rejection{
			Code:    apperrors.CodeInvalidArgument,
			Message: "unsupported intake command " + string(cmd.Type),
		})
	}
}

func decideDeposit(state campaign.State, cmd command.Command, now func() time.Time) command.Decision {
	payload, err := command.Payload[DepositPayload](cmd)
	if err != nil {
		return command.RejectError(err)
	}
	investorID := strings.TrimSpace(payload.InvestorID)
	if investorID == "" {
		return invalidField("investor_id", "investor id is required")
	}
	investmentID := strings.TrimSpace(payload.InvestmentID)
	if investmentID == "" {
		return invalidField("investment_id", "investment id is required")
	}
	if !payload.Amount.IsPositive() {
		return command.RejectError(campaign.ValidateAmount(payload.Amount, campaign.DefaultAmountScale))
	}
	if !state.Created {
		return campaign.NotFound(cmd.CampaignID)
	}
	if err := campaign.ValidateAmount(payload.Amount, state.AmountScale); err != nil {
		return command.RejectError(err)
	}
	if state.Status == campaign.StatusClosed {
		return campaign.Closed(state.ID)
	}
	if _, exists := state.Investments[investmentID]; exists {
		return invalidField("investment_id", "investment id "+investmentID+" is already in use")
	}

	limit := state.Cap()
	if state.Raised.Add(payload.Amount).GreaterThan(limit) {
		return command.Reject(command.Rejection{
			Code: apperrors.CodeInvestmentGoalExceeded,
			Message: "deposit of " + payload.Amount.String() + " would raise " +
				state.Raised.Add(payload.Amount).String() + " above the cap of " + limit.String(),
			Metadata: map[string]string{
				"CampaignID": state.ID,
				"Cap":        limit.String(),
				"Currency":   state.Currency,
				"Available":  limit.Sub(state.Raised).String(),
			},
		})
	}

	payloadJSON, err := event.EncodePayload(event.InvestmentDepositedPayload{
		InvestmentID: investmentID,
		InvestorID:   investorID,
		Amount:       payload.Amount,
	})
	if err != nil {
		return command.RejectError(err)
	}
	return command.Accept(command.NewEvent(cmd, event.TypeInvestmentDeposited, event.EntityInvestment, investmentID, payloadJSON, now()))
}

func decideRefund(state campaign.State, cmd command.Command, now func() time.Time) command.Decision {
	payload, err := command.Payload[RefundPayload](cmd)
	if err != nil {
		return command.RejectError(err)
	}
	investmentID := strings.TrimSpace(payload.InvestmentID)
	if investmentID == "" {
		return invalidField("investment_id", "investment id is required")
	}
	reason := strings.TrimSpace(payload.Reason)
	if reason == "" {
		return invalidField("reason", "refund reason is required")
	}
	if !state.Created {
		return campaign.NotFound(cmd.CampaignID)
	}
	inv, ok := state.Investments[investmentID]
	if !ok {
		return command.Reject(command.Rejection{
			Code:     apperrors.CodeInvestmentNotFound,
			Message:  "investment " + investmentID + " not found",
			Metadata: map[string]string{"InvestmentID": investmentID},
		})
	}
	if inv.Status == campaign.InvestmentRefunded {
		return command.Reject(command.Rejection{
			Code:     apperrors.CodeInvestmentAlreadyRefunded,
			Message:  "investment " + investmentID + " already refunded",
			Metadata: map[string]string{"InvestmentID": investmentID},
		})
	}
	switch state.Status {
	case campaign.StatusClosed:
		return campaign.Closed(state.ID)
	case campaign.StatusFullyFunded:
		return campaign.StatusDisallows(state, "refund")
	}

	payloadJSON, err := event.EncodePayload(event.InvestmentRefundedPayload{
		InvestmentID: inv.ID,
		InvestorID:   inv.InvestorID,
		Amount:       inv.Amount,
		Reason:       reason,
	})
	if err != nil {
		return command.RejectError(err)
	}
	return command.Accept(command.NewEvent(cmd, event.TypeInvestmentRefunded, event.EntityInvestment, inv.ID, payloadJSON, now()))
}

func invalidField(field, message string) command.Decision {
	return command.Reject(command.Rejection{
		Code:     apperrors.CodeInvalidArgument,
		Message:  message,
		Metadata: map[string]string{"Field": field},
	})
}
