package campaign

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/command"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

// CreatePayload is the input of a campaign.create command. OverfundCapRatio,
// AmountScale and Currency are filled in from engine policy when the caller
// leaves them empty.
type CreatePayload struct {
	AthleteName      string                `json:"athlete_name"`
	City             string                `json:"city,omitempty"`
	Category         string                `json:"category"`
	Currency         string                `json:"currency,omitempty"`
	Goal             decimal.Decimal       `json:"goal"`
	OverfundCapRatio decimal.Decimal       `json:"overfund_cap_ratio"`
	AmountScale      int32                 `json:"amount_scale"`
	Milestones       []event.MilestoneSpec `json:"milestones"`
}

// ClosePayload is the input of a campaign.close command.
type ClosePayload struct {
	Reason string `json:"reason,omitempty"`
}

// Decide returns the decision for a campaign lifecycle command.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}
	switch cmd.Type {
	case command.TypeCampaignCreate:
		return decideCreate(state, cmd, now)
	case command.TypeCampaignClose:
		return decideClose(state, cmd, now)
	default:
		return command.Reject(command.Rejection{
			Code:    apperrors.CodeInvalidArgument,
			Message: "unsupported campaign command " + string(cmd.Type),
		})
	}
}

func decideCreate(state State, cmd command.Command, now func() time.Time) command.Decision {
	if state.Created {
		return command.Reject(command.Rejection{
			Code:     apperrors.CodeCampaignAlreadyExists,
			Message:  "campaign already exists",
			Metadata: map[string]string{"CampaignID": cmd.CampaignID},
		})
	}
	payload, err := command.Payload[CreatePayload](cmd)
	if err != nil {
		return command.RejectError(err)
	}

	category := strings.ToLower(strings.TrimSpace(payload.Category))
	if category == "" {
		return invalidField("category", "category is required")
	}
	athlete := strings.TrimSpace(payload.AthleteName)
	if athlete == "" {
		return invalidField("athlete_name", "athlete name is required")
	}
	scale := payload.AmountScale
	if scale < 0 {
		return invalidField("amount_scale", "amount scale must not be negative")
	}
	if !payload.Goal.IsPositive() || !payload.Goal.Equal(payload.Goal.Truncate(scale)) {
		return command.Reject(command.Rejection{
			Code:    apperrors.CodeCampaignInvalidGoal,
			Message: "goal must be positive and representable in the currency, got " + payload.Goal.String(),
		})
	}
	if payload.OverfundCapRatio.IsNegative() {
		return invalidField("overfund_cap_ratio", "overfund cap ratio must not be negative")
	}
	schedule, err := NormalizeSchedule(payload.Milestones)
	if err != nil {
		return command.RejectError(err)
	}
	currency := strings.ToUpper(strings.TrimSpace(payload.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	payloadJSON, err := event.EncodePayload(event.CampaignCreatedPayload{
		AthleteName:      athlete,
		City:             strings.TrimSpace(payload.City),
		Category:         category,
		Currency:         currency,
		Goal:             payload.Goal,
		OverfundCapRatio: payload.OverfundCapRatio,
		AmountScale:      scale,
		Milestones:       schedule,
	})
	if err != nil {
		return command.RejectError(err)
	}
	return command.Accept(command.NewEvent(cmd, event.TypeCampaignCreated, event.EntityCampaign, cmd.CampaignID, payloadJSON, now()))
}

func decideClose(state State, cmd command.Command, now func() time.Time) command.Decision {
	if !state.Created {
		return NotFound(cmd.CampaignID)
	}
	if state.Status == StatusClosed {
		return Closed(state.ID)
	}
	payload, err := command.Payload[ClosePayload](cmd)
	if err != nil {
		return command.RejectError(err)
	}
	payloadJSON, err := event.EncodePayload(event.CampaignClosedPayload{Reason: strings.TrimSpace(payload.Reason)})
	if err != nil {
		return command.RejectError(err)
	}
	return command.Accept(command.NewEvent(cmd, event.TypeCampaignClosed, event.EntityCampaign, cmd.CampaignID, payloadJSON, now()))
}

// NotFound rejects a command addressed to a campaign that was never created.
func NotFound(campaignID string) command.Decision {
	return command.Reject(command.Rejection{
		Code:     apperrors.CodeNotFound,
		Message:  "campaign " + campaignID + " not found",
		Metadata: map[string]string{"CampaignID": campaignID},
	})
}

// Closed rejects a write against a closed campaign.
func Closed(campaignID string) command.Decision {
	return command.Reject(command.Rejection{
		Code:     apperrors.CodeCampaignClosed,
		Message:  "campaign " + campaignID + " is closed",
		Metadata: map[string]string{"CampaignID": campaignID},
	})
}

// StatusDisallows rejects an operation the current status does not permit.
func StatusDisallows(state State, operation string) command.Decision {
	return command.Reject(command.Rejection{
		Code:    apperrors.CodeCampaignStatusDisallows,
		Message: "campaign status " + string(state.Status) + " does not allow " + operation,
		Metadata: map[string]string{
			"CampaignID": state.ID,
			"Status":     string(state.Status),
			"Operation":  operation,
		},
	})
}

func invalidField(field, message string) command.Decision {
	return command.Reject(command.Rejection{
		Code:     apperrors.CodeInvalidArgument,
		Message:  message,
		Metadata: map[string]string{"Field": field},
	})
}
