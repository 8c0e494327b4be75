package event

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MilestoneSpec is one schedule entry captured at launch.
type MilestoneSpec struct {
	Tier       string          `json:"tier"`
	Percentage decimal.Decimal `json:"percentage"`
}

// CampaignCreatedPayload captures everything needed to fold a new campaign.
// The overfund cap and amount scale are frozen here so later policy changes
// never alter a running campaign.
type CampaignCreatedPayload struct {
	AthleteName      string          `json:"athlete_name"`
	City             string          `json:"city,omitempty"`
	Category         string          `json:"category"`
	Currency         string          `json:"currency"`
	Goal             decimal.Decimal `json:"goal"`
	OverfundCapRatio decimal.Decimal `json:"overfund_cap_ratio"`
	AmountScale      int32           `json:"amount_scale"`
	Milestones       []MilestoneSpec `json:"milestones"`
}

// CampaignClosedPayload captures why a campaign was closed.
type CampaignClosedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// InvestmentDepositedPayload captures a single committed deposit.
type InvestmentDepositedPayload struct {
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// InvestmentRefundedPayload captures a refund of a whole investment.
type InvestmentRefundedPayload struct {
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason"`
}

// MilestoneSubmittedPayload captures a tier entering review.
type MilestoneSubmittedPayload struct {
	Tier     string `json:"tier"`
	Evidence string `json:"evidence,omitempty"`
}

// MilestoneReleasedPayload captures money paid out for an approved tier.
type MilestoneReleasedPayload struct {
	Tier   string          `json:"tier"`
	Amount decimal.Decimal `json:"amount"`
}

// MilestoneRejectedPayload captures a committee rejection.
type MilestoneRejectedPayload struct {
	Tier   string `json:"tier"`
	Reason string `json:"reason"`
}

// EncodePayload marshals a payload for an event envelope.
func EncodePayload(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload %T: %w", payload, err)
	}
	return data, nil
}

// DecodePayload unmarshals the payload of evt into T.
func DecodePayload[T any](evt Event) (T, error) {
	var payload T
	if len(evt.PayloadJSON) == 0 {
		return payload, fmt.Errorf("%s seq=%d: payload is empty", evt.Type, evt.Seq)
	}
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		return payload, fmt.Errorf("%s seq=%d: decode payload: %w", evt.Type, evt.Seq, err)
	}
	return payload, nil
}
