package event

import (
	"fmt"
	"strings"
	"time"
)

// knownTypes lists the event types storage accepts, with a payload decoder
// used to reject malformed entries before they reach the ledger.
var knownTypes = map[Type]func(Event) error{
	TypeCampaignCreated:     decodeAs[CampaignCreatedPayload],
	TypeCampaignClosed:      decodeAs[CampaignClosedPayload],
	TypeInvestmentDeposited: decodeAs[InvestmentDepositedPayload],
	TypeInvestmentRefunded:  decodeAs[InvestmentRefundedPayload],
	TypeMilestoneSubmitted:  decodeAs[MilestoneSubmittedPayload],
	TypeMilestoneReleased:   decodeAs[MilestoneReleasedPayload],
	TypeMilestoneRejected:   decodeAs[MilestoneRejectedPayload],
}

func decodeAs[T any](evt Event) error {
	_, err := DecodePayload[T](evt)
	return err
}

// KnownType reports whether t is a ledger event type.
func KnownType(t Type) bool {
	_, ok := knownTypes[t]
	return ok
}

// ValidateForAppend normalizes envelope fields and checks the payload shape.
// It does not check balances; that is the ledger's job.
func ValidateForAppend(evt Event) (Event, error) {
	evt.CampaignID = strings.TrimSpace(evt.CampaignID)
	if evt.CampaignID == "" {
		return Event{}, fmt.Errorf("campaign id is required")
	}
	decode, ok := knownTypes[evt.Type]
	if !ok {
		return Event{}, fmt.Errorf("event type %q is not registered", evt.Type)
	}
	if evt.ActorType == "" {
		evt.ActorType = ActorTypeSystem
	}
	if evt.Timestamp.IsZero() {
		return Event{}, fmt.Errorf("event %s has no timestamp", evt.Type)
	}
	// Storage keeps millisecond precision; hashing the truncated value keeps
	// stored events verifiable.
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
	if evt.Seq != 0 || evt.Hash != "" || evt.ChainHash != "" {
		return Event{}, fmt.Errorf("event %s already carries storage fields", evt.Type)
	}
	if err := decode(evt); err != nil {
		return Event{}, err
	}
	return evt, nil
}
