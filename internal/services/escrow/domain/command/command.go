// Package command defines the write intents deciders evaluate and the
// decisions they return.
package command

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

// Type identifies a command.
type Type string

// Commands accepted by the engine.
const (
	TypeCampaignCreate    Type = "campaign.create"
	TypeCampaignClose     Type = "campaign.close"
	TypeInvestmentDeposit Type = "investment.deposit"
	TypeInvestmentRefund  Type = "investment.refund"
	TypeMilestoneSubmit   Type = "milestone.submit"
	TypeMilestoneApprove  Type = "milestone.approve"
	TypeMilestoneReject   Type = "milestone.reject"
)

// Command is a request to change one campaign.
type Command struct {
	Type        Type
	CampaignID  string
	ActorType   event.ActorType
	ActorID     string
	RequestID   string
	PayloadJSON []byte
}

// New builds a command with a JSON-encoded payload.
func New(cmdType Type, campaignID string, payload any) (Command, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Command{}, fmt.Errorf("encode %s payload: %w", cmdType, err)
	}
	return Command{
		Type:        cmdType,
		CampaignID:  strings.TrimSpace(campaignID),
		ActorType:   event.ActorTypeSystem,
		PayloadJSON: data,
	}, nil
}

// WithActor returns a copy of cmd attributed to the given actor.
func (c Command) WithActor(actorType event.ActorType, actorID string) Command {
	c.ActorType = actorType
	c.ActorID = strings.TrimSpace(actorID)
	return c
}

// WithRequestID returns a copy of cmd correlated with requestID.
func (c Command) WithRequestID(requestID string) Command {
	c.RequestID = strings.TrimSpace(requestID)
	return c
}

// Payload decodes the command payload into T. Deciders treat a decode
// failure as an invalid argument.
func Payload[T any](c Command) (T, error) {
	var payload T
	if err := json.Unmarshal(c.PayloadJSON, &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", c.Type, err)
	}
	return payload, nil
}

// NewEvent builds an event.Event by copying the shared envelope fields from a
// command. Callers supply the event type, entity addressing, payload and
// timestamp.
func NewEvent(cmd Command, eventType event.Type, entityType, entityID string, payloadJSON []byte, now time.Time) event.Event {
	return event.Event{
		CampaignID:  cmd.CampaignID,
		Type:        eventType,
		Timestamp:   now.UTC(),
		ActorType:   cmd.ActorType,
		ActorID:     cmd.ActorID,
		RequestID:   cmd.RequestID,
		EntityType:  entityType,
		EntityID:    entityID,
		PayloadJSON: payloadJSON,
	}
}
