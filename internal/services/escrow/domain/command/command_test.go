package command

import (
	"testing"
	"time"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

type closePayload struct {
	Reason string `json:"reason"`
}

func TestNewAndPayload(t *testing.T) {
	cmd, err := New(TypeCampaignClose, " camp-1 ", closePayload{Reason: "season over"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if cmd.CampaignID != "camp-1" {
		t.Fatalf("expected trimmed campaign id, got %q", cmd.CampaignID)
	}
	if cmd.ActorType != event.ActorTypeSystem {
		t.Fatalf("expected system actor, got %q", cmd.ActorType)
	}
	payload, err := Payload[closePayload](cmd)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Reason != "season over" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestNewEventCopiesEnvelope(t *testing.T) {
	cmd := Command{Type: TypeInvestmentDeposit, CampaignID: "camp-1"}.
		WithActor(event.ActorTypeInvestor, " alice ").
		WithRequestID("req-9")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))

	evt := NewEvent(cmd, event.TypeInvestmentDeposited, event.EntityInvestment, "inv-1", []byte(`{}`), now)
	if evt.ActorID != "alice" || evt.RequestID != "req-9" || evt.ActorType != event.ActorTypeInvestor {
		t.Fatalf("envelope not copied: %+v", evt)
	}
	if evt.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", evt.Timestamp.Location())
	}
	if evt.EntityID != "inv-1" || evt.EntityType != event.EntityInvestment {
		t.Fatalf("unexpected entity addressing %+v", evt)
	}
}

func TestDecisionErr(t *testing.T) {
	if Accept().Err() != nil {
		t.Fatal("expected accepted decision to have no error")
	}
	d := Reject(Rejection{Code: apperrors.CodeCampaignClosed, Message: "closed", Metadata: map[string]string{"CampaignID": "c"}})
	if !d.Rejected() {
		t.Fatal("expected rejection")
	}
	if !apperrors.IsCode(d.Err(), apperrors.CodeCampaignClosed) {
		t.Fatalf("expected campaign closed code, got %v", d.Err())
	}
}
