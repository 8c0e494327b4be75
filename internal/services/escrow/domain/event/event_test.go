package event

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func depositEvent(t *testing.T) Event {
	t.Helper()
	payload, err := EncodePayload(InvestmentDepositedPayload{
		InvestmentID: "inv-1",
		InvestorID:   "alice",
		Amount:       decimal.RequireFromString("100.50"),
	})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return Event{
		CampaignID:  "camp-1",
		Type:        TypeInvestmentDeposited,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ActorType:   ActorTypeInvestor,
		ActorID:     "alice",
		EntityType:  EntityInvestment,
		EntityID:    "inv-1",
		PayloadJSON: payload,
	}
}

func TestDecodePayloadKeepsDecimalPrecision(t *testing.T) {
	evt := depositEvent(t)
	if !strings.Contains(string(evt.PayloadJSON), `"amount":"100.5"`) {
		t.Fatalf("expected amount encoded as string, got %s", evt.PayloadJSON)
	}
	payload, err := DecodePayload[InvestmentDepositedPayload](evt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.Amount.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("unexpected amount %s", payload.Amount)
	}
}

func TestDecodePayloadEmpty(t *testing.T) {
	if _, err := DecodePayload[CampaignClosedPayload](Event{Type: TypeCampaignClosed}); err == nil {
		t.Fatal("expected empty payload to fail")
	}
}

func TestValidateForAppend(t *testing.T) {
	evt := depositEvent(t)
	evt.CampaignID = "  camp-1 "
	evt.ActorType = ""
	evt.Timestamp = time.Date(2026, 3, 1, 12, 0, 0, 1_234_567, time.FixedZone("BRT", -3*3600))

	got, err := ValidateForAppend(evt)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.CampaignID != "camp-1" {
		t.Fatalf("expected trimmed campaign id, got %q", got.CampaignID)
	}
	if got.ActorType != ActorTypeSystem {
		t.Fatalf("expected system actor default, got %q", got.ActorType)
	}
	if got.Timestamp.Location() != time.UTC || got.Timestamp.Nanosecond() != 1_000_000 {
		t.Fatalf("expected UTC millisecond timestamp, got %s", got.Timestamp)
	}
}

func TestValidateForAppendRejects(t *testing.T) {
	base := depositEvent(t)

	missingCampaign := base
	missingCampaign.CampaignID = ""
	unknownType := base
	unknownType.Type = "investment.teleported"
	badPayload := base
	badPayload.PayloadJSON = []byte(`{"amount":"abc"}`)
	stored := base
	stored.Seq = 9
	undated := base
	undated.Timestamp = time.Time{}

	for name, evt := range map[string]Event{
		"missing campaign": missingCampaign,
		"unknown type":     unknownType,
		"bad payload":      badPayload,
		"already stored":   stored,
		"no timestamp":     undated,
	} {
		if _, err := ValidateForAppend(evt); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestEventHashDeterministic(t *testing.T) {
	evt := depositEvent(t)
	evt.Seq = 3

	first, err := EventHash(evt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := EventHash(evt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first != second || len(first) != 32 {
		t.Fatalf("expected stable 128-bit hex hash, got %q and %q", first, second)
	}

	evt.PayloadJSON = []byte(`{"investment_id":"inv-1","investor_id":"alice","amount":"100.51"}`)
	changed, err := EventHash(evt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if changed == first {
		t.Fatal("expected payload change to alter hash")
	}
}

func TestChainHashLinksPredecessor(t *testing.T) {
	evt := depositEvent(t)
	evt.Seq = 5
	hash, err := EventHash(evt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	evt.Hash = hash

	a, err := ChainHash(evt, "")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	b, err := ChainHash(evt, "prev")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if a == b {
		t.Fatal("expected prev hash to change chain hash")
	}
	if _, err := ChainHash(Event{CampaignID: "c"}, ""); err == nil {
		t.Fatal("expected missing event hash to fail")
	}
}
