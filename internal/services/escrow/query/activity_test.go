package query

import (
	"context"
	"testing"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/engine"
)

func seedActivity(t *testing.T) *fixture {
	f := newFixture(t)
	f.launch("run-a", "athletics", "1000")
	f.deposit("run-a", "alice", "", "300")
	f.deposit("run-a", "bob", "", "700")
	f.release("run-a", "D")
	return f
}

func TestListActivityNewestFirst(t *testing.T) {
	f := seedActivity(t)
	got, err := f.service.ListActivity(context.Background(), ActivityRequest{CampaignID: "run-a"})
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	want := []struct {
		kind    ActivityKind
		message string
	}{
		{ActivityMilestoneReleased, "Tier D approved, 10% released"},
		{ActivityMilestoneSubmitted, "Tier D submitted for review"},
		{ActivityFundingThreshold, "Campaign reached 100%"},
		{ActivityDeposit, "bob invested 700 USDC"},
		{ActivityFundingThreshold, "Campaign reached 25%"},
		{ActivityDeposit, "alice invested 300 USDC"},
		{ActivityCampaignCreated, "Athlete run-a launched a campaign for 1000 USDC"},
	}
	if len(got.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(got.Entries), got.Entries)
	}
	for i, w := range want {
		if got.Entries[i].Kind != w.kind || got.Entries[i].Message != w.message {
			t.Fatalf("entry %d: expected %s %q, got %s %q", i, w.kind, w.message, got.Entries[i].Kind, got.Entries[i].Message)
		}
	}
	if !got.Entries[0].Amount.Equal(dec("100")) || !got.Entries[0].Percentage.Equal(dec("10")) {
		t.Fatalf("unexpected release entry %+v", got.Entries[0])
	}
}

func TestListActivityLocalized(t *testing.T) {
	f := seedActivity(t)
	got, err := f.service.ListActivity(context.Background(), ActivityRequest{CampaignID: "run-a", Locale: "pt-BR", PageSize: 1})
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Message != "Nível D aprovado, 10% liberado" {
		t.Fatalf("unexpected localized entry %+v", got.Entries)
	}

	got, err = f.service.ListActivity(context.Background(), ActivityRequest{CampaignID: "run-a", Locale: "not a tag", PageSize: 1})
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if got.Entries[0].Message != "Tier D approved, 10% released" {
		t.Fatalf("expected english fallback, got %q", got.Entries[0].Message)
	}
}

func TestListActivityPaging(t *testing.T) {
	f := seedActivity(t)
	ctx := context.Background()
	if _, err := f.engine.CloseCampaign(ctx, engine.CloseCampaignInput{CampaignID: "run-a", Reason: "injury"}); err != nil {
		t.Fatalf("close: %v", err)
	}

	var (
		token string
		seen  []ActivityKind
		pages int
	)
	for {
		page, err := f.service.ListActivity(ctx, ActivityRequest{CampaignID: "run-a", PageSize: 3, PageToken: token})
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		pages++
		for _, entry := range page.Entries {
			seen = append(seen, entry.Kind)
		}
		if pages == 1 && page.Entries[0].Message != "Campaign closed: injury" {
			t.Fatalf("expected closure first, got %q", page.Entries[0].Message)
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	if pages != 3 || len(seen) != 8 {
		t.Fatalf("expected 8 entries over 3 pages, got %d over %d", len(seen), pages)
	}

	_, err := f.service.ListActivity(ctx, ActivityRequest{CampaignID: "other", PageToken: token})
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected unknown campaign to fail, got %v", err)
	}
}

func TestListActivityTokenBoundToCampaign(t *testing.T) {
	f := seedActivity(t)
	f.launch("run-b", "athletics", "10")
	first, err := f.service.ListActivity(context.Background(), ActivityRequest{CampaignID: "run-a", PageSize: 1})
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	_, err = f.service.ListActivity(context.Background(), ActivityRequest{CampaignID: "run-b", PageToken: first.NextPageToken})
	if !apperrors.IsCode(err, apperrors.CodeInvalidPageToken) {
		t.Fatalf("expected token bound to campaign, got %v", err)
	}
}
