package campaign

import (
	"testing"

	"github.com/shopspring/decimal"
	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

func spec(tier, pct string) event.MilestoneSpec {
	return event.MilestoneSpec{Tier: tier, Percentage: decimal.RequireFromString(pct)}
}

func TestNormalizeScheduleAcceptsGrades(t *testing.T) {
	got, err := NormalizeSchedule([]event.MilestoneSpec{spec(" d", "10"), spec("c", "15"), spec("B", "25"), spec("a ", "50")})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []string{"D", "C", "B", "A"}
	for i, m := range got {
		if m.Tier != want[i] {
			t.Fatalf("tier %d = %s, want %s", i, m.Tier, want[i])
		}
	}
}

func TestNormalizeScheduleAcceptsFreeFormLabels(t *testing.T) {
	_, err := NormalizeSchedule([]event.MilestoneSpec{spec("regional", "33.5"), spec("national", "33.5"), spec("international", "33")})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizeScheduleRejects(t *testing.T) {
	tests := []struct {
		name     string
		schedule []event.MilestoneSpec
	}{
		{name: "empty"},
		{name: "sum below 100", schedule: []event.MilestoneSpec{spec("D", "10"), spec("C", "15"), spec("B", "25"), spec("A", "40")}},
		{name: "sum above 100", schedule: []event.MilestoneSpec{spec("D", "60"), spec("C", "50")}},
		{name: "zero percentage", schedule: []event.MilestoneSpec{spec("D", "0"), spec("C", "100")}},
		{name: "negative percentage", schedule: []event.MilestoneSpec{spec("D", "-10"), spec("C", "110")}},
		{name: "blank tier", schedule: []event.MilestoneSpec{spec(" ", "50"), spec("C", "50")}},
		{name: "duplicate ignoring case", schedule: []event.MilestoneSpec{spec("b", "50"), spec("B", "50")}},
		{name: "grades out of order", schedule: []event.MilestoneSpec{spec("A", "50"), spec("B", "50")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeSchedule(tc.schedule)
			if !apperrors.IsCode(err, apperrors.CodeCampaignInvalidSchedule) {
				t.Fatalf("expected INVALID_SCHEDULE, got %v", err)
			}
		})
	}
}

func TestPlanReleasesSumsToGoal(t *testing.T) {
	goal := decimal.RequireFromString("1000.000001")
	schedule := []event.MilestoneSpec{spec("D", "33.33"), spec("C", "33.33"), spec("B", "33.34")}

	amounts := PlanReleases(goal, 6, schedule)
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	if !total.Equal(goal) {
		t.Fatalf("plan total = %s, want %s", total, goal)
	}
	// 33.33% of 1000.000001 is 333.3000003333, truncated to 333.3.
	if !amounts[0].Equal(decimal.RequireFromString("333.3")) {
		t.Fatalf("first tier = %s, want 333.3", amounts[0])
	}
	if !amounts[2].Equal(decimal.RequireFromString("333.400001")) {
		t.Fatalf("last tier = %s, want remainder 333.400001", amounts[2])
	}
}

func TestPlanReleasesTruncatesToScale(t *testing.T) {
	amounts := PlanReleases(decimal.NewFromInt(10), 2, []event.MilestoneSpec{spec("D", "33.333"), spec("A", "66.667")})
	if !amounts[0].Equal(decimal.RequireFromString("3.33")) {
		t.Fatalf("first tier = %s, want 3.33", amounts[0])
	}
	if !amounts[1].Equal(decimal.RequireFromString("6.67")) {
		t.Fatalf("last tier = %s, want 6.67", amounts[1])
	}
}

func TestValidateAmount(t *testing.T) {
	for _, ok := range []string{"1", "0.000001", "5000.5"} {
		if err := ValidateAmount(decimal.RequireFromString(ok), 6); err != nil {
			t.Fatalf("%s: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []string{"0", "-1", "0.0000001"} {
		if err := ValidateAmount(decimal.RequireFromString(bad), 6); !apperrors.IsCode(err, apperrors.CodeInvestmentInvalidAmount) {
			t.Fatalf("%s: expected INVALID_AMOUNT, got %v", bad, err)
		}
	}
}
