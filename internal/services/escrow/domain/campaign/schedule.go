package campaign

import (
	"fmt"

	"github.com/shopspring/decimal"
	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

var hundred = decimal.NewFromInt(100)

// InvalidScheduleError builds the rejection for a malformed milestone schedule.
func InvalidScheduleError(reason string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeCampaignInvalidSchedule,
		"invalid schedule: "+reason,
		map[string]string{"Reason": reason})
}

// NormalizeSchedule validates a launch schedule and returns it with tier
// labels canonicalized. The list order is the rank order, lowest tier first.
//
// Rules: at least one tier; labels non-empty and unique ignoring case; every
// percentage positive; percentages summing to exactly 100; and when every
// label is a single letter, letters run from the lowest grade to the highest
// (D, C, B, A).
func NormalizeSchedule(specs []event.MilestoneSpec) ([]event.MilestoneSpec, error) {
	if len(specs) == 0 {
		return nil, InvalidScheduleError("at least one milestone is required")
	}

	normalized := make([]event.MilestoneSpec, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	total := decimal.Zero
	for i, spec := range specs {
		tier := NormalizeTier(spec.Tier)
		if tier == "" {
			return nil, InvalidScheduleError(fmt.Sprintf("milestone %d has no tier label", i+1))
		}
		if _, dup := seen[tier]; dup {
			return nil, InvalidScheduleError(fmt.Sprintf("tier %s appears more than once", tier))
		}
		seen[tier] = struct{}{}
		if !spec.Percentage.IsPositive() {
			return nil, InvalidScheduleError(fmt.Sprintf("tier %s percentage must be positive", tier))
		}
		total = total.Add(spec.Percentage)
		normalized = append(normalized, event.MilestoneSpec{Tier: tier, Percentage: spec.Percentage})
	}
	if !total.Equal(hundred) {
		return nil, InvalidScheduleError(fmt.Sprintf("percentages sum to %s, expected 100", total.String()))
	}
	if err := checkGradeOrder(normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// checkGradeOrder enforces letter-grade ranking when the schedule uses it.
// Grade A is the highest tier, so a lowest-first schedule runs backwards
// through the alphabet.
func checkGradeOrder(specs []event.MilestoneSpec) error {
	for _, spec := range specs {
		if !isGradeLetter(spec.Tier) {
			return nil
		}
	}
	for i := 1; i < len(specs); i++ {
		prev, cur := specs[i-1].Tier[0], specs[i].Tier[0]
		if cur >= prev {
			return InvalidScheduleError(fmt.Sprintf("grade %s must rank above %s, list tiers lowest grade first", specs[i-1].Tier, specs[i].Tier))
		}
	}
	return nil
}

func isGradeLetter(tier string) bool {
	return len(tier) == 1 && tier[0] >= 'A' && tier[0] <= 'Z'
}

// PlanReleases computes what approving each tier will pay out. Every tier
// but the last releases percentage × goal / 100 truncated to scale; the last
// tier releases the remainder so the plan sums to the goal exactly.
func PlanReleases(goal decimal.Decimal, scale int32, specs []event.MilestoneSpec) []decimal.Decimal {
	amounts := make([]decimal.Decimal, len(specs))
	allocated := decimal.Zero
	for i, spec := range specs {
		if i == len(specs)-1 {
			amounts[i] = goal.Sub(allocated)
			break
		}
		amount := goal.Mul(spec.Percentage).Div(hundred).Truncate(scale)
		amounts[i] = amount
		allocated = allocated.Add(amount)
	}
	return amounts
}
