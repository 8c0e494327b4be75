package campaign

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// State is the folded view of one campaign.
type State struct {
	Created bool
	ID      string

	AthleteName string
	City        string
	Category    string
	Currency    string

	Goal             decimal.Decimal
	OverfundCapRatio decimal.Decimal
	AmountScale      int32

	Status      Status
	CloseReason string

	Milestones  []Milestone
	Investments map[string]Investment

	// Raised is the sum of committed investments (deposits less refunds).
	Raised   decimal.Decimal
	Released decimal.Decimal
	Refunded decimal.Decimal

	CreatedAt     time.Time
	UpdatedAt     time.Time
	FullyFundedAt time.Time
	ClosedAt      time.Time

	CreatedSeq uint64
	LastSeq    uint64
}

// Milestone is one tier of the release schedule.
type Milestone struct {
	Tier       string
	Rank       int
	Percentage decimal.Decimal
	Status     MilestoneStatus

	// PlannedAmount is what approval will release, fixed at launch.
	PlannedAmount  decimal.Decimal
	ReleasedAmount decimal.Decimal

	Rejections    int
	LastRejection string
	SubmittedAt   time.Time
	ReleasedAt    time.Time
	ReleasedSeq   uint64
}

// Investment is one committed deposit.
type Investment struct {
	ID           string
	InvestorID   string
	Amount       decimal.Decimal
	Status       InvestmentStatus
	CreatedAt    time.Time
	RefundedAt   time.Time
	RefundReason string
	Seq          uint64
}

// Escrow returns funds raised but not yet released.
func (s State) Escrow() decimal.Decimal {
	return s.Raised.Sub(s.Released)
}

// Cap returns the maximum raised total the campaign admits.
func (s State) Cap() decimal.Decimal {
	return s.Goal.Mul(decimal.NewFromInt(1).Add(s.OverfundCapRatio))
}

// FundedPercentage returns raised/goal as a percentage rounded to two places.
// Overfunded campaigns report above 100.
func (s State) FundedPercentage() decimal.Decimal {
	if !s.Goal.IsPositive() {
		return decimal.Zero
	}
	return s.Raised.Mul(decimal.NewFromInt(100)).DivRound(s.Goal, 2)
}

// Milestone returns the tier with the given label, matched case-insensitively.
func (s State) Milestone(tier string) (Milestone, bool) {
	idx := s.milestoneIndex(tier)
	if idx < 0 {
		return Milestone{}, false
	}
	return s.Milestones[idx], true
}

func (s State) milestoneIndex(tier string) int {
	normalized := NormalizeTier(tier)
	for i, m := range s.Milestones {
		if m.Tier == normalized {
			return i
		}
	}
	return -1
}

// PendingMilestone returns the tier awaiting approval, if any.
func (s State) PendingMilestone() (Milestone, bool) {
	for _, m := range s.Milestones {
		if m.Status == MilestonePendingApproval {
			return m, true
		}
	}
	return Milestone{}, false
}

// ReleasedCount returns how many tiers have been paid out.
func (s State) ReleasedCount() int {
	n := 0
	for _, m := range s.Milestones {
		if m.Status == MilestoneReleased {
			n++
		}
	}
	return n
}

// InvestorStake returns the committed total for one investor.
func (s State) InvestorStake(investorID string) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range s.Investments {
		if inv.InvestorID == investorID && inv.Status == InvestmentCommitted {
			total = total.Add(inv.Amount)
		}
	}
	return total
}

// InvestorIDs returns the distinct investors with at least one deposit, sorted.
func (s State) InvestorIDs() []string {
	seen := make(map[string]struct{}, len(s.Investments))
	for _, inv := range s.Investments {
		seen[inv.InvestorID] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Clone returns a copy that shares no mutable containers with s.
func (s State) Clone() State {
	s.Milestones = slices.Clone(s.Milestones)
	s.Investments = maps.Clone(s.Investments)
	return s
}

// NormalizeTier canonicalizes a tier label for comparison and storage.
func NormalizeTier(tier string) string {
	return strings.ToUpper(strings.TrimSpace(tier))
}
