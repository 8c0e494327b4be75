package query

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
)

var hundred = decimal.NewFromInt(100)

// Position is one investor's exposure to one campaign.
type Position struct {
	CampaignID       string
	AthleteName      string
	Category         string
	Currency         string
	Status           campaign.Status
	FundedPercentage decimal.Decimal
	// Stake is the investor's committed total.
	Stake    decimal.Decimal
	Refunded decimal.Decimal
	// Share is the stake as a percentage of everything raised.
	Share decimal.Decimal
	// Released is the part of the campaign's releases attributable to the
	// stake, in proportion to Share.
	Released    decimal.Decimal
	Investments int
	Milestones  []MilestoneView
}

// Portfolio aggregates an investor's positions.
type Portfolio struct {
	InvestorID    string
	Positions     []Position
	TotalInvested decimal.Decimal
	TotalRefunded decimal.Decimal
	TotalReleased decimal.Decimal
	// AverageProgress is the mean funded percentage of the positions,
	// rounded to a whole number and clamped to 0..100.
	AverageProgress int
}

// GetPortfolio returns every campaign investorID has deposited into, in
// first-deposit order. An investor without deposits gets an empty portfolio.
func (s *Service) GetPortfolio(ctx context.Context, investorID string) (Portfolio, error) {
	investorID = strings.TrimSpace(investorID)
	if investorID == "" {
		return Portfolio{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "investor id is required", map[string]string{"Field": "investor_id"})
	}
	if err := ctx.Err(); err != nil {
		return Portfolio{}, err
	}

	portfolio := Portfolio{
		InvestorID:    investorID,
		TotalInvested: decimal.Zero,
		TotalRefunded: decimal.Zero,
		TotalReleased: decimal.Zero,
	}
	progress := decimal.Zero
	for _, campaignID := range s.projection.InvestorCampaigns(investorID) {
		state, err := s.projection.Snapshot(campaignID)
		if err != nil {
			s.logger.Warn().Err(err).Str("campaign_id", campaignID).Msg("indexed campaign missing from projection")
			continue
		}
		position := positionFor(state, investorID)
		portfolio.Positions = append(portfolio.Positions, position)
		portfolio.TotalInvested = portfolio.TotalInvested.Add(position.Stake)
		portfolio.TotalRefunded = portfolio.TotalRefunded.Add(position.Refunded)
		portfolio.TotalReleased = portfolio.TotalReleased.Add(position.Released)
		progress = progress.Add(position.FundedPercentage)
	}
	if n := len(portfolio.Positions); n > 0 {
		avg := progress.Div(decimal.NewFromInt(int64(n))).Round(0).IntPart()
		portfolio.AverageProgress = int(min(max(avg, 0), 100))
	}
	return portfolio, nil
}

func positionFor(state campaign.State, investorID string) Position {
	position := Position{
		CampaignID:       state.ID,
		AthleteName:      state.AthleteName,
		Category:         state.Category,
		Currency:         state.Currency,
		Status:           state.Status,
		FundedPercentage: state.FundedPercentage(),
		Stake:            decimal.Zero,
		Refunded:         decimal.Zero,
		Share:            decimal.Zero,
		Released:         decimal.Zero,
		Milestones:       milestoneViews(state),
	}
	for _, inv := range state.Investments {
		if inv.InvestorID != investorID {
			continue
		}
		position.Investments++
		switch inv.Status {
		case campaign.InvestmentCommitted:
			position.Stake = position.Stake.Add(inv.Amount)
		case campaign.InvestmentRefunded:
			position.Refunded = position.Refunded.Add(inv.Amount)
		}
	}
	if state.Raised.IsPositive() && position.Stake.IsPositive() {
		position.Share = position.Stake.Mul(hundred).DivRound(state.Raised, 2)
		position.Released = state.Released.Mul(position.Stake).Div(state.Raised).Truncate(state.AmountScale)
	}
	return position
}
