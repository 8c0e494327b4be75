package query

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/platform/grpc/pagination"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/storage/cursor"
)

// SortKey orders campaign listings. Every key sorts descending with ties
// broken by campaign id ascending.
type SortKey string

const (
	SortScore            SortKey = "score"
	SortFundedPercentage SortKey = "funded_percentage"
	// SortRecency puts the most recently launched campaign first.
	SortRecency SortKey = "recency"
)

var sortKeys = pagination.OrderByConfig{
	Default: string(SortScore),
	Allowed: []string{string(SortScore), string(SortFundedPercentage), string(SortRecency)},
}

// ListRequest selects a page of campaigns.
type ListRequest struct {
	// Category matches case-insensitively; empty lists every category.
	Category string
	// Status is optional.
	Status    string
	SortKey   string
	PageSize  int
	PageToken string
}

// MilestoneView is one tier as shown to readers.
type MilestoneView struct {
	Tier           string
	Percentage     decimal.Decimal
	Status         campaign.MilestoneStatus
	PlannedAmount  decimal.Decimal
	ReleasedAmount decimal.Decimal
	Rejections     int
}

// CampaignSummary is one row of a campaign listing.
type CampaignSummary struct {
	ID                 string
	AthleteName        string
	City               string
	Category           string
	Currency           string
	Status             campaign.Status
	Goal               decimal.Decimal
	Raised             decimal.Decimal
	Released           decimal.Decimal
	FundedPercentage   decimal.Decimal
	Score              float64
	MilestonesReleased int
	Investors          int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CampaignDetail is a summary plus the release schedule.
type CampaignDetail struct {
	CampaignSummary
	Escrow      decimal.Decimal
	Cap         decimal.Decimal
	CloseReason string
	LastSeq     uint64
	Milestones  []MilestoneView
}

// ListResult is one page of campaigns.
type ListResult struct {
	Campaigns     []CampaignSummary
	NextPageToken string
	TotalSize     int
}

// ListCampaigns filters, ranks and pages the campaign projection. Page
// tokens are only valid for the filter and sort key that produced them.
func (s *Service) ListCampaigns(ctx context.Context, req ListRequest) (ListResult, error) {
	sortKey, err := pagination.NormalizeOrderBy(req.SortKey, sortKeys)
	if err != nil {
		return ListResult{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument, err.Error(), map[string]string{"Field": "sort_key"})
	}
	category := strings.ToLower(strings.TrimSpace(req.Category))
	var status campaign.Status
	if raw := strings.ToLower(strings.TrimSpace(req.Status)); raw != "" {
		parsed, ok := campaign.ParseStatus(raw)
		if !ok {
			return ListResult{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument,
				fmt.Sprintf("unknown status %q", req.Status), map[string]string{"Field": "status"})
		}
		status = parsed
	}
	filterKey := "category=" + category + ";status=" + string(status)

	c, err := cursor.Decode(req.PageToken, filterKey, sortKey)
	if err != nil {
		return ListResult{}, apperrors.Wrap(apperrors.CodeInvalidPageToken, "page token", err)
	}
	pageSize := pagination.ClampPageSize(req.PageSize, campaignPageSize)

	scores, err := s.scores.Scores(ctx)
	if err != nil {
		return ListResult{}, apperrors.Wrap(apperrors.CodeStorageFailure, "load scores", err)
	}

	var matched []campaign.State
	for _, state := range s.projection.Snapshots() {
		if category != "" && state.Category != category {
			continue
		}
		if status != "" && state.Status != status {
			continue
		}
		matched = append(matched, state)
	}
	slices.SortFunc(matched, compareFor(SortKey(sortKey), scores))

	result := ListResult{TotalSize: len(matched)}
	page, next := pagination.Window(matched, c.Offset, pageSize)
	for _, state := range page {
		result.Campaigns = append(result.Campaigns, summarize(state, scores[state.ID]))
	}
	if next > 0 {
		token, err := cursor.AtOffset(next, filterKey, sortKey).Encode()
		if err != nil {
			return ListResult{}, err
		}
		result.NextPageToken = token
	}
	return result, nil
}

func compareFor(key SortKey, scores map[string]float64) func(a, b campaign.State) int {
	var primary func(a, b campaign.State) int
	switch key {
	case SortFundedPercentage:
		primary = func(a, b campaign.State) int {
			return b.FundedPercentage().Cmp(a.FundedPercentage())
		}
	case SortRecency:
		primary = func(a, b campaign.State) int {
			return cmp.Compare(b.CreatedSeq, a.CreatedSeq)
		}
	default:
		primary = func(a, b campaign.State) int {
			return cmp.Compare(scores[b.ID], scores[a.ID])
		}
	}
	return func(a, b campaign.State) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}
}

// Campaign returns one campaign with its schedule.
func (s *Service) Campaign(ctx context.Context, campaignID string) (CampaignDetail, error) {
	state, err := s.projection.Snapshot(strings.TrimSpace(campaignID))
	if err != nil {
		return CampaignDetail{}, err
	}
	scores, err := s.scores.Scores(ctx)
	if err != nil {
		return CampaignDetail{}, apperrors.Wrap(apperrors.CodeStorageFailure, "load scores", err)
	}
	return CampaignDetail{
		CampaignSummary: summarize(state, scores[state.ID]),
		Escrow:          state.Escrow(),
		Cap:             state.Cap(),
		CloseReason:     state.CloseReason,
		LastSeq:         state.LastSeq,
		Milestones:      milestoneViews(state),
	}, nil
}

// SetScore stores the ranking score of an existing campaign.
func (s *Service) SetScore(ctx context.Context, campaignID string, score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "score must be a finite number", map[string]string{"Field": "score"})
	}
	campaignID = strings.TrimSpace(campaignID)
	if _, err := s.projection.Snapshot(campaignID); err != nil {
		return err
	}
	if err := s.scores.SetScore(ctx, campaignID, score); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, "store score", err)
	}
	s.logger.Debug().Str("campaign_id", campaignID).Float64("score", score).Msg("score updated")
	return nil
}

func summarize(state campaign.State, score float64) CampaignSummary {
	return CampaignSummary{
		ID:                 state.ID,
		AthleteName:        state.AthleteName,
		City:               state.City,
		Category:           state.Category,
		Currency:           state.Currency,
		Status:             state.Status,
		Goal:               state.Goal,
		Raised:             state.Raised,
		Released:           state.Released,
		FundedPercentage:   state.FundedPercentage(),
		Score:              score,
		MilestonesReleased: state.ReleasedCount(),
		Investors:          len(state.InvestorIDs()),
		CreatedAt:          state.CreatedAt,
		UpdatedAt:          state.UpdatedAt,
	}
}

func milestoneViews(state campaign.State) []MilestoneView {
	views := make([]MilestoneView, 0, len(state.Milestones))
	for _, m := range state.Milestones {
		views = append(views, MilestoneView{
			Tier:           m.Tier,
			Percentage:     m.Percentage,
			Status:         m.Status,
			PlannedAmount:  m.PlannedAmount,
			ReleasedAmount: m.ReleasedAmount,
			Rejections:     m.Rejections,
		})
	}
	return views
}
