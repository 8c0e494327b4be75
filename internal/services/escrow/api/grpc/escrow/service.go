// Package escrow implements the escrow.v1.EscrowService gRPC API.
//
// The service is declared by hand and exchanges plain Go structs through
// the JSON codec; see Register.
package escrow

import (
	"context"
	"errors"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/platform/grpc/pagination"
	grpcmeta "github.com/taliva/escrow/internal/services/escrow/api/grpc/metadata"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/domain/milestone"
	"github.com/taliva/escrow/internal/services/escrow/engine"
	"github.com/taliva/escrow/internal/services/escrow/ledger"
	"github.com/taliva/escrow/internal/services/escrow/query"
	"github.com/taliva/escrow/internal/services/escrow/storage"
	"github.com/taliva/escrow/internal/storage/cursor"
)

var (
	listEventsPageSize = pagination.PageSizeConfig{Default: 50, Max: 200}
	listEventsOrder    = pagination.OrderByConfig{Default: "seq", Allowed: []string{"seq", "seq desc"}}
)

// Server handles EscrowService calls.
type Server struct {
	engine *engine.Engine
	query  *query.Service
	ledger *ledger.Ledger
}

// NewServer builds the service over the write engine, the query service and
// the ledger.
func NewServer(eng *engine.Engine, q *query.Service, l *ledger.Ledger) (*Server, error) {
	switch {
	case eng == nil:
		return nil, errors.New("engine is required")
	case q == nil:
		return nil, errors.New("query service is required")
	case l == nil:
		return nil, errors.New("ledger is required")
	}
	return &Server{engine: eng, query: q, ledger: l}, nil
}

// CreateCampaign launches a campaign.
func (s *Server) CreateCampaign(ctx context.Context, in *CreateCampaignRequest) (*CreateCampaignResponse, error) {
	specs := make([]event.MilestoneSpec, 0, len(in.Milestones))
	for _, m := range in.Milestones {
		specs = append(specs, event.MilestoneSpec{Tier: m.Tier, Percentage: m.Percentage})
	}
	r, err := s.engine.CreateCampaign(ctx, engine.CreateCampaignInput{
		CampaignID:  in.CampaignID,
		AthleteName: in.AthleteName,
		City:        in.City,
		Category:    in.Category,
		Currency:    in.Currency,
		Goal:        in.Goal,
		Milestones:  specs,
	})
	if err != nil {
		return nil, err
	}
	out := &CreateCampaignResponse{Receipt: toReceipt(r.Receipt)}
	for _, m := range r.Milestones {
		out.Milestones = append(out.Milestones, Milestone{
			Tier:           m.Tier,
			Percentage:     m.Percentage,
			Status:         string(m.Status),
			PlannedAmount:  m.PlannedAmount,
			ReleasedAmount: m.ReleasedAmount,
		})
	}
	return out, nil
}

// CloseCampaign closes a campaign to further writes.
func (s *Server) CloseCampaign(ctx context.Context, in *CloseCampaignRequest) (*CloseCampaignResponse, error) {
	r, err := s.engine.CloseCampaign(ctx, engine.CloseCampaignInput{CampaignID: in.CampaignID, Reason: in.Reason})
	if err != nil {
		return nil, err
	}
	return &CloseCampaignResponse{Receipt: toReceipt(r)}, nil
}

// Deposit commits an investment.
func (s *Server) Deposit(ctx context.Context, in *DepositRequest) (*DepositResponse, error) {
	r, err := s.engine.Deposit(ctx, engine.DepositInput{
		CampaignID:   in.CampaignID,
		InvestorID:   in.InvestorID,
		InvestmentID: in.InvestmentID,
		Amount:       in.Amount,
	})
	if err != nil {
		return nil, err
	}
	return &DepositResponse{Receipt: toReceipt(r.Receipt), InvestmentID: r.InvestmentID, RaisedTotal: r.Raised}, nil
}

// RefundInvestment returns one investment.
func (s *Server) RefundInvestment(ctx context.Context, in *RefundInvestmentRequest) (*RefundInvestmentResponse, error) {
	r, err := s.engine.RefundInvestment(ctx, engine.RefundInput{
		CampaignID:   in.CampaignID,
		InvestmentID: in.InvestmentID,
		Reason:       in.Reason,
	})
	if err != nil {
		return nil, err
	}
	return &RefundInvestmentResponse{
		Receipt:      toReceipt(r.Receipt),
		InvestmentID: r.InvestmentID,
		Amount:       r.Amount,
		RaisedTotal:  r.Raised,
	}, nil
}

// SubmitMilestone puts a tier up for committee review.
func (s *Server) SubmitMilestone(ctx context.Context, in *MilestoneRequest) (*MilestoneResponse, error) {
	r, err := s.engine.SubmitMilestone(ctx, engine.MilestoneInput{CampaignID: in.CampaignID, Tier: in.Tier, Evidence: in.Evidence})
	if err != nil {
		return nil, err
	}
	return toMilestoneResponse(r), nil
}

// ApproveMilestone releases a pending tier.
func (s *Server) ApproveMilestone(ctx context.Context, in *MilestoneRequest) (*ReleaseResponse, error) {
	r, err := s.engine.ApproveMilestone(ctx, engine.MilestoneInput{CampaignID: in.CampaignID, Tier: in.Tier})
	if err != nil {
		return nil, err
	}
	return toReleaseResponse(r), nil
}

// RejectMilestone returns a pending tier to locked.
func (s *Server) RejectMilestone(ctx context.Context, in *RejectMilestoneRequest) (*MilestoneResponse, error) {
	r, err := s.engine.RejectMilestone(ctx, engine.RejectMilestoneInput{CampaignID: in.CampaignID, Tier: in.Tier, Reason: in.Reason})
	if err != nil {
		return nil, err
	}
	return toMilestoneResponse(r), nil
}

// RecordVerdict applies one committee decision.
func (s *Server) RecordVerdict(ctx context.Context, in *RecordVerdictRequest) (*RecordVerdictResponse, error) {
	r, err := s.engine.ApplyVerdict(ctx, milestone.Verdict{
		CampaignID: in.CampaignID,
		Tier:       in.Tier,
		Approved:   in.Approved,
		Reason:     in.Reason,
		ReviewerID: in.ReviewerID,
	})
	if err != nil {
		return nil, err
	}
	out := &RecordVerdictResponse{Receipt: toReceipt(r.Receipt), Tier: r.Tier, Approved: r.Approved}
	if r.Release != nil {
		out.Release = toReleaseResponse(*r.Release)
	}
	return out, nil
}

// GetSnapshot returns the projected state of one campaign.
func (s *Server) GetSnapshot(ctx context.Context, in *GetSnapshotRequest) (*GetSnapshotResponse, error) {
	detail, err := s.query.Campaign(ctx, in.CampaignID)
	if err != nil {
		return nil, err
	}
	return &GetSnapshotResponse{Campaign: CampaignFromDetail(detail)}, nil
}

// ListCampaigns returns a ranked page of campaigns.
func (s *Server) ListCampaigns(ctx context.Context, in *ListCampaignsRequest) (*ListCampaignsResponse, error) {
	page, err := s.query.ListCampaigns(ctx, query.ListRequest{
		Category:  in.Category,
		Status:    in.Status,
		SortKey:   in.SortKey,
		PageSize:  in.PageSize,
		PageToken: in.PageToken,
	})
	if err != nil {
		return nil, err
	}
	out := &ListCampaignsResponse{
		Campaigns:     make([]Campaign, 0, len(page.Campaigns)),
		NextPageToken: page.NextPageToken,
		TotalSize:     page.TotalSize,
	}
	for _, row := range page.Campaigns {
		out.Campaigns = append(out.Campaigns, CampaignFromSummary(row))
	}
	return out, nil
}

// SetScore stores a ranking score from the score feed.
func (s *Server) SetScore(ctx context.Context, in *SetScoreRequest) (*SetScoreResponse, error) {
	if err := s.query.SetScore(ctx, in.CampaignID, in.Score); err != nil {
		return nil, err
	}
	return &SetScoreResponse{}, nil
}

// GetPortfolio returns an investor's positions.
func (s *Server) GetPortfolio(ctx context.Context, in *GetPortfolioRequest) (*GetPortfolioResponse, error) {
	p, err := s.query.GetPortfolio(ctx, in.InvestorID)
	if err != nil {
		return nil, err
	}
	out := PortfolioFromQuery(p)
	return &out, nil
}

// ListActivity returns a campaign's feed in the caller's locale.
func (s *Server) ListActivity(ctx context.Context, in *ListActivityRequest) (*ListActivityResponse, error) {
	page, err := s.query.ListActivity(ctx, query.ActivityRequest{
		CampaignID: in.CampaignID,
		Locale:     grpcmeta.LocaleFromContext(ctx),
		PageSize:   in.PageSize,
		PageToken:  in.PageToken,
	})
	if err != nil {
		return nil, err
	}
	out := ActivityFromQuery(page)
	return &out, nil
}

// ListEvents returns a filtered page of a campaign's raw ledger entries.
func (s *Server) ListEvents(ctx context.Context, in *ListEventsRequest) (*ListEventsResponse, error) {
	orderBy, err := pagination.NormalizeOrderBy(in.OrderBy, listEventsOrder)
	if err != nil {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidArgument, err.Error(), map[string]string{"Field": "order_by"})
	}
	c, err := cursor.Decode(in.PageToken, in.CampaignID, in.Filter, orderBy)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidPageToken, "page token", err)
	}
	page, err := s.ledger.ListEventsPage(ctx, storage.ListEventsPageRequest{
		CampaignID: in.CampaignID,
		PageSize:   pagination.ClampPageSize(in.PageSize, listEventsPageSize),
		CursorSeq:  c.Seq,
		Descending: orderBy == "seq desc",
		Filter:     in.Filter,
	})
	if err != nil {
		return nil, err
	}
	out := &ListEventsResponse{Events: make([]Event, 0, len(page.Events)), TotalSize: page.TotalCount}
	for _, evt := range page.Events {
		out.Events = append(out.Events, toEvent(evt))
	}
	if page.HasNextPage && len(page.Events) > 0 {
		last := page.Events[len(page.Events)-1].Seq
		token, err := cursor.AfterSeq(last, in.CampaignID, in.Filter, orderBy).Encode()
		if err != nil {
			return nil, err
		}
		out.NextPageToken = token
	}
	return out, nil
}
