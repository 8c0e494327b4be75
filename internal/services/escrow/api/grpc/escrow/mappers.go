package escrow

import (
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/services/escrow/engine"
	"github.com/taliva/escrow/internal/services/escrow/query"
)

func toReceipt(r engine.Receipt) Receipt {
	return Receipt{CampaignID: r.CampaignID, Seq: r.Seq, EventHash: r.EventHash, Status: string(r.Status)}
}

func toMilestoneResponse(r engine.MilestoneReceipt) *MilestoneResponse {
	return &MilestoneResponse{Receipt: toReceipt(r.Receipt), Tier: r.Tier, MilestoneStatus: string(r.MilestoneStatus)}
}

func toReleaseResponse(r engine.ReleaseReceipt) *ReleaseResponse {
	return &ReleaseResponse{Receipt: toReceipt(r.Receipt), Tier: r.Tier, Amount: r.Amount, ReleasedTotal: r.Released}
}

func toMilestones(views []query.MilestoneView) []Milestone {
	out := make([]Milestone, 0, len(views))
	for _, m := range views {
		out = append(out, Milestone{
			Tier:           m.Tier,
			Percentage:     m.Percentage,
			Status:         string(m.Status),
			PlannedAmount:  m.PlannedAmount,
			ReleasedAmount: m.ReleasedAmount,
			Rejections:     m.Rejections,
		})
	}
	return out
}

// CampaignFromSummary maps a listing row to its wire form.
func CampaignFromSummary(row query.CampaignSummary) Campaign {
	return Campaign{
		CampaignID:         row.ID,
		AthleteName:        row.AthleteName,
		City:               row.City,
		Category:           row.Category,
		Currency:           row.Currency,
		Status:             string(row.Status),
		Goal:               row.Goal,
		RaisedTotal:        row.Raised,
		ReleasedTotal:      row.Released,
		Escrow:             row.Raised.Sub(row.Released),
		FundedPercentage:   row.FundedPercentage,
		Score:              row.Score,
		Investors:          row.Investors,
		MilestonesReleased: row.MilestonesReleased,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

// CampaignFromDetail maps a campaign with its schedule to its wire form.
func CampaignFromDetail(detail query.CampaignDetail) Campaign {
	out := CampaignFromSummary(detail.CampaignSummary)
	out.Cap = detail.Cap
	out.Escrow = detail.Escrow
	out.CloseReason = detail.CloseReason
	out.LastSeq = detail.LastSeq
	out.Milestones = toMilestones(detail.Milestones)
	return out
}

// PortfolioFromQuery maps a portfolio to its wire form.
func PortfolioFromQuery(p query.Portfolio) GetPortfolioResponse {
	out := GetPortfolioResponse{
		InvestorID:      p.InvestorID,
		Positions:       make([]Position, 0, len(p.Positions)),
		TotalInvested:   p.TotalInvested,
		TotalRefunded:   p.TotalRefunded,
		TotalReleased:   p.TotalReleased,
		AverageProgress: p.AverageProgress,
	}
	for _, pos := range p.Positions {
		out.Positions = append(out.Positions, Position{
			CampaignID:       pos.CampaignID,
			AthleteName:      pos.AthleteName,
			Category:         pos.Category,
			Currency:         pos.Currency,
			Status:           string(pos.Status),
			FundedPercentage: pos.FundedPercentage,
			Stake:            pos.Stake,
			Refunded:         pos.Refunded,
			Share:            pos.Share,
			Released:         pos.Released,
			Investments:      pos.Investments,
			Milestones:       toMilestones(pos.Milestones),
		})
	}
	return out
}

// ActivityFromQuery maps a feed page to its wire form.
func ActivityFromQuery(page query.ActivityResult) ListActivityResponse {
	out := ListActivityResponse{Entries: make([]Activity, 0, len(page.Entries)), NextPageToken: page.NextPageToken}
	for _, entry := range page.Entries {
		out.Entries = append(out.Entries, Activity{
			Seq:        entry.Seq,
			Kind:       string(entry.Kind),
			Message:    entry.Message,
			Timestamp:  entry.Timestamp,
			Tier:       entry.Tier,
			InvestorID: entry.InvestorID,
			Amount:     entry.Amount,
			Percentage: entry.Percentage,
		})
	}
	return out
}

func toEvent(evt event.Event) Event {
	return Event{
		Seq:         evt.Seq,
		CampaignID:  evt.CampaignID,
		Type:        string(evt.Type),
		Timestamp:   evt.Timestamp,
		ActorType:   string(evt.ActorType),
		ActorID:     evt.ActorID,
		EntityType:  evt.EntityType,
		EntityID:    evt.EntityID,
		RequestID:   evt.RequestID,
		Payload:     evt.PayloadJSON,
		Hash:        evt.Hash,
		PrevHash:    evt.PrevHash,
		ChainHash:   evt.ChainHash,
		Signature:   evt.Signature,
		SignatureID: evt.SignatureKeyID,
	}
}
