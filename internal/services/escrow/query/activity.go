package query

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/platform/grpc/pagination"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
	"github.com/taliva/escrow/internal/storage/cursor"
)

// ActivityKind classifies a feed entry.
type ActivityKind string

const (
	ActivityCampaignCreated    ActivityKind = "campaign_created"
	ActivityCampaignClosed     ActivityKind = "campaign_closed"
	ActivityDeposit            ActivityKind = "deposit"
	ActivityRefund             ActivityKind = "refund"
	ActivityMilestoneSubmitted ActivityKind = "milestone_submitted"
	ActivityMilestoneReleased  ActivityKind = "milestone_released"
	ActivityMilestoneRejected  ActivityKind = "milestone_rejected"
	// ActivityFundingThreshold marks the deposit that pushed the campaign
	// past a funding threshold. A deposit crossing several reports the
	// highest; refunds never re-arm a threshold.
	ActivityFundingThreshold ActivityKind = "funding_threshold"
)

// fundingThresholds are the funded percentages worth announcing.
var fundingThresholds = []int64{25, 50, 75, 100}

var supportedLocales = []language.Tag{language.AmericanEnglish, language.BrazilianPortuguese}

var localeMatcher = language.NewMatcher(supportedLocales)

// Localizer prints catalog messages.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// ActivityRequest selects a page of a campaign's feed.
type ActivityRequest struct {
	CampaignID string
	// Locale is a BCP 47 tag or Accept-Language list; anything unsupported
	// falls back to en-US.
	Locale    string
	PageSize  int
	PageToken string
}

// Activity is one feed entry.
type Activity struct {
	Seq        uint64
	Kind       ActivityKind
	Message    string
	Timestamp  time.Time
	Tier       string
	InvestorID string
	Amount     decimal.Decimal
	// Percentage is the released share of the goal for milestone releases
	// and the crossed threshold for funding entries.
	Percentage decimal.Decimal
}

// ActivityResult is one page of a feed, newest first.
type ActivityResult struct {
	Entries       []Activity
	NextPageToken string
}

// ListActivity derives a human readable feed from a campaign's ledger
// history, newest entry first.
func (s *Service) ListActivity(ctx context.Context, req ActivityRequest) (ActivityResult, error) {
	campaignID := strings.TrimSpace(req.CampaignID)
	if _, err := s.projection.Snapshot(campaignID); err != nil {
		return ActivityResult{}, err
	}
	c, err := cursor.Decode(req.PageToken, campaignID, "seq desc")
	if err != nil {
		return ActivityResult{}, apperrors.Wrap(apperrors.CodeInvalidPageToken, "page token", err)
	}
	pageSize := pagination.ClampPageSize(req.PageSize, activityPageSize)

	entries, err := s.feed(ctx, campaignID, NewLocalizer(req.Locale))
	if err != nil {
		return ActivityResult{}, err
	}
	slices.Reverse(entries)

	var result ActivityResult
	var next int
	result.Entries, next = pagination.Window(entries, c.Offset, pageSize)
	if next > 0 {
		token, err := cursor.AtOffset(next, campaignID, "seq desc").Encode()
		if err != nil {
			return ActivityResult{}, err
		}
		result.NextPageToken = token
	}
	return result, nil
}

// NewLocalizer returns a message printer for the closest supported locale.
// locale may be a single tag or an Accept-Language list.
func NewLocalizer(locale string) Localizer {
	tag := language.AmericanEnglish
	if tags, _, err := language.ParseAcceptLanguage(strings.TrimSpace(locale)); err == nil && len(tags) > 0 {
		_, idx, confidence := localeMatcher.Match(tags...)
		if confidence != language.No {
			tag = supportedLocales[idx]
		}
	}
	return message.NewPrinter(tag)
}

// feed folds the campaign from its first event, emitting entries in seq
// order. Folding alongside is what tells a deposit that crosses a funding
// threshold apart from one that does not.
func (s *Service) feed(ctx context.Context, campaignID string, loc Localizer) ([]Activity, error) {
	var (
		state     campaign.State
		entries   []Activity
		announced int64
	)
	for evt, err := range s.events.FoldSince(ctx, campaignID, 0) {
		if err != nil {
			return nil, err
		}
		next, err := campaign.Fold(state, evt)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "fold campaign history", err)
		}
		entry, ok := describe(loc, state, next, evt)
		if ok {
			entries = append(entries, entry)
		}
		if evt.Type == event.TypeInvestmentDeposited {
			funded := next.FundedPercentage().IntPart()
			crossed := announced
			for _, threshold := range fundingThresholds {
				if funded >= threshold {
					crossed = threshold
				}
			}
			if crossed > announced {
				announced = crossed
				entries = append(entries, Activity{
					Seq:        evt.Seq,
					Kind:       ActivityFundingThreshold,
					Message:    loc.Sprintf(msgFundingThreshold, crossed),
					Timestamp:  evt.Timestamp,
					Percentage: decimal.NewFromInt(crossed),
				})
			}
		}
		state = next
	}
	return entries, nil
}

// describe renders one event. prev is the state before evt, next after.
func describe(loc Localizer, prev, next campaign.State, evt event.Event) (Activity, bool) {
	entry := Activity{Seq: evt.Seq, Timestamp: evt.Timestamp}
	switch evt.Type {
	case event.TypeCampaignCreated:
		entry.Kind = ActivityCampaignCreated
		entry.Amount = next.Goal
		entry.Message = loc.Sprintf(msgCampaignCreated, next.AthleteName, next.Goal.String(), next.Currency)
	case event.TypeCampaignClosed:
		entry.Kind = ActivityCampaignClosed
		if next.CloseReason != "" {
			entry.Message = loc.Sprintf(msgCampaignClosedReason, next.CloseReason)
		} else {
			entry.Message = loc.Sprintf(msgCampaignClosed)
		}
	case event.TypeInvestmentDeposited:
		payload, err := event.DecodePayload[event.InvestmentDepositedPayload](evt)
		if err != nil {
			return Activity{}, false
		}
		entry.Kind = ActivityDeposit
		entry.InvestorID = payload.InvestorID
		entry.Amount = payload.Amount
		entry.Message = loc.Sprintf(msgDeposit, payload.InvestorID, payload.Amount.String(), next.Currency)
	case event.TypeInvestmentRefunded:
		payload, err := event.DecodePayload[event.InvestmentRefundedPayload](evt)
		if err != nil {
			return Activity{}, false
		}
		entry.Kind = ActivityRefund
		entry.InvestorID = payload.InvestorID
		entry.Amount = payload.Amount
		entry.Message = loc.Sprintf(msgRefund, payload.Amount.String(), next.Currency, payload.InvestorID)
	case event.TypeMilestoneSubmitted:
		payload, err := event.DecodePayload[event.MilestoneSubmittedPayload](evt)
		if err != nil {
			return Activity{}, false
		}
		entry.Kind = ActivityMilestoneSubmitted
		entry.Tier = payload.Tier
		entry.Message = loc.Sprintf(msgMilestoneSubmitted, payload.Tier)
	case event.TypeMilestoneReleased:
		payload, err := event.DecodePayload[event.MilestoneReleasedPayload](evt)
		if err != nil {
			return Activity{}, false
		}
		m, _ := next.Milestone(payload.Tier)
		entry.Kind = ActivityMilestoneReleased
		entry.Tier = payload.Tier
		entry.Amount = payload.Amount
		entry.Percentage = m.Percentage
		entry.Message = loc.Sprintf(msgMilestoneReleased, payload.Tier, m.Percentage.String())
	case event.TypeMilestoneRejected:
		payload, err := event.DecodePayload[event.MilestoneRejectedPayload](evt)
		if err != nil {
			return Activity{}, false
		}
		entry.Kind = ActivityMilestoneRejected
		entry.Tier = payload.Tier
		entry.Message = loc.Sprintf(msgMilestoneRejected, payload.Tier, payload.Reason)
	default:
		return Activity{}, false
	}
	return entry, true
}
