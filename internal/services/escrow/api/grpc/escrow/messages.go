package escrow

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Amounts travel as decimal strings so no precision is lost in JSON.

type MilestoneSpec struct {
	Tier       string          `json:"tier" validate:"required,max=16"`
	Percentage decimal.Decimal `json:"percentage"`
}

type CreateCampaignRequest struct {
	CampaignID  string          `json:"campaign_id,omitempty" validate:"omitempty,max=64,printascii"`
	AthleteName string          `json:"athlete_name" validate:"required,max=200"`
	City        string          `json:"city,omitempty" validate:"max=200"`
	Category    string          `json:"category" validate:"required,max=64"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,alphanum,max=12"`
	Goal        decimal.Decimal `json:"goal"`
	Milestones  []MilestoneSpec `json:"milestones" validate:"required,min=1,max=26,dive"`
}

type Milestone struct {
	Tier           string          `json:"tier"`
	Percentage     decimal.Decimal `json:"percentage"`
	Status         string          `json:"status"`
	PlannedAmount  decimal.Decimal `json:"planned_amount"`
	ReleasedAmount decimal.Decimal `json:"released_amount"`
	Rejections     int             `json:"rejections,omitempty"`
}

// Receipt identifies the ledger entry a write produced.
type Receipt struct {
	CampaignID string `json:"campaign_id"`
	Seq        uint64 `json:"seq"`
	EventHash  string `json:"event_hash"`
	Status     string `json:"status"`
}

type CreateCampaignResponse struct {
	Receipt    Receipt     `json:"receipt"`
	Milestones []Milestone `json:"milestones"`
}

type CloseCampaignRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,max=64"`
	Reason     string `json:"reason,omitempty" validate:"max=500"`
}

type CloseCampaignResponse struct {
	Receipt Receipt `json:"receipt"`
}

type DepositRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,max=64"`
	InvestorID string `json:"investor_id" validate:"required,max=64,printascii"`
	// InvestmentID makes retries safe; a replayed id is rejected.
	InvestmentID string          `json:"investment_id,omitempty" validate:"omitempty,max=64,printascii"`
	Amount       decimal.Decimal `json:"amount"`
}

type DepositResponse struct {
	Receipt      Receipt         `json:"receipt"`
	InvestmentID string          `json:"investment_id"`
	RaisedTotal  decimal.Decimal `json:"raised_total"`
}

type RefundInvestmentRequest struct {
	CampaignID   string `json:"campaign_id" validate:"required,max=64"`
	InvestmentID string `json:"investment_id" validate:"required,max=64"`
	Reason       string `json:"reason,omitempty" validate:"max=500"`
}

type RefundInvestmentResponse struct {
	Receipt      Receipt         `json:"receipt"`
	InvestmentID string          `json:"investment_id"`
	Amount       decimal.Decimal `json:"amount"`
	RaisedTotal  decimal.Decimal `json:"raised_total"`
}

type MilestoneRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,max=64"`
	Tier       string `json:"tier" validate:"required,max=16"`
	Evidence   string `json:"evidence,omitempty" validate:"max=2000"`
}

type RejectMilestoneRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,max=64"`
	Tier       string `json:"tier" validate:"required,max=16"`
	Reason     string `json:"reason" validate:"required,max=500"`
}

type MilestoneResponse struct {
	Receipt         Receipt `json:"receipt"`
	Tier            string  `json:"tier"`
	MilestoneStatus string  `json:"milestone_status"`
}

type ReleaseResponse struct {
	Receipt       Receipt         `json:"receipt"`
	Tier          string          `json:"tier"`
	Amount        decimal.Decimal `json:"amount"`
	ReleasedTotal decimal.Decimal `json:"released_total"`
}

// RecordVerdictRequest carries one committee decision.
type RecordVerdictRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,max=64"`
	Tier       string `json:"tier" validate:"required,max=16"`
	Approved   bool   `json:"approved"`
	Reason     string `json:"reason,omitempty" validate:"required_if=Approved false,max=500"`
	ReviewerID string `json:"reviewer_id,omitempty" validate:"max=64"`
}

type RecordVerdictResponse struct {
	Receipt  Receipt          `json:"receipt"`
	Tier     string           `json:"tier"`
	Approved bool             `json:"approved"`
	Release  *ReleaseResponse `json:"release,omitempty"`
}

type GetSnapshotRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,max=64"`
}

// Campaign is the full read view of one campaign.
type Campaign struct {
	CampaignID         string          `json:"campaign_id"`
	AthleteName        string          `json:"athlete_name"`
	City               string          `json:"city,omitempty"`
	Category           string          `json:"category"`
	Currency           string          `json:"currency"`
	Status             string          `json:"status"`
	Goal               decimal.Decimal `json:"goal"`
	Cap                decimal.Decimal `json:"cap"`
	RaisedTotal        decimal.Decimal `json:"raised_total"`
	ReleasedTotal      decimal.Decimal `json:"released_total"`
	Escrow             decimal.Decimal `json:"escrow"`
	FundedPercentage   decimal.Decimal `json:"funded_percentage"`
	Score              float64         `json:"score"`
	Investors          int             `json:"investors"`
	MilestonesReleased int             `json:"milestones_released"`
	CloseReason        string          `json:"close_reason,omitempty"`
	LastSeq            uint64          `json:"last_seq,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Milestones         []Milestone     `json:"milestones,omitempty"`
}

type GetSnapshotResponse struct {
	Campaign Campaign `json:"campaign"`
}

type ListCampaignsRequest struct {
	Category  string `json:"category,omitempty" validate:"max=64"`
	Status    string `json:"status,omitempty" validate:"omitempty,oneof=open fully_funded closed"`
	SortKey   string `json:"sort_key,omitempty"`
	PageSize  int    `json:"page_size,omitempty" validate:"gte=0"`
	PageToken string `json:"page_token,omitempty"`
}

type ListCampaignsResponse struct {
	Campaigns     []Campaign `json:"campaigns"`
	NextPageToken string     `json:"next_page_token,omitempty"`
	TotalSize     int        `json:"total_size"`
}

type SetScoreRequest struct {
	CampaignID string  `json:"campaign_id" validate:"required,max=64"`
	Score      float64 `json:"score"`
}

type SetScoreResponse struct{}

type GetPortfolioRequest struct {
	InvestorID string `json:"investor_id" validate:"required,max=64"`
}

type Position struct {
	CampaignID       string          `json:"campaign_id"`
	AthleteName      string          `json:"athlete_name"`
	Category         string          `json:"category"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	FundedPercentage decimal.Decimal `json:"funded_percentage"`
	Stake            decimal.Decimal `json:"stake"`
	Refunded         decimal.Decimal `json:"refunded"`
	Share            decimal.Decimal `json:"share"`
	Released         decimal.Decimal `json:"released"`
	Investments      int             `json:"investments"`
	Milestones       []Milestone     `json:"milestones"`
}

type GetPortfolioResponse struct {
	InvestorID      string          `json:"investor_id"`
	Positions       []Position      `json:"positions"`
	TotalInvested   decimal.Decimal `json:"total_invested"`
	TotalRefunded   decimal.Decimal `json:"total_refunded"`
	TotalReleased   decimal.Decimal `json:"total_released"`
	AverageProgress int             `json:"average_progress"`
}

type ListActivityRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,max=64"`
	PageSize   int    `json:"page_size,omitempty" validate:"gte=0"`
	PageToken  string `json:"page_token,omitempty"`
}

type Activity struct {
	Seq        uint64          `json:"seq"`
	Kind       string          `json:"kind"`
	Message    string          `json:"message"`
	Timestamp  time.Time       `json:"timestamp"`
	Tier       string          `json:"tier,omitempty"`
	InvestorID string          `json:"investor_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

type ListActivityResponse struct {
	Entries       []Activity `json:"entries"`
	NextPageToken string     `json:"next_page_token,omitempty"`
}

type ListEventsRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,max=64"`
	PageSize   int    `json:"page_size,omitempty" validate:"gte=0"`
	PageToken  string `json:"page_token,omitempty"`
	// Filter is an AIP-160 expression over type, actor_type, actor_id,
	// entity_type, entity_id and ts.
	Filter  string `json:"filter,omitempty" validate:"max=1000"`
	OrderBy string `json:"order_by,omitempty"`
}

// Event is one ledger entry as stored.
type Event struct {
	Seq         uint64          `json:"seq"`
	CampaignID  string          `json:"campaign_id"`
	Type        string          `json:"type"`
	Timestamp   time.Time       `json:"timestamp"`
	ActorType   string          `json:"actor_type"`
	ActorID     string          `json:"actor_id,omitempty"`
	EntityType  string          `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	RequestID   string          `json:"request_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	Hash        string          `json:"hash"`
	PrevHash    string          `json:"prev_hash,omitempty"`
	ChainHash   string          `json:"chain_hash"`
	Signature   string          `json:"signature,omitempty"`
	SignatureID string          `json:"signature_key_id,omitempty"`
}

type ListEventsResponse struct {
	Events        []Event `json:"events"`
	NextPageToken string  `json:"next_page_token,omitempty"`
	TotalSize     int     `json:"total_size"`
}
