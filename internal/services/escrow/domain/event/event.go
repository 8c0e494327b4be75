package event

import (
	"time"
)

// Type identifies the kind of ledger event.
type Type string

// Campaign lifecycle events.
const (
	// TypeCampaignCreated records the launch of a campaign and its schedule.
	TypeCampaignCreated Type = "campaign.created"
	// TypeCampaignClosed records that a campaign stopped accepting writes.
	TypeCampaignClosed Type = "campaign.closed"
)

// Investment events.
const (
	// TypeInvestmentDeposited records money committed to a campaign.
	TypeInvestmentDeposited Type = "investment.deposited"
	// TypeInvestmentRefunded records a committed investment returned to its investor.
	TypeInvestmentRefunded Type = "investment.refunded"
)

// Milestone events.
const (
	// TypeMilestoneSubmitted records a tier moving to pending approval.
	TypeMilestoneSubmitted Type = "milestone.submitted"
	// TypeMilestoneReleased records escrowed money paid out for a tier.
	TypeMilestoneReleased Type = "milestone.released"
	// TypeMilestoneRejected records a committee rejection of a pending tier.
	TypeMilestoneRejected Type = "milestone.rejected"
)

// ActorType identifies who or what triggered an event.
type ActorType string

const (
	// ActorTypeSystem indicates the event was triggered by the engine itself.
	ActorTypeSystem ActorType = "system"
	// ActorTypeAthlete indicates the event was triggered by the athlete.
	ActorTypeAthlete ActorType = "athlete"
	// ActorTypeInvestor indicates the event was triggered by an investor.
	ActorTypeInvestor ActorType = "investor"
	// ActorTypeCommittee indicates the event was triggered by the review committee.
	ActorTypeCommittee ActorType = "committee"
	// ActorTypeSettlement indicates the event was triggered by payment reconciliation.
	ActorTypeSettlement ActorType = "settlement"
)

// Entity types addressed by events.
const (
	EntityCampaign   = "campaign"
	EntityInvestment = "investment"
	EntityMilestone  = "milestone"
)

// Event represents an immutable entry in the ledger.
type Event struct {
	// Seq is the global ledger position (starts at 1, strictly increasing
	// across all campaigns). Assigned by storage on append.
	Seq uint64
	// CampaignID is the campaign this event belongs to.
	CampaignID string
	// Type identifies the kind of event.
	Type Type
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// ActorType identifies who triggered the event.
	ActorType ActorType
	// ActorID identifies the specific actor (investor id, committee member).
	ActorID string
	// RequestID correlates the event with the API request that caused it.
	RequestID string
	// EntityType is the kind of entity the event addresses.
	EntityType string
	// EntityID is the identifier of the addressed entity.
	EntityID string
	// PayloadJSON is the type-specific payload.
	PayloadJSON []byte

	// Hash is the content-addressed identity (SHA-256 truncated to 128-bit).
	// Assigned by storage on append.
	Hash string
	// PrevHash is the chain hash of the campaign's previous event (empty for
	// the first event). Assigned by storage on append.
	PrevHash string
	// ChainHash links this event to the campaign's previous event.
	// Assigned by storage on append.
	ChainHash string
	// SignatureKeyID identifies the HMAC key used to sign the chain hash.
	SignatureKeyID string
	// Signature is the HMAC signature of the chain hash.
	Signature string
}
