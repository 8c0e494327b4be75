package campaign

// Status is the funding lifecycle of a campaign.
type Status string

const (
	// StatusOpen accepts deposits, refunds and milestone work.
	StatusOpen Status = "open"
	// StatusFullyFunded has raised at least its goal. Deposits are still
	// admitted up to the overfund cap; refunds are not.
	StatusFullyFunded Status = "fully_funded"
	// StatusClosed accepts no further writes.
	StatusClosed Status = "closed"
)

// ParseStatus normalizes a status label. The empty string is not a status.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusOpen, StatusFullyFunded, StatusClosed:
		return Status(value), true
	default:
		return "", false
	}
}

// MilestoneStatus is the review state of one schedule tier.
type MilestoneStatus string

const (
	MilestoneLocked          MilestoneStatus = "locked"
	MilestonePendingApproval MilestoneStatus = "pending_approval"
	MilestoneReleased        MilestoneStatus = "released"
	// MilestoneRejected is carried by the rejection event only; folding
	// it returns the tier to MilestoneLocked.
	MilestoneRejected MilestoneStatus = "rejected"
)

// InvestmentStatus is the settlement state of one deposit.
type InvestmentStatus string

const (
	InvestmentCommitted InvestmentStatus = "committed"
	InvestmentRefunded  InvestmentStatus = "refunded"
)
