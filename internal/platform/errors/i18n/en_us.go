package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeInvalidArgument            = "INVALID_ARGUMENT"
	CodeInvalidPageToken           = "INVALID_PAGE_TOKEN"
	CodeInvalidFilter              = "INVALID_FILTER"
	CodeCampaignInvalidSchedule    = "INVALID_SCHEDULE"
	CodeCampaignInvalidGoal        = "CAMPAIGN_INVALID_GOAL"
	CodeCampaignAlreadyExists      = "CAMPAIGN_ALREADY_EXISTS"
	CodeCampaignClosed             = "CAMPAIGN_CLOSED"
	CodeCampaignStatusDisallows    = "CAMPAIGN_STATUS_DISALLOWS_OPERATION"
	CodeInvestmentInvalidAmount    = "INVALID_AMOUNT"
	CodeInvestmentGoalExceeded     = "GOAL_EXCEEDED"
	CodeInvestmentAlreadyRefunded  = "INVESTMENT_ALREADY_REFUNDED"
	CodeInvestmentNotFound         = "INVESTMENT_NOT_FOUND"
	CodeMilestoneUnknownTier       = "UNKNOWN_TIER"
	CodeMilestoneOutOfOrder        = "MILESTONE_OUT_OF_ORDER"
	CodeMilestoneAlreadyPending    = "MILESTONE_ALREADY_PENDING"
	CodeMilestoneNotPending        = "MILESTONE_NOT_PENDING"
	CodeMilestoneReasonRequired    = "MILESTONE_REASON_REQUIRED"
	CodeMilestoneInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeNotFound                   = "NOT_FOUND"
	CodeLedgerConflict             = "LEDGER_CONFLICT"
	CodeStorageFailure             = "STORAGE_FAILURE"
)

var enUSCatalog = NewCatalog(DefaultLocale, map[Code]string{
	// Request errors
	CodeInvalidArgument:  "{{.Field}} is invalid",
	CodeInvalidPageToken: "Page token is invalid or no longer matches the request",
	CodeInvalidFilter:    "Filter expression is invalid",

	// Campaign errors
	CodeCampaignInvalidSchedule: "Milestone schedule is invalid: {{.Reason}}",
	CodeCampaignInvalidGoal:     "Funding goal must be greater than zero",
	CodeCampaignAlreadyExists:   "Campaign {{.CampaignID}} already exists",
	CodeCampaignClosed:          "Campaign {{.CampaignID}} is closed",
	CodeCampaignStatusDisallows: "Campaign status {{.Status}} does not allow {{.Operation}}",

	// Investment errors
	CodeInvestmentInvalidAmount:   "Amount must be positive with at most {{.Scale}} decimal places",
	CodeInvestmentGoalExceeded:    "Investment would exceed the funding cap of {{.Cap}} {{.Currency}}",
	CodeInvestmentAlreadyRefunded: "Investment {{.InvestmentID}} has already been refunded",
	CodeInvestmentNotFound:        "Investment {{.InvestmentID}} was not found",

	// Milestone errors
	CodeMilestoneUnknownTier:       "Tier {{.Tier}} is not part of this campaign",
	CodeMilestoneOutOfOrder:        "Tier {{.Tier}} cannot be submitted before lower tiers are released",
	CodeMilestoneAlreadyPending:    "Tier {{.Pending}} is already awaiting approval",
	CodeMilestoneNotPending:        "Tier {{.Tier}} is not awaiting approval",
	CodeMilestoneReasonRequired:    "A reason is required",
	CodeMilestoneInsufficientFunds: "Escrow holds {{.Available}} but tier {{.Tier}} releases {{.Amount}}",

	// Storage errors
	CodeNotFound:       "The requested resource was not found",
	CodeLedgerConflict: "The ledger rejected the write, please retry",
	CodeStorageFailure: "The ledger is temporarily unavailable, please retry",
})
