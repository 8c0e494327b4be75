// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeInvalidPageToken Code = "INVALID_PAGE_TOKEN"
	CodeInvalidFilter    Code = "INVALID_FILTER"

	// Campaign errors
	CodeCampaignInvalidSchedule Code = "INVALID_SCHEDULE"
	CodeCampaignInvalidGoal     Code = "CAMPAIGN_INVALID_GOAL"
	CodeCampaignAlreadyExists   Code = "CAMPAIGN_ALREADY_EXISTS"
	CodeCampaignClosed          Code = "CAMPAIGN_CLOSED"
	CodeCampaignStatusDisallows Code = "CAMPAIGN_STATUS_DISALLOWS_OPERATION"

	// Investment errors
	CodeInvestmentInvalidAmount   Code = "INVALID_AMOUNT"
	CodeInvestmentGoalExceeded    Code = "GOAL_EXCEEDED"
	CodeInvestmentAlreadyRefunded Code = "INVESTMENT_ALREADY_REFUNDED"
	CodeInvestmentNotFound        Code = "INVESTMENT_NOT_FOUND"

	// Milestone errors
	CodeMilestoneUnknownTier       Code = "UNKNOWN_TIER"
	CodeMilestoneOutOfOrder        Code = "MILESTONE_OUT_OF_ORDER"
	CodeMilestoneAlreadyPending    Code = "MILESTONE_ALREADY_PENDING"
	CodeMilestoneNotPending        Code = "MILESTONE_NOT_PENDING"
	CodeMilestoneReasonRequired    Code = "MILESTONE_REASON_REQUIRED"
	CodeMilestoneInsufficientFunds Code = "INSUFFICIENT_FUNDS"

	// Storage errors
	CodeNotFound       Code = "NOT_FOUND"
	CodeLedgerConflict Code = "LEDGER_CONFLICT"
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidArgument,
		CodeInvalidPageToken,
		CodeInvalidFilter,
		CodeCampaignInvalidSchedule,
		CodeCampaignInvalidGoal,
		CodeInvestmentInvalidAmount,
		CodeMilestoneUnknownTier,
		CodeMilestoneReasonRequired:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeCampaignClosed,
		CodeCampaignStatusDisallows,
		CodeInvestmentGoalExceeded,
		CodeInvestmentAlreadyRefunded,
		CodeMilestoneOutOfOrder,
		CodeMilestoneAlreadyPending,
		CodeMilestoneNotPending,
		CodeMilestoneInsufficientFunds:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeInvestmentNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeCampaignAlreadyExists:
		return codes.AlreadyExists

	// Aborted - the ledger refused a write that raced another one
	case CodeLedgerConflict:
		return codes.Aborted

	// Unavailable - nothing was recorded, retry is safe
	case CodeStorageFailure:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}
