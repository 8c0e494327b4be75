package query

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgCampaignCreated      = "activity.campaign_created"
	msgCampaignClosed       = "activity.campaign_closed"
	msgCampaignClosedReason = "activity.campaign_closed_reason"
	msgDeposit              = "activity.deposit"
	msgRefund               = "activity.refund"
	msgMilestoneSubmitted   = "activity.milestone_submitted"
	msgMilestoneReleased    = "activity.milestone_released"
	msgMilestoneRejected    = "activity.milestone_rejected"
	msgFundingThreshold     = "activity.funding_threshold"
)

func init() {
	lang := language.AmericanEnglish

	message.SetString(lang, msgCampaignCreated, "%s launched a campaign for %s %s")
	message.SetString(lang, msgCampaignClosed, "Campaign closed")
	message.SetString(lang, msgCampaignClosedReason, "Campaign closed: %s")
	message.SetString(lang, msgDeposit, "%s invested %s %s")
	message.SetString(lang, msgRefund, "%s %s refunded to %s")
	message.SetString(lang, msgMilestoneSubmitted, "Tier %s submitted for review")
	message.SetString(lang, msgMilestoneReleased, "Tier %s approved, %s%% released")
	message.SetString(lang, msgMilestoneRejected, "Tier %s rejected: %s")
	message.SetString(lang, msgFundingThreshold, "Campaign reached %d%%")
}
