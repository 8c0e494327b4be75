package query

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.BrazilianPortuguese

	message.SetString(lang, msgCampaignCreated, "%s lançou uma campanha de %s %s")
	message.SetString(lang, msgCampaignClosed, "Campanha encerrada")
	message.SetString(lang, msgCampaignClosedReason, "Campanha encerrada: %s")
	message.SetString(lang, msgDeposit, "%s investiu %s %s")
	message.SetString(lang, msgRefund, "%s %s devolvidos a %s")
	message.SetString(lang, msgMilestoneSubmitted, "Nível %s enviado para avaliação")
	message.SetString(lang, msgMilestoneReleased, "Nível %s aprovado, %s%% liberado")
	message.SetString(lang, msgMilestoneRejected, "Nível %s recusado: %s")
	message.SetString(lang, msgFundingThreshold, "Campanha atingiu %d%%")
}
