package i18n

import "testing"

func TestGetCatalogFallsBackToDefault(t *testing.T) {
	for _, locale := range []string{"", "fr-FR", "  "} {
		if got := GetCatalog(locale).Locale(); got != DefaultLocale {
			t.Fatalf("locale %q: expected %s, got %s", locale, DefaultLocale, got)
		}
	}
}

func TestGetCatalogMatchesBaseLanguage(t *testing.T) {
	if got := GetCatalog("en-GB").Locale(); got != DefaultLocale {
		t.Fatalf("expected en-GB to resolve to %s, got %s", DefaultLocale, got)
	}
}

func TestFormatRendersMetadata(t *testing.T) {
	msg := GetCatalog(DefaultLocale).Format(CodeMilestoneUnknownTier, map[string]string{"Tier": "Z"})
	if msg != "Tier Z is not part of this campaign" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestFormatMissingMetadataRendersEmpty(t *testing.T) {
	msg := GetCatalog(DefaultLocale).Format(CodeCampaignClosed, nil)
	if msg != "Campaign  is closed" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestFormatUnknownCodeReturnsCode(t *testing.T) {
	if got := GetCatalog(DefaultLocale).Format("NOPE", nil); got != "NOPE" {
		t.Fatalf("expected code fallback, got %q", got)
	}
}

func TestRegisterCatalog(t *testing.T) {
	RegisterCatalog("pt-BR", NewCatalog("pt-BR", map[Code]string{
		CodeNotFound: "Recurso não encontrado",
	}))
	t.Cleanup(func() {
		catalogsMu.Lock()
		delete(catalogs, "pt-BR")
		catalogsMu.Unlock()
	})

	cat := GetCatalog("pt-BR")
	if cat.Locale() != "pt-BR" {
		t.Fatalf("expected pt-BR catalog, got %s", cat.Locale())
	}
	if got := cat.Format(CodeNotFound, nil); got != "Recurso não encontrado" {
		t.Fatalf("unexpected message %q", got)
	}
}
