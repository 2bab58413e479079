package i18n

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		locale string
		want   string
	}{
		{"empty defaults to en-US", "", "en-US"},
		{"exact en-US", "en-US", "en-US"},
		{"plain english", "en", "en-US"},
		{"british english falls to en-US", "en-GB", "en-US"},
		{"brazilian portuguese", "pt-BR", "pt-BR"},
		{"plain portuguese", "pt", "pt-BR"},
		{"unsupported falls back", "fr-FR", "en-US"},
		{"garbage falls back", "not-a-locale", "en-US"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.locale).String()
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.locale, got, tt.want)
			}
		})
	}
}

func TestCatalogMessage(t *testing.T) {
	catalog := GetCatalog("en-US")

	got := catalog.Message(CodeRequirementGroupEmpty, map[string]string{"kind": "any"})
	want := "The any group has no requirements"
	if got != want {
		t.Errorf("Message = %q, want %q", got, want)
	}
}

func TestCatalogMessageUnknownCode(t *testing.T) {
	catalog := GetCatalog("en-US")
	if got := catalog.Message("NO_SUCH_CODE", nil); got != "NO_SUCH_CODE" {
		t.Errorf("expected code passthrough, got %q", got)
	}
}

func TestCatalogFallsBackToEnglish(t *testing.T) {
	catalog := GetCatalog("pt-BR")
	if catalog.Locale() != "pt-BR" {
		t.Fatalf("expected pt-BR catalog, got %s", catalog.Locale())
	}
	if got := catalog.Message(CodeDropRejected, nil); got == "" {
		t.Error("expected non-empty localized message")
	}
}
