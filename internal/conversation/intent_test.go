package conversation

import "testing"

func TestResolveIntent(t *testing.T) {
	c := testCatalog(t)

	cases := []struct {
		text string
		want Intent
	}{
		{"1", IntentServices},
		{"2.", IntentProducts},
		{" 3) ", IntentExecutive},
		{"२", IntentProducts},
		{"4", IntentUndetermined},
		{"I need an astrology reading", IntentServices},
		{"show me your diamonds", IntentProducts},
		{"can I talk to an executive", IntentExecutive},
		{"consult about buying a ring", IntentProducts},
		{"please recommend a stone for my horoscope", IntentServices},
		{"gem for astrology", IntentUndetermined},
		{"hello", IntentUndetermined},
		{"agent, I want to buy a ruby", IntentUndetermined},
	}

	for _, tc := range cases {
		if got := c.ResolveIntent(tc.text); got != tc.want {
			t.Errorf("ResolveIntent(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestMatchOptionPrefersOrdinalThenKeyword(t *testing.T) {
	c := testCatalog(t)

	o, ok := c.MatchOption(c.Products, "3")
	if !ok || o.ID != "emerald" {
		t.Fatalf("expected emerald for ordinal 3, got %+v (ok=%v)", o, ok)
	}

	o, ok = c.MatchOption(c.Products, "Something in SAPPHÍRE please")
	if !ok || o.ID != "sapphire" {
		t.Fatalf("expected sapphire keyword match, got %+v (ok=%v)", o, ok)
	}

	o, ok = c.MatchOption(c.Products, "Émerald")
	if !ok || o.ID != "emerald" {
		t.Fatalf("expected diacritics to be ignored, got %+v (ok=%v)", o, ok)
	}

	if _, ok := c.MatchOption(c.Products, "42"); ok {
		t.Fatal("expected no match for unknown ordinal without keywords")
	}
	if _, ok := c.MatchOption(c.Products, "something else"); ok {
		t.Fatal("expected no match for unrelated text")
	}
}

func TestMatchConcreteRequiresSingleMatch(t *testing.T) {
	c := testCatalog(t)

	if o, ok := c.MatchConcrete(c.Products, "a ruby pendant"); !ok || o.ID != "ruby" {
		t.Fatalf("expected single ruby match, got %+v (ok=%v)", o, ok)
	}
	if _, ok := c.MatchConcrete(c.Products, "ruby or emerald"); ok {
		t.Fatal("expected ambiguous text to report no match")
	}
	if _, ok := c.MatchConcrete(c.Services, "back"); ok {
		t.Fatal("expected routing entries to be ignored")
	}
}

func TestContainsKeywordRespectsWordStart(t *testing.T) {
	cases := []struct {
		text, kw string
		want     bool
	}{
		{"two rings", "ring", true},
		{"bring it", "ring", false},
		{"border", "order", false},
		{"place an order", "order", true},
		{"मुझे मेनू दिखाओ", "मेनू", true},
	}
	for _, tc := range cases {
		if got := containsKeyword(Normalize(tc.text), tc.kw); got != tc.want {
			t.Errorf("containsKeyword(%q, %q) = %v, want %v", tc.text, tc.kw, got, tc.want)
		}
	}
}

func TestIsMenuCommand(t *testing.T) {
	c := testCatalog(t)

	for _, text := range []string{"menu", "MENU", "Main Menu!", "मेनू", "मेन्यू", "  menu. ", "menu please", "Menu, please"} {
		if !c.IsMenuCommand(text) {
			t.Errorf("expected %q to be a menu command", text)
		}
	}
	for _, text := range []string{"menus please", "12 Menu Lane", "1", "show me the menu of rings", "menuitem"} {
		if c.IsMenuCommand(text) {
			t.Errorf("expected %q not to be a menu command", text)
		}
	}
}

func TestResolveResumeChoice(t *testing.T) {
	c := testCatalog(t)

	cases := []struct {
		text string
		want ResumeChoice
	}{
		{"1", ResumeContinue},
		{"2", ResumeRestart},
		{"continue please", ResumeContinue},
		{"Start over", ResumeRestart},
		{"12", ResumeUnknown},
		{"maybe later", ResumeUnknown},
	}
	for _, tc := range cases {
		if got := c.ResolveResumeChoice(tc.text); got != tc.want {
			t.Errorf("ResolveResumeChoice(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestNormalizeCollapsesWhitespaceAndCase(t *testing.T) {
	if got := Normalize("  Café   CRÈME\tbrûlée "); got != "cafe creme brulee" {
		t.Fatalf("unexpected normalization %q", got)
	}
	if got := Normalize("मेन्यू"); got != "मेन्यू" {
		t.Fatalf("expected Devanagari to survive normalization, got %q", got)
	}
}
