package deck

import "testing"

func allIntensities() []Intensity {
	return []Intensity{1, 2, 3, 4, 5}
}

func ids(decks []Deck) map[string]bool {
	out := make(map[string]bool, len(decks))
	for _, d := range decks {
		out[d.ID()] = true
	}
	return out
}

func mustCatalog(t *testing.T, userDecks ...*User) *Catalog {
	t.Helper()
	c, err := NewCatalog(userDecks...)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestEligibleAdultsOnlySeesAdultDecks(t *testing.T) {
	c := mustCatalog(t)
	got := ids(c.Eligible(ContextGeneral, AgeFilters{Adults: true}, allIntensities()))

	if !got["NO_MASKS"] || !got["EROS_ESSENCE"] {
		t.Error("adult-only decks missing from adult session")
	}
	if got["KIDS_TABLE"] || got["TEEN_CAMPFIRE"] {
		t.Error("minor-only decks visible to adults-only session")
	}
	if got["WOAH_DUDE"] {
		t.Error("special deck listed in regular view")
	}
}

func TestEligibleMinorsHardLock(t *testing.T) {
	c := mustCatalog(t)

	// All bands requested, but teens present: anything touching 4+ must go,
	// even decks that also carry lower bands.
	got := ids(c.Eligible(ContextGeneral, AgeFilters{Adults: true, Teens: true}, allIntensities()))

	for _, id := range []string{"NO_MASKS", "ON_THE_EDGE", "EROS_ESSENCE", "LEGACY_VISION", "THE_SHADOW_CABINET"} {
		if got[id] {
			t.Errorf("deck %s touches intensity >=4 but is visible with teens active", id)
		}
	}
	if !got["GENTLE_CURRENTS"] || !got["TEEN_CAMPFIRE"] {
		t.Error("safe decks missing with teens active")
	}
}

func TestEligibleKidsHardLock(t *testing.T) {
	c := mustCatalog(t)
	got := ids(c.Eligible(ContextGeneral, AgeFilters{Kids: true}, allIntensities()))

	if got["ON_THE_EDGE"] {
		t.Error("intensity-4 deck visible with kids active")
	}
	if !got["KIDS_TABLE"] {
		t.Error("kids deck missing with kids active")
	}
	if got["LEGACY_VISION"] {
		t.Error("deck without the Kids audience visible in kids-only session")
	}
}

func TestEligibleSocialContext(t *testing.T) {
	c := mustCatalog(t)

	general := ids(c.Eligible(ContextGeneral, AgeFilters{Adults: true}, allIntensities()))
	if general["DEEPENING_PARTNERSHIP"] {
		t.Error("romantic-only deck visible in general setting")
	}

	romantic := ids(c.Eligible(ContextRomantic, AgeFilters{Adults: true}, allIntensities()))
	if !romantic["DEEPENING_PARTNERSHIP"] {
		t.Error("romantic deck missing in romantic setting")
	}
	// Unrestricted decks show everywhere.
	if !romantic["GENTLE_CURRENTS"] {
		t.Error("unrestricted deck missing in romantic setting")
	}
}

func TestEligibleIntensitySoftFilter(t *testing.T) {
	c := mustCatalog(t)

	// Only band 1 selected: a deck with bands [1,2] stays (overlap), a deck
	// with [2,3] goes.
	got := ids(c.Eligible(ContextGeneral, AgeFilters{Adults: true}, []Intensity{1}))
	if !got["GENTLE_CURRENTS"] {
		t.Error("deck overlapping the selected band was filtered")
	}
	if got["SOCIAL_MIRROR"] {
		t.Error("deck with no overlapping band kept")
	}
}

func TestEligibleUserDeckIntensityLock(t *testing.T) {
	mild := &User{DeckID: "CUSTOM_MILD", DeckName: "Mild", DeckRecipe: Recipe{Intensity: []Intensity{1, 2}}}
	spicy := &User{DeckID: "CUSTOM_SPICY", DeckName: "Spicy", DeckRecipe: Recipe{Intensity: []Intensity{3, 5}}}
	c := mustCatalog(t, mild, spicy)

	got := ids(c.Eligible(ContextGeneral, AgeFilters{Teens: true}, allIntensities()))
	if !got["CUSTOM_MILD"] {
		t.Error("mild user deck missing with teens active")
	}
	if got["CUSTOM_SPICY"] {
		t.Error("user deck touching intensity 5 visible with teens active")
	}
}

func TestEligibleInCategory(t *testing.T) {
	c := mustCatalog(t)
	got := c.EligibleInCategory("INTRODUCTIONS", ContextGeneral, AgeFilters{Adults: true}, allIntensities())
	if len(got) == 0 {
		t.Fatal("no introduction decks eligible")
	}
	for _, d := range got {
		if d.(*BuiltIn).Category != "INTRODUCTIONS" {
			t.Errorf("deck %s from wrong category", d.ID())
		}
	}
}

func TestByID(t *testing.T) {
	c := mustCatalog(t)
	if d := c.ByID("WOAH_DUDE"); d == nil || d.Name() != "Woah Dude!" {
		t.Error("special deck not resolvable by id")
	}
	if d := c.ByID(Offline.ID()); d == nil {
		t.Error("offline deck not resolvable by id")
	}
	if d := c.ByID("NOPE"); d != nil {
		t.Errorf("unknown id resolved to %v", d)
	}
}

func TestValidateUserDeck(t *testing.T) {
	cases := []struct {
		name    string
		deck    *User
		wantErr bool
	}{
		{"valid", &User{DeckID: "CUSTOM_A", DeckName: "A"}, false},
		{"missing id", &User{DeckName: "A"}, true},
		{"missing name", &User{DeckID: "CUSTOM_A"}, true},
		{"intensity out of range", &User{DeckID: "CUSTOM_A", DeckName: "A", DeckRecipe: Recipe{Intensity: []Intensity{6}}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.deck)
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
