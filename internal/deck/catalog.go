package deck

// Categories lists the built-in deck categories in display order.
var Categories = []Category{
	{ID: "SPECIALS", Name: "Specials"},
	{ID: "INTRODUCTIONS", Name: "Introductions"},
	{ID: "IMAGE_OF_SELF", Name: "Image of Self"},
	{ID: "INTIMACY_CONNECTION", Name: "Intimacy & Connection"},
	{ID: "EXTERNAL_VIEWS", Name: "External Views"},
	{ID: "RELATIONAL", Name: "Relational"},
	{ID: "IMAGINATIVE", Name: "Imaginative"},
	{ID: "EDGY_CONFRONTATIONS", Name: "Edgy Confrontations"},
}

// builtIns is the shipped deck catalogue.
var builtIns = []*BuiltIn{
	{
		DeckID: "WOAH_DUDE", DeckName: "Woah Dude!", Category: "SPECIALS",
		Blurb: "Expand your consciousness and question reality. For deep dives into the fabric of the mind.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{3, 4},
			Themes:    []CoreTheme{ThemeTranscendence, ThemeSpirit, ThemeMind, ThemePlay},
			CardTypes: []CardType{TypeQuestion, TypeDirective, TypeReflection, TypeWildcard},
		},
		AgeGroups:   []AgeGroup{AgeAdults},
		VisualStyle: "psychedelic-bg",
		Special:     true,
	},

	// INTRODUCTIONS
	{
		DeckID: "GENTLE_CURRENTS", DeckName: "Gentle Currents", Category: "INTRODUCTIONS",
		Blurb: "Dipping a toe in the water. Light, safe, and connecting prompts to start any conversation with ease.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{1, 2},
			Themes:    []CoreTheme{ThemeBody, ThemeMind, ThemeHeart, ThemeLight, ThemeOuterWorld, ThemePast, ThemePlay},
			CardTypes: []CardType{TypeQuestion, TypeReflection},
		},
		AgeGroups: []AgeGroup{AgeAdults, AgeTeens, AgeKids},
	},
	{
		DeckID: "THE_ICEBREAKER", DeckName: "The Icebreaker", Category: "INTRODUCTIONS",
		Blurb: "Fun, low-pressure prompts to build energy and instant rapport.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{1},
			Themes:    []CoreTheme{ThemePlay, ThemeOuterWorld},
			CardTypes: []CardType{TypeWildcard, TypeDirective, TypeQuestion},
		},
		AgeGroups:      []AgeGroup{AgeAdults, AgeTeens, AgeKids},
		SocialContexts: []SocialContext{ContextGeneral, ContextStrangers, ContextTeam},
	},

	// IMAGE OF SELF
	{
		DeckID: "LEGACY_VISION", DeckName: "Legacy & Vision", Category: "IMAGE_OF_SELF",
		Blurb: "What are you building? Who are you becoming? Explore your goals, your impact, and the future you are creating.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3, 4},
			Themes:    []CoreTheme{ThemeVision, ThemeLight},
			CardTypes: []CardType{TypeQuestion, TypeReflection},
		},
		AgeGroups: []AgeGroup{AgeAdults, AgeTeens},
	},
	{
		DeckID: "ROOTS_BRANCHES", DeckName: "Roots & Branches", Category: "IMAGE_OF_SELF",
		Blurb: "Explore your personal history, family stories, and the memories that shaped you.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3, 4},
			Themes:    []CoreTheme{ThemePast, ThemeHeart},
			CardTypes: []CardType{TypeQuestion, TypeReflection},
		},
		AgeGroups: []AgeGroup{AgeAdults, AgeTeens},
	},
	{
		DeckID: "INNER_CRITIC_SAGE", DeckName: "The Inner Critic & The Sage", Category: "IMAGE_OF_SELF",
		Blurb: "Meet the voices within. Learn to distinguish your inner critic from your inner wisdom.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3, 4},
			Themes:    []CoreTheme{ThemeParts, ThemeMind},
			CardTypes: []CardType{TypeQuestion, TypePractice},
		},
		AgeGroups: []AgeGroup{AgeAdults, AgeTeens},
	},
	{
		DeckID: "SOMATIC_SANCTUARY", DeckName: "Somatic Sanctuary", Category: "IMAGE_OF_SELF",
		Blurb: "Your body is speaking. This deck is a quiet space to listen to its language of sensation and feeling.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3},
			Themes:    []CoreTheme{ThemeBody, ThemeHeart},
			CardTypes: []CardType{TypeDirective, TypePractice, TypeQuestion},
		},
		AgeGroups: []AgeGroup{AgeAdults, AgeTeens, AgeKids},
	},

	// INTIMACY & CONNECTION
	{
		DeckID: "EROS_ESSENCE", DeckName: "Eros & Essence", Category: "INTIMACY_CONNECTION",
		Blurb: "Explore the landscape of desire, turn-on, and mindful intimacy, connecting sexuality to your core self.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{3, 4, 5},
			Themes:    []CoreTheme{ThemeDesire, ThemeLight},
			CardTypes: []CardType{TypeQuestion, TypeDirective, TypeReflection},
		},
		AgeGroups: []AgeGroup{AgeAdults},
	},
	{
		DeckID: "DEEPENING_PARTNERSHIP", DeckName: "Deepening Partnership", Category: "INTIMACY_CONNECTION",
		Blurb: "For established couples. Reconnect, navigate challenges, and build your shared future.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3, 4},
			Themes:    []CoreTheme{ThemeHeart, ThemeVision, ThemeShadow},
			CardTypes: []CardType{TypeQuestion, TypePractice, TypeConnector},
		},
		AgeGroups:      []AgeGroup{AgeAdults},
		SocialContexts: []SocialContext{ContextRomantic},
	},
	{
		DeckID: "PLATONIC_INTIMACY", DeckName: "Platonic Intimacy", Category: "INTIMACY_CONNECTION",
		Blurb: "For deep friendships. Explore the landscape of connection, care, and vulnerability that exists outside of romance.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3, 4},
			Themes:    []CoreTheme{ThemeHeart, ThemeLight},
			CardTypes: []CardType{TypeQuestion, TypeReflection},
		},
		AgeGroups:      []AgeGroup{AgeAdults, AgeTeens},
		SocialContexts: []SocialContext{ContextFriends},
	},
	{
		DeckID: "ATTRACTION_MAP", DeckName: "Attraction Map", Category: "INTIMACY_CONNECTION",
		Blurb: "What truly captivates you? A solo or shared journey to map the full spectrum of your attractions, whether physical, emotional, intellectual, or spiritual.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{3, 4},
			Themes:    []CoreTheme{ThemeDesire, ThemeMind, ThemeSpirit},
			CardTypes: []CardType{TypeQuestion, TypeReflection},
		},
		AgeGroups:      []AgeGroup{AgeAdults},
		SocialContexts: []SocialContext{ContextSolo, ContextRomantic},
	},
	{
		DeckID: "COURAGEOUS_REQUESTS", DeckName: "Courageous Requests", Category: "INTIMACY_CONNECTION",
		Blurb: "Asking for what you want is a practice. A deck of sentence stems and prompts to help you voice your desires and needs clearly and kindly.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{3, 4},
			Themes:    []CoreTheme{ThemeDesire, ThemeHeart},
			CardTypes: []CardType{TypeReflection, TypePractice},
		},
		AgeGroups: []AgeGroup{AgeAdults},
	},

	// EXTERNAL VIEWS
	{
		DeckID: "AWE_WONDER", DeckName: "Awe & Wonder", Category: "EXTERNAL_VIEWS",
		Blurb: "Reconnect with mystery, meaning, and the sacred in everyday life. A journey into spirit and reverence.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3},
			Themes:    []CoreTheme{ThemeSpirit, ThemeTranscendence},
			CardTypes: []CardType{TypeReflection, TypeQuestion},
		},
		AgeGroups:   []AgeGroup{AgeAdults, AgeTeens},
		VisualStyle: "celestial-bg",
	},
	{
		DeckID: "SOCIAL_MIRROR", DeckName: "Social Mirror", Category: "EXTERNAL_VIEWS",
		Blurb: "Explore your relationship with culture, community, and the world around you.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3},
			Themes:    []CoreTheme{ThemeOuterWorld, ThemeMind},
			CardTypes: []CardType{TypeQuestion, TypeReflection},
		},
		AgeGroups: []AgeGroup{AgeAdults, AgeTeens},
	},
	{
		DeckID: "THE_ORACLE", DeckName: "The Oracle", Category: "EXTERNAL_VIEWS",
		Blurb: "Wisdom through the ages. Reflect on quotes, poems, and koans to see what timeless truth speaks to you now.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3},
			Themes:    []CoreTheme{ThemeSpirit, ThemeMind, ThemeLight},
			CardTypes: []CardType{TypeReflection},
		},
		AgeGroups: []AgeGroup{AgeAdults, AgeTeens},
	},

	// RELATIONAL
	{
		DeckID: "THE_CHECK_IN", DeckName: "The Check-in", Category: "RELATIONAL",
		Blurb: "A quick ritual for teams or partners to touch base, clear the air, and connect on what's real.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2},
			Themes:    []CoreTheme{ThemeMind, ThemeHeart},
			CardTypes: []CardType{TypeReflection, TypeQuestion},
		},
		AgeGroups:      []AgeGroup{AgeAdults, AgeTeens},
		SocialContexts: []SocialContext{ContextFriends, ContextRomantic, ContextFamily, ContextTeam},
	},
	{
		DeckID: "FIRST_IMPRESSIONS", DeckName: "First Impressions", Category: "RELATIONAL",
		Blurb: "Go beyond surface-level facts. A deck to explore the perceptions, stories, and assumptions we form when we first meet.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{1, 2},
			Themes:    []CoreTheme{ThemePlay, ThemeMind, ThemeLight},
			CardTypes: []CardType{TypeQuestion, TypeWildcard},
		},
		AgeGroups:      []AgeGroup{AgeAdults, AgeTeens},
		SocialContexts: []SocialContext{ContextStrangers, ContextRomantic},
	},
	{
		DeckID: "FRIENDS_CIRCLE", DeckName: "Friends' Circle", Category: "RELATIONAL",
		Blurb: "The conversation you've been meaning to have. Go beyond the daily updates and strengthen your bond.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3},
			Themes:    []CoreTheme{ThemeHeart, ThemePast, ThemeLight, ThemeVision},
			CardTypes: []CardType{TypeQuestion, TypeReflection, TypeConnector},
		},
		AgeGroups:      []AgeGroup{AgeAdults, AgeTeens},
		SocialContexts: []SocialContext{ContextFriends},
	},
	{
		DeckID: "FAMILY_HEARTH", DeckName: "Family Hearth", Category: "RELATIONAL",
		Blurb: "Share stories, appreciate one another, and bridge generations. A safe space for family connection.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{1, 2, 3},
			Themes:    []CoreTheme{ThemeHeart, ThemePast, ThemeLight},
			CardTypes: []CardType{TypeQuestion, TypeReflection},
		},
		AgeGroups:      []AgeGroup{AgeAdults, AgeTeens, AgeKids},
		SocialContexts: []SocialContext{ContextFamily},
	},
	{
		DeckID: "TEAM_KICK_OFF", DeckName: "Team Kick-off", Category: "RELATIONAL",
		Blurb: "Start a project or a new team on a foundation of trust and clarity. Align on goals and working styles.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{1, 2},
			Themes:    []CoreTheme{ThemeVision, ThemeLight, ThemeMind},
			CardTypes: []CardType{TypeQuestion, TypePractice},
		},
		AgeGroups:      []AgeGroup{AgeAdults, AgeTeens},
		SocialContexts: []SocialContext{ContextTeam},
	},
	{
		DeckID: "PARENTING_PARTNERS", DeckName: "Parenting Partners", Category: "RELATIONAL",
		Blurb: "Navigate the journey of parenthood together. A space to share the joys, challenges, and your vision for your family.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3, 4},
			Themes:    []CoreTheme{ThemeHeart, ThemeShadow, ThemeVision},
			CardTypes: []CardType{TypeQuestion, TypePractice},
		},
		AgeGroups:      []AgeGroup{AgeAdults},
		SocialContexts: []SocialContext{ContextRomantic},
	},
	{
		DeckID: "KIDS_TABLE", DeckName: "Kid's Table", Category: "RELATIONAL",
		Blurb: "Spark imagination and encourage big feelings. Fun questions and activities for young minds and hearts.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{1, 2},
			Themes:    []CoreTheme{ThemePlay, ThemeHeart, ThemeMind},
			CardTypes: []CardType{TypeQuestion, TypeDirective},
		},
		AgeGroups: []AgeGroup{AgeKids},
	},
	{
		DeckID: "TEEN_CAMPFIRE", DeckName: "Teen Campfire", Category: "RELATIONAL",
		Blurb: "Real talk for real life. Explore identity, friendships, and the future in a space that gets it.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3},
			Themes:    []CoreTheme{ThemeMind, ThemeLight, ThemeOuterWorld, ThemeHeart},
			CardTypes: []CardType{TypeQuestion, TypeReflection},
		},
		AgeGroups: []AgeGroup{AgeTeens},
	},

	// IMAGINATIVE
	{
		DeckID: "THE_WRITERS_ROOM", DeckName: "The Writer's Room", Category: "IMAGINATIVE",
		Blurb: "A deck of creative kindling. Sentence stems and fill-in-the-blanks to bypass the blank page and start writing.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3},
			Themes:    []CoreTheme{ThemePlay, ThemeMind, ThemePast},
			CardTypes: []CardType{TypeReflection},
		},
		AgeGroups:      []AgeGroup{AgeAdults, AgeTeens},
		SocialContexts: []SocialContext{ContextSolo},
	},
	{
		DeckID: "THE_DILEMMA_ENGINE", DeckName: "The Dilemma Engine", Category: "IMAGINATIVE",
		Blurb: "Choose your path. A series of intriguing dilemmas that reveal values, priorities, and hidden beliefs.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3},
			Themes:    []CoreTheme{ThemeMind, ThemeLight, ThemeOuterWorld},
			CardTypes: []CardType{TypeQuestion},
		},
		AgeGroups: []AgeGroup{AgeAdults, AgeTeens},
	},
	{
		DeckID: "THE_DREAM_FACTORY", DeckName: "The Dream Factory", Category: "IMAGINATIVE",
		Blurb: "A launchpad for imagination. Prompts to generate ideas, play with possibilities, and create something new.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{2, 3},
			Themes:    []CoreTheme{ThemePlay, ThemeVision},
			CardTypes: []CardType{TypeDirective, TypeWildcard},
		},
		AgeGroups: []AgeGroup{AgeAdults, AgeTeens, AgeKids},
	},
	{
		DeckID: "PATTERN_INTERRUPT", DeckName: "Pattern Interrupt", Category: "IMAGINATIVE",
		Blurb: "Feeling stuck or too heavy? Draw from this deck to shift the energy with a jolt of playfulness or a fresh perspective.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{1, 2},
			Themes:    []CoreTheme{ThemePlay, ThemeMind},
			CardTypes: []CardType{TypeWildcard, TypeQuestion},
		},
		AgeGroups: []AgeGroup{AgeAdults, AgeTeens, AgeKids},
	},

	// EDGY CONFRONTATIONS
	{
		DeckID: "THE_SHADOW_CABINET", DeckName: "The Shadow Cabinet", Category: "EDGY_CONFRONTATIONS",
		Blurb: "What we hide holds power. A courageous exploration of triggers, shame, and the unowned parts of yourself.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{3, 4},
			Themes:    []CoreTheme{ThemeShadow, ThemeParts},
			CardTypes: []CardType{TypeQuestion, TypeReflection},
		},
		AgeGroups:   []AgeGroup{AgeAdults, AgeTeens},
		VisualStyle: "noir-bg",
	},
	{
		DeckID: "ON_THE_EDGE", DeckName: "On The Edge", Category: "EDGY_CONFRONTATIONS",
		Blurb: "For conversations that matter. Explore charged topics, withheld truths, and challenging perspectives with intention.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{4},
			Themes:    []CoreTheme{ThemeShadow, ThemeDesire, ThemeHeart},
			CardTypes: []CardType{TypeQuestion, TypeDirective},
		},
		AgeGroups: []AgeGroup{AgeAdults},
	},
	{
		DeckID: "NO_MASKS", DeckName: "No Masks", Category: "EDGY_CONFRONTATIONS",
		Blurb: "A space for radical honesty and unfiltered expression. For those ready to meet the depths without reservation.",
		DeckRecipe: Recipe{
			Intensity: []Intensity{5},
			Themes:    []CoreTheme{ThemeShadow, ThemeDesire, ThemeHeart, ThemeLight, ThemeTranscendence},
			CardTypes: []CardType{TypeQuestion, TypeDirective},
		},
		AgeGroups: []AgeGroup{AgeAdults},
	},
}

// Catalog serves the built-in decks plus any registered user decks.
// The zero value is not usable; call NewCatalog.
type Catalog struct {
	byID  map[string]Deck
	order []Deck
}

// NewCatalog builds a catalogue of the shipped decks plus userDecks.
// Invalid user decks are rejected.
func NewCatalog(userDecks ...*User) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Deck, len(builtIns)+len(userDecks))}
	for _, d := range builtIns {
		c.byID[d.DeckID] = d
		c.order = append(c.order, d)
	}
	for _, d := range userDecks {
		if err := Validate(d); err != nil {
			return nil, err
		}
		c.byID[d.DeckID] = d
		c.order = append(c.order, d)
	}
	c.byID[Offline.ID()] = Offline
	return c, nil
}

// ByID resolves a deck by identifier. Returns nil when unknown.
func (c *Catalog) ByID(id string) Deck {
	return c.byID[id]
}

// CategoryByID resolves a category by identifier. Returns nil when unknown.
func (c *Catalog) CategoryByID(id string) *Category {
	for i := range Categories {
		if Categories[i].ID == id {
			return &Categories[i]
		}
	}
	return nil
}

// Eligible returns the decks a draw may select from under the given session
// settings, in catalogue order.
//
// Two hard locks apply when teens or kids are active: decks written only for
// other audiences disappear, and any deck whose recipe touches intensity 4
// or 5 is excluded outright even when those bands are selected. The
// intensity filter itself is soft: a single overlapping band keeps the deck.
// User decks carry no audience metadata but the intensity hard lock still
// applies to their recipe.
func (c *Catalog) Eligible(setting SocialContext, ages AgeFilters, intensities []Intensity) []Deck {
	var out []Deck
	for _, d := range c.order {
		switch deck := d.(type) {
		case *BuiltIn:
			if deck.Special {
				continue
			}
			if !deck.fitsAge(ages) {
				continue
			}
			if !deck.fitsContext(setting) {
				continue
			}
		case *User:
			// User decks opt out of audience and context matching.
		}

		if ages.MinorsPresent() && d.Recipe().TouchesIntensityAtOrAbove(MinorsLockThreshold) {
			continue
		}
		if len(intensities) > 0 && len(d.Recipe().Intensity) > 0 && !overlaps(d.Recipe().Intensity, intensities) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// EligibleInCategory narrows Eligible to one built-in category.
func (c *Catalog) EligibleInCategory(categoryID string, setting SocialContext, ages AgeFilters, intensities []Intensity) []Deck {
	var out []Deck
	for _, d := range c.Eligible(setting, ages, intensities) {
		if b, ok := d.(*BuiltIn); ok && b.Category == categoryID {
			out = append(out, d)
		}
	}
	return out
}

func overlaps(a, b []Intensity) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
