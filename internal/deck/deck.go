// Package deck holds the conversation-deck taxonomy: core themes, card
// types, intensity bands, social contexts and age groups, plus the deck
// variants the orchestrator can draw from.
//
// A deck is a recipe, not a list of cards. Its themes, card types and
// intensity bands steer the generation prompt; the actual card text is
// produced by the model at draw time. Three variants exist: curated built-in
// decks, user-defined decks, and the virtual offline deck used when no
// remote model is reachable.
package deck

import "fmt"

// SocialContext describes who is playing together.
type SocialContext string

const (
	ContextSolo      SocialContext = "SOLO"
	ContextGeneral   SocialContext = "GENERAL"
	ContextStrangers SocialContext = "STRANGERS"
	ContextFriends   SocialContext = "FRIENDS"
	ContextRomantic  SocialContext = "ROMANTIC"
	ContextFamily    SocialContext = "FAMILY"
	ContextTeam      SocialContext = "TEAM"
)

// DefaultContext applies when the caller does not pick a setting.
const DefaultContext = ContextGeneral

// GroupSetting pairs a social context with its user-facing label.
type GroupSetting struct {
	ID          SocialContext
	Label       string
	Description string
}

// GroupSettings lists the selectable social contexts in display order.
var GroupSettings = []GroupSetting{
	{ContextSolo, "Solo", "For introspection, journaling, or individual reflection."},
	{ContextGeneral, "General", "For any group or when unsure."},
	{ContextStrangers, "Strangers", "Getting to know each other, icebreakers."},
	{ContextFriends, "Friends", "Deeper connection, shared experiences."},
	{ContextRomantic, "Romantic", "Intimacy, partnership, shared journey."},
	{ContextFamily, "Family", "Bonds, history, understanding."},
	{ContextTeam, "Team", "Team dynamics, collaboration, professional connection."},
}

// AgeGroup is an audience band a deck is written for.
type AgeGroup string

const (
	AgeAdults AgeGroup = "Adults"
	AgeTeens  AgeGroup = "Teens"
	AgeKids   AgeGroup = "Kids"
)

// AgeFilters marks which audience bands are present in the session.
type AgeFilters struct {
	Adults bool `json:"adults" yaml:"adults"`
	Teens  bool `json:"teens" yaml:"teens"`
	Kids   bool `json:"kids" yaml:"kids"`
}

// Active returns the enabled bands in fixed order.
func (f AgeFilters) Active() []AgeGroup {
	var out []AgeGroup
	if f.Adults {
		out = append(out, AgeAdults)
	}
	if f.Teens {
		out = append(out, AgeTeens)
	}
	if f.Kids {
		out = append(out, AgeKids)
	}
	return out
}

// MinorsPresent reports whether teens or kids are part of the session. Decks
// touching intensity band 4 or above are excluded outright in that case.
func (f AgeFilters) MinorsPresent() bool {
	return f.Teens || f.Kids
}

// Intensity is the emotional depth band of a prompt, 1 (surface) to 5
// (exposing).
type Intensity int

// AllIntensities lists the valid bands in ascending order.
var AllIntensities = []Intensity{1, 2, 3, 4, 5}

// MinorsLockThreshold is the lowest intensity band hard-locked away from minors.
const MinorsLockThreshold Intensity = 4

// IntensityInfo is the user-facing description of a band.
type IntensityInfo struct {
	Label   string
	Emoji   string
	Tooltip string
}

// IntensityDescriptions maps each band to its display data.
var IntensityDescriptions = map[Intensity]IntensityInfo{
	1: {"1", "🌱", "Surface: Light, safe, icebreakers."},
	2: {"2", "💬", "Connecting: Invites personal stories and opinions with gentle vulnerability."},
	3: {"3", "❤️", "Vulnerable: Asks for feelings, needs, and deeper self-revelation."},
	4: {"4", "🔥", "Edgy: Touches on shadow, withheld truths, and charged topics."},
	5: {"5", "💎", "Exposing: Deep, direct, and unfiltered for radical honesty."},
}

// CoreTheme is one of the thematic axes a deck draws on.
type CoreTheme string

const (
	ThemeBody          CoreTheme = "Body & Sensation"
	ThemeMind          CoreTheme = "Mind & Thoughts"
	ThemeHeart         CoreTheme = "Heart & Emotions"
	ThemeShadow        CoreTheme = "Shadow & Depth"
	ThemeLight         CoreTheme = "Light & Essence"
	ThemeDesire        CoreTheme = "Desire & Intimacy"
	ThemeParts         CoreTheme = "Parts & Voices"
	ThemeOuterWorld    CoreTheme = "Outer World"
	ThemePast          CoreTheme = "Past & Memory"
	ThemeVision        CoreTheme = "Vision & Future"
	ThemePlay          CoreTheme = "Play & Creativity"
	ThemeSpirit        CoreTheme = "Spirit & Awe"
	ThemeTranscendence CoreTheme = "Transcendence & Mystery"
)

// AllCoreThemes lists every theme in display order.
var AllCoreThemes = []CoreTheme{
	ThemeBody, ThemeMind, ThemeHeart, ThemeShadow, ThemeLight, ThemeDesire,
	ThemeParts, ThemeOuterWorld, ThemePast, ThemeVision, ThemePlay,
	ThemeSpirit, ThemeTranscendence,
}

// CardType is the interaction style of a prompt.
type CardType string

const (
	TypeQuestion   CardType = "Question"
	TypeDirective  CardType = "Directive"
	TypeReflection CardType = "Reflection"
	TypePractice   CardType = "Practice"
	TypeWildcard   CardType = "Wildcard"
	TypeConnector  CardType = "Connector"
)

// AllCardTypes lists every card type in display order.
var AllCardTypes = []CardType{
	TypeQuestion, TypeDirective, TypeReflection, TypePractice, TypeWildcard,
	TypeConnector,
}

// Category groups built-in decks for display.
type Category struct {
	ID   string
	Name string
}

// Recipe is the generation steering shared by all deck variants. User decks
// may leave any slice empty, meaning "no constraint".
type Recipe struct {
	Intensity []Intensity
	Themes    []CoreTheme
	CardTypes []CardType
}

// TouchesIntensityAtOrAbove reports whether any band in the recipe reaches
// the threshold. An empty intensity list never matches.
func (r Recipe) TouchesIntensityAtOrAbove(threshold Intensity) bool {
	for _, lvl := range r.Intensity {
		if lvl >= threshold {
			return true
		}
	}
	return false
}

// Deck is the common surface of the three deck variants. The orchestrator
// treats every variant the same; only filtering and display differ.
type Deck interface {
	ID() string
	Name() string
	Description() string
	Recipe() Recipe
}

// BuiltIn is a curated deck from the shipped catalogue.
type BuiltIn struct {
	DeckID     string
	DeckName   string
	Category   string
	Blurb      string
	DeckRecipe Recipe

	// SocialContexts restricts the deck to specific settings. Nil means the
	// deck fits every setting.
	SocialContexts []SocialContext

	// AgeGroups lists the audiences the deck is written for.
	AgeGroups []AgeGroup

	// VisualStyle is an optional client rendering hint.
	VisualStyle string

	// Special keeps the deck out of the regular listing; it is reachable by
	// ID only.
	Special bool
}

func (d *BuiltIn) ID() string          { return d.DeckID }
func (d *BuiltIn) Name() string        { return d.DeckName }
func (d *BuiltIn) Description() string { return d.Blurb }
func (d *BuiltIn) Recipe() Recipe      { return d.DeckRecipe }

// fitsContext reports whether the deck applies to setting.
func (d *BuiltIn) fitsContext(setting SocialContext) bool {
	if len(d.SocialContexts) == 0 {
		return true
	}
	for _, sc := range d.SocialContexts {
		if sc == setting {
			return true
		}
	}
	return false
}

// fitsAge reports whether any active band is among the deck's audiences.
func (d *BuiltIn) fitsAge(filters AgeFilters) bool {
	for _, ag := range d.AgeGroups {
		switch ag {
		case AgeAdults:
			if filters.Adults {
				return true
			}
		case AgeTeens:
			if filters.Teens {
				return true
			}
		case AgeKids:
			if filters.Kids {
				return true
			}
		}
	}
	return false
}

// User is a deck defined by the player. Recipe fields are optional.
type User struct {
	DeckID     string
	DeckName   string
	Blurb      string
	DeckRecipe Recipe
}

func (d *User) ID() string          { return d.DeckID }
func (d *User) Name() string        { return d.DeckName }
func (d *User) Description() string { return d.Blurb }
func (d *User) Recipe() Recipe      { return d.DeckRecipe }

// UserDeckIDPrefix marks identifiers of user-defined decks.
const UserDeckIDPrefix = "CUSTOM_"

// Offline is the virtual deck backing draws while no remote model is
// reachable.
var Offline = offlineDeck{}

type offlineDeck struct{}

func (offlineDeck) ID() string   { return "OFFLINE" }
func (offlineDeck) Name() string { return "Offline Wisdom" }
func (offlineDeck) Description() string {
	return "A hand of pre-written prompts for when the connection rests."
}
func (offlineDeck) Recipe() Recipe { return Recipe{} }

// Validate checks a user deck before it enters play.
func Validate(d *User) error {
	if d.DeckID == "" {
		return fmt.Errorf("deck: user deck has no id")
	}
	if d.DeckName == "" {
		return fmt.Errorf("deck: user deck %q has no name", d.DeckID)
	}
	for _, lvl := range d.DeckRecipe.Intensity {
		if lvl < 1 || lvl > 5 {
			return fmt.Errorf("deck: user deck %q has intensity %d outside 1-5", d.DeckID, lvl)
		}
	}
	return nil
}
