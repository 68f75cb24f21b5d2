// Package persona holds the curated voice personas for speech synthesis and
// builds the per-card style directive that precedes the spoken text.
package persona

import (
	"strings"

	"github.com/MrWong99/resonance/internal/deck"
)

// DefaultVoice is used when a requested voice is unknown or unset.
const DefaultVoice = "Enceladus"

// Persona is one curated speaking character. VoiceName must be a prebuilt
// voice of the speech backend.
type Persona struct {
	ID          string
	Name        string
	Gender      string
	VoiceName   string
	Description string
	Keywords    string

	// AccentHint feeds the style directive handed to the speech model.
	AccentHint string
}

// Curated lists the shipped personas in display order.
var Curated = []Persona{
	{
		ID: "voice_shohreh", Name: "The Oracle (Shohreh)", Gender: "Female",
		VoiceName:   "Vindemiatrix",
		Description: "A deep, resonant voice that carries a sense of wisdom and authority.",
		Keywords:    "deep, resonant, wise, authoritative, gravelly",
		AccentHint:  "a deep, resonant, hypnotic Persian rhythm, commanding yet motherly tone reminiscent of Shohreh Aghdashloo",
	},
	{
		ID: "voice_michelle", Name: "The Mentor (Michelle)", Gender: "Female",
		VoiceName:   "Sulafat",
		Description: "A calm, elegant voice with a warm, clear, and reassuring delivery.",
		Keywords:    "elegant, calm, clear, warm, reassuring",
		AccentHint:  "a calm, smooth, gentle, and clear tone, elegant but never stiff, subtle Malaysian lilt, reminiscent of Michelle Yeoh",
	},
	{
		ID: "voice_rihanna", Name: "The Muse (Rihanna)", Gender: "Female",
		VoiceName:   "Fenrir",
		Description: "A cool, smooth voice with a confident, playful, and musical lilt.",
		Keywords:    "cool, smooth, playful, musical, confident",
		AccentHint:  "a cool, smooth, and playful tone with a husky-bright swing, raw Bajan real warmth, musical and island lilt reminiscent of Rihanna",
	},
	{
		ID: "voice_diego", Name: "The Thinker (Diego)", Gender: "Male",
		VoiceName:   "Enceladus",
		Description: "A warm, thoughtful voice with a gentle, musing cadence that feels both intelligent and sincere.",
		Keywords:    "warm, thoughtful, steady, sincere, gentle, musing",
		AccentHint:  "a warm, thoughtful, husky and steady tone with a mellow Mexican cadence, and rounded authentic and unpolished edge, reminiscent of Diego Luna",
	},
	{
		ID: "voice_trevor", Name: "The Companion (Trevor)", Gender: "Male",
		VoiceName:   "Zubenelgenubi",
		Description: "An upbeat, warm voice with a clear, charismatic, and friendly intonation.",
		Keywords:    "upbeat, warm, engaging, charismatic, clear, friendly",
		AccentHint:  "a warm lilt, smooth with subtle playful pitch swings, yet with South African earthy edge, reminiscent of Trevor Noah",
	},
	{
		ID: "voice_riz", Name: "The Catalyst (Riz)", Gender: "Male",
		VoiceName:   "Puck",
		Description: "A clear, rhythmic voice that feels energetic, witty, and engaging, perfect for sparking new ideas.",
		Keywords:    "rhythmic, clear, witty, engaging, articulate, energetic",
		AccentHint:  "Slight rasp, calm staccato consonants, British-Asian, sometimes East London, inflections, earthy, alive and witty tone reminiscent of Riz Ahmed",
	},
}

// ByVoice resolves a persona by its backend voice name. Unknown voices fall
// back to the default persona.
func ByVoice(voiceName string) Persona {
	for _, p := range Curated {
		if p.VoiceName == voiceName {
			return p
		}
	}
	return ByVoice(DefaultVoice)
}

// KnownVoice reports whether voiceName belongs to a curated persona.
func KnownVoice(voiceName string) bool {
	for _, p := range Curated {
		if p.VoiceName == voiceName {
			return true
		}
	}
	return false
}

// NormalizeVoice maps unknown or empty voice names to the default voice.
func NormalizeVoice(voiceName string) string {
	if KnownVoice(voiceName) {
		return voiceName
	}
	return DefaultVoice
}

// StyleDirective builds the spoken-delivery instruction placed ahead of the
// quoted text in a synthesis request. forBack selects the explanatory
// card-back tone; otherwise the deck's recipe steers the tone.
func StyleDirective(voiceName string, forBack bool, d deck.Deck) string {
	p := ByVoice(voiceName)

	base := "Speak with the gentle, natural cadence reminiscent of " + p.AccentHint +
		". Your delivery should be unforced and sincere, like sharing a quiet thought with a friend. " +
		"Avoid a performative or overly articulated style."

	var tone string
	switch {
	case forBack:
		tone = "Your tone is helpful and encouraging, but maintain a soft, conversational quality."
	case d != nil && d.Recipe().TouchesIntensityAtOrAbove(4):
		tone = "For this, adopt a very calm, steady, and grounded tone, creating a feeling of supportive quiet."
	case d != nil && hasTheme(d.Recipe().Themes, deck.ThemePlay):
		tone = "A light, easy warmth should infuse your voice, as if sharing a private smile."
	default:
		tone = "Your tone should be warm and inviting."
	}

	return collapseSpaces(base + " " + tone + " Now, speak the following:")
}

func hasTheme(themes []deck.CoreTheme, want deck.CoreTheme) bool {
	for _, th := range themes {
		if th == want {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
