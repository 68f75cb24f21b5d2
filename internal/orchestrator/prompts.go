package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/MrWong99/resonance/internal/deck"
	"github.com/MrWong99/resonance/internal/persona"
)

// cardFrontInstruction is the system instruction of the card-front session.
// The model is asked for the tagged format; the parser also accepts the
// structured JSON shape so schema-configured backends keep working.
const cardFrontInstruction = `**Task:** Generate a reflective prompt based on the user's JSON context.

**Output Rules (Strict):**
Your entire response MUST contain ONLY the prompt in one of the two formats below, followed by the narration JSON object. Do not add any other text or explanations.

1.  **Standard Prompt (Default):**
<card_front_prompt>A single, concise question or directive under 25 words.</card_front_prompt>

2.  **Activity Prompt (For 'Practice'/'Directive' decks ONLY):**
You may occasionally use this 3-tag format for activities.
<activity_prompt>Short activity prompt. State duration inside if timed (e.g., "...for 30 seconds").</activity_prompt>
<reflection_prompt>Follow-up question for after the activity.</reflection_prompt>
<duration>A number in seconds. Use 0 for a non-timed, multi-part activity.</duration>

**Content Rules:**
- The prompt's content and tone must strictly match the provided ` + "`deck`" + ` name, themes, and ` + "`intensity`" + `.
- Prompts must be a single, clear action.
- For 'The Oracle' deck, the prompt must be a direct quote.
- Review conversation history to ensure variety.

**Narration JSON (Mandatory):**
After the prompt tags, you MUST provide a JSON object in this exact format.
` + "```json" + `
{
"input": {
"ttsInput": "Speak with [Persona Hint from input]. Your delivery should be natural and unforced. [Add specific emotional direction]. Now, speak: \"[Repeat the exact card_front_prompt or activity_prompt text here]\"",
"voice": "[The 'voice' from the voicePersona object]"
}
}
` + "```"

// cardBackInstruction is the system instruction of the card-back session.
const cardBackInstruction = `**Core Identity:** You are a helpful guide, providing context and depth for a reflection prompt. Your voice is insightful and encouraging.
**Core Task:** The user will provide a card front prompt. Your job is to generate the corresponding "Card Back Notes" for it.
**Contextual Awareness (CRITICAL):** The user might provide a ` + "`contextPrompt`" + `. This means the main ` + "`cardFrontText`" + ` is a reflection on that initial activity. If a ` + "`contextPrompt`" + ` exists, your primary goal MUST be to bridge the two prompts. Your guidance should explain how the reflection (` + "`cardFrontText`" + `) builds upon or clarifies the experience of the initial activity (` + "`contextPrompt`" + `).
**Output Requirements (Strictly Adhere to Tags and Headings):**
Your entire response must be enclosed in <card_back_notes> and </card_back_notes> tags. Inside, you MUST generate 1-2 sentences for EACH of the following four sections, using the exact headings with markdown bolding.

<card_back_notes>
**The Idea:**
[Your text for The Idea: Briefly explain the core concept or purpose behind the prompt.]
**Getting Started:**
[Your text for Getting Started: Offer a simple, concrete first step to engage with the prompt.]
**Deeper Dive:**
[Your text for Deeper Dive: Suggest a way to explore the prompt more deeply or from a different angle.]
**Explore Further:**
[Optional: If relevant, suggest 1-2 resources like a specific book, a well-known teacher/thinker, or a type of practice. Be concise. AVOID URLs.]
</card_back_notes>`

// deckPayload mirrors the deck block of the creative-context payload. Only
// fields the selected deck actually has are emitted.
type deckPayload struct {
	Name        string           `json:"name"`
	Category    string           `json:"category,omitempty"`
	Themes      []deck.CoreTheme `json:"themes,omitempty"`
	CardTypes   []deck.CardType  `json:"cardTypes,omitempty"`
	Intensity   []deck.Intensity `json:"intensity,omitempty"`
	Description string           `json:"description,omitempty"`
}

type socialPayload struct {
	Setting           deck.SocialContext `json:"setting"`
	ParticipantCount  int                `json:"participantCount"`
	Participants      []string           `json:"participants"`
	ActiveParticipant string             `json:"activeParticipant"`
	AgeGroups         []deck.AgeGroup    `json:"ageGroups"`
}

type personaPayload struct {
	Name  string `json:"name"`
	Voice string `json:"voice"`
	Hint  string `json:"hint"`
}

type frontPayload struct {
	Deck          deckPayload    `json:"deck"`
	SocialContext socialPayload  `json:"socialContext"`
	VoicePersona  personaPayload `json:"voicePersona"`
	Language      string         `json:"language"`
	HistoryLength int            `json:"historyLength"`
	Redraw        bool           `json:"redraw"`
	FirstCard     bool           `json:"firstCard"`
}

// buildFrontPrompt renders the creative-context message for one draw.
func buildFrontPrompt(catalog *deck.Catalog, d deck.Deck, sel Selection, historyLength int) (string, error) {
	dp := deckPayload{
		Name:        d.Name(),
		Themes:      d.Recipe().Themes,
		CardTypes:   d.Recipe().CardTypes,
		Intensity:   d.Recipe().Intensity,
		Description: d.Description(),
	}
	if b, ok := d.(*deck.BuiltIn); ok {
		if cat := catalog.CategoryByID(b.Category); cat != nil {
			dp.Category = cat.Name
		}
	}

	p := persona.ByVoice(sel.Voice)
	participants := sel.Participants
	if participants == nil {
		participants = []string{}
	}

	payload := frontPayload{
		Deck: dp,
		SocialContext: socialPayload{
			Setting:           sel.Setting,
			ParticipantCount:  sel.ParticipantCount,
			Participants:      participants,
			ActiveParticipant: sel.ActiveParticipant,
			AgeGroups:         sel.Ages.Active(),
		},
		VoicePersona: personaPayload{Name: p.Name, Voice: p.VoiceName, Hint: p.AccentHint},
		Language:      sel.Language,
		HistoryLength: historyLength,
		Redraw:        sel.Redraw,
		FirstCard:     historyLength == 0 && !sel.Redraw,
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("orchestrator: encode draw context: %w", err)
	}
	return "Here is the creative context for this draw:\n" + string(body), nil
}

// buildBackPrompt renders the card-back request. contextPrompt carries the
// parent activity text when the front is a follow-up reflection.
func buildBackPrompt(cardText, contextPrompt string, d deck.Deck) string {
	prompt := fmt.Sprintf("The card front prompt is: %q.", cardText)
	if contextPrompt != "" {
		prompt += fmt.Sprintf(" This is a reflection on a previous activity. The prompt for that activity was: %q.", contextPrompt)
	}

	themes := "N/A"
	if d != nil && len(d.Recipe().Themes) > 0 {
		themes = ""
		for i, th := range d.Recipe().Themes {
			if i > 0 {
				themes += ", "
			}
			themes += string(th)
		}
	}
	return prompt + fmt.Sprintf(" It is from a deck with the context: %q.", "Themes: "+themes)
}
