// Package parse extracts card content from raw model output.
//
// Models are asked for a structured JSON object but in practice reply in a
// mix of formats, so parsing runs a fixed preference order: structured JSON
// first, the tagged text format second, and a cleanup fallback that strips
// markup from whatever is left. Only when all three produce nothing does the
// draw fail with a MalformedResponseError.
package parse

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/MrWong99/resonance/internal/persona"
)

// Tag constants of the tagged response format.
const (
	cardFrontStartTag  = "<card_front_prompt>"
	cardFrontEndTag    = "</card_front_prompt>"
	activityStartTag   = "<activity_prompt>"
	activityEndTag     = "</activity_prompt>"
	reflectionStartTag = "<reflection_prompt>"
	reflectionEndTag   = "</reflection_prompt>"
	durationStartTag   = "<duration>"
	durationEndTag     = "</duration>"
	backNotesStartTag  = "<card_back_notes>"
	backNotesEndTag    = "</card_back_notes>"
)

var (
	cardFrontRe  = regexp.MustCompile(`(?s)` + cardFrontStartTag + `(.*?)` + cardFrontEndTag)
	activityRe   = regexp.MustCompile(`(?s)` + activityStartTag + `(.*?)` + activityEndTag)
	reflectionRe = regexp.MustCompile(`(?s)` + reflectionStartTag + `(.*?)` + reflectionEndTag)
	durationRe   = regexp.MustCompile(durationStartTag + `(\d+)` + durationEndTag)
	backNotesRe  = regexp.MustCompile(`(?s)` + backNotesStartTag + `(.*?)` + backNotesEndTag)

	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	anyFenceRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	markupRe    = regexp.MustCompile(`<[^>]+>`)
)

// MalformedResponseError reports model output no strategy could extract a
// prompt from.
type MalformedResponseError struct {
	Raw string
}

func (e *MalformedResponseError) Error() string {
	return "parse: model returned an incomplete or invalid response"
}

// Result is the content extracted from one card-front response.
type Result struct {
	// Text is the card front prompt.
	Text string

	// ReflectionText is the follow-up prompt of an activity response, empty
	// for standard prompts.
	ReflectionText string

	// TimerSeconds is the activity countdown. Zero means no timer; the
	// original format uses zero for untimed multi-part activities too, so a
	// card is timed only when both a reflection and a positive duration are
	// present.
	TimerSeconds int

	// TTSInput is the narration text for speech synthesis, empty when the
	// model omitted the narration object.
	TTSInput string

	// TTSVoice is the validated narration voice. Unknown voices are replaced
	// with the default persona voice.
	TTSVoice string

	// Strategy names the parser that produced the result.
	Strategy string

	// Raw preserves the full model output for diagnostics.
	Raw string
}

// IsTimed reports whether the result describes a timed activity with a
// follow-up reflection.
func (r *Result) IsTimed() bool {
	return r.ReflectionText != "" && r.TimerSeconds > 0
}

// Response parses raw model output into a Result, trying each strategy in
// preference order.
func Response(raw string) (*Result, error) {
	if r, ok := parseStructured(raw); ok {
		return r, nil
	}
	if r, ok := parseTagged(raw); ok {
		return r, nil
	}
	if r, ok := parseCleanup(raw); ok {
		return r, nil
	}
	return nil, &MalformedResponseError{Raw: raw}
}

// structuredResponse is the JSON shape the system instruction asks for.
type structuredResponse struct {
	Text           string `json:"text"`
	ReflectionText string `json:"reflectionText"`
	TimerDuration  int    `json:"timerDuration"`
	TTSInput       string `json:"ttsInput"`
	TTSVoice       string `json:"ttsVoice"`
}

// parseStructured accepts output that is one JSON object, optionally inside
// a code fence, with a non-empty text field.
func parseStructured(raw string) (*Result, bool) {
	body := strings.TrimSpace(raw)
	if m := anyFenceRe.FindStringSubmatch(body); m != nil {
		body = m[1]
	}
	if !strings.HasPrefix(body, "{") {
		return nil, false
	}

	var sr structuredResponse
	if err := json.Unmarshal([]byte(body), &sr); err != nil {
		return nil, false
	}
	if strings.TrimSpace(sr.Text) == "" {
		return nil, false
	}

	return &Result{
		Text:           strings.TrimSpace(sr.Text),
		ReflectionText: strings.TrimSpace(sr.ReflectionText),
		TimerSeconds:   sr.TimerDuration,
		TTSInput:       sr.TTSInput,
		TTSVoice:       validateVoice(sr.TTSVoice, sr.TTSInput != ""),
		Strategy:       "structured",
		Raw:            raw,
	}, true
}

// narrationEnvelope is the trailing JSON of the tagged format.
type narrationEnvelope struct {
	Input struct {
		TTSInput string `json:"ttsInput"`
		Voice    string `json:"voice"`
	} `json:"input"`
}

// parseTagged handles the tag-based format: an activity triple or a single
// card-front tag, followed by the narration JSON.
func parseTagged(raw string) (*Result, bool) {
	r := &Result{Strategy: "tagged", Raw: raw}

	activity := activityRe.FindStringSubmatch(raw)
	reflection := reflectionRe.FindStringSubmatch(raw)
	switch {
	case activity != nil && reflection != nil:
		r.Text = strings.TrimSpace(activity[1])
		r.ReflectionText = strings.TrimSpace(reflection[1])
		if m := durationRe.FindStringSubmatch(raw); m != nil {
			seconds, err := strconv.Atoi(m[1])
			if err == nil {
				r.TimerSeconds = seconds
			}
		}
	default:
		front := cardFrontRe.FindStringSubmatch(raw)
		if front == nil {
			return nil, false
		}
		r.Text = strings.TrimSpace(front[1])
	}
	if r.Text == "" {
		return nil, false
	}

	r.TTSInput, r.TTSVoice = extractNarration(raw)
	return r, true
}

// extractNarration pulls the trailing narration JSON out of tagged output.
// A fenced json block wins; otherwise the last {...} span is tried.
func extractNarration(raw string) (ttsInput, ttsVoice string) {
	var body string
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		body = m[1]
	} else if start := strings.LastIndex(raw, "{"); start != -1 {
		if end := strings.LastIndex(raw, "}"); end > start {
			body = raw[start : end+1]
		}
	}
	if body == "" {
		return "", ""
	}

	var env narrationEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return "", ""
	}
	if env.Input.TTSInput == "" {
		return "", ""
	}
	return env.Input.TTSInput, validateVoice(env.Input.Voice, true)
}

// parseCleanup strips fences, JSON blocks and markup and uses whatever
// remains as the prompt text. Narration is unavailable on this path. The
// JSON strip spans the first opening to the last closing brace so nested
// objects leave no stray braces behind.
func parseCleanup(raw string) (*Result, bool) {
	cleaned := anyFenceRe.ReplaceAllString(raw, "")
	if open := strings.Index(cleaned, "{"); open >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > open {
			cleaned = cleaned[:open] + cleaned[end+1:]
		}
	}
	cleaned = markupRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, false
	}
	return &Result{Text: cleaned, Strategy: "cleanup", Raw: raw}, true
}

// validateVoice maps unknown voices to the default persona voice. When no
// narration text exists the voice is cleared entirely.
func validateVoice(voice string, haveNarration bool) string {
	if !haveNarration {
		return ""
	}
	return persona.NormalizeVoice(voice)
}

// BackNotes extracts the card-back text from a card-back response. Output
// without the envelope tags is used whole, trimmed.
func BackNotes(raw string) string {
	if m := backNotesRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}
