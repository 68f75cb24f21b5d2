package parse

import (
	"errors"
	"testing"

	"github.com/MrWong99/resonance/internal/persona"
)

func TestResponseStructured(t *testing.T) {
	raw := `{"text":"What do you value most?","reflectionText":"","timerDuration":0,"ttsInput":"Now, speak: \"What do you value most?\"","ttsVoice":"Sulafat"}`
	r, err := Response(raw)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if r.Strategy != "structured" {
		t.Errorf("strategy = %q, want structured", r.Strategy)
	}
	if r.Text != "What do you value most?" {
		t.Errorf("text = %q", r.Text)
	}
	if r.TTSVoice != "Sulafat" {
		t.Errorf("voice = %q, want Sulafat", r.TTSVoice)
	}
	if r.IsTimed() {
		t.Error("standard prompt reported as timed")
	}
}

func TestResponseStructuredFenced(t *testing.T) {
	raw := "```json\n{\"text\":\"Hold eye contact.\",\"reflectionText\":\"What did you notice?\",\"timerDuration\":60,\"ttsInput\":\"speak\",\"ttsVoice\":\"Puck\"}\n```"
	r, err := Response(raw)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if r.Strategy != "structured" {
		t.Errorf("strategy = %q, want structured", r.Strategy)
	}
	if !r.IsTimed() || r.TimerSeconds != 60 {
		t.Errorf("timed = %v, seconds = %d", r.IsTimed(), r.TimerSeconds)
	}
	if r.ReflectionText != "What did you notice?" {
		t.Errorf("reflection = %q", r.ReflectionText)
	}
}

func TestResponseStructuredInvalidVoice(t *testing.T) {
	raw := `{"text":"Hi","ttsInput":"speak","ttsVoice":"Zephyr"}`
	r, err := Response(raw)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if r.TTSVoice != persona.DefaultVoice {
		t.Errorf("voice = %q, want default %q", r.TTSVoice, persona.DefaultVoice)
	}
}

func TestResponseTaggedStandard(t *testing.T) {
	raw := "<card_front_prompt>Share a small joy from this week.</card_front_prompt>\n" +
		"```json\n{\"input\":{\"ttsInput\":\"Now, speak: \\\"Share a small joy from this week.\\\"\",\"voice\":\"Vindemiatrix\"}}\n```"
	r, err := Response(raw)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if r.Strategy != "tagged" {
		t.Errorf("strategy = %q, want tagged", r.Strategy)
	}
	if r.Text != "Share a small joy from this week." {
		t.Errorf("text = %q", r.Text)
	}
	if r.TTSVoice != "Vindemiatrix" {
		t.Errorf("voice = %q", r.TTSVoice)
	}
	if r.TTSInput == "" {
		t.Error("narration text missing")
	}
}

func TestResponseTaggedActivity(t *testing.T) {
	raw := "<activity_prompt>Breathe together for 30 seconds.</activity_prompt>\n" +
		"<reflection_prompt>What changed in the room?</reflection_prompt>\n" +
		"<duration>30</duration>\n" +
		`{"input":{"ttsInput":"Now, speak: \"Breathe together for 30 seconds.\"","voice":"Enceladus"}}`
	r, err := Response(raw)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if r.Text != "Breathe together for 30 seconds." {
		t.Errorf("text = %q", r.Text)
	}
	if r.ReflectionText != "What changed in the room?" {
		t.Errorf("reflection = %q", r.ReflectionText)
	}
	if !r.IsTimed() || r.TimerSeconds != 30 {
		t.Errorf("timed = %v, seconds = %d", r.IsTimed(), r.TimerSeconds)
	}
}

func TestResponseTaggedUntimedActivity(t *testing.T) {
	raw := "<activity_prompt>Trade three compliments.</activity_prompt>\n" +
		"<reflection_prompt>Which was hardest to receive?</reflection_prompt>\n" +
		"<duration>0</duration>"
	r, err := Response(raw)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if r.IsTimed() {
		t.Error("duration 0 must not be timed")
	}
	if r.TTSInput != "" || r.TTSVoice != "" {
		t.Error("narration present without JSON envelope")
	}
}

func TestResponseTaggedUnknownVoiceDefaults(t *testing.T) {
	raw := "<card_front_prompt>Hi.</card_front_prompt>\n" +
		`{"input":{"ttsInput":"speak","voice":"NotAVoice"}}`
	r, err := Response(raw)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if r.TTSVoice != persona.DefaultVoice {
		t.Errorf("voice = %q, want default", r.TTSVoice)
	}
}

func TestResponseCleanupFallback(t *testing.T) {
	raw := "Here is your prompt: What keeps you up at night?\n" +
		`{"input":{"broken": true}` // unbalanced, no tags
	r, err := Response(raw)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if r.Strategy != "cleanup" {
		t.Errorf("strategy = %q, want cleanup", r.Strategy)
	}
	if r.Text == "" {
		t.Error("cleanup produced empty text")
	}
	if r.TTSInput != "" {
		t.Error("cleanup path must not carry narration")
	}
}

func TestResponseCleanupNestedJSON(t *testing.T) {
	raw := "Take a breath.\n" +
		`{"input":{"ttsInput":"speak","voice":"Puck"}` + "\n extra }" // nested braces, no tags
	r, err := Response(raw)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if r.Strategy != "cleanup" {
		t.Errorf("strategy = %q, want cleanup", r.Strategy)
	}
	if r.Text != "Take a breath." {
		t.Errorf("text = %q, want the prose with no stray braces", r.Text)
	}
}

func TestResponseMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "```json\n{\"x\":1}\n```", "<card_front_prompt></card_front_prompt>"} {
		_, err := Response(raw)
		var merr *MalformedResponseError
		if !errors.As(err, &merr) {
			t.Errorf("Response(%q) error = %v, want MalformedResponseError", raw, err)
		}
	}
}

func TestBackNotes(t *testing.T) {
	tagged := "<card_back_notes>\n**The Idea:**\nSlowing down builds presence.\n</card_back_notes>"
	if got := BackNotes(tagged); got != "**The Idea:**\nSlowing down builds presence." {
		t.Errorf("BackNotes tagged = %q", got)
	}
	if got := BackNotes("  plain notes  "); got != "plain notes" {
		t.Errorf("BackNotes plain = %q", got)
	}
}
