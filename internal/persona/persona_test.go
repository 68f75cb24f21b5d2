package persona

import (
	"strings"
	"testing"

	"github.com/MrWong99/resonance/internal/deck"
)

func TestByVoiceFallsBackToDefault(t *testing.T) {
	p := ByVoice("NotAVoice")
	if p.VoiceName != DefaultVoice {
		t.Errorf("fallback persona voice = %q, want %q", p.VoiceName, DefaultVoice)
	}
	if got := ByVoice("Puck"); got.ID != "voice_riz" {
		t.Errorf("ByVoice(Puck) = %q, want voice_riz", got.ID)
	}
}

func TestNormalizeVoice(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Sulafat", "Sulafat"},
		{"Enceladus", "Enceladus"},
		{"", DefaultVoice},
		{"Zephyr", DefaultVoice},
	}
	for _, tc := range cases {
		if got := NormalizeVoice(tc.in); got != tc.want {
			t.Errorf("NormalizeVoice(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStyleDirectiveTones(t *testing.T) {
	intense := &deck.BuiltIn{
		DeckID: "X", DeckName: "X",
		DeckRecipe: deck.Recipe{Intensity: []deck.Intensity{4}},
	}
	playful := &deck.BuiltIn{
		DeckID: "Y", DeckName: "Y",
		DeckRecipe: deck.Recipe{Intensity: []deck.Intensity{1}, Themes: []deck.CoreTheme{deck.ThemePlay}},
	}

	back := StyleDirective("Sulafat", true, intense)
	if !strings.Contains(back, "helpful and encouraging") {
		t.Error("card-back directive missing explanatory tone")
	}

	front := StyleDirective("Sulafat", false, intense)
	if !strings.Contains(front, "calm, steady, and grounded") {
		t.Error("high-intensity directive missing grounded tone")
	}

	play := StyleDirective("Sulafat", false, playful)
	if !strings.Contains(play, "private smile") {
		t.Error("playful directive missing light tone")
	}

	plain := StyleDirective("Sulafat", false, nil)
	if !strings.Contains(plain, "warm and inviting") {
		t.Error("default directive missing warm tone")
	}

	for _, dir := range []string{back, front, play, plain} {
		if !strings.HasSuffix(dir, "Now, speak the following:") {
			t.Errorf("directive does not end with speak marker: %q", dir)
		}
		if strings.Contains(dir, "  ") {
			t.Errorf("directive contains doubled spaces: %q", dir)
		}
	}
}
