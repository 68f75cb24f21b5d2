// Package offline serves card draws from a fixed local list while no remote
// model is reachable. Draws are uniform over the cards not yet shown; once
// every card has been shown the shown-set resets and rotation starts over,
// so no prompt repeats before the whole list has been seen.
package offline

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/resonance/internal/card"
	"github.com/MrWong99/resonance/internal/deck"
)

// backNotes is the canned guidance attached to every offline card.
const backNotes = "**The Idea:**\n" +
	"You are in offline mode, so this prompt comes from a small hand of pre-written cards rather than a live model.\n" +
	"**Getting Started:**\n" +
	"Take the prompt at face value and answer it as honestly as you can; the card works the same way whether it was written yesterday or just now.\n" +
	"**Deeper Dive:**\n" +
	"When the connection returns, run a health check to switch back to freshly generated cards."

// BackNotes returns the canned guidance used for offline cards and their
// follow-ups.
func BackNotes() string { return backNotes }

// Entry is one pre-written card. TimerSeconds and ReflectionText are set
// together for timed activities.
type Entry struct {
	Text           string
	ReflectionText string
	TimerSeconds   int
}

// builtinCards is the shipped local list.
var builtinCards = []Entry{
	{Text: "What is one small thing that brought you joy today?"},
	{Text: "Describe a moment this week when you felt fully present."},
	{Text: "What is something you are quietly proud of and rarely mention?"},
	{Text: "Name a belief you held strongly five years ago that has softened since."},
	{Text: "What does rest look like for you when it actually works?"},
	{Text: "Who in your life would be surprised by how often you think of them?"},
	{Text: "What is a question you are currently living inside of?"},
	{Text: "Describe a place where you feel most like yourself."},
	{Text: "What would you do with a free afternoon and no obligations at all?"},
	{Text: "What is one thing you wish people asked you about more often?"},
	{
		Text:           "Sit in silence together and notice your breath for 60 seconds.",
		ReflectionText: "What did you notice once the silence settled?",
		TimerSeconds:   60,
	},
	{
		Text:           "Hold eye contact with your partner for 30 seconds without speaking.",
		ReflectionText: "What was the hardest part of staying present?",
		TimerSeconds:   30,
	},
}

// Source is the process-wide offline card source. Safe for concurrent use.
type Source struct {
	mu    sync.Mutex
	cards []Entry
	shown map[int]struct{}
	randN func(n int) int
}

// Option configures a Source.
type Option func(*Source)

// WithCards replaces the shipped list. Used by tests.
func WithCards(cards []Entry) Option {
	return func(s *Source) { s.cards = cards }
}

// WithRandN replaces the random index picker. Used by tests.
func WithRandN(randN func(n int) int) Option {
	return func(s *Source) { s.randN = randN }
}

// NewSource creates a source over the shipped card list.
func NewSource(opts ...Option) *Source {
	s := &Source{
		cards: builtinCards,
		shown: make(map[int]struct{}),
		randN: rand.IntN,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Draw returns one local card. Pure and synchronous: no network access, no
// audio, canned back notes, timed metadata inherited from the entry.
func (s *Source) Draw() *card.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.shown) >= len(s.cards) {
		s.shown = make(map[int]struct{})
	}

	unseen := make([]int, 0, len(s.cards)-len(s.shown))
	for i := range s.cards {
		if _, seen := s.shown[i]; !seen {
			unseen = append(unseen, i)
		}
	}
	idx := unseen[s.randN(len(unseen))]
	s.shown[idx] = struct{}{}
	entry := s.cards[idx]

	c := &card.Card{
		ID:      uuid.NewString(),
		DeckID:  deck.Offline.ID(),
		DrawnAt: time.Now(),
		Text:    entry.Text,
		Offline: true,
	}
	if entry.ReflectionText != "" && entry.TimerSeconds > 0 {
		c.IsTimed = true
		c.TimerSeconds = entry.TimerSeconds
		c.FollowUpPromptText = entry.ReflectionText
	}
	c.SetBackNotes(backNotes)
	return c
}

// Remaining reports how many cards are left before the rotation resets.
func (s *Source) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards) - len(s.shown)
}
