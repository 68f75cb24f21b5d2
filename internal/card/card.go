// Package card defines the drawn-card model the orchestrator assembles and
// the client renders.
//
// A card is returned to the caller before all of its parts exist: back notes
// arrive on a detached goroutine after the draw completes, and a follow-up
// card appears only once a timed activity finishes. The late-arriving fields
// are therefore guarded; everything set during assembly is immutable after
// the card leaves the orchestrator.
package card

import (
	"sync"
	"time"
)

// Feedback is the player's reaction to a card.
type Feedback string

const (
	FeedbackNone     Feedback = ""
	FeedbackLiked    Feedback = "liked"
	FeedbackDisliked Feedback = "disliked"
)

// Card is one drawn prompt. Fields without accessor methods are written once
// during assembly and read-only afterwards.
type Card struct {
	// ID uniquely identifies the draw.
	ID string

	// DeckID names the deck (built-in, user or offline) the card came from.
	DeckID string

	// DrawnForParticipant is the participant the card addresses, empty when
	// the roster is unused.
	DrawnForParticipant string

	// DrawnAt is the assembly time.
	DrawnAt time.Time

	// Text is the display text of the card front.
	Text string

	// TTSInput is the exact text handed to speech synthesis. May differ from
	// Text (e.g. style-directive fallback) and is empty for offline draws.
	TTSInput string

	// TTSVoice is the prebuilt voice the audio was rendered with.
	TTSVoice string

	// Audio and AudioMIMEType carry the card-front speech blob. Audio is nil
	// when synthesis failed or the card came from the offline source; the
	// client then falls back to its built-in speech engine.
	Audio         []byte
	AudioMIMEType string

	// IsTimed marks an activity card with a countdown.
	IsTimed bool

	// TimerSeconds is the countdown length. Zero when IsTimed is false.
	TimerSeconds int

	// FollowUpPromptText is the pre-planned reflection prompt revealed when
	// the timed activity completes. Empty when IsTimed is false.
	FollowUpPromptText string

	// FollowUpAudio and FollowUpAudioMIMEType carry the pre-fetched speech
	// for the follow-up prompt.
	FollowUpAudio         []byte
	FollowUpAudioMIMEType string

	// Offline marks a card served from the local fallback list.
	Offline bool

	mu        sync.Mutex
	backNotes string
	feedback  Feedback
	completed bool
	followUp  *FollowUp
}

// SetBackNotes attaches the explanatory card-back text. Called from the
// detached generation goroutine after the card has been returned.
func (c *Card) SetBackNotes(notes string) {
	c.mu.Lock()
	c.backNotes = notes
	c.mu.Unlock()
}

// BackNotes returns the card-back text, empty while generation is pending.
func (c *Card) BackNotes() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backNotes
}

// SetFeedback records the player's reaction, overwriting any earlier one.
func (c *Card) SetFeedback(f Feedback) {
	c.mu.Lock()
	c.feedback = f
	c.mu.Unlock()
}

// FeedbackValue returns the current reaction.
func (c *Card) FeedbackValue() Feedback {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feedback
}

// CompleteWithFollowUp flags the timed activity as finished and attaches the
// follow-up returned by build, both under one lock. The first completion
// builds; every later call sees the already-attached follow-up with
// created=false, so concurrent completion signals can never observe a
// completed card without its follow-up.
func (c *Card) CompleteWithFollowUp(build func() *FollowUp) (f *FollowUp, created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return c.followUp, false
	}
	c.completed = true
	c.followUp = build()
	return c.followUp, true
}

// Completed reports whether the timed activity has finished.
func (c *Card) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// FollowUpCard returns the follow-up, nil until the activity completed.
func (c *Card) FollowUpCard() *FollowUp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.followUp
}

// FollowUp is the reflection card revealed after a timed activity. It has no
// follow-up of its own; nesting ends here by construction.
type FollowUp struct {
	// ID uniquely identifies the follow-up.
	ID string

	// ParentID is the timed card this follows.
	ParentID string

	// Text is the reflection prompt.
	Text string

	// Audio and AudioMIMEType carry the pre-fetched speech blob, may be nil.
	Audio         []byte
	AudioMIMEType string

	mu        sync.Mutex
	backNotes string
	feedback  Feedback
}

// SetBackNotes attaches the card-back text generated with the parent
// activity as context.
func (f *FollowUp) SetBackNotes(notes string) {
	f.mu.Lock()
	f.backNotes = notes
	f.mu.Unlock()
}

// BackNotes returns the card-back text, empty while generation is pending.
func (f *FollowUp) BackNotes() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backNotes
}

// SetFeedback records the player's reaction.
func (f *FollowUp) SetFeedback(fb Feedback) {
	f.mu.Lock()
	f.feedback = fb
	f.mu.Unlock()
}

// FeedbackValue returns the current reaction.
func (f *FollowUp) FeedbackValue() Feedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feedback
}
