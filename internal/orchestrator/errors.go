package orchestrator

import (
	"errors"
	"fmt"
)

// ErrDrawInProgress rejects a draw while another one is in flight. Callers
// treat it as a no-op, not a failure.
var ErrDrawInProgress = errors.New("orchestrator: a draw is already in progress")

// NoEligibleDeckError reports that deck resolution produced nothing: the
// requested deck does not exist, is locked out by the audience, or no deck
// survives the active filters.
type NoEligibleDeckError struct {
	DeckID string
	Reason string
}

func (e *NoEligibleDeckError) Error() string {
	if e.DeckID != "" {
		return fmt.Sprintf("orchestrator: deck %q is not eligible: %s", e.DeckID, e.Reason)
	}
	return "orchestrator: no eligible deck: " + e.Reason
}

// GenerationTimeoutError reports a model call that exceeded the generation
// timeout. A timeout on the card front demotes the active model.
type GenerationTimeoutError struct {
	Stage string
}

func (e *GenerationTimeoutError) Error() string {
	return "orchestrator: " + e.Stage + " generation timed out"
}

// QuotaExhaustedError reports quota or rate-limit exhaustion on a live call.
// The service flips into offline mode; user-facing surfaces reframe this as
// switching to offline mode rather than a failure.
type QuotaExhaustedError struct {
	Err error
}

func (e *QuotaExhaustedError) Error() string {
	return "orchestrator: generation quota exhausted: " + e.Err.Error()
}

func (e *QuotaExhaustedError) Unwrap() error { return e.Err }

// AudioGenerationError reports failed speech synthesis. Never fatal to a
// draw; the card ships without audio and the client falls back to its
// built-in speech engine.
type AudioGenerationError struct {
	Err error
}

func (e *AudioGenerationError) Error() string {
	return "orchestrator: audio generation failed: " + e.Err.Error()
}

func (e *AudioGenerationError) Unwrap() error { return e.Err }
