// Package genai defines the provider interfaces for the remote generation
// backends used by Resonance: conversational text generation (chat sessions
// with a system instruction) and speech synthesis.
//
// A provider wraps a remote model API (e.g., Google's Gemini API or OpenAI)
// and exposes a uniform surface so the orchestration core never couples to a
// specific SDK. Implementations live in subpackages (gemini, openai) plus a
// mock package for tests.
//
// Implementations must be safe for concurrent use.
package genai

import "context"

// Message is a single entry in a chat session's history.
type Message struct {
	// Role is "user" or "model".
	Role string

	// Text is the message content.
	Text string
}

// Audio is a synthesized speech blob.
type Audio struct {
	// Data is the raw audio bytes as returned by the provider. May be a
	// container-less PCM stream; consult MIMEType before playback.
	Data []byte

	// MIMEType tags the encoding (e.g. "audio/L16;rate=24000", "audio/wav").
	MIMEType string
}

// Chat is a long-lived conversational context bound to one model and one
// system instruction. Sending a message appends both the message and the
// model's reply to the session history.
type Chat interface {
	// Send delivers a user message and returns the model's full text reply.
	Send(ctx context.Context, message string) (string, error)

	// History returns the conversation so far, oldest first.
	History() []Message
}

// ChatProvider is the abstraction over any text-generation backend.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
type ChatProvider interface {
	// NewChat creates a fresh chat session on the given model with the given
	// system instruction. No request is issued until the first Send.
	NewChat(ctx context.Context, model, systemInstruction string) (Chat, error)

	// Generate issues a one-shot, history-less request. Used for health
	// probes and anywhere a persistent session would be wasteful.
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// SpeechProvider is the abstraction over any speech-synthesis backend.
type SpeechProvider interface {
	// Synthesize renders text as speech in the given voice. The prompt may
	// carry an inline style directive ahead of the quoted text; providers
	// that support style steering should honour it, others may ignore it.
	//
	// Returns a non-nil Audio with non-empty Data on success.
	Synthesize(ctx context.Context, text, voice string) (*Audio, error)
}
