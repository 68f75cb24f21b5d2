package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/resonance/pkg/provider/genai"
)

// ErrAllProvidersFailed is returned when every backend in a chain failed or
// had an open breaker.
var ErrAllProvidersFailed = errors.New("resilience: all providers failed")

// Compile-time interface assertions.
var (
	_ genai.ChatProvider   = (*ChatChain)(nil)
	_ genai.SpeechProvider = (*SpeechChain)(nil)
)

// chainEntry pairs one backend with its breaker.
type chainEntry[T any] struct {
	name    string
	backend T
	breaker *Breaker
}

func newEntry[T any](name string, backend T, cfg BreakerConfig) chainEntry[T] {
	cfg.Name = name
	return chainEntry[T]{name: name, backend: backend, breaker: NewBreaker(cfg)}
}

// attempt runs fn through the entry's breaker and reports whether the chain
// should move on to the next backend.
func attempt[T, R any](e *chainEntry[T], fn func(T) (R, error)) (R, error) {
	var result R
	err := e.breaker.Do(func() error {
		var innerErr error
		result, innerErr = fn(e.backend)
		return innerErr
	})
	if err == nil {
		return result, nil
	}
	if errors.Is(err, ErrBreakerOpen) {
		slog.Debug("skipping provider, breaker open", "provider", e.name)
	} else {
		slog.Warn("provider failed, trying next", "provider", e.name, "error", err)
	}
	var zero R
	return zero, err
}

// ChatChain is a genai.ChatProvider over an ordered list of backends. Each
// backend has its own breaker; the first healthy one that answers wins.
// Quota errors abort the chain immediately so the offline transition
// triggers instead of burning the remaining backends.
type ChatChain struct {
	entries []chainEntry[genai.ChatProvider]
	cfg     BreakerConfig
}

// NewChatChain creates a chain with primary as its first backend.
func NewChatChain(name string, primary genai.ChatProvider, cfg BreakerConfig) *ChatChain {
	return &ChatChain{
		entries: []chainEntry[genai.ChatProvider]{newEntry(name, primary, cfg)},
		cfg:     cfg,
	}
}

// Add appends a fallback backend, tried after all earlier ones.
func (c *ChatChain) Add(name string, backend genai.ChatProvider) {
	c.entries = append(c.entries, newEntry(name, backend, c.cfg))
}

// NewChat creates a session on the first healthy backend. The session stays
// pinned to that backend for its lifetime; chat history cannot migrate.
func (c *ChatChain) NewChat(ctx context.Context, model, systemInstruction string) (genai.Chat, error) {
	var lastErr error
	for i := range c.entries {
		chat, err := attempt(&c.entries[i], func(p genai.ChatProvider) (genai.Chat, error) {
			return p.NewChat(ctx, model, systemInstruction)
		})
		if err == nil {
			return chat, nil
		}
		if genai.IsQuotaErr(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

// Generate issues a one-shot request on the first healthy backend.
func (c *ChatChain) Generate(ctx context.Context, model, prompt string) (string, error) {
	var lastErr error
	for i := range c.entries {
		text, err := attempt(&c.entries[i], func(p genai.ChatProvider) (string, error) {
			return p.Generate(ctx, model, prompt)
		})
		if err == nil {
			return text, nil
		}
		if genai.IsQuotaErr(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

// SpeechChain is a genai.SpeechProvider over an ordered list of backends.
type SpeechChain struct {
	entries []chainEntry[genai.SpeechProvider]
	cfg     BreakerConfig
}

// NewSpeechChain creates a chain with primary as its first backend.
func NewSpeechChain(name string, primary genai.SpeechProvider, cfg BreakerConfig) *SpeechChain {
	return &SpeechChain{
		entries: []chainEntry[genai.SpeechProvider]{newEntry(name, primary, cfg)},
		cfg:     cfg,
	}
}

// Add appends a fallback backend.
func (c *SpeechChain) Add(name string, backend genai.SpeechProvider) {
	c.entries = append(c.entries, newEntry(name, backend, c.cfg))
}

// Synthesize renders speech on the first healthy backend. Voices are
// provider-specific; backends substitute their own default for voices they
// do not know.
func (c *SpeechChain) Synthesize(ctx context.Context, text, voice string) (*genai.Audio, error) {
	var lastErr error
	for i := range c.entries {
		audio, err := attempt(&c.entries[i], func(p genai.SpeechProvider) (*genai.Audio, error) {
			return p.Synthesize(ctx, text, voice)
		})
		if err == nil {
			return audio, nil
		}
		if genai.IsQuotaErr(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}
