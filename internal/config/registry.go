package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/resonance/pkg/provider/genai"
	"github.com/MrWong99/resonance/pkg/provider/genai/gemini"
	"github.com/MrWong99/resonance/pkg/provider/genai/openai"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// ChatFactory builds a chat backend from its configuration entry.
type ChatFactory func(ctx context.Context, entry ProviderEntry) (genai.ChatProvider, error)

// SpeechFactory builds a speech backend from its configuration entry.
type SpeechFactory func(ctx context.Context, entry ProviderEntry) (genai.SpeechProvider, error)

// Registry maps provider names to their constructor functions per pipeline
// stage. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	chat   map[string]ChatFactory
	speech map[string]SpeechFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		chat:   make(map[string]ChatFactory),
		speech: make(map[string]SpeechFactory),
	}
}

// DefaultRegistry returns a registry with the built-in gemini and openai
// backends registered for both stages.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterChat("gemini", func(ctx context.Context, entry ProviderEntry) (genai.ChatProvider, error) {
		return newGemini(ctx, entry)
	})
	r.RegisterSpeech("gemini", func(ctx context.Context, entry ProviderEntry) (genai.SpeechProvider, error) {
		return newGemini(ctx, entry)
	})

	r.RegisterChat("openai", func(_ context.Context, entry ProviderEntry) (genai.ChatProvider, error) {
		return newOpenAI(entry), nil
	})
	r.RegisterSpeech("openai", func(_ context.Context, entry ProviderEntry) (genai.SpeechProvider, error) {
		return newOpenAI(entry), nil
	})

	return r
}

func newGemini(ctx context.Context, entry ProviderEntry) (*gemini.Provider, error) {
	var opts []gemini.Option
	if entry.SpeechModel != "" {
		opts = append(opts, gemini.WithSpeechModel(entry.SpeechModel))
	}
	return gemini.New(ctx, entry.APIKey, opts...)
}

func newOpenAI(entry ProviderEntry) *openai.Provider {
	var opts []openai.Option
	if entry.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(entry.BaseURL))
	}
	if entry.SpeechModel != "" {
		opts = append(opts, openai.WithSpeechModel(entry.SpeechModel))
	}
	return openai.New(entry.APIKey, opts...)
}

// RegisterChat registers a chat provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterChat(name string, factory ChatFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat[name] = factory
}

// RegisterSpeech registers a speech provider factory under name.
func (r *Registry) RegisterSpeech(name string, factory SpeechFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech[name] = factory
}

// CreateChat instantiates a chat backend using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateChat(ctx context.Context, entry ProviderEntry) (genai.ChatProvider, error) {
	r.mu.RLock()
	factory, ok := r.chat[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: chat/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(ctx, entry)
}

// CreateSpeech instantiates a speech backend using the factory registered
// under entry.Name.
func (r *Registry) CreateSpeech(ctx context.Context, entry ProviderEntry) (genai.SpeechProvider, error) {
	r.mu.RLock()
	factory, ok := r.speech[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: speech/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(ctx, entry)
}
