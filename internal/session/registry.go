// Package session keeps the long-lived chat sessions behind card
// generation. Two logical sessions exist in practice, "cardFront" and
// "cardBack", each bound to one system instruction and to the text model
// that was active when the session was created.
//
// A session is recreated, discarding its history, when the caller presents a
// different system instruction for the same key. The comparison is exact;
// any byte of drift means a new session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/resonance/internal/devlog"
	"github.com/MrWong99/resonance/internal/observe"
	"github.com/MrWong99/resonance/pkg/provider/genai"
)

// Well-known session keys.
const (
	KeyCardFront = "cardFront"
	KeyCardBack  = "cardBack"
)

// ModelSource yields the text model new sessions bind to. Implemented by
// the availability monitor.
type ModelSource interface {
	ActiveModel() string
}

// Registry caches chat sessions by logical key. Safe for concurrent use.
type Registry struct {
	provider genai.ChatProvider
	models   ModelSource
	log      devlog.Sink
	logger   *slog.Logger
	metrics  *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	chat        genai.Chat
	instruction string
	model       string
}

// Option configures a Registry.
type Option func(*Registry)

// WithDevLog routes session-init records to sink.
func WithDevLog(sink devlog.Sink) Option {
	return func(r *Registry) { r.log = sink }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty registry.
func NewRegistry(provider genai.ChatProvider, models ModelSource, opts ...Option) *Registry {
	r := &Registry{
		provider: provider,
		models:   models,
		log:      devlog.Discard,
		logger:   slog.Default(),
		sessions: make(map[string]*entry),
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// GetOrCreate returns the cached session for key, creating it when absent or
// when systemInstruction differs from the cached one.
func (r *Registry) GetOrCreate(ctx context.Context, key, systemInstruction string) (genai.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existed := false
	if cached, ok := r.sessions[key]; ok {
		if cached.instruction == systemInstruction {
			return cached.chat, nil
		}
		existed = true
		r.logger.Info("session: system instruction changed, recreating", "key", key)
	} else {
		r.logger.Info("session: initializing chat session", "key", key)
	}

	model := r.models.ActiveModel()
	start := time.Now()
	chat, err := r.provider.NewChat(ctx, model, systemInstruction)
	if err != nil {
		return nil, fmt.Errorf("session: create %q: %w", key, err)
	}
	r.sessions[key] = &entry{chat: chat, instruction: systemInstruction, model: model}
	if !existed {
		r.metrics.ActiveSessions.Add(ctx, 1)
	}

	r.log.Record(devlog.Entry{
		Kind:       devlog.KindSessionInit,
		RequestAt:  start,
		ResponseAt: time.Now(),
		Input:      "chat session initialization: " + key,
		Output:     "model: " + model,
	})
	return chat, nil
}

// ResetAll discards every cached session. Idempotent; the next draw
// recreates what it needs.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) > 0 {
		r.logger.Info("session: all chat sessions reset", "count", len(r.sessions))
		r.metrics.ActiveSessions.Add(context.Background(), -int64(len(r.sessions)))
	}
	r.sessions = make(map[string]*entry)
}

// History returns the conversation of the session under key, nil when the
// session does not exist.
func (r *Registry) History(key string) []genai.Message {
	r.mu.Lock()
	cached, ok := r.sessions[key]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return cached.chat.History()
}

// SendFeedback routes a liked/disliked reaction into the card-front session
// so later draws can adapt. Missing session is a silent no-op; send failures
// are recorded but not returned as hard errors.
func (r *Registry) SendFeedback(ctx context.Context, cardText, feedback string) {
	r.mu.Lock()
	cached, ok := r.sessions[KeyCardFront]
	r.mu.Unlock()
	if !ok {
		r.logger.Warn("session: cannot send feedback, no card-front session")
		return
	}

	prompt := fmt.Sprintf("User feedback for the prompt %q: %s.", cardText, feedback)
	start := time.Now()
	_, err := cached.chat.Send(ctx, prompt)

	entry := devlog.Entry{
		Kind:       devlog.KindCardFront,
		RequestAt:  start,
		ResponseAt: time.Now(),
		Input:      prompt,
		Output:     "feedback acknowledged by the model",
	}
	if err != nil {
		entry.Output = "failed to send feedback"
		entry.Error = err.Error()
		r.logger.Warn("session: feedback send failed", "error", err)
	}
	r.log.Record(entry)
}
