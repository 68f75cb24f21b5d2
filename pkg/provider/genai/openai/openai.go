// Package openai implements the genai provider interfaces on top of the
// OpenAI API using the official openai-go SDK.
//
// The chat completions endpoint is stateless, so chat sessions keep their own
// turn list and replay it on every Send. Speech uses the audio/speech
// endpoint, which returns a self-describing container (MP3 by default).
package openai

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/resonance/pkg/provider/genai"
)

// Compile-time interface assertions.
var (
	_ genai.ChatProvider   = (*Provider)(nil)
	_ genai.SpeechProvider = (*Provider)(nil)
	_ genai.Chat           = (*chat)(nil)
)

const (
	defaultSpeechModel = "gpt-4o-mini-tts"
	defaultVoice       = "alloy"
	defaultAudioMIME   = "audio/mpeg"
)

// knownVoices is the set of voices the speech endpoint accepts. Requests for
// any other voice fall back to defaultVoice rather than failing the call.
var knownVoices = map[string]bool{
	"alloy": true, "ash": true, "ballad": true, "coral": true, "echo": true,
	"fable": true, "nova": true, "onyx": true, "sage": true, "shimmer": true,
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithSpeechModel overrides the model used for speech synthesis.
func WithSpeechModel(model string) Option {
	return func(p *Provider) { p.speechModel = model }
}

// WithBaseURL points the client at an alternate endpoint. Used by tests and
// for OpenAI-compatible gateways.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.requestOpts = append(p.requestOpts, option.WithBaseURL(url)) }
}

// Provider implements genai.ChatProvider and genai.SpeechProvider for the
// OpenAI API.
type Provider struct {
	client      oai.Client
	speechModel string
	requestOpts []option.RequestOption
}

// New creates an OpenAI Provider authenticated with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		speechModel: defaultSpeechModel,
		requestOpts: []option.RequestOption{option.WithAPIKey(apiKey)},
	}
	for _, o := range opts {
		o(p)
	}
	p.client = oai.NewClient(p.requestOpts...)
	return p
}

// NewChat creates a locally-tracked chat session on model bound to
// systemInstruction.
func (p *Provider) NewChat(_ context.Context, model, systemInstruction string) (genai.Chat, error) {
	c := &chat{provider: p, model: model}
	if systemInstruction != "" {
		c.turns = append(c.turns, oai.SystemMessage(systemInstruction))
	}
	return c, nil
}

// Generate issues a one-shot request against model.
func (p *Provider) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    model,
		Messages: []oai.ChatCompletionMessageParamUnion{oai.UserMessage(prompt)},
	})
	if err != nil {
		return "", fmt.Errorf("openai: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: generate: empty choice list")
	}
	return resp.Choices[0].Message.Content, nil
}

// Synthesize renders text as speech. Voices outside the endpoint's catalogue
// are replaced with the default voice.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) (*genai.Audio, error) {
	v := strings.ToLower(voice)
	if !knownVoices[v] {
		v = defaultVoice
	}

	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model: p.speechModel,
		Input: text,
		Voice: oai.AudioSpeechNewParamsVoice(v),
	})
	if err != nil {
		return nil, fmt.Errorf("openai: synthesize: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: synthesize: read body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("openai: synthesize: empty audio response")
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = defaultAudioMIME
	}
	return &genai.Audio{Data: data, MIMEType: mime}, nil
}

// chat replays its accumulated turn list on every Send.
type chat struct {
	provider *Provider
	model    string

	mu      sync.Mutex
	turns   []oai.ChatCompletionMessageParamUnion
	history []genai.Message
}

// Send delivers message with the full session history and returns the
// model's reply. Failed sends do not advance the history.
func (c *chat) Send(ctx context.Context, message string) (string, error) {
	c.mu.Lock()
	msgs := make([]oai.ChatCompletionMessageParamUnion, len(c.turns), len(c.turns)+1)
	copy(msgs, c.turns)
	c.mu.Unlock()
	msgs = append(msgs, oai.UserMessage(message))

	resp, err := c.provider.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("openai: send message: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: send message: empty choice list")
	}
	reply := resp.Choices[0].Message.Content

	c.mu.Lock()
	c.turns = append(c.turns, oai.UserMessage(message), oai.AssistantMessage(reply))
	c.history = append(c.history,
		genai.Message{Role: "user", Text: message},
		genai.Message{Role: "model", Text: reply},
	)
	c.mu.Unlock()
	return reply, nil
}

// History returns the conversation so far, oldest first.
func (c *chat) History() []genai.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]genai.Message, len(c.history))
	copy(out, c.history)
	return out
}
