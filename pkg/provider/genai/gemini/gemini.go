// Package gemini implements the genai provider interfaces on top of Google's
// Gemini API using the official google.golang.org/genai SDK.
//
// Chat sessions are backed by the SDK's Chats service, which maintains
// conversation history server-side-compatible turn lists locally. Speech is
// synthesised through a TTS-capable model with an AUDIO response modality;
// the returned blob is typically container-less 24 kHz 16-bit PCM
// ("audio/L16;rate=24000").
package gemini

import (
	"context"
	"fmt"
	"strings"

	gsdk "google.golang.org/genai"

	"github.com/MrWong99/resonance/pkg/provider/genai"
)

// Compile-time interface assertions.
var (
	_ genai.ChatProvider   = (*Provider)(nil)
	_ genai.SpeechProvider = (*Provider)(nil)
	_ genai.Chat           = (*chat)(nil)
)

const (
	defaultSpeechModel = "gemini-2.5-flash-preview-tts"

	// pcmMIMEType is the encoding Gemini TTS returns when the response omits
	// an explicit tag. Raw PCM needs header synthesis before playback.
	pcmMIMEType = "audio/L16;rate=24000"
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithSpeechModel overrides the model used for speech synthesis.
func WithSpeechModel(model string) Option {
	return func(p *Provider) { p.speechModel = model }
}

// Provider implements genai.ChatProvider and genai.SpeechProvider for the
// Gemini API.
type Provider struct {
	client      *gsdk.Client
	speechModel string
}

// New creates a Gemini Provider authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	client, err := gsdk.NewClient(ctx, &gsdk.ClientConfig{
		APIKey:  apiKey,
		Backend: gsdk.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	p := &Provider{
		client:      client,
		speechModel: defaultSpeechModel,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// NewChat creates a chat session on model bound to systemInstruction.
func (p *Provider) NewChat(ctx context.Context, model, systemInstruction string) (genai.Chat, error) {
	var cfg *gsdk.GenerateContentConfig
	if systemInstruction != "" {
		cfg = &gsdk.GenerateContentConfig{
			SystemInstruction: &gsdk.Content{
				Parts: []*gsdk.Part{{Text: systemInstruction}},
			},
		}
	}

	c, err := p.client.Chats.Create(ctx, model, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: create chat: %w", err)
	}
	return &chat{inner: c}, nil
}

// Generate issues a one-shot text request against model.
func (p *Provider) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, model, gsdk.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	return resp.Text(), nil
}

// Synthesize renders text as speech using the configured TTS model and the
// given prebuilt voice.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) (*genai.Audio, error) {
	cfg := &gsdk.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &gsdk.SpeechConfig{
			VoiceConfig: &gsdk.VoiceConfig{
				PrebuiltVoiceConfig: &gsdk.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.speechModel, gsdk.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: synthesize: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = pcmMIMEType
			}
			return &genai.Audio{Data: part.InlineData.Data, MIMEType: mime}, nil
		}
	}
	return nil, fmt.Errorf("gemini: synthesize: no audio data in response")
}

// chat adapts the SDK chat handle to genai.Chat.
type chat struct {
	inner *gsdk.Chat
}

// Send delivers message and returns the model's text reply.
func (c *chat) Send(ctx context.Context, message string) (string, error) {
	resp, err := c.inner.SendMessage(ctx, gsdk.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("gemini: send message: %w", err)
	}
	return resp.Text(), nil
}

// History returns the session's conversation turns, oldest first.
func (c *chat) History() []genai.Message {
	contents := c.inner.History(false)
	msgs := make([]genai.Message, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		msgs = append(msgs, genai.Message{Role: content.Role, Text: sb.String()})
	}
	return msgs
}
