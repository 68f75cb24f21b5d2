// Package mock provides in-memory mock implementations of the genai provider
// interfaces for use in unit tests.
//
// The mocks record every method call and let the test configure return values
// via exported fields. A ChatProvider hands out Chat sessions that replay a
// scripted list of replies. All mocks are safe for concurrent use.
//
// Example:
//
//	p := &mock.ChatProvider{
//	    ChatReplies: []string{"<card_front_prompt>Hello</card_front_prompt>"},
//	}
//	chat, _ := p.NewChat(ctx, "model-a", "be kind")
//	reply, err := chat.Send(ctx, "draw")
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrWong99/resonance/pkg/provider/genai"
)

// Compile-time interface assertions.
var (
	_ genai.ChatProvider   = (*ChatProvider)(nil)
	_ genai.SpeechProvider = (*SpeechProvider)(nil)
	_ genai.Chat           = (*Chat)(nil)
)

// NewChatCall records the arguments of a single [ChatProvider.NewChat] call.
type NewChatCall struct {
	Model             string
	SystemInstruction string
}

// GenerateCall records the arguments of a single [ChatProvider.Generate] call.
type GenerateCall struct {
	Model  string
	Prompt string
}

// ChatProvider is a mock implementation of [genai.ChatProvider].
type ChatProvider struct {
	mu sync.Mutex

	// ChatReplies is the script every created Chat replays, one reply per
	// Send, in order. A Send past the end of the script returns an error.
	ChatReplies []string

	// SendFunc, when non-nil, overrides the scripted replies for every
	// created Chat. It receives the Send message.
	SendFunc func(ctx context.Context, message string) (string, error)

	// NewChatErr is returned by NewChat when non-nil.
	NewChatErr error

	// GenerateResult and GenerateErr control the Generate return values.
	GenerateResult string
	GenerateErr    error

	// GenerateFunc, when non-nil, overrides GenerateResult/GenerateErr.
	GenerateFunc func(ctx context.Context, model, prompt string) (string, error)

	// CallsNewChat and CallsGenerate accumulate invocation records.
	CallsNewChat  []NewChatCall
	CallsGenerate []GenerateCall

	// Chats accumulates every Chat handed out by NewChat.
	Chats []*Chat
}

// NewChat records the call and returns a scripted Chat session.
func (p *ChatProvider) NewChat(_ context.Context, model, systemInstruction string) (genai.Chat, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallsNewChat = append(p.CallsNewChat, NewChatCall{Model: model, SystemInstruction: systemInstruction})
	if p.NewChatErr != nil {
		return nil, p.NewChatErr
	}
	c := &Chat{
		Model:             model,
		SystemInstruction: systemInstruction,
		replies:           p.ChatReplies,
		sendFunc:          p.SendFunc,
	}
	p.Chats = append(p.Chats, c)
	return c, nil
}

// Generate records the call and returns the configured result.
func (p *ChatProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	p.mu.Lock()
	p.CallsGenerate = append(p.CallsGenerate, GenerateCall{Model: model, Prompt: prompt})
	fn := p.GenerateFunc
	result, err := p.GenerateResult, p.GenerateErr
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, model, prompt)
	}
	return result, err
}

// Chat is a scripted mock implementation of [genai.Chat].
type Chat struct {
	// Model and SystemInstruction echo the NewChat arguments.
	Model             string
	SystemInstruction string

	mu       sync.Mutex
	replies  []string
	next     int
	sendFunc func(ctx context.Context, message string) (string, error)
	history  []genai.Message
}

// Send returns the next scripted reply and records both turns.
func (c *Chat) Send(ctx context.Context, message string) (string, error) {
	c.mu.Lock()
	fn := c.sendFunc
	c.mu.Unlock()

	var reply string
	if fn != nil {
		r, err := fn(ctx, message)
		if err != nil {
			return "", err
		}
		reply = r
	} else {
		c.mu.Lock()
		if c.next >= len(c.replies) {
			c.mu.Unlock()
			return "", fmt.Errorf("mock: chat script exhausted after %d sends", c.next)
		}
		reply = c.replies[c.next]
		c.next++
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.history = append(c.history,
		genai.Message{Role: "user", Text: message},
		genai.Message{Role: "model", Text: reply},
	)
	c.mu.Unlock()
	return reply, nil
}

// History returns the recorded turns, oldest first.
func (c *Chat) History() []genai.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]genai.Message, len(c.history))
	copy(out, c.history)
	return out
}

// SynthesizeCall records the arguments of a single [SpeechProvider.Synthesize] call.
type SynthesizeCall struct {
	Text  string
	Voice string
}

// SpeechProvider is a mock implementation of [genai.SpeechProvider].
type SpeechProvider struct {
	mu sync.Mutex

	// SynthesizeResult and SynthesizeErr control the return values.
	SynthesizeResult *genai.Audio
	SynthesizeErr    error

	// SynthesizeFunc, when non-nil, overrides the fields above.
	SynthesizeFunc func(ctx context.Context, text, voice string) (*genai.Audio, error)

	// CallsSynthesize accumulates invocation records.
	CallsSynthesize []SynthesizeCall
}

// Synthesize records the call and returns the configured result.
func (p *SpeechProvider) Synthesize(ctx context.Context, text, voice string) (*genai.Audio, error) {
	p.mu.Lock()
	p.CallsSynthesize = append(p.CallsSynthesize, SynthesizeCall{Text: text, Voice: voice})
	fn := p.SynthesizeFunc
	result, err := p.SynthesizeResult, p.SynthesizeErr
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, text, voice)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &genai.Audio{Data: []byte{0x01}, MIMEType: "audio/L16;rate=24000"}
	}
	return result, nil
}
