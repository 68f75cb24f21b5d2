package config

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/resonance/pkg/provider/genai"
	"github.com/MrWong99/resonance/pkg/provider/genai/mock"
)

func TestRegistryCreateChat(t *testing.T) {
	r := NewRegistry()
	want := &mock.ChatProvider{}
	r.RegisterChat("test", func(_ context.Context, entry ProviderEntry) (genai.ChatProvider, error) {
		if entry.APIKey != "k" {
			t.Errorf("APIKey = %q", entry.APIKey)
		}
		return want, nil
	})

	got, err := r.CreateChat(context.Background(), ProviderEntry{Name: "test", APIKey: "k"})
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if got != want {
		t.Error("factory result not returned")
	}
}

func TestRegistryUnknownName(t *testing.T) {
	r := NewRegistry()
	if _, err := r.CreateChat(context.Background(), ProviderEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("chat err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateSpeech(context.Background(), ProviderEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("speech err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestDefaultRegistryOpenAI(t *testing.T) {
	r := DefaultRegistry()
	p, err := r.CreateChat(context.Background(), ProviderEntry{Name: "openai", APIKey: "k"})
	if err != nil {
		t.Fatalf("CreateChat openai: %v", err)
	}
	if p == nil {
		t.Fatal("nil provider")
	}
	s, err := r.CreateSpeech(context.Background(), ProviderEntry{Name: "openai", APIKey: "k"})
	if err != nil {
		t.Fatalf("CreateSpeech openai: %v", err)
	}
	if s == nil {
		t.Fatal("nil provider")
	}
}
