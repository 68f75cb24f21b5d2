package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  chat:
    - name: gemini
      api_key: key-a
    - name: openai
      api_key: key-b
  speech:
    - name: gemini
      api_key: key-a
generation:
  primary_model: gemini-2.5-flash-preview-04-17
  fallback_model: gemini-2.5-flash-preview-04-17
  speech_model: gemini-2.5-flash-preview-tts
  timeout: 20s
  health_interval: 5m
  language: en-US
diagnostics:
  ring_size: 100
`

func TestLoadFromReaderValid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if len(cfg.Providers.Chat) != 2 || cfg.Providers.Chat[1].Name != "openai" {
		t.Errorf("chat providers = %+v", cfg.Providers.Chat)
	}
	if cfg.Generation.Timeout != 20*time.Second {
		t.Errorf("Timeout = %v", cfg.Generation.Timeout)
	}
	if cfg.Diagnostics.RingSize != 100 {
		t.Errorf("RingSize = %d", cfg.Diagnostics.RingSize)
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  nonsense: true\n"))
	if err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("providers:\n  chat:\n    - name: gemini\n      api_key: k\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr default = %q", cfg.Server.ListenAddr)
	}
	if cfg.Generation.PrimaryModel != DefaultPrimaryModel {
		t.Errorf("PrimaryModel default = %q", cfg.Generation.PrimaryModel)
	}
	if cfg.Generation.SpeechModel != DefaultSpeechModel {
		t.Errorf("SpeechModel default = %q", cfg.Generation.SpeechModel)
	}
	if cfg.Generation.Timeout != DefaultTimeout {
		t.Errorf("Timeout default = %v", cfg.Generation.Timeout)
	}
	if cfg.Generation.Language != DefaultLanguage {
		t.Errorf("Language default = %q", cfg.Generation.Language)
	}
	if cfg.Diagnostics.RingSize != DefaultRingSize {
		t.Errorf("RingSize default = %d", cfg.Diagnostics.RingSize)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "bad log level",
			cfg:  Config{Server: ServerConfig{LogLevel: "loud"}},
			want: "server.log_level",
		},
		{
			name: "chat entry without name",
			cfg:  Config{Providers: ProvidersConfig{Chat: []ProviderEntry{{APIKey: "k"}}}},
			want: "providers.chat[0].name is required",
		},
		{
			name: "duplicate chat entry",
			cfg: Config{Providers: ProvidersConfig{Chat: []ProviderEntry{
				{Name: "gemini", APIKey: "a"},
				{Name: "gemini", APIKey: "b"},
			}}},
			want: "duplicate",
		},
		{
			name: "negative timeout",
			cfg:  Config{Generation: GenerationConfig{Timeout: -time.Second}},
			want: "generation.timeout",
		},
		{
			name: "negative ring size",
			cfg:  Config{Diagnostics: DiagnosticsConfig{RingSize: -1}},
			want: "diagnostics.ring_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)
			if err == nil {
				t.Fatal("Validate accepted an invalid config")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateJoinsAllFailures(t *testing.T) {
	cfg := Config{
		Server:      ServerConfig{LogLevel: "loud"},
		Diagnostics: DiagnosticsConfig{RingSize: -1},
	}
	err := Validate(&cfg)
	if err == nil {
		t.Fatal("Validate accepted an invalid config")
	}
	for _, want := range []string{"server.log_level", "diagnostics.ring_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}
