package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per pipeline stage.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"chat":   {"gemini", "openai"},
	"speech": {"gemini", "openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, validates the result and
// applies defaults. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if len(cfg.Providers.Chat) == 0 {
		slog.Warn("no chat provider configured; draws will only work in offline mode")
	}
	if len(cfg.Providers.Speech) == 0 {
		slog.Warn("no speech provider configured; cards will ship without audio")
	}
	errs = append(errs, validateEntries("chat", cfg.Providers.Chat)...)
	errs = append(errs, validateEntries("speech", cfg.Providers.Speech)...)

	if cfg.Generation.Timeout < 0 {
		errs = append(errs, fmt.Errorf("generation.timeout %v must not be negative", cfg.Generation.Timeout))
	}
	if cfg.Generation.HealthInterval < 0 {
		errs = append(errs, fmt.Errorf("generation.health_interval %v must not be negative", cfg.Generation.HealthInterval))
	}
	if cfg.Diagnostics.RingSize < 0 {
		errs = append(errs, fmt.Errorf("diagnostics.ring_size %d must not be negative", cfg.Diagnostics.RingSize))
	}

	return errors.Join(errs...)
}

// validateEntries checks one stage's provider list: names must be set and
// unique, and missing API keys earn a warning (some backends read them from
// the environment instead).
func validateEntries(stage string, entries []ProviderEntry) []error {
	var errs []error
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		prefix := fmt.Sprintf("providers.%s[%d]", stage, i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[e.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of providers.%s[%d]", prefix, e.Name, stage, prev))
		}
		seen[e.Name] = i

		if known := ValidProviderNames[stage]; !slices.Contains(known, e.Name) {
			slog.Warn("unknown provider name — may be a typo or third-party provider",
				"stage", stage,
				"name", e.Name,
				"known", known,
			)
		}
		if e.APIKey == "" {
			slog.Warn("provider entry without api_key; relying on the environment",
				"stage", stage,
				"name", e.Name,
			)
		}
	}
	return errs
}
