package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, cfg.Timeout)
	}
	if len(cfg.Stages) != 6 {
		t.Errorf("Expected 6 default stages, got %d", len(cfg.Stages))
	}
	for name, opts := range cfg.Catalog.Providers {
		for tier, model := range opts.Tiers {
			if cfg.Catalog.ModelTiers[model] != tier {
				t.Errorf("%s: model %s listed under tier %s but mapped to %q", name, model, tier, cfg.Catalog.ModelTiers[model])
			}
		}
	}
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Catalog.DefaultProvider != "anthropic" {
		t.Errorf("Expected default provider anthropic, got %q", cfg.Catalog.DefaultProvider)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout, got %v", cfg.Timeout)
	}
}

func TestParseConfig_Overrides(t *testing.T) {
	data := []byte(`
timeout: 90s
rate_limit: 2.5
catalog:
  default_provider: openai
preferences:
  scout:
    provider: gemini
    model: gemini-2.5-pro
stages:
  - id: outline
    class: planning
    user: "Outline {{prompt}}"
  - id: detail
    depends_on: [outline]
    user: "Expand {{outline}}"
    max_tokens: 2048
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Expected 90s timeout, got %v", cfg.Timeout)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("Expected rate limit 2.5, got %v", cfg.RateLimit)
	}
	if cfg.Catalog.DefaultProvider != "openai" {
		t.Errorf("Expected default provider openai, got %q", cfg.Catalog.DefaultProvider)
	}
	if _, ok := cfg.Catalog.Providers["anthropic"]; !ok {
		t.Error("Providers not named in the document should keep their defaults")
	}
	if got := cfg.Preferences[Scout]; got.Provider != "gemini" || got.Model != "gemini-2.5-pro" {
		t.Errorf("Unexpected scout preference: %+v", got)
	}
	if len(cfg.Stages) != 2 {
		t.Fatalf("Expected 2 stages, got %d", len(cfg.Stages))
	}
	if cfg.Stages[1].MaxTokens != 2048 || cfg.Stages[1].DependsOn[0] != "outline" {
		t.Errorf("Unexpected stage: %+v", cfg.Stages[1])
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed yaml", "timeout: [unterminated"},
		{"stage cycle", "stages:\n  - id: a\n    depends_on: [b]\n  - id: b\n    depends_on: [a]\n"},
		{"unknown dependency", "stages:\n  - id: a\n    depends_on: [ghost]\n"},
		{"unknown preferred provider", "preferences:\n  scout:\n    provider: nope\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.data)); err == nil {
				t.Error("Expected error")
			}
		})
	}

	_, err := ParseConfig([]byte("preferences:\n  scout:\n    provider: nope\n"))
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phasr.yaml")
	if err := os.WriteFile(path, []byte("rate_limit: 1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.RateLimit != 1 {
		t.Errorf("Expected rate limit 1, got %v", cfg.RateLimit)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
