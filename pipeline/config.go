package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML document describing providers, stages and defaults.
type Config struct {
	Catalog     Catalog               `yaml:"catalog"`
	Stages      []Stage               `yaml:"stages"`
	Preferences map[string]Preference `yaml:"preferences"`
	Timeout     time.Duration         `yaml:"timeout"`
	RateLimit   float64               `yaml:"rate_limit"` // requests per second per provider, 0 disables
}

// DefaultTimeout bounds a single stage call when the config sets none.
const DefaultTimeout = 120 * time.Second

// DefaultConfig returns the built-in catalog and the default stages.
func DefaultConfig() Config {
	return Config{
		Catalog: Catalog{
			DefaultProvider: "anthropic",
			ModelTiers: map[string]string{
				"claude-opus-4-1-20250805":  "flagship",
				"claude-sonnet-4-20250514":  "balanced",
				"claude-3-5-haiku-20241022": "fast",
				"gpt-4.1":                   "flagship",
				"gpt-4o":                    "balanced",
				"gpt-4o-mini":               "fast",
				"grok-4":                    "flagship",
				"grok-3":                    "balanced",
				"grok-3-mini":               "fast",
				"gemini-2.5-pro":            "flagship",
				"gemini-2.5-flash":          "balanced",
				"gemini-2.5-flash-lite":     "fast",
			},
			Providers: map[string]ProviderOptions{
				"anthropic": {
					Models:    []string{"claude-opus-4-1-20250805", "claude-sonnet-4-20250514", "claude-3-5-haiku-20241022"},
					Default:   "claude-sonnet-4-20250514",
					Stages:    map[string]string{Scout: "claude-3-5-haiku-20241022", Narration: "claude-3-5-haiku-20241022"},
					Tiers:     map[string]string{"flagship": "claude-opus-4-1-20250805", "balanced": "claude-sonnet-4-20250514", "fast": "claude-3-5-haiku-20241022"},
					APIKeyEnv: "ANTHROPIC_API_KEY",
				},
				"openai": {
					Models:    []string{"gpt-4.1", "gpt-4o", "gpt-4o-mini"},
					Default:   "gpt-4o",
					Stages:    map[string]string{Scout: "gpt-4o-mini", Narration: "gpt-4o-mini"},
					Tiers:     map[string]string{"flagship": "gpt-4.1", "balanced": "gpt-4o", "fast": "gpt-4o-mini"},
					APIKeyEnv: "OPENAI_API_KEY",
				},
				"grok": {
					Models:    []string{"grok-4", "grok-3", "grok-3-mini"},
					Default:   "grok-3",
					Tiers:     map[string]string{"flagship": "grok-4", "balanced": "grok-3", "fast": "grok-3-mini"},
					APIKeyEnv: "XAI_API_KEY",
				},
				"gemini": {
					Models:    []string{"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"},
					Default:   "gemini-2.5-flash",
					Tiers:     map[string]string{"flagship": "gemini-2.5-pro", "balanced": "gemini-2.5-flash"},
					APIKeyEnv: "GEMINI_API_KEY",
				},
			},
		},
		Stages:  DefaultStages(),
		Timeout: DefaultTimeout,
	}
}

// ParseConfig decodes YAML over DefaultConfig, so omitted sections keep
// their defaults. A provider named in the document replaces that provider's
// default entry as a whole.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse pipeline config: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if _, err := Order(cfg.Stages); err != nil {
		return Config{}, fmt.Errorf("invalid stages: %w", err)
	}
	for stageID, pref := range cfg.Preferences {
		if _, ok := cfg.Catalog.Providers[pref.Provider]; !ok {
			return Config{}, fmt.Errorf("preference for stage %q: %w: %q", stageID, ErrUnknownProvider, pref.Provider)
		}
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read pipeline config: %w", err)
	}
	return ParseConfig(data)
}
