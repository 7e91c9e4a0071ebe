package pipeline

import (
	"fmt"
	"slices"
	"sort"
)

// Preference is a stored provider/model choice for a stage.
type Preference struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// ProviderConfig is the resolved provider, model and key for one stage call.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
}

// ProviderOptions is the model option table of one provider.
type ProviderOptions struct {
	Models    []string          `yaml:"models"`
	Default   string            `yaml:"default"`     // fallback for stages without an entry in Stages
	Stages    map[string]string `yaml:"stages"`      // stage id -> default model
	Tiers     map[string]string `yaml:"tiers"`       // tier -> model
	APIKeyEnv string            `yaml:"api_key_env"` // environment variable holding the key
	BaseURL   string            `yaml:"base_url"`    // optional endpoint override
}

// Catalog knows which models each provider offers and how they map across
// providers by tier.
type Catalog struct {
	Providers map[string]ProviderOptions `yaml:"providers"`
	// ModelTiers maps a model to its tier name, e.g. "claude-opus-4" -> "flagship".
	ModelTiers map[string]string `yaml:"model_tiers"`
	// DefaultProvider is used for stages without a stored preference.
	DefaultProvider string `yaml:"default_provider"`

	keys map[string]string
}

// SetKey stores the API key used for a provider.
func (c *Catalog) SetKey(provider, key string) {
	if c.keys == nil {
		c.keys = make(map[string]string)
	}
	c.keys[provider] = key
}

// LoadKeys reads each provider's APIKeyEnv through getenv.
func (c *Catalog) LoadKeys(getenv func(string) string) {
	for name, opts := range c.Providers {
		if opts.APIKeyEnv == "" {
			continue
		}
		if key := getenv(opts.APIKeyEnv); key != "" {
			c.SetKey(name, key)
		}
	}
}

// ProviderNames returns the configured providers in sorted order.
func (c *Catalog) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StageDefault returns the provider's default model for a stage.
func (c *Catalog) StageDefault(provider, stageID string) (string, error) {
	opts, ok := c.Providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if m, ok := opts.Stages[stageID]; ok && m != "" {
		return m, nil
	}
	if opts.Default != "" {
		return opts.Default, nil
	}
	if len(opts.Models) > 0 {
		return opts.Models[0], nil
	}
	return "", fmt.Errorf("provider %q has no models", provider)
}

// Resolve turns a stored preference into a ProviderConfig. A model outside
// the provider's option set is replaced with the provider's stage default.
func (c *Catalog) Resolve(stageID string, pref Preference) (ProviderConfig, error) {
	provider := pref.Provider
	if provider == "" {
		provider = c.DefaultProvider
	}
	opts, ok := c.Providers[provider]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	model := pref.Model
	if !slices.Contains(opts.Models, model) {
		def, err := c.StageDefault(provider, stageID)
		if err != nil {
			return ProviderConfig{}, err
		}
		model = def
	}

	return ProviderConfig{
		Provider: provider,
		Model:    model,
		APIKey:   c.keys[provider],
	}, nil
}

// SwitchProvider maps a preference onto another provider, keeping the model's
// tier when the new provider offers one; otherwise it falls back to the new
// provider's stage default.
func (c *Catalog) SwitchProvider(stageID string, current Preference, provider string) (Preference, error) {
	opts, ok := c.Providers[provider]
	if !ok {
		return Preference{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if tier, ok := c.ModelTiers[current.Model]; ok {
		if m, ok := opts.Tiers[tier]; ok && slices.Contains(opts.Models, m) {
			return Preference{Provider: provider, Model: m}, nil
		}
	}
	def, err := c.StageDefault(provider, stageID)
	if err != nil {
		return Preference{}, err
	}
	return Preference{Provider: provider, Model: def}, nil
}
