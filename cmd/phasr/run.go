package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zoobzio/phasr"
	"github.com/zoobzio/phasr/anthropic"
	"github.com/zoobzio/phasr/gemini"
	"github.com/zoobzio/phasr/openai"
	"github.com/zoobzio/phasr/pipeline"
	"go.uber.org/zap"
)

type runOptions struct {
	configPath string
	exportPath string
	providers  []string // stage=provider overrides
}

func newRunCmd(c *cli) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run every pipeline stage for a prompt and export the records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), cmd.OutOrStdout(), opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Pipeline config YAML (defaults to the built-in catalog)")
	cmd.Flags().StringVarP(&opts.exportPath, "out", "o", "", "Write the debug export here instead of stdout")
	cmd.Flags().StringSliceVar(&opts.providers, "provider", nil, "Switch a stage to a provider, e.g. narration=gemini")
	return cmd
}

// newProvider builds the adapter for a catalog provider name. Keys travel
// with each request, so adapters are built without one.
func newProvider(name string, opts pipeline.ProviderOptions) (phasr.Provider, error) {
	switch name {
	case "anthropic":
		return anthropic.New(anthropic.Config{BaseURL: opts.BaseURL}), nil
	case "openai":
		return openai.New(openai.Config{BaseURL: opts.BaseURL}), nil
	case "grok":
		return openai.NewGrok(openai.Config{BaseURL: opts.BaseURL}), nil
	case "gemini":
		return gemini.New(gemini.Config{BaseURL: opts.BaseURL}), nil
	default:
		return nil, fmt.Errorf("%w: %q has no adapter", pipeline.ErrUnknownProvider, name)
	}
}

func (c *cli) run(ctx context.Context, stdout io.Writer, opts *runOptions, prompt string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := pipeline.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := pipeline.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.Catalog.LoadKeys(os.Getenv)

	var serviceOpts []phasr.Option
	serviceOpts = append(serviceOpts, phasr.WithTimeout(cfg.Timeout))
	if cfg.RateLimit > 0 {
		serviceOpts = append(serviceOpts, phasr.WithRateLimit(cfg.RateLimit, 1))
	}

	callers := make(map[string]pipeline.Caller)
	for _, name := range cfg.Catalog.ProviderNames() {
		provider, err := newProvider(name, cfg.Catalog.Providers[name])
		if err != nil {
			c.logger.Warn("skipping provider", zap.String("provider", name), zap.Error(err))
			continue
		}
		callers[name] = phasr.NewService(provider, serviceOpts...)
	}

	session := pipeline.NewSession()
	for stageID, pref := range cfg.Preferences {
		session.SetPreference(stageID, pref)
	}
	orch, err := pipeline.New(session, &cfg.Catalog, cfg.Stages, callers)
	if err != nil {
		return err
	}
	for _, override := range opts.providers {
		stageID, provider, ok := strings.Cut(override, "=")
		if !ok {
			return fmt.Errorf("invalid --provider %q, want stage=provider", override)
		}
		pref, err := orch.SwitchProvider(stageID, provider)
		if err != nil {
			return err
		}
		c.logger.Info("stage provider switched",
			zap.String("stage", stageID),
			zap.String("provider", pref.Provider),
			zap.String("model", pref.Model),
		)
	}

	c.logger.Info("submitting prompt", zap.String("session", session.ID()), zap.Int("stages", len(orch.Stages())))
	if _, err := orch.Execute(ctx, prompt); err != nil {
		return err
	}

	var failed int
	for _, s := range orch.Stages() {
		rec, ok := session.Latest(s.ID)
		switch {
		case !ok:
			c.logger.Warn("stage skipped", zap.String("stage", s.ID))
		case rec.Status == pipeline.StatusError:
			failed++
			c.logger.Error("stage failed",
				zap.String("stage", s.ID),
				zap.String("model", rec.Model),
				zap.String("kind", string(rec.ErrKind)),
				zap.String("error", rec.Err),
			)
		default:
			c.logger.Info("stage done",
				zap.String("stage", s.ID),
				zap.String("model", rec.Model),
				zap.Duration("duration", rec.Duration),
			)
		}
	}

	out := stdout
	if opts.exportPath != "" {
		f, err := os.Create(opts.exportPath)
		if err != nil {
			return fmt.Errorf("failed to create export: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := pipeline.WriteExport(out, session.Records()); err != nil {
		return err
	}
	if failed > 0 {
		return errors.New(pluralize(failed, "stage") + " failed")
	}
	return nil
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
