// Command phasr runs the staged planning pipeline and exposes the JSON
// repair and curve tools on the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/phasr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// cli holds state shared by all subcommands of one invocation.
type cli struct {
	verbose bool
	envFile string
	logger  *zap.Logger
	stop    func()
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "phasr",
		Short: "Staged LLM planning pipeline with JSON repair and curve synthesis",
		Long: `phasr submits a goal to a chain of LLM stages, repairs each reply into
JSON and records every call for export.

Provider keys are read from the environment (ANTHROPIC_API_KEY, OPENAI_API_KEY,
XAI_API_KEY, GEMINI_API_KEY) or from a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load %s: %w", c.envFile, err)
			}

			config := zap.NewProductionConfig()
			if c.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			observer := capitan.Observe(c.logEvent)
			c.stop = func() { observer.Close() }
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.stop != nil {
				c.stop()
			}
			_ = c.logger.Sync()
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging of pipeline events")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Dotenv file with provider keys")

	root.AddCommand(newRunCmd(c))
	root.AddCommand(newRepairCmd(c))
	root.AddCommand(newCurveCmd())
	return root
}

// logEvent forwards pipeline events to the logger. Failures log at warn,
// everything else at debug.
func (c *cli) logEvent(_ context.Context, e *capitan.Event) {
	signal := string(e.Signal())

	var fields []zap.Field
	for name, key := range map[string]interface {
		From(*capitan.Event) (string, bool)
	}{
		"stage":      phasr.StageKey,
		"provider":   phasr.ProviderKey,
		"model":      phasr.ModelKey,
		"request_id": phasr.RequestIDKey,
		"pass":       phasr.RepairPassKey,
		"error_kind": phasr.ErrorKindKey,
		"error":      phasr.ErrorKey,
	} {
		if v, ok := key.From(e); ok && v != "" {
			fields = append(fields, zap.String(name, v))
		}
	}
	for name, key := range map[string]interface {
		From(*capitan.Event) (int, bool)
	}{
		"generation":  phasr.GenerationKey,
		"duration_ms": phasr.DurationMsKey,
		"status":      phasr.HTTPStatusCodeKey,
		"tokens":      phasr.TotalTokensKey,
	} {
		if v, ok := key.From(e); ok {
			fields = append(fields, zap.Int(name, v))
		}
	}

	if strings.HasSuffix(signal, ".failed") || signal == string(phasr.StageDiscarded) {
		c.logger.Warn(signal, fields...)
		return
	}
	c.logger.Debug(signal, fields...)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
