package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zoobzio/phasr/repair"
	"go.uber.org/zap"
)

func newRepairCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "repair [file]",
		Short: "Repair model output into JSON, reading stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			res, err := repair.Repair(string(in))
			if err != nil {
				return err
			}
			c.logger.Debug("repaired", zap.String("pass", res.Pass.String()))

			out, err := json.MarshalIndent(res.Value, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

// readInput returns the named file or, without one, everything on stdin.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}
