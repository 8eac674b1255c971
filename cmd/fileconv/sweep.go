package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fileconv/internal/conversion"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stale workspace files left by crashed conversions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		age := cfg.WorkspaceSweepAge
		if cmd.Flags().Changed("older-than") {
			age, _ = cmd.Flags().GetDuration("older-than")
		}

		ws := conversion.NewWorkspace(cfg.WorkspaceRoot, nil, log)
		n, err := ws.Sweep(age)
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries older than %s from %s\n", n, age, ws.Root())
		return err
	},
}

func init() {
	sweepCmd.Flags().Duration("older-than", 0, "age threshold (default: WORKSPACE_SWEEP_AGE)")
	rootCmd.AddCommand(sweepCmd)
}
