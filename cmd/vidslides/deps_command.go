package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidslides/internal/api"
	"vidslides/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			if jsonOutput {
				return writeJSON(cmd, api.FromDependencies(statuses))
			}
			out := cmd.OutOrStdout()
			for _, line := range dependencyLines(api.FromDependencies(statuses), shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required dependencies missing", len(missing))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
