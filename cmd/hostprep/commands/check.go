package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostprep/cmd/hostprep/handlers"
	"github.com/imamik/hostprep/internal/stage"
)

// Check returns the command that inspects a host without changing it.
func Check(g *globals) *cobra.Command {
	return runCommand(g, stage.ModeCheck, &cobra.Command{
		Use:   "check",
		Short: "Check installation",
		Long: `Report, for every capability of every stage, the facts found on the
remote host and the gaps that install would close. Nothing is changed.

Examples:
  hostprep check -f host.toml
  hostprep check -f host.toml --json`,
	})
}

// runCommand adds the per-run flags to cmd and wires it to handlers.Run.
func runCommand(g *globals, mode stage.Mode, cmd *cobra.Command) *cobra.Command {
	var file, only string

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return handlers.Run(cmd.Context(), mode, handlers.Options{
			File:        file,
			Stage:       only,
			JSON:        g.jsonOutput,
			MetricsFile: g.metricsFile,
			Verbosity:   g.verbosity,
			SSH:         g.sshOverrides(),
		})
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the TOML or YAML document")
	cmd.Flags().StringVarP(&only, "stage", "s", "", "Only run this stage")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
