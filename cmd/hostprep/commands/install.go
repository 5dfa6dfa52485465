package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostprep/internal/stage"
)

// Install returns the command that applies every stage of a document.
//
// Required flags:
//
//	--file, -f: Path to the TOML or YAML document
//
// Environment variables:
//
//	REMOTE_SSH_HOST, REMOTE_SSH_USER, REMOTE_SSH_PORT, REMOTE_SSH_KEY_FILE,
//	REMOTE_SSH_PASSWORD, REMOTE_SSH_KNOWN_HOSTS
func Install(g *globals) *cobra.Command {
	return runCommand(g, stage.ModeInstall, &cobra.Command{
		Use:   "install",
		Short: "Run installation",
		Long: `Apply every stage of the document to the remote host.

Stages run in name order and capabilities run in a fixed order inside a stage.
A failing capability is reported and the next one still runs. Work that is
already done is detected and skipped, so install can be repeated.

Examples:
  # Prepare the host named in the document
  hostprep install -f host.toml

  # Only run the "docker" stage against another host
  hostprep install -f host.toml -s docker --host 10.0.0.7`,
	})
}
