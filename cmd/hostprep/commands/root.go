// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package. Connection settings are resolved through viper so that a flag
// wins over a REMOTE_SSH_* environment variable, which wins over the same
// variable in a .env file in the working directory.
package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imamik/hostprep/cmd/hostprep/handlers"
)

const (
	envPrefix  = "REMOTE_SSH"
	dotEnvFile = ".env"
)

// globals carries the persistent flags shared by install and check.
type globals struct {
	v           *viper.Viper
	jsonOutput  bool
	metricsFile string
	verbosity   int
}

// Root returns the root command for the hostprep CLI.
func Root() *cobra.Command {
	return newRoot(newGlobals())
}

func newGlobals() *globals {
	g := &globals{v: viper.New()}
	g.v.SetEnvPrefix(envPrefix)
	g.v.AutomaticEnv()
	_ = g.v.BindEnv("password")
	return g
}

func newRoot(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hostprep",
		Short:         "Prepare a remote Linux host over SSH",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(g.v, dotEnvFile)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("host", "", "Remote SSH host (env REMOTE_SSH_HOST)")
	flags.String("user", "", "Remote SSH user (env REMOTE_SSH_USER, default root)")
	flags.Int("port", 0, "Remote SSH port (env REMOTE_SSH_PORT, default 22)")
	flags.String("key-file", "", "Path to the private key (env REMOTE_SSH_KEY_FILE, default ~/.ssh/id_rsa)")
	flags.String("known-hosts", "", "known_hosts file used to verify the host key (env REMOTE_SSH_KNOWN_HOSTS)")
	flags.BoolVar(&g.jsonOutput, "json", false, "Print results as JSON")
	flags.StringVar(&g.metricsFile, "metrics-file", "", "Write run metrics in node-exporter textfile format")
	flags.CountVarP(&g.verbosity, "verbose", "v", "Increase log verbosity (-v logs every remote command)")

	bindings := map[string]string{
		"host":        "host",
		"user":        "user",
		"port":        "port",
		"key_file":    "key-file",
		"known_hosts": "known-hosts",
	}
	for key, flag := range bindings {
		_ = g.v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(Install(g))
	cmd.AddCommand(Check(g))
	cmd.AddCommand(Version())

	return cmd
}

// sshOverrides returns the connection settings given on the command line or
// in the environment. Unset fields stay empty so the config file can fill
// them.
func (g *globals) sshOverrides() handlers.SSHOverrides {
	return handlers.SSHOverrides{
		Host:       g.v.GetString("host"),
		User:       g.v.GetString("user"),
		Port:       g.v.GetInt("port"),
		KeyFile:    g.v.GetString("key_file"),
		Password:   g.v.GetString("password"),
		KnownHosts: g.v.GetString("known_hosts"),
	}
}

// loadDotEnv feeds REMOTE_SSH_* entries of an optional dotenv file into v as
// defaults, below flags and the real environment.
func loadDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	prefix := strings.ToLower(envPrefix) + "_"
	for _, key := range env.AllKeys() {
		if name, ok := strings.CutPrefix(key, prefix); ok {
			v.SetDefault(name, env.Get(key))
		}
	}
	return nil
}
