package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "hostprep", cmd.Use)
	assert.Equal(t, "Prepare a remote Linux host over SSH", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range []string{"install", "check", "version"} {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
}

func TestRoot_PersistentFlags(t *testing.T) {
	flags := Root().PersistentFlags()

	for _, name := range []string{"host", "user", "port", "key-file", "known-hosts", "json", "metrics-file", "verbose"} {
		assert.NotNil(t, flags.Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "v", flags.Lookup("verbose").Shorthand)
}

func TestRunCommands_Flags(t *testing.T) {
	g := newGlobals()

	tests := []struct {
		cmd   *cobra.Command
		use   string
		short string
	}{
		{cmd: Install(g), use: "install", short: "Run installation"},
		{cmd: Check(g), use: "check", short: "Check installation"},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.Equal(t, tt.short, tt.cmd.Short)
			assert.NotNil(t, tt.cmd.RunE)

			file := tt.cmd.Flags().Lookup("file")
			require.NotNil(t, file)
			assert.Equal(t, "f", file.Shorthand)
			assert.Equal(t, []string{"true"}, file.Annotations[cobra.BashCompOneRequiredFlag])

			only := tt.cmd.Flags().Lookup("stage")
			require.NotNil(t, only)
			assert.Equal(t, "s", only.Shorthand)
		})
	}
}

func TestRunCommands_RequireFile(t *testing.T) {
	root := Root()
	root.SetArgs([]string{"check"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "file" not set`)
}

func TestSSHOverrides_FlagBeatsEnv(t *testing.T) {
	t.Setenv("REMOTE_SSH_HOST", "env-host")
	t.Setenv("REMOTE_SSH_USER", "env-user")
	t.Setenv("REMOTE_SSH_PASSWORD", "env-pw")

	g := newGlobals()
	root := newRoot(g)
	require.NoError(t, root.PersistentFlags().Set("host", "flag-host"))

	over := g.sshOverrides()
	assert.Equal(t, "flag-host", over.Host)
	assert.Equal(t, "env-user", over.User)
	assert.Equal(t, "env-pw", over.Password)
	assert.Zero(t, over.Port)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("REMOTE_SSH_USER", "env-user")
	path := filepath.Join(t.TempDir(), ".env")
	content := "REMOTE_SSH_HOST=dotenv-host\nREMOTE_SSH_USER=dotenv-user\nREMOTE_SSH_PORT=2222\nOTHER=ignored\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	g := newGlobals()
	require.NoError(t, loadDotEnv(g.v, path))

	over := g.sshOverrides()
	assert.Equal(t, "dotenv-host", over.Host)
	assert.Equal(t, "env-user", over.User, "real environment wins over .env")
	assert.Equal(t, 2222, over.Port)
	assert.False(t, g.v.IsSet("other"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, loadDotEnv(viper.New(), filepath.Join(t.TempDir(), ".env")))
}
