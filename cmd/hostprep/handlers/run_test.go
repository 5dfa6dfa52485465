package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/platform/ssh"
	"github.com/imamik/hostprep/internal/remote/remotetest"
	"github.com/imamik/hostprep/internal/stage"
)

const document = `
[ssh]
remote_host = "10.0.0.5"
remote_user = "ubuntu"

[stages.prep]
mkdir = { folders = ["/srv/a"] }

[aliases]
ll = "ls -la"
`

type fakeChannel struct {
	*remotetest.Fake
	connectErr error
	connected  bool
	closed     bool
}

func (c *fakeChannel) Connect(context.Context) error {
	c.connected = true
	return c.connectErr
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type harness struct {
	fake    *fakeChannel
	sshCfg  *ssh.Config
	out     *bytes.Buffer
	logs    *bytes.Buffer
	docPath string
	keyPath string
}

func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoad, origRead, origChannel := loadConfigFile, readFile, newChannel
	origOut, origErr, origInteractive, origRunID := stdout, stderr, isInteractive, newRunID
	t.Cleanup(func() {
		loadConfigFile, readFile, newChannel = origLoad, origRead, origChannel
		stdout, stderr, isInteractive, newRunID = origOut, origErr, origInteractive, origRunID
	})
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	saveAndRestoreFactories(t)

	dir := t.TempDir()
	h := &harness{
		fake:    &fakeChannel{Fake: remotetest.New()},
		out:     &bytes.Buffer{},
		logs:    &bytes.Buffer{},
		docPath: filepath.Join(dir, "host.toml"),
		keyPath: filepath.Join(dir, "id_ed25519"),
	}
	require.NoError(t, os.WriteFile(h.docPath, []byte(document), 0o600))
	require.NoError(t, os.WriteFile(h.keyPath, []byte("private key"), 0o600))

	// Nothing answers the alias probe, so the alias gets appended.
	h.fake.OnContains("grep -E", remotetest.Exit(1, ""))

	newChannel = func(cfg *ssh.Config) (Channel, error) {
		h.sshCfg = cfg
		return h.fake, nil
	}
	stdout = h.out
	stderr = h.logs
	isInteractive = func() bool { return false }
	newRunID = func() string { return "run-1" }
	return h
}

func (h *harness) options() Options {
	return Options{File: h.docPath, SSH: SSHOverrides{KeyFile: h.keyPath}}
}

func TestRun_Install(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, Run(context.Background(), stage.ModeInstall, h.options()))

	assert.True(t, h.fake.connected)
	assert.True(t, h.fake.closed)
	assert.Equal(t, "10.0.0.5", h.sshCfg.Host)
	assert.Equal(t, "ubuntu", h.sshCfg.User)
	assert.Equal(t, 22, h.sshCfg.Port)
	assert.Equal(t, []byte("private key"), h.sshCfg.PrivateKey)

	assert.True(t, h.fake.Ran("mkdir -p /srv/a"))
	assert.True(t, h.fake.Ran(">> ~/.bashrc"))
	assert.Contains(t, h.out.String(), "= prep")
	assert.Contains(t, h.out.String(), "+ mkdir: OK")
	assert.Contains(t, h.out.String(), "= ALIASES")
	assert.Contains(t, h.logs.String(), "connecting")
	assert.Contains(t, h.logs.String(), "run=run-1")
}

func TestRun_CapabilityFailureIsNotAnError(t *testing.T) {
	h := newHarness(t)
	h.fake.OnContains("mkdir -p", remotetest.Exit(1, "permission denied"))

	require.NoError(t, Run(context.Background(), stage.ModeInstall, h.options()))

	assert.Contains(t, h.out.String(), "- mkdir: FAILURE")
	assert.True(t, h.fake.Ran(">> ~/.bashrc"), "later entries still run")
}

func TestRun_CheckJSON(t *testing.T) {
	h := newHarness(t)
	h.fake.On("ls -d /srv/a", remotetest.OK("/srv/a\n"))
	opts := h.options()
	opts.JSON = true

	require.NoError(t, Run(context.Background(), stage.ModeCheck, opts))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "prep", got[0]["stage"])
	assert.Equal(t, "mkdir", got[0]["capability"])
	assert.Equal(t, "satisfied", got[0]["result"])
	assert.Equal(t, "ALIASES", got[1]["stage"])
	assert.Equal(t, "unsatisfied", got[1]["result"])
	assert.False(t, h.fake.Ran("mkdir"), "check never mutates")
}

func TestRun_OnlyStage(t *testing.T) {
	h := newHarness(t)
	opts := h.options()
	opts.Stage = "missing"

	err := Run(context.Background(), stage.ModeInstall, opts)

	require.ErrorIs(t, err, stage.ErrUnknownStage)
	assert.Empty(t, h.fake.Commands())
}

func TestRun_MetricsFile(t *testing.T) {
	h := newHarness(t)
	opts := h.options()
	opts.MetricsFile = filepath.Join(t.TempDir(), "hostprep.prom")

	require.NoError(t, Run(context.Background(), stage.ModeInstall, opts))

	data, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hostprep_capability_runs_total")
	assert.Contains(t, string(data), "hostprep_remote_commands_total")
}

func TestRun_ConnectFailure(t *testing.T) {
	h := newHarness(t)
	h.fake.connectErr = errors.New("connection refused")

	err := Run(context.Background(), stage.ModeInstall, h.options())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to 10.0.0.5:22")
	assert.True(t, h.fake.closed)
	assert.Empty(t, h.fake.Commands())
}

func TestRun_ConfigError(t *testing.T) {
	h := newHarness(t)
	loadConfigFile = func(string) (*config.Config, error) {
		return nil, errors.New("boom")
	}

	err := Run(context.Background(), stage.ModeCheck, h.options())

	require.EqualError(t, err, "boom")
	assert.False(t, h.fake.connected)
}

func TestResolveSSH_Precedence(t *testing.T) {
	saveAndRestoreFactories(t)
	readFile = func(string) ([]byte, error) { return []byte("key"), nil }

	doc := config.SSH{Host: "doc-host", User: "doc-user", Port: 2200, Password: "doc-pw"}

	cfg, err := resolveSSH(SSHOverrides{Host: "flag-host", Port: 2222}, doc)
	require.NoError(t, err)
	assert.Equal(t, "flag-host", cfg.Host)
	assert.Equal(t, "doc-user", cfg.User)
	assert.Equal(t, 2222, cfg.Port)
	assert.Equal(t, "doc-pw", cfg.Password)

	cfg, err = resolveSSH(SSHOverrides{}, config.SSH{Host: "h"})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSSHUser, cfg.User)
	assert.Equal(t, config.DefaultSSHPort, cfg.Port)
}

func TestResolveSSH_MissingHost(t *testing.T) {
	saveAndRestoreFactories(t)
	readFile = func(string) ([]byte, error) { return []byte("key"), nil }

	_, err := resolveSSH(SSHOverrides{}, config.SSH{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote host is not set")
}

func TestResolveSSH_DefaultKeyMissing(t *testing.T) {
	saveAndRestoreFactories(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SSH_AUTH_SOCK", "")

	_, err := resolveSSH(SSHOverrides{}, config.SSH{Host: "h"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ssh credentials")

	cfg, err := resolveSSH(SSHOverrides{Password: "pw"}, config.SSH{Host: "h"})
	require.NoError(t, err)
	assert.Empty(t, cfg.PrivateKey)
	assert.False(t, cfg.UseAgent)

	t.Setenv("SSH_AUTH_SOCK", "/tmp/agent.sock")
	cfg, err = resolveSSH(SSHOverrides{}, config.SSH{Host: "h"})
	require.NoError(t, err)
	assert.True(t, cfg.UseAgent)
}

func TestResolveSSH_ExplicitKeyMissing(t *testing.T) {
	saveAndRestoreFactories(t)

	_, err := resolveSSH(SSHOverrides{KeyFile: filepath.Join(t.TempDir(), "nope"), Password: "pw"}, config.SSH{Host: "h"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read private key")
}

func TestResolveSSH_KnownHostsExpandsHome(t *testing.T) {
	saveAndRestoreFactories(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	readFile = func(string) ([]byte, error) { return []byte("key"), nil }

	cfg, err := resolveSSH(SSHOverrides{}, config.SSH{Host: "h", KnownHosts: "~/.ssh/known_hosts"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ssh/known_hosts"), cfg.KnownHostsFile)
}
