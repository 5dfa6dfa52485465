// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of the
// CLI framework. External collaborators are reached through package-level
// factory variables that tests replace.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/logging"
	"github.com/imamik/hostprep/internal/metrics"
	"github.com/imamik/hostprep/internal/platform/ssh"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/stage"
	"github.com/imamik/hostprep/internal/ui/report"
)

// SSHOverrides are connection settings from flags or the environment.
// Zero values defer to the document.
type SSHOverrides struct {
	Host       string
	User       string
	Port       int
	KeyFile    string
	Password   string
	KnownHosts string
}

// Options are the inputs of one install or check run.
type Options struct {
	File        string
	Stage       string
	JSON        bool
	MetricsFile string
	Verbosity   int
	SSH         SSHOverrides
}

// Channel is the remote transport a run needs.
type Channel interface {
	remote.Channel
	Connect(ctx context.Context) error
	Close() error
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads and validates the document.
	loadConfigFile = config.LoadFile

	// readFile reads the local private key.
	readFile = os.ReadFile

	// newChannel creates the SSH transport.
	newChannel = func(cfg *ssh.Config) (Channel, error) {
		return ssh.NewClient(cfg)
	}

	// stdout receives results, stderr receives logs.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	// isInteractive decides whether output is colored.
	isInteractive = report.IsInteractiveTTY

	// newRunID tags every log line of one run.
	newRunID = uuid.NewString
)

// Run loads the document, connects to the host and installs or checks every
// selected stage.
//
// Only setup problems are returned as errors: an unreadable document, a
// failed connection or an unknown stage. Capability failures are reported
// and leave the exit status untouched.
func Run(ctx context.Context, mode stage.Mode, opts Options) error {
	color := isInteractive()
	log := logging.New(stderr, opts.Verbosity, color).WithValues("run", newRunID())
	ctx = logr.NewContext(ctx, log)

	cfg, err := loadConfigFile(opts.File)
	if err != nil {
		return err
	}

	sshCfg, err := resolveSSH(opts.SSH, cfg.SSH)
	if err != nil {
		return err
	}

	channel, err := newChannel(sshCfg)
	if err != nil {
		return fmt.Errorf("failed to create ssh client: %w", err)
	}
	defer func() {
		if cerr := channel.Close(); cerr != nil {
			log.V(1).Info("failed to close ssh connection", "error", cerr.Error())
		}
	}()

	log.Info("connecting", "host", sshCfg.Addr(), "user", sshCfg.User)
	if err := channel.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", sshCfg.Addr(), err)
	}

	recorder := metrics.New()
	executor := remote.NewExecutor(channel, remote.WithObserver(recorder))

	dopts := []stage.Option{stage.WithRecorder(recorder)}
	var reporter *report.Reporter
	if !opts.JSON {
		reporter = report.New(stdout, color)
		dopts = append(dopts, stage.WithReporter(reporter))
	}

	results, err := stage.New(executor, dopts...).Run(ctx, cfg, mode, opts.Stage)
	if err != nil {
		return err
	}

	if opts.JSON {
		if err := report.WriteJSON(stdout, results); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
	} else {
		reporter.Summary(mode, results)
	}

	summary := stage.Summarize(results)
	log.V(1).Info("run finished", "mode", mode, "total", summary.Total, "failed", summary.Failed)

	if opts.MetricsFile != "" {
		if err := recorder.WriteTextfile(opts.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

// resolveSSH merges flag/environment overrides over the document's ssh
// section and the defaults, then loads the private key.
func resolveSSH(over SSHOverrides, doc config.SSH) (*ssh.Config, error) {
	cfg := &ssh.Config{
		Host:     firstNonEmpty(over.Host, doc.Host),
		User:     firstNonEmpty(over.User, doc.User, config.DefaultSSHUser),
		Port:     firstPositive(over.Port, doc.Port, config.DefaultSSHPort),
		Password: firstNonEmpty(over.Password, doc.Password),
	}
	if cfg.Host == "" {
		return nil, errors.New("remote host is not set (use --host, REMOTE_SSH_HOST or ssh.remote_host)")
	}

	if kh := firstNonEmpty(over.KnownHosts, doc.KnownHosts); kh != "" {
		path, err := config.ExpandHome(kh)
		if err != nil {
			return nil, err
		}
		cfg.KnownHostsFile = path
	}

	keyFile := firstNonEmpty(over.KeyFile, doc.KeyFile)
	explicit := keyFile != ""
	if !explicit {
		keyFile = config.DefaultSSHKeyFile
	}
	path, err := config.ExpandHome(keyFile)
	if err != nil {
		return nil, err
	}

	key, err := readFile(path)
	switch {
	case err == nil:
		cfg.PrivateKey = key
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// The default key is optional when another method is available.
		cfg.UseAgent = cfg.Password == "" && os.Getenv("SSH_AUTH_SOCK") != ""
		if cfg.Password == "" && !cfg.UseAgent {
			return nil, fmt.Errorf("no ssh credentials: %s does not exist and neither a password nor an ssh agent is available", path)
		}
	default:
		return nil, fmt.Errorf("failed to read private key %s: %w", path, err)
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
