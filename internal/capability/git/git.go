// Package git clones a repository onto the remote host.
package git

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/status"
)

// Host keys are not verified for the clone; the remote has no known_hosts
// entry for the git server on a fresh machine.
const sshCommand = "ssh -o UserKnownHostsFile=/dev/null -o StrictHostKeyChecking=no"

// Install clones opts.Clone into opts.To unless To already exists.
func Install(ctx context.Context, r remote.Runner, opts config.GitOptions) error {
	if remote.FileExists(ctx, r, opts.To) {
		return nil
	}

	to := path.Clean(opts.To)
	parent, base := path.Dir(to), path.Base(to)

	home, err := remoteHome(ctx, r)
	if err != nil {
		return err
	}

	dest := to
	if parent == home {
		dest = base
	} else if _, err := r.Run(ctx, fmt.Sprintf("mkdir -p %s 2>&1", parent)); err != nil {
		return fmt.Errorf("failed to create %s: %w", parent, err)
	}

	cmd := fmt.Sprintf("GIT_SSH_COMMAND=%q GIT_TERMINAL_PROMPT=0 git clone %s %s 2>&1", sshCommand, opts.Clone, dest)
	if _, err := r.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to clone %s: %w", opts.Clone, err)
	}
	return nil
}

// Check reports whether To exists and is a git work tree.
func Check(ctx context.Context, r remote.Runner, opts config.GitOptions) (status.Status, error) {
	var b status.Builder
	if !remote.FileExists(ctx, r, opts.To) {
		b.Fail(opts.To + " missing")
		return b.Status(), nil
	}
	b.Ok(opts.To + " exists")

	gitConfig := path.Join(opts.To, ".git", "config")
	b.Record(remote.FileExists(ctx, r, gitConfig), gitConfig+" exists", gitConfig+" missing")
	return b.Status(), nil
}

func remoteHome(ctx context.Context, r remote.Runner) (string, error) {
	out, err := r.Run(ctx, "echo $HOME")
	if err != nil {
		return "", fmt.Errorf("failed to resolve remote home directory: %w", err)
	}
	return strings.TrimRight(out.FirstLine(), "/"), nil
}
