// Package keys copies local files, typically SSH keys, to the same paths on
// the remote host.
package keys

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/imamik/hostprep/internal/capability"
	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/status"
)

// Install writes every file verbatim and applies opts.Perm when set.
// The path is used unchanged on the remote side, so "~" resolves to the
// remote user's home there.
func Install(ctx context.Context, r remote.Runner, opts config.KeysOptions) error {
	for _, file := range opts.Sync {
		content, err := readLocal(file)
		if err != nil {
			return err
		}
		display := fmt.Sprintf("write %s (%d bytes)", file, len(content))
		if _, err := r.RunSensitive(ctx, capability.Base64Write(string(content), file, false), display); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
		if opts.Perm != "" {
			if _, err := r.Run(ctx, fmt.Sprintf("chmod %s %s", opts.Perm, file)); err != nil {
				return fmt.Errorf("failed to set permissions on %s: %w", file, err)
			}
		}
	}
	return nil
}

// Check lists each file on the remote host.
func Check(ctx context.Context, r remote.Runner, opts config.KeysOptions) (status.Status, error) {
	var b status.Builder
	for _, file := range opts.Sync {
		out, err := r.Silent(ctx, "ls -1 "+file)
		b.Record(err == nil && out.OK(), file+" found", file+" missing")
	}
	return b.Status(), nil
}

func readLocal(file string) ([]byte, error) {
	local, err := config.ExpandHome(file)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(local)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &capability.MissingLocalResourceError{Path: local, Err: capability.ErrLocalFileMissing}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", local, err)
	}
	return content, nil
}
