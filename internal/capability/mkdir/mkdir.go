// Package mkdir creates folders and sets their permissions.
package mkdir

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/hostprep/internal/capability"
	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/status"
)

// Install creates every folder with one mkdir call, then applies the
// permissions (and owner, if set) recursively over the same list.
func Install(ctx context.Context, r remote.Runner, opts config.MkdirOptions) error {
	list := strings.Join(opts.Folders, " ")
	perm := opts.Perm
	if perm == "" {
		perm = config.DefaultFolderPerm
	}

	if _, err := r.Run(ctx, capability.Sudo(opts.Sudo, "mkdir -p "+list)); err != nil {
		return fmt.Errorf("failed to create folders: %w", err)
	}
	if _, err := r.Run(ctx, capability.Sudo(opts.Sudo, fmt.Sprintf("chmod -R %s %s", perm, list))); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if opts.Owner != "" {
		if _, err := r.Run(ctx, capability.Sudo(opts.Sudo, fmt.Sprintf("chown -R %s %s", opts.Owner, list))); err != nil {
			return fmt.Errorf("failed to set owner: %w", err)
		}
	}
	return nil
}

// Check probes each folder separately.
func Check(ctx context.Context, r remote.Runner, opts config.MkdirOptions) (status.Status, error) {
	var b status.Builder
	for _, folder := range opts.Folders {
		out, err := r.Silent(ctx, "ls -d "+folder)
		b.Record(err == nil && out.OK(), folder+" found", folder+" missing")
	}
	return b.Status(), nil
}
