// Package apt installs Debian packages and checks their dpkg status.
//
// Update and InstallPackages are also used by the docker and terraform
// capabilities after they register their repositories.
package apt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/hostprep/internal/capability"
	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/status"
)

const (
	installedMarker = "Status: install ok installed"
	notFoundMarker  = "Unable to locate package"
)

// Install refreshes the package index and installs opts.Install in one call.
func Install(ctx context.Context, r remote.Runner, opts config.AptOptions) error {
	if err := Update(ctx, r); err != nil {
		return err
	}
	return InstallPackages(ctx, r, opts.Install...)
}

// Check runs dpkg -s for every package.
func Check(ctx context.Context, r remote.Runner, opts config.AptOptions) (status.Status, error) {
	var b status.Builder
	for _, pkg := range opts.Install {
		out, err := r.Silent(ctx, fmt.Sprintf("sudo dpkg -s %s 2>&1", pkg))
		switch {
		case err != nil:
			b.Fail(pkg + " missing")
		case !out.OK():
			b.Fail(remote.Outcome{Output: strings.ReplaceAll(out.Output, "dpkg-query: ", "")}.FirstLine())
		case strings.Contains(out.Output, installedMarker):
			b.Ok(pkg + " ok")
		default:
			b.Fail(pkg + " missing")
		}
	}
	return b.Status(), nil
}

// Update refreshes the package index.
func Update(ctx context.Context, r remote.Runner) error {
	if _, err := r.Run(ctx, "sudo apt-get update 2>&1"); err != nil {
		return fmt.Errorf("failed to update package index: %w", err)
	}
	return nil
}

// InstallPackages installs pkgs non-interactively. Every "Unable to locate
// package" line in a failure is collected into a *capability.PackageNotFoundError.
func InstallPackages(ctx context.Context, r remote.Runner, pkgs ...string) error {
	cmd := fmt.Sprintf("sudo DEBIAN_FRONTEND=noninteractive apt-get install -yq %s 2>&1", strings.Join(pkgs, " "))
	_, err := r.Run(ctx, cmd)
	if err == nil {
		return nil
	}

	var cmdErr *remote.CommandError
	if errors.As(err, &cmdErr) {
		if missing := locateFailures(cmdErr.Output); len(missing) > 0 {
			return &capability.PackageNotFoundError{Packages: missing}
		}
	}
	return fmt.Errorf("failed to install packages: %w", err)
}

func locateFailures(output string) []string {
	var missing []string
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, notFoundMarker)
		if idx < 0 {
			continue
		}
		pkg := strings.TrimSpace(line[idx+len(notFoundMarker):])
		if pkg != "" {
			missing = append(missing, pkg)
		}
	}
	return missing
}
