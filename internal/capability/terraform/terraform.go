// Package terraform installs Terraform from the HashiCorp apt repository.
package terraform

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/hostprep/internal/capability/apt"
	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/status"
)

// Remote paths managed by the capability.
const (
	KeyPath        = "/usr/share/keyrings/hashicorp-archive-keyring.gpg"
	SourceListPath = "/etc/apt/sources.list.d/hashicorp.list"
)

const (
	keyURL       = "https://apt.releases.hashicorp.com/gpg"
	repoURL      = "https://apt.releases.hashicorp.com"
	versionProbe = "terraform --version 2>&1"
)

// Install adds the HashiCorp key and source, then installs terraform if the
// binary is missing.
func Install(ctx context.Context, r remote.Runner, _ config.TerraformOptions) error {
	if !remote.FileExists(ctx, r, KeyPath) {
		if _, err := r.Run(ctx, "sudo mkdir -m 0755 -p /usr/share/keyrings"); err != nil {
			return fmt.Errorf("failed to create keyring directory: %w", err)
		}
		if _, err := r.Run(ctx, fmt.Sprintf("wget -O- %s | sudo gpg --dearmor -o %s", keyURL, KeyPath)); err != nil {
			return fmt.Errorf("failed to install hashicorp gpg key: %w", err)
		}
	}

	if _, err := r.Run(ctx, fmt.Sprintf("gpg --no-default-keyring --keyring %s --fingerprint", KeyPath)); err != nil {
		return fmt.Errorf("failed to verify hashicorp gpg key: %w", err)
	}

	if !remote.FileExists(ctx, r, SourceListPath) {
		out, err := r.Run(ctx, "lsb_release -cs")
		if err != nil {
			return fmt.Errorf("failed to detect release codename: %w", err)
		}
		cmd := fmt.Sprintf(`echo "deb [signed-by=%s] %s %s main" | sudo tee %s > /dev/null`,
			KeyPath, repoURL, out.FirstLine(), SourceListPath)
		if _, err := r.Run(ctx, cmd); err != nil {
			return fmt.Errorf("failed to add hashicorp apt source: %w", err)
		}
	}

	if err := apt.Update(ctx, r); err != nil {
		return err
	}
	if _, err := remote.Which(ctx, r, versionProbe); err != nil {
		return apt.InstallPackages(ctx, r, "terraform")
	}
	return nil
}

// Check reports the terraform version, key and apt source.
func Check(ctx context.Context, r remote.Runner, _ config.TerraformOptions) (status.Status, error) {
	var b status.Builder
	if version, err := remote.Which(ctx, r, versionProbe); err != nil {
		b.Fail(err.Error())
	} else {
		first, _, _ := strings.Cut(version, "\n")
		b.Ok(first)
	}
	b.Record(remote.FileExists(ctx, r, KeyPath), "gpg key ok", "missing gpg key")
	b.Record(remote.FileExists(ctx, r, SourceListPath), "sources list ok", "missing "+SourceListPath)
	return b.Status(), nil
}
