// Package docker installs Docker CE from the upstream apt repository.
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/hostprep/internal/capability"
	"github.com/imamik/hostprep/internal/capability/apt"
	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/status"
)

// Remote paths managed by the capability.
const (
	KeyPath          = "/etc/apt/keyrings/docker.gpg"
	SourceListPath   = "/etc/apt/sources.list.d/docker.list"
	DaemonConfigPath = "/etc/docker/daemon.json"
)

const versionProbe = "docker --version 2>&1"

// Packages installed when the docker binary is missing.
var Packages = []string{"docker-ce", "docker-ce-cli", "containerd.io", "docker-buildx-plugin", "docker-compose-plugin"}

// DaemonConfig is the subset of daemon.json the capability writes.
type DaemonConfig struct {
	DataRoot  string `json:"data-root"`
	LogDriver string `json:"log-driver"`
}

// NewDaemonConfig places Docker's data-root under path.
func NewDaemonConfig(path string) DaemonConfig {
	return DaemonConfig{
		DataRoot:  strings.TrimRight(path, "/") + "/docker",
		LogDriver: "json-file",
	}
}

// Install registers the Docker repository and installs the engine.
// Each step is skipped when its artifact already exists.
func Install(ctx context.Context, r remote.Runner, opts config.DockerOptions) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("capability", "docker")

	osFamily, err := capability.DetectOS(ctx, r)
	if err != nil {
		return err
	}

	if opts.Path != "" {
		if remote.FileExists(ctx, r, DaemonConfigPath) {
			log.V(1).Info("daemon config already exists, skipping", "path", DaemonConfigPath)
		} else if err := writeDaemonConfig(ctx, r, opts.Path); err != nil {
			return err
		}
	}

	if !remote.FileExists(ctx, r, KeyPath) {
		if _, err := r.Run(ctx, "sudo mkdir -m 0755 -p /etc/apt/keyrings"); err != nil {
			return fmt.Errorf("failed to create keyring directory: %w", err)
		}
		cmd := fmt.Sprintf("curl -fsSL https://download.docker.com/linux/%s/gpg | sudo gpg --dearmor -o %s", osFamily, KeyPath)
		if _, err := r.Run(ctx, cmd); err != nil {
			return fmt.Errorf("failed to install docker gpg key: %w", err)
		}
	}

	if !remote.FileExists(ctx, r, SourceListPath) {
		if _, err := r.Run(ctx, sourceListCommand(osFamily)); err != nil {
			return fmt.Errorf("failed to add docker apt source: %w", err)
		}
	}

	if err := apt.Update(ctx, r); err != nil {
		return err
	}
	if _, err := remote.Which(ctx, r, versionProbe); err != nil {
		if err := apt.InstallPackages(ctx, r, Packages...); err != nil {
			return err
		}
	}

	// Group membership is best effort; $USER may already be in it or be root.
	if _, err := r.Silent(ctx, "sudo usermod -aG docker $USER 2>&1"); err != nil {
		return err
	}
	return nil
}

// Check reports the docker binary, key, apt source and group membership.
func Check(ctx context.Context, r remote.Runner, _ config.DockerOptions) (status.Status, error) {
	if _, err := capability.DetectOS(ctx, r); err != nil {
		return status.Status{}, err
	}

	var b status.Builder
	if version, err := remote.Which(ctx, r, versionProbe); err != nil {
		b.Fail(err.Error())
	} else {
		b.Ok(version)
	}
	b.Record(remote.FileExists(ctx, r, KeyPath), "docker gpg key ok", "missing docker gpg key")
	b.Record(remote.FileExists(ctx, r, SourceListPath), SourceListPath+" ok", "missing "+SourceListPath)
	b.Record(remote.HasOutput(ctx, r, "cat /etc/group | grep docker | grep $USER"),
		"current user is in docker group", "current user is not in docker group")
	return b.Status(), nil
}

func writeDaemonConfig(ctx context.Context, r remote.Runner, path string) error {
	data, err := json.Marshal(NewDaemonConfig(path))
	if err != nil {
		return fmt.Errorf("failed to encode daemon config: %w", err)
	}
	if _, err := r.Run(ctx, "sudo mkdir -p /etc/docker"); err != nil {
		return fmt.Errorf("failed to create /etc/docker: %w", err)
	}
	cmd := "sudo sh -c " + capability.SingleQuote(capability.Base64Write(string(data), DaemonConfigPath, false))
	if _, err := r.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to write %s: %w", DaemonConfigPath, err)
	}
	return nil
}

func sourceListCommand(osFamily string) string {
	return fmt.Sprintf(`echo "deb [arch=$(dpkg --print-architecture) signed-by=%s] https://download.docker.com/linux/%s $(. /etc/os-release && echo "$VERSION_CODENAME") stable" | sudo tee %s > /dev/null`,
		KeyPath, osFamily, SourceListPath)
}
