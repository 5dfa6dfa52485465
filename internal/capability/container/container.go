// Package container runs long-lived monitoring exporters under Docker.
package container

import (
	"context"
	"fmt"

	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/status"
)

// Exporter is a named container started with a fixed docker run line.
type Exporter struct {
	Name string
	// Run is everything after "docker run -d --name <Name> --restart=always".
	Run string
}

// Known exporters.
var (
	NodeExporter = Exporter{
		Name: "node-exporter",
		Run:  `--net="host" --pid="host" -v "/:/host:ro,rslave" quay.io/prometheus/node-exporter:latest --path.rootfs=/host`,
	}
	DockerStats = Exporter{
		Name: "docker-stats",
		Run:  "-p 9487:9487 -v /var/run/docker.sock:/var/run/docker.sock wywywywy/docker_stats_exporter:latest",
	}
)

func (e Exporter) psCommand() string {
	return fmt.Sprintf("docker ps --filter=name=%s --format '{{.ID}}'", e.Name)
}

func (e Exporter) runCommand() string {
	return fmt.Sprintf("docker run -d --name %s --restart=always %s 2>&1", e.Name, e.Run)
}

// Install starts the exporter unless a container with its name is running.
func Install(ctx context.Context, r remote.Runner, e Exporter) error {
	id, err := runningID(ctx, r, e)
	if err != nil {
		return err
	}
	if id != "" {
		return nil
	}
	if _, err := r.Run(ctx, e.runCommand()); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.Name, err)
	}
	return nil
}

// Check reports the running container id.
func Check(ctx context.Context, r remote.Runner, e Exporter) (status.Status, error) {
	id, err := runningID(ctx, r, e)
	if err != nil {
		return status.Status{}, err
	}
	var b status.Builder
	b.Record(id != "", fmt.Sprintf("%s is %s", e.Name, id), e.Name+" is not running")
	return b.Status(), nil
}

func runningID(ctx context.Context, r remote.Runner, e Exporter) (string, error) {
	out, err := r.Run(ctx, e.psCommand())
	if err != nil {
		return "", fmt.Errorf("failed to list containers: %w", err)
	}
	return out.FirstLine(), nil
}
