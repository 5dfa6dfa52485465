// Package stage runs the capabilities a stage activates, in a fixed order,
// against one remote host.
//
// A failing capability is recorded and the next one runs; a stage never
// aborts part-way. Nothing is retried and nothing is rolled back.
package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/hostprep/internal/capability/apt"
	"github.com/imamik/hostprep/internal/capability/aws"
	"github.com/imamik/hostprep/internal/capability/container"
	"github.com/imamik/hostprep/internal/capability/docker"
	"github.com/imamik/hostprep/internal/capability/git"
	"github.com/imamik/hostprep/internal/capability/keys"
	"github.com/imamik/hostprep/internal/capability/mkdir"
	"github.com/imamik/hostprep/internal/capability/mount"
	"github.com/imamik/hostprep/internal/capability/shell"
	"github.com/imamik/hostprep/internal/capability/terraform"
	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/status"
)

// ErrUnknownStage is returned by Run when the stage filter names no stage.
var ErrUnknownStage = errors.New("unknown stage")

// Reporter receives progress as the dispatcher works.
type Reporter interface {
	StageStarted(name string)
	Report(result Result)
}

// Recorder counts capability runs.
type Recorder interface {
	RecordCapability(stage, capability, mode, result string)
}

// Dispatcher executes stages over a single Runner.
type Dispatcher struct {
	runner   remote.Runner
	reporter Reporter
	recorder Recorder
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithReporter streams results to r as they are produced.
func WithReporter(r Reporter) Option {
	return func(d *Dispatcher) {
		d.reporter = r
	}
}

// WithRecorder counts results in r.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// New creates a Dispatcher.
func New(runner remote.Runner, opts ...Option) *Dispatcher {
	d := &Dispatcher{runner: runner}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes every stage of cfg in sorted name order, or only the stage
// named only when it is non-empty, followed by the run-level aliases and
// exports.
func (d *Dispatcher) Run(ctx context.Context, cfg *config.Config, mode Mode, only string) ([]Result, error) {
	names := cfg.StageNames()
	if only != "" {
		if _, ok := cfg.Stages[only]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStage, only)
		}
		names = []string{only}
	}

	var results []Result
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		st := cfg.Stages[name]
		if mode == ModeInstall {
			results = append(results, d.Install(ctx, st)...)
		} else {
			results = append(results, d.Check(ctx, st)...)
		}
	}

	if mode == ModeInstall {
		results = append(results, d.InstallShell(ctx, cfg.Aliases, cfg.Exports)...)
	} else {
		results = append(results, d.CheckShell(ctx, cfg.Aliases, cfg.Exports)...)
	}
	return results, nil
}

// Install applies every capability st activates.
func (d *Dispatcher) Install(ctx context.Context, st *config.Stage) []Result {
	return d.runStage(ctx, st, ModeInstall)
}

// Check inspects every capability st activates.
func (d *Dispatcher) Check(ctx context.Context, st *config.Stage) []Result {
	return d.runStage(ctx, st, ModeCheck)
}

func (d *Dispatcher) runStage(ctx context.Context, st *config.Stage, mode Mode) []Result {
	log := logr.FromContextOrDiscard(ctx).WithValues("stage", st.Name, "mode", mode)
	ctx = logr.NewContext(ctx, log)
	d.stageStarted(st.Name)

	var results []Result
	for _, c := range capabilities {
		if !c.active(st) {
			continue
		}
		res := Result{Stage: st.Name, Capability: c.name, Mode: mode}
		start := time.Now()
		if mode == ModeInstall {
			res.Err = c.install(ctx, d.runner, st)
		} else {
			res.Status, res.Err = c.check(ctx, d.runner, st)
		}
		log.V(1).Info("capability finished", "capability", c.name, "result", res.Outcome(),
			"elapsed", time.Since(start).Round(time.Millisecond))
		results = append(results, d.record(res))
	}
	return results
}

// InstallShell appends missing aliases and exports to ~/.bashrc, each in
// sorted key order.
func (d *Dispatcher) InstallShell(ctx context.Context, aliases, exports map[string]string) []Result {
	var results []Result
	for _, group := range shellGroups(aliases, exports) {
		d.stageStarted(group.stage)
		for _, name := range config.SortedKeys(group.entries) {
			err := shell.Install(ctx, d.runner, group.kind, name, group.entries[name])
			results = append(results, d.record(Result{Stage: group.stage, Capability: name, Mode: ModeInstall, Err: err}))
		}
	}
	return results
}

// CheckShell reports the current declaration of every alias and export.
func (d *Dispatcher) CheckShell(ctx context.Context, aliases, exports map[string]string) []Result {
	var results []Result
	for _, group := range shellGroups(aliases, exports) {
		d.stageStarted(group.stage)
		for _, name := range config.SortedKeys(group.entries) {
			st, err := shell.Check(ctx, d.runner, group.kind, name)
			results = append(results, d.record(Result{Stage: group.stage, Capability: name, Mode: ModeCheck, Status: st, Err: err}))
		}
	}
	return results
}

type shellGroup struct {
	stage   string
	kind    shell.Kind
	entries map[string]string
}

// shellGroups skips empty maps so no empty pseudo-stage header is printed.
func shellGroups(aliases, exports map[string]string) []shellGroup {
	var groups []shellGroup
	if len(aliases) > 0 {
		groups = append(groups, shellGroup{stage: AliasesStage, kind: shell.Alias, entries: aliases})
	}
	if len(exports) > 0 {
		groups = append(groups, shellGroup{stage: ExportsStage, kind: shell.Export, entries: exports})
	}
	return groups
}

func (d *Dispatcher) stageStarted(name string) {
	if d.reporter != nil {
		d.reporter.StageStarted(name)
	}
}

func (d *Dispatcher) record(res Result) Result {
	if d.recorder != nil {
		d.recorder.RecordCapability(res.Stage, res.Capability, string(res.Mode), res.Outcome())
	}
	if d.reporter != nil {
		d.reporter.Report(res)
	}
	return res
}

type capabilityEntry struct {
	name    string
	active  func(*config.Stage) bool
	install func(context.Context, remote.Runner, *config.Stage) error
	check   func(context.Context, remote.Runner, *config.Stage) (status.Status, error)
}

// capabilities is the fixed execution order within a stage.
var capabilities = []capabilityEntry{
	{
		name:   "mount",
		active: func(s *config.Stage) bool { return s.Mount != nil },
		install: func(ctx context.Context, r remote.Runner, s *config.Stage) error {
			return mount.Install(ctx, r, *s.Mount)
		},
		check: func(ctx context.Context, r remote.Runner, s *config.Stage) (status.Status, error) {
			return mount.Check(ctx, r, *s.Mount)
		},
	},
	{
		name:   "mkdir",
		active: func(s *config.Stage) bool { return s.Mkdir != nil },
		install: func(ctx context.Context, r remote.Runner, s *config.Stage) error {
			return mkdir.Install(ctx, r, *s.Mkdir)
		},
		check: func(ctx context.Context, r remote.Runner, s *config.Stage) (status.Status, error) {
			return mkdir.Check(ctx, r, *s.Mkdir)
		},
	},
	{
		name:   "keys",
		active: func(s *config.Stage) bool { return s.Keys != nil },
		install: func(ctx context.Context, r remote.Runner, s *config.Stage) error {
			return keys.Install(ctx, r, *s.Keys)
		},
		check: func(ctx context.Context, r remote.Runner, s *config.Stage) (status.Status, error) {
			return keys.Check(ctx, r, *s.Keys)
		},
	},
	{
		name:   "git",
		active: func(s *config.Stage) bool { return s.Git != nil },
		install: func(ctx context.Context, r remote.Runner, s *config.Stage) error {
			return git.Install(ctx, r, *s.Git)
		},
		check: func(ctx context.Context, r remote.Runner, s *config.Stage) (status.Status, error) {
			return git.Check(ctx, r, *s.Git)
		},
	},
	{
		name:   "apt",
		active: func(s *config.Stage) bool { return s.Apt != nil },
		install: func(ctx context.Context, r remote.Runner, s *config.Stage) error {
			return apt.Install(ctx, r, *s.Apt)
		},
		check: func(ctx context.Context, r remote.Runner, s *config.Stage) (status.Status, error) {
			return apt.Check(ctx, r, *s.Apt)
		},
	},
	{
		name:   "docker",
		active: func(s *config.Stage) bool { return s.Docker != nil },
		install: func(ctx context.Context, r remote.Runner, s *config.Stage) error {
			return docker.Install(ctx, r, *s.Docker)
		},
		check: func(ctx context.Context, r remote.Runner, s *config.Stage) (status.Status, error) {
			return docker.Check(ctx, r, *s.Docker)
		},
	},
	{
		name:   "terraform",
		active: func(s *config.Stage) bool { return s.Terraform != nil },
		install: func(ctx context.Context, r remote.Runner, s *config.Stage) error {
			return terraform.Install(ctx, r, *s.Terraform)
		},
		check: func(ctx context.Context, r remote.Runner, s *config.Stage) (status.Status, error) {
			return terraform.Check(ctx, r, *s.Terraform)
		},
	},
	{
		name:   "aws",
		active: func(s *config.Stage) bool { return s.Aws != nil },
		install: func(ctx context.Context, r remote.Runner, s *config.Stage) error {
			return aws.Install(ctx, r, *s.Aws)
		},
		check: func(ctx context.Context, r remote.Runner, s *config.Stage) (status.Status, error) {
			return aws.Check(ctx, r, *s.Aws)
		},
	},
	{
		name:   "node_exporter",
		active: func(s *config.Stage) bool { return s.NodeExporter != nil },
		install: func(ctx context.Context, r remote.Runner, _ *config.Stage) error {
			return container.Install(ctx, r, container.NodeExporter)
		},
		check: func(ctx context.Context, r remote.Runner, _ *config.Stage) (status.Status, error) {
			return container.Check(ctx, r, container.NodeExporter)
		},
	},
	{
		name:   "docker_stats",
		active: func(s *config.Stage) bool { return s.DockerStats != nil },
		install: func(ctx context.Context, r remote.Runner, _ *config.Stage) error {
			return container.Install(ctx, r, container.DockerStats)
		},
		check: func(ctx context.Context, r remote.Runner, _ *config.Stage) (status.Status, error) {
			return container.Check(ctx, r, container.DockerStats)
		},
	},
}

// CapabilityNames returns the capability names in execution order.
func CapabilityNames() []string {
	names := make([]string, len(capabilities))
	for i, c := range capabilities {
		names[i] = c.name
	}
	return names
}
