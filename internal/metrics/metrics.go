// Package metrics counts capability runs and remote commands for a single
// hostprep invocation and exports them in node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess     = "success"
	ResultSatisfied   = "satisfied"
	ResultUnsatisfied = "unsatisfied"
	ResultError       = "error"
	ResultNonZero     = "nonzero"
)

// Recorder holds the hostprep collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	capabilityRuns  *prometheus.CounterVec
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		capabilityRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hostprep",
				Name:      "capability_runs_total",
				Help:      "Total number of capability runs by stage, capability, mode and result",
			},
			[]string{"stage", "capability", "mode", "result"},
		),

		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hostprep",
				Name:      "remote_commands_total",
				Help:      "Total number of remote commands by call kind and result",
			},
			[]string{"kind", "result"},
		),

		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hostprep",
				Name:      "remote_command_duration_seconds",
				Help:      "Duration of remote commands in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
			[]string{"kind"},
		),
	}

	r.registry.MustRegister(r.capabilityRuns, r.commandsTotal, r.commandDuration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordCapability counts one capability run.
func (r *Recorder) RecordCapability(stage, capability, mode, result string) {
	r.capabilityRuns.WithLabelValues(stage, capability, mode, result).Inc()
}

// ObserveCommand implements remote.CommandObserver.
func (r *Recorder) ObserveCommand(kind string, exitCode int, err error, elapsed time.Duration) {
	result := ResultSuccess
	switch {
	case err != nil:
		result = ResultError
	case exitCode != 0:
		result = ResultNonZero
	}
	r.commandsTotal.WithLabelValues(kind, result).Inc()
	r.commandDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// WriteTextfile writes the registry to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
