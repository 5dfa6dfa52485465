package stage

import (
	"github.com/imamik/hostprep/internal/metrics"
	"github.com/imamik/hostprep/internal/status"
)

// Mode selects whether capabilities mutate remote state or only inspect it.
type Mode string

// Modes.
const (
	ModeInstall Mode = "install"
	ModeCheck   Mode = "check"
)

// Pseudo-stage names for the run-level shell entries.
const (
	AliasesStage = "ALIASES"
	ExportsStage = "EXPORTS"
)

// Result is the outcome of one capability in one stage.
type Result struct {
	Stage      string
	Capability string
	Mode       Mode
	// Status is set for successful checks only.
	Status status.Status
	Err    error
}

// OK reports whether the capability installed successfully or, for checks,
// found its state satisfied.
func (r Result) OK() bool {
	if r.Err != nil {
		return false
	}
	return r.Mode == ModeInstall || r.Status.Satisfied()
}

// Outcome is the metrics result label for r.
func (r Result) Outcome() string {
	switch {
	case r.Err != nil:
		return metrics.ResultError
	case r.Mode == ModeInstall:
		return metrics.ResultSuccess
	case r.Status.Satisfied():
		return metrics.ResultSatisfied
	default:
		return metrics.ResultUnsatisfied
	}
}

// Summary counts results by outcome.
type Summary struct {
	Total  int
	Failed int
}

// Summarize counts how many results are not OK.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if !r.OK() {
			s.Failed++
		}
	}
	return s
}
