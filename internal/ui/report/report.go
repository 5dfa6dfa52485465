// Package report renders stage results for the terminal or as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/imamik/hostprep/internal/stage"
)

// IsInteractiveTTY reports whether stdout is a terminal.
func IsInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Reporter streams human-readable results. It implements stage.Reporter.
//
// Install results print as "+ name: OK" or "- name: FAILURE <error>".
// Check results print the status marker followed by one indented line per
// evidence or gap.
type Reporter struct {
	w      io.Writer
	styles styles
}

// New returns a Reporter writing to w, colored when color is set.
func New(w io.Writer, color bool) *Reporter {
	return &Reporter{w: w, styles: newStyles(w, color)}
}

// StageStarted prints the stage header.
func (r *Reporter) StageStarted(name string) {
	fmt.Fprintf(r.w, "= %s\n", r.styles.stage.Render(name))
}

// Report prints one capability result.
func (r *Reporter) Report(res stage.Result) {
	s := r.styles
	if res.Err != nil {
		fmt.Fprintf(r.w, "- %s: %s %v\n", s.failed.Render(res.Capability), s.failed.Render("FAILURE"), res.Err)
		return
	}
	if res.Mode == stage.ModeInstall {
		fmt.Fprintf(r.w, "+ %s: %s\n", s.ok.Render(res.Capability), s.ok.Render("OK"))
		return
	}

	if res.Status.Satisfied() {
		fmt.Fprintf(r.w, "+ %s: %s\n", s.ok.Render(res.Capability), s.ok.Render(checkMark))
	} else {
		fmt.Fprintf(r.w, "- %s: %s\n", s.failed.Render(res.Capability), s.failed.Render(crossMark))
	}
	for _, line := range res.Status.Evidence() {
		fmt.Fprintf(r.w, "    %s\n", s.dim.Render(line))
	}
	for _, line := range res.Status.Gaps() {
		fmt.Fprintf(r.w, "    %s %s\n", s.failed.Render("!"), line)
	}
}

// Summary prints the closing line for a run.
func (r *Reporter) Summary(mode stage.Mode, results []stage.Result) {
	sum := stage.Summarize(results)
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.styles.dim.Render(strings.Repeat("─", 35)))
	line := fmt.Sprintf("%s: %d capabilities, %d failed", mode, sum.Total, sum.Failed)
	if sum.Failed > 0 {
		fmt.Fprintln(r.w, r.styles.failed.Render(line))
		return
	}
	fmt.Fprintln(r.w, r.styles.ok.Render(line))
}

// JSONResult is the machine-readable form of a stage.Result.
type JSONResult struct {
	Stage      string   `json:"stage"`
	Capability string   `json:"capability"`
	Mode       string   `json:"mode"`
	Result     string   `json:"result"`
	Evidence   []string `json:"evidence,omitempty"`
	Gaps       []string `json:"gaps,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ToJSON converts results for encoding.
func ToJSON(results []stage.Result) []JSONResult {
	out := make([]JSONResult, 0, len(results))
	for _, res := range results {
		jr := JSONResult{
			Stage:      res.Stage,
			Capability: res.Capability,
			Mode:       string(res.Mode),
			Result:     res.Outcome(),
			Evidence:   res.Status.Evidence(),
			Gaps:       res.Status.Gaps(),
		}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		}
		out = append(out, jr)
	}
	return out
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []stage.Result) error {
	data, err := json.MarshalIndent(ToJSON(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
