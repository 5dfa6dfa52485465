package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared with the rest of the CLI output.
var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
)

type styles struct {
	stage   lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	dim     lipgloss.Style
	title   lipgloss.Style
	section lipgloss.Style
}

// newStyles renders through w's own renderer so color is only emitted when
// w is a terminal. Without color every style is a no-op.
func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if !color {
		plain := r.NewStyle()
		return styles{stage: plain, ok: plain, failed: plain, dim: plain, title: plain, section: plain}
	}
	return styles{
		stage:   r.NewStyle().Bold(true).Foreground(colorYellow),
		ok:      r.NewStyle().Foreground(colorGreen),
		failed:  r.NewStyle().Foreground(colorRed),
		dim:     r.NewStyle().Foreground(colorDim),
		title:   r.NewStyle().Bold(true).Foreground(colorWhite),
		section: r.NewStyle().Bold(true).Foreground(colorBlue),
	}
}
