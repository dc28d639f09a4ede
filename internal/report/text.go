package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/fixrun/internal/ir"
)

// Text writes a human readable report. Colours are used only when w is a
// terminal that supports them.
type Text struct {
	w io.Writer

	header lipgloss.Style
	pass   lipgloss.Style
	fail   lipgloss.Style
	dim    lipgloss.Style
}

// NewText creates a text reporter writing to w.
func NewText(w io.Writer) *Text {
	r := lipgloss.NewRenderer(w)
	return &Text{
		w:      w,
		header: r.NewStyle().Bold(true),
		pass:   r.NewStyle().Foreground(lipgloss.Color("42")),
		fail:   r.NewStyle().Foreground(lipgloss.Color("196")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// Describe implements Reporter.
func (t *Text) Describe(fixture ir.FixturePath) Group {
	fmt.Fprintln(t.w, t.header.Render(fixture.ID))
	return &textGroup{t: t}
}

// Finish implements Reporter.
func (t *Text) Finish(summary *ir.RunSummary) error {
	fmt.Fprintln(t.w)
	fmt.Fprintf(t.w, "Test Summary: %d passed, %d failed, %d total (%d fixtures)\n",
		summary.Passed, summary.Failed, summary.Total, len(summary.Fixtures))

	if !summary.OK() {
		fmt.Fprintln(t.w, t.fail.Render(fmt.Sprintf("✗ %d assertion(s) failed", summary.Failed)))
		return nil
	}
	fmt.Fprintln(t.w, t.pass.Render("✓ All assertions passed"))
	return nil
}

type textGroup struct {
	t *Text
}

func (g *textGroup) It(result ir.AssertionResult) {
	t := g.t
	if result.Passed {
		fmt.Fprintf(t.w, "  %s %s\n", t.pass.Render("✓"), result.Name)
		return
	}
	fmt.Fprintf(t.w, "  %s %s\n", t.fail.Render("✗"), result.Name)
	if result.Message == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(result.Message, "\n"), "\n") {
		fmt.Fprintf(t.w, "      %s\n", t.dim.Render(line))
	}
}

func (g *textGroup) End() {}
