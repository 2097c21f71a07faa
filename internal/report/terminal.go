package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/testreport/internal/model"
)

// TerminalSummary prints the per-outcome totals and where the report was
// written.
func (h *HTMLReport) TerminalSummary(w io.Writer) {
	counts := h.Counts()
	for _, o := range model.Outcomes {
		n := counts[o]
		if n == 0 {
			continue
		}
		outcomeColor(o).Fprintf(w, "%d %s", n, h.tr.Outcome(string(o)))
		fmt.Fprint(w, "  ")
	}
	fmt.Fprintln(w)

	line := center(" "+h.tr.T("terminal.done", h.opts.Path)+" ", logWidth, '-')
	if counts[model.OutcomeFailed]+counts[model.OutcomeError] > 0 {
		color.New(color.FgRed, color.Bold).Fprintln(w, line)
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintln(w, line)
}

func outcomeColor(o model.Outcome) *color.Color {
	switch o {
	case model.OutcomePassed:
		return color.New(color.FgGreen)
	case model.OutcomeSkipped, model.OutcomeXFailed, model.OutcomeRerun:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
