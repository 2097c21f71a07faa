package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/testreport/internal/model"
)

func newHistoryCmd(f *flags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.Close()

			h := a.History()
			if h == nil {
				return errors.New("no run history configured (set --history or TESTREPORT_HISTORY_DSN)")
			}
			runs, err := h.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tWHEN\tTOTAL\tPASSED\tFAILED\tERRORS\tRATE\tREPORT")
			now := time.Now()
			for _, r := range runs {
				rate := fmt.Sprintf("%.1f%%", r.Counts.PassRate())
				if r.Counts[model.OutcomeFailed]+r.Counts[model.OutcomeError] > 0 {
					rate = color.RedString(rate)
				} else {
					rate = color.GreenString(rate)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
					r.ID.String()[:8],
					r.Title,
					humanize.RelTime(r.GeneratedAt, now, "ago", "from now"),
					r.Counts.Total(),
					r.Counts[model.OutcomePassed],
					r.Counts[model.OutcomeFailed],
					r.Counts[model.OutcomeError],
					rate,
					r.ReportPath,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}
