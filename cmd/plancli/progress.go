package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/myrjola/pedalcoach/internal/training"
	"github.com/spf13/cobra"
)

func newProgressCmd() *cobra.Command {
	var flags inputFlags
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Compute goal progress from activities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := flags.load()
			if err != nil {
				return err
			}
			if len(in.activities) == 0 {
				return errors.New("--activities is required to compute progress")
			}
			progress := training.ComputeAll(in.goals, in.activities, in.profile, in.now)
			analysis := training.Analyze(in.goals, progress)

			w := cmd.OutOrStdout()
			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()
			for _, a := range analysis {
				pct := fmt.Sprintf("%5.1f%%", a.ProgressPercent)
				if a.ProgressPercent >= 100 { //nolint:mnd // goal reached.
					pct = green(pct)
				} else if a.ProgressPercent < 25 { //nolint:mnd // far behind.
					pct = red(pct)
				}
				_, _ = fmt.Fprintf(w, "%-12s %-5s %10.1f / %-10.1f %s\n",
					a.GoalType, a.Period, a.CurrentValue, a.TargetValue, pct)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
