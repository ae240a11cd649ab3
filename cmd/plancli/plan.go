package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/myrjola/pedalcoach/internal/training"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var (
		flags  inputFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build the weekly plan for the week containing --now",
		Long: `Runs progress calculation, prioritisation and day assignment exactly as the server does,
but without storing anything. Activities are optional; without them the stored current values are used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := flags.load()
			if err != nil {
				return err
			}
			weekStart := training.WeekStart(in.now)
			plan := training.BuildPlan(weekStart, in.goals, in.profile, in.activities, in.now)
			hash, err := training.GoalsHash(in.goals, in.profile)
			if err != nil {
				return fmt.Errorf("goals hash: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(training.PlanResult{Plan: &plan, Message: "", Cached: false, GoalsHash: hash})
			}
			printPlan(cmd.OutOrStdout(), plan, hash)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	return cmd
}

func printPlan(w io.Writer, plan training.WeeklyPlan, hash string) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	_, _ = fmt.Fprintf(w, "\n%s\n", cyan(fmt.Sprintf("=== Week of %s (variation %d) ===",
		plan.WeekStartDate.Format("2006-01-02"), plan.Variation)))
	_, _ = fmt.Fprintf(w, "%s %s\n\n", gray("goals hash"), gray(hash))

	_, _ = fmt.Fprintf(w, "%s\n", yellow("Goals by priority:"))
	for _, a := range plan.Analysis {
		_, _ = fmt.Fprintf(w, "  %-12s %-5s %5.1f%%  priority %.3f\n",
			a.GoalType, a.Period, a.ProgressPercent, a.Priority)
	}

	ranked := make([]string, 0, len(plan.Priorities))
	for _, id := range plan.Priorities {
		ranked = append(ranked, string(id))
	}
	_, _ = fmt.Fprintf(w, "\n%s %s\n\n", yellow("Focus:"), strings.Join(ranked, ", "))

	_, _ = fmt.Fprintf(w, "%s\n", yellow("Days:"))
	for _, d := range plan.Days {
		if d.Rest {
			_, _ = fmt.Fprintf(w, "  %-10s %s\n", d.Day, gray("rest"))
			continue
		}
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", d.Day, green(string(d.TrainingType)))
	}
	_, _ = fmt.Fprintln(w)
}
