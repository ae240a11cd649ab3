package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/myrjola/pedalcoach/internal/training"
	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the training types plans are built from",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := training.LoadCatalog()
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			bold := color.New(color.Bold).SprintFunc()
			for _, tt := range catalog.All() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s (%s, %d min)\n",
					tt.ID, bold(tt.Name), tt.Intensity, tt.DurationMinutes)
			}
			return nil
		},
	}
}
