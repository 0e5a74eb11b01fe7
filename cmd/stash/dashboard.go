package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDashboardCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show stash totals",
		Long:  "Prints skeins owned and allocated across the stash, with project and library counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDashboard(cmd *cobra.Command, configPath string) error {
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	t, err := a.ledger.Totals(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	heading(out, "Stash")
	fmt.Fprintf(out, "Yarn entries:      %d\n", t.Yarns)
	fmt.Fprintf(out, "Skeins owned:      %d\n", t.OwnedSkeins)
	fmt.Fprintf(out, "Skeins allocated:  %d\n", t.AllocatedSkeins)
	fmt.Fprintf(out, "Projects:          %d\n", t.Projects)
	fmt.Fprintf(out, "Patterns:          %d in %d folders\n", t.Patterns, t.Folders)
	return nil
}
