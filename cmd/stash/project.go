package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/ledger"
	"github.com/zulandar/stash/internal/project"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project and allocation commands",
	}

	cmd.AddCommand(newProjectAddCmd())
	cmd.AddCommand(newProjectListCmd())
	cmd.AddCommand(newProjectShowCmd())
	cmd.AddCommand(newProjectEditCmd())
	cmd.AddCommand(newProjectDeleteCmd())
	cmd.AddCommand(newProjectAllocCmd())
	cmd.AddCommand(newProjectDeallocCmd())
	return cmd
}

func newProjectAddCmd() *cobra.Command {
	var (
		configPath string
		opts       project.CreateOpts
		patternID  uint
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("pattern") {
				opts.PatternID = &patternID
			}
			return runProjectAdd(cmd, configPath, opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name (required)")
	cmd.Flags().IntVar(&opts.RequiredSkeins, "required", 0, "total skeins the project needs")
	cmd.Flags().UintVar(&patternID, "pattern", 0, "pattern ID to link")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form notes")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runProjectAdd(cmd *cobra.Command, configPath string, opts project.CreateOpts) error {
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := project.Create(a.db, opts)
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Created project %d: %s (needs %d skeins)", p.ID, p.Name, p.RequiredSkeins)
	return nil
}

func newProjectListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects with allocated and remaining skeins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectList(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runProjectList(cmd *cobra.Command, configPath string) error {
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := project.List(a.db)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tREQUIRED\tALLOCATED\tREMAINING")
	for _, p := range rows {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", p.ID, p.Name, p.RequiredSkeins, p.Allocated, p.Remaining)
	}
	return w.Flush()
}

func newProjectShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project and its allocated yarn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectShow(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runProjectShow(cmd *cobra.Command, configPath, rawID string) error {
	id, err := ledger.ParseID("project id", rawID)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	d, err := a.ledger.ProjectDetail(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	heading(out, "Project %d: %s", d.Project.ID, d.Project.Name)
	if d.Project.Pattern != nil {
		fmt.Fprintf(out, "Pattern:    %s (%d)\n", d.Project.Pattern.Name, d.Project.Pattern.ID)
	}
	fmt.Fprintf(out, "Required:   %d\n", d.Project.RequiredSkeins)
	fmt.Fprintf(out, "Allocated:  %d\n", d.Allocated)
	fmt.Fprintf(out, "Remaining:  %d\n", d.Remaining)
	if d.Project.Notes != "" {
		fmt.Fprintf(out, "Notes:      %s\n", d.Project.Notes)
	}

	if len(d.Allocations) == 0 {
		fmt.Fprintln(out, "\nNo yarn allocated.")
		return nil
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "YARN\tBRAND\tCOLOR\tWEIGHT\tSKEINS")
	for _, l := range d.Allocations {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", l.YarnID, l.BrandName, orDash(l.ColorName), orDash(l.YarnWeight), l.SkeinsUsed)
	}
	return w.Flush()
}

func newProjectEditCmd() *cobra.Command {
	var (
		configPath   string
		name         string
		required     int
		patternID    uint
		clearPattern bool
		notes        string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := project.UpdateOpts{ClearPattern: clearPattern}
			if cmd.Flags().Changed("name") {
				opts.Name = &name
			}
			if cmd.Flags().Changed("required") {
				opts.RequiredSkeins = &required
			}
			if cmd.Flags().Changed("pattern") {
				opts.PatternID = &patternID
			}
			if cmd.Flags().Changed("notes") {
				opts.Notes = &notes
			}
			return runProjectEdit(cmd, configPath, args[0], opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&name, "name", "", "new project name")
	cmd.Flags().IntVar(&required, "required", 0, "new required skeins")
	cmd.Flags().UintVar(&patternID, "pattern", 0, "link a pattern")
	cmd.Flags().BoolVar(&clearPattern, "no-pattern", false, "unlink the pattern")
	cmd.Flags().StringVar(&notes, "notes", "", "replace notes")
	cmd.MarkFlagsMutuallyExclusive("pattern", "no-pattern")
	return cmd
}

func runProjectEdit(cmd *cobra.Command, configPath, rawID string, opts project.UpdateOpts) error {
	id, err := ledger.ParseID("project id", rawID)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := project.Update(a.db, id, opts)
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Updated project %d: %s", p.ID, p.Name)
	return nil
}

func newProjectDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and release its yarn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectDelete(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runProjectDelete(cmd *cobra.Command, configPath, rawID string) error {
	id, err := ledger.ParseID("project id", rawID)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	if err := project.Delete(a.db.WithContext(cmd.Context()), id); err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Deleted project %d; its yarn is available again", id)
	return nil
}

func newProjectAllocCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "alloc <project> <yarn> <skeins>",
		Short: "Reserve skeins of a yarn for a project",
		Long: `Reserves skeins of a yarn for a project. The request is rejected when
it exceeds the skeins still available. Allocating the same yarn to the same
project again adds to the existing allocation.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectAlloc(cmd, configPath, args[0], args[1], args[2])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runProjectAlloc(cmd *cobra.Command, configPath, rawProject, rawYarn, rawAmount string) error {
	alloc, err := ledger.ParseAllocation(rawProject, rawYarn, rawAmount)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	res, err := a.ledger.Allocate(cmd.Context(), alloc)
	var stockErr *apperr.InsufficientStockError
	if errors.As(err, &stockErr) {
		warn(out, "Only %d skeins of yarn %d available; %d requested", stockErr.Available, stockErr.YarnID, stockErr.Requested)
		return err
	}
	if err != nil {
		return err
	}

	success(out, "Allocated %d skeins of yarn %d to project %d (%d on this project)",
		alloc.Amount, res.YarnID, res.ProjectID, res.SkeinsUsed)
	fmt.Fprintf(out, "Yarn available: %d\n", max(res.Available, 0))
	fmt.Fprintf(out, "Project remaining: %d\n", res.Remaining)
	return nil
}

func newProjectDeallocCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "dealloc <project> <yarn>",
		Short: "Release a project's allocation of a yarn",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectDealloc(cmd, configPath, args[0], args[1])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runProjectDealloc(cmd *cobra.Command, configPath, rawProject, rawYarn string) error {
	projectID, err := ledger.ParseID("project id", rawProject)
	if err != nil {
		return err
	}
	yarnID, err := ledger.ParseID("yarn id", rawYarn)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ledger.Deallocate(cmd.Context(), projectID, yarnID); err != nil {
		return err
	}
	remaining, err := a.ledger.RemainingRequired(cmd.Context(), projectID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	success(out, "Released yarn %d from project %d", yarnID, projectID)
	fmt.Fprintf(out, "Project remaining: %d\n", remaining)
	return nil
}
