package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/stash/internal/folder"
	"github.com/zulandar/stash/internal/ledger"
)

func newFolderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Pattern folder commands",
	}

	cmd.AddCommand(newFolderAddCmd())
	cmd.AddCommand(newFolderListCmd())
	cmd.AddCommand(newFolderRenameCmd())
	cmd.AddCommand(newFolderDeleteCmd())
	cmd.AddCommand(newFolderTreeCmd())
	return cmd
}

func newFolderAddCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd, configPath, nil)
			if err != nil {
				return err
			}
			defer a.close()

			f, err := folder.Create(a.db, args[0])
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Created folder %d: %s", f.ID, f.Name)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newFolderListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders with their pattern counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd, configPath, nil)
			if err != nil {
				return err
			}
			defer a.close()

			rows, err := folder.List(a.db)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No folders found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPATTERNS")
			for _, f := range rows {
				fmt.Fprintf(w, "%d\t%s\t%d\n", f.ID, f.Name, f.PatternCount)
			}
			return w.Flush()
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newFolderRenameCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ledger.ParseID("folder id", args[0])
			if err != nil {
				return err
			}
			a, err := connectFromConfig(cmd, configPath, nil)
			if err != nil {
				return err
			}
			defer a.close()

			f, err := folder.Rename(a.db, id, args[1])
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Renamed folder %d to %s", f.ID, f.Name)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newFolderDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a folder and every pattern in it",
		Long:  "Deletes the folder together with all of its patterns and their stored files. Patterns are not moved to the unfiled list.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ledger.ParseID("folder id", args[0])
			if err != nil {
				return err
			}
			a, err := connectFromConfig(cmd, configPath, nil)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := folder.Delete(cmd.Context(), a.db, a.blobs, id)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Deleted folder %d and %d patterns", id, n)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newFolderTreeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the pattern library grouped by folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connectFromConfig(cmd, configPath, nil)
			if err != nil {
				return err
			}
			defer a.close()

			tree, err := folder.BuildTree(a.db)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			heading(out, "Unfiled (%d)", len(tree.Unfiled))
			for _, p := range tree.Unfiled {
				fmt.Fprintf(out, "  %d  %s\n", p.ID, p.Name)
			}
			for _, g := range tree.Folders {
				heading(out, "%s (%d)", g.Folder.Name, len(g.Patterns))
				for _, p := range g.Patterns {
					fmt.Fprintf(out, "  %d  %s\n", p.ID, p.Name)
				}
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}
