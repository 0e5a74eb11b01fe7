package main

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/stash/internal/ledger"
	"github.com/zulandar/stash/internal/models"
	"github.com/zulandar/stash/internal/pattern"
)

func newPatternCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Pattern library commands",
	}

	cmd.AddCommand(newPatternAddCmd())
	cmd.AddCommand(newPatternListCmd())
	cmd.AddCommand(newPatternMoveCmd())
	cmd.AddCommand(newPatternRenameCmd())
	cmd.AddCommand(newPatternDeleteCmd())
	cmd.AddCommand(newPatternDownloadCmd())
	return cmd
}

func newPatternAddCmd() *cobra.Command {
	var (
		configPath string
		name       string
		folderID   uint
		file       string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a pattern, optionally with its file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pattern.CreateOpts{Name: name}
			if cmd.Flags().Changed("folder") {
				opts.FolderID = &folderID
			}
			return runPatternAdd(cmd, configPath, opts, file)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&name, "name", "", "pattern name (required)")
	cmd.Flags().UintVar(&folderID, "folder", 0, "folder ID (default: unfiled)")
	cmd.Flags().StringVar(&file, "file", "", "path of the pattern file to store")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runPatternAdd(cmd *cobra.Command, configPath string, opts pattern.CreateOpts, file string) error {
	if file != "" {
		f, err := openFile(file)
		if err != nil {
			return err
		}
		defer f.Close()
		base := filepath.Base(file)
		opts.File = &pattern.Upload{Name: base, ContentType: mime.TypeByExtension(filepath.Ext(base)), Body: f}
	}

	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := pattern.Create(cmd.Context(), a.db, a.blobs, opts)
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Added pattern %d: %s", p.ID, p.Name)
	return nil
}

func newPatternListCmd() *cobra.Command {
	var (
		configPath string
		folderID   uint
		unfiled    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := pattern.ListFilters{Unfiled: unfiled}
			if cmd.Flags().Changed("folder") {
				filters.FolderID = &folderID
			}
			return runPatternList(cmd, configPath, filters)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&folderID, "folder", 0, "only patterns in this folder")
	cmd.Flags().BoolVar(&unfiled, "unfiled", false, "only patterns outside any folder")
	cmd.MarkFlagsMutuallyExclusive("folder", "unfiled")
	return cmd
}

func runPatternList(cmd *cobra.Command, configPath string, filters pattern.ListFilters) error {
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := pattern.List(a.db, filters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No patterns found.")
		return nil
	}
	printPatterns(out, rows)
	return nil
}

func printPatterns(out io.Writer, rows []models.Pattern) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFOLDER\tFILE")
	for _, p := range rows {
		folder := "-"
		if p.FolderID != nil {
			folder = fmt.Sprint(*p.FolderID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, folder, orDash(p.FileName))
	}
	w.Flush()
}

func newPatternMoveCmd() *cobra.Command {
	var (
		configPath string
		folderID   uint
		unfiled    bool
	)

	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a pattern into a folder or out of all folders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("folder") && !unfiled {
				return fmt.Errorf("one of --folder or --unfiled is required")
			}
			opts := pattern.UpdateOpts{ClearFolder: unfiled}
			if cmd.Flags().Changed("folder") {
				opts.FolderID = &folderID
			}
			return runPatternUpdate(cmd, configPath, args[0], opts, "Moved")
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&folderID, "folder", 0, "destination folder ID")
	cmd.Flags().BoolVar(&unfiled, "unfiled", false, "move out of its folder")
	cmd.MarkFlagsMutuallyExclusive("folder", "unfiled")
	return cmd
}

func newPatternRenameCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a pattern",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatternUpdate(cmd, configPath, args[0], pattern.UpdateOpts{Name: &args[1]}, "Renamed")
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runPatternUpdate(cmd *cobra.Command, configPath, rawID string, opts pattern.UpdateOpts, verb string) error {
	id, err := ledger.ParseID("pattern id", rawID)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := pattern.Update(a.db, id, opts)
	if err != nil {
		return err
	}
	where := "unfiled"
	if p.Folder != nil {
		where = "folder " + p.Folder.Name
	}
	success(cmd.OutOrStdout(), "%s pattern %d: %s (%s)", verb, p.ID, p.Name, where)
	return nil
}

func newPatternDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a pattern and its stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatternDelete(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runPatternDelete(cmd *cobra.Command, configPath, rawID string) error {
	id, err := ledger.ParseID("pattern id", rawID)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	if err := pattern.Delete(cmd.Context(), a.db, a.blobs, id); err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Deleted pattern %d", id)
	return nil
}

func newPatternDownloadCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "download <id> [output]",
		Short: "Write a pattern's stored file to disk",
		Long:  "Writes the pattern's file to output, or to its original file name in the current directory.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}
			return runPatternDownload(cmd, configPath, args[0], dest)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runPatternDownload(cmd *cobra.Command, configPath, rawID, dest string) error {
	id, err := ledger.ParseID("pattern id", rawID)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	p, _, rc, err := pattern.Open(cmd.Context(), a.db, a.blobs, id)
	if err != nil {
		return err
	}
	defer rc.Close()
	if dest == "" {
		dest = filepath.Base(p.FileName)
	}
	n, err := writeFile(dest, rc)
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Wrote %d bytes to %s", n, dest)
	return nil
}
