package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/stash/internal/ledger"
	"github.com/zulandar/stash/internal/yarn"
)

func newYarnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yarn",
		Short: "Yarn inventory commands",
	}

	cmd.AddCommand(newYarnAddCmd())
	cmd.AddCommand(newYarnListCmd())
	cmd.AddCommand(newYarnShowCmd())
	cmd.AddCommand(newYarnEditCmd())
	cmd.AddCommand(newYarnAdjustCmd())
	cmd.AddCommand(newYarnDeleteCmd())
	cmd.AddCommand(newYarnImageCmd())
	return cmd
}

func newYarnAddCmd() *cobra.Command {
	var (
		configPath string
		opts       yarn.CreateOpts
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a yarn to the inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runYarnAdd(cmd, configPath, opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&opts.BrandName, "brand", "", "brand name (required)")
	cmd.Flags().StringVar(&opts.ColorName, "color", "", "color name")
	cmd.Flags().StringVar(&opts.YarnWeight, "weight", "", "weight category (e.g. fingering, dk, worsted)")
	cmd.Flags().IntVar(&opts.SkeinsOwned, "skeins", 0, "skeins owned")
	cmd.MarkFlagRequired("brand")
	return cmd
}

func runYarnAdd(cmd *cobra.Command, configPath string, opts yarn.CreateOpts) error {
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	y, err := yarn.Create(a.db, opts)
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Added yarn %d: %s %s (%d skeins)", y.ID, y.BrandName, y.ColorName, y.SkeinsOwned)
	return nil
}

func newYarnListCmd() *cobra.Command {
	var (
		configPath string
		sort       string
	)

	keys := make([]string, 0, len(yarn.SortKeys()))
	for _, k := range yarn.SortKeys() {
		keys = append(keys, string(k))
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List yarn with allocated and available skeins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runYarnList(cmd, configPath, sort)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&sort, "sort", string(yarn.SortBrand), "sort order ("+strings.Join(keys, ", ")+")")
	return cmd
}

func runYarnList(cmd *cobra.Command, configPath, sort string) error {
	key, err := yarn.ParseSortKey(sort)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := yarn.List(a.db, key)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No yarn found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBRAND\tCOLOR\tWEIGHT\tOWNED\tALLOCATED\tAVAILABLE")
	for _, s := range rows {
		avail := strconv.Itoa(s.DisplayAvailable())
		if s.Overcommitted() {
			avail += " (over)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.BrandName, orDash(s.ColorName), orDash(s.YarnWeight), s.SkeinsOwned, s.Allocated, avail)
	}
	return w.Flush()
}

func newYarnShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a yarn and its stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runYarnShow(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runYarnShow(cmd *cobra.Command, configPath, rawID string) error {
	id, err := ledger.ParseID("yarn id", rawID)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := yarn.GetStock(a.db, id)
	if err != nil {
		return err
	}
	printStock(cmd.OutOrStdout(), s)
	return nil
}

func printStock(out io.Writer, s *yarn.Stock) {
	heading(out, "Yarn %d: %s", s.ID, s.BrandName)
	fmt.Fprintf(out, "Color:      %s\n", orDash(s.ColorName))
	fmt.Fprintf(out, "Weight:     %s\n", orDash(s.YarnWeight))
	fmt.Fprintf(out, "Owned:      %d\n", s.SkeinsOwned)
	fmt.Fprintf(out, "Allocated:  %d\n", s.Allocated)
	fmt.Fprintf(out, "Available:  %d\n", s.DisplayAvailable())
	if s.ImageRef != nil {
		fmt.Fprintln(out, "Image:      yes")
	}
	if s.Overcommitted() {
		warn(out, "Overcommitted by %d skeins", -s.Available)
	}
}

func newYarnEditCmd() *cobra.Command {
	var (
		configPath string
		brand      string
		color      string
		weight     string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a yarn's brand, color or weight",
		Long:  "Edits descriptive fields. Use 'stash yarn adjust' to change skeins owned.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts yarn.UpdateOpts
			if cmd.Flags().Changed("brand") {
				opts.BrandName = &brand
			}
			if cmd.Flags().Changed("color") {
				opts.ColorName = &color
			}
			if cmd.Flags().Changed("weight") {
				opts.YarnWeight = &weight
			}
			return runYarnEdit(cmd, configPath, args[0], opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&brand, "brand", "", "new brand name")
	cmd.Flags().StringVar(&color, "color", "", "new color name")
	cmd.Flags().StringVar(&weight, "weight", "", "new weight category")
	return cmd
}

func runYarnEdit(cmd *cobra.Command, configPath, rawID string, opts yarn.UpdateOpts) error {
	id, err := ledger.ParseID("yarn id", rawID)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	y, err := yarn.Update(a.db, id, opts)
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Updated yarn %d: %s %s", y.ID, y.BrandName, y.ColorName)
	return nil
}

func newYarnAdjustCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "adjust <id> <delta>",
		Short: "Add or remove skeins from stock",
		Long: `Adds delta skeins to the yarn's owned count (negative to remove).
The count never drops below zero. Reducing stock below what is already
allocated is allowed and reported as overcommitted.

Use -- before a negative delta: stash yarn adjust -- 7 -2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runYarnAdjust(cmd, configPath, args[0], args[1])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runYarnAdjust(cmd *cobra.Command, configPath, rawID, rawDelta string) error {
	id, err := ledger.ParseID("yarn id", rawID)
	if err != nil {
		return err
	}
	delta, err := strconv.Atoi(strings.TrimSpace(rawDelta))
	if err != nil {
		return fmt.Errorf("delta %q is not a whole number", rawDelta)
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.ledger.AdjustOwned(cmd.Context(), id, delta)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	success(out, "Yarn %d now owns %d skeins (%d available)", s.ID, s.SkeinsOwned, s.DisplayAvailable())
	if s.Overcommitted() {
		warn(out, "Overcommitted: %d allocated but only %d owned", s.Allocated, s.SkeinsOwned)
	}
	return nil
}

func newYarnDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a yarn and release its allocations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runYarnDelete(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runYarnDelete(cmd *cobra.Command, configPath, rawID string) error {
	id, err := ledger.ParseID("yarn id", rawID)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	if err := yarn.Delete(cmd.Context(), a.db, a.blobs, id); err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Deleted yarn %d", id)
	return nil
}

func newYarnImageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Store or fetch a yarn's image",
	}
	cmd.AddCommand(newYarnImageSetCmd())
	cmd.AddCommand(newYarnImageGetCmd())
	return cmd
}

func newYarnImageSetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "set <id> <file>",
		Short: "Upload an image for a yarn",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runYarnImageSet(cmd, configPath, args[0], args[1])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runYarnImageSet(cmd *cobra.Command, configPath, rawID, path string) error {
	id, err := ledger.ParseID("yarn id", rawID)
	if err != nil {
		return err
	}
	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	name := filepath.Base(path)
	if _, err := yarn.SetImage(cmd.Context(), a.db, a.blobs, id, name, mime.TypeByExtension(filepath.Ext(name)), f); err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Stored image %s for yarn %d", name, id)
	return nil
}

func newYarnImageGetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "get <id> <output>",
		Short: "Write a yarn's image to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runYarnImageGet(cmd, configPath, args[0], args[1])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runYarnImageGet(cmd *cobra.Command, configPath, rawID, dest string) error {
	id, err := ledger.ParseID("yarn id", rawID)
	if err != nil {
		return err
	}
	a, err := connectFromConfig(cmd, configPath, nil)
	if err != nil {
		return err
	}
	defer a.close()

	_, rc, err := yarn.Image(cmd.Context(), a.db, a.blobs, id)
	if err != nil {
		return err
	}
	defer rc.Close()
	n, err := writeFile(dest, rc)
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Wrote %d bytes to %s", n, dest)
	return nil
}

// writeFile copies r into a new file at dest.
func writeFile(dest string, r io.Reader) (int64, error) {
	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", dest, err)
	}
	return n, nil
}
