package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/stash/internal/config"
	"github.com/zulandar/stash/internal/db"
	"golang.org/x/term"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the stash database",
		Long:  "Creates the database if needed (MySQL) and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	if cfg.Database.Driver == config.DriverMySQL {
		adminDB, err := db.ConnectAdmin(cfg.Database, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Connected to MySQL at %s:%d\n", cfg.Database.Host, cfg.Database.Port)
		err = db.CreateDatabase(adminDB, cfg.Database.Name)
		db.Close(adminDB)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", cfg.Database.Name)
	}

	gormDB, err := db.Open(cfg.Database, nil)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	success(out, "Stash database initialized (%s)", describeDB(cfg.Database))
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop all stash tables and re-create them",
		Long: `Drops every stash table and migrates an empty schema.

Asks for confirmation unless --yes is given. When stdin is not a terminal,
--yes is required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	target := describeDB(cfg.Database)

	if !skipConfirm {
		if f, ok := cmd.InOrStdin().(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
			return fmt.Errorf("refusing to reset %s without --yes: stdin is not a terminal", target)
		}
		if !confirmReset(cmd, target) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	gormDB, err := db.Open(cfg.Database, nil)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	if err := db.Reset(gormDB); err != nil {
		return err
	}
	success(out, "Stash database reset (%s)", target)
	return nil
}

func confirmReset(cmd *cobra.Command, target string) bool {
	out := cmd.OutOrStdout()

	warn(out, "This will permanently delete all yarn, projects and patterns in %s.", target)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}

func describeDB(cfg config.DatabaseConfig) string {
	if cfg.Driver == config.DriverMySQL {
		return fmt.Sprintf("mysql %s:%d/%s", cfg.Host, cfg.Port, cfg.Name)
	}
	return "sqlite " + cfg.Path
}
