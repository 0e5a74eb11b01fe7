package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/stash/internal/blob"
	"github.com/zulandar/stash/internal/config"
	"github.com/zulandar/stash/internal/db"
	"github.com/zulandar/stash/internal/ledger"
	"github.com/zulandar/stash/internal/logging"
	"github.com/zulandar/stash/internal/metrics"
	"gorm.io/gorm"
)

// app bundles the handles every command needs.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	db     *gorm.DB
	blobs  blob.Store
	ledger *ledger.Ledger
}

func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", defaultConfigPath, "path to stash config file")
}

// loadConfig reads the config file. The default path may be absent, in which
// case built-in defaults apply; an explicitly named file must exist.
func loadConfig(cmd *cobra.Command, configPath string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadOptional(configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// connectFromConfig loads config, installs the logger, opens the database
// and the blob store. m may be nil.
func connectFromConfig(cmd *cobra.Command, configPath string, m *metrics.Ledger) (*app, error) {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	slog.SetDefault(log)

	gormDB, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == config.DriverSQLite {
		// A fresh SQLite file is usable without a separate init step.
		if err := db.AutoMigrate(gormDB); err != nil {
			db.Close(gormDB)
			return nil, err
		}
	}

	blobs, err := blob.Open(context.Background(), cfg.Blob)
	if err != nil {
		db.Close(gormDB)
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	return &app{
		cfg:    cfg,
		log:    log,
		db:     gormDB,
		blobs:  blobs,
		ledger: ledger.New(gormDB, ledger.WithLogger(log), ledger.WithMetrics(m)),
	}, nil
}

func (a *app) close() {
	if err := db.Close(a.db); err != nil {
		a.log.Warn("close database", "error", err)
	}
}

// openFile opens a local file for upload.
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
