// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/zulandar/stash/internal/config"
	"github.com/zulandar/stash/internal/db"
	"github.com/zulandar/stash/internal/models"
	"gorm.io/gorm"
)

// OpenDB returns a migrated SQLite database in a per-test temp directory.
// A file is used instead of ":memory:" so every pooled connection sees the
// same data.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stash.db")
	gdb, err := db.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path}, nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

// SeedYarn inserts a yarn entry owning the given number of skeins.
func SeedYarn(t *testing.T, gdb *gorm.DB, brand string, owned int) *models.Yarn {
	t.Helper()
	y := &models.Yarn{BrandName: brand, ColorName: "Natural", YarnWeight: "worsted", SkeinsOwned: owned}
	if err := gdb.Create(y).Error; err != nil {
		t.Fatalf("seed yarn %q: %v", brand, err)
	}
	return y
}

// SeedProject inserts a project requiring the given number of skeins.
func SeedProject(t *testing.T, gdb *gorm.DB, name string, required int) *models.Project {
	t.Helper()
	p := &models.Project{Name: name, RequiredSkeins: required}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("seed project %q: %v", name, err)
	}
	return p
}

// SeedAllocation inserts an allocation row directly, bypassing the ledger.
func SeedAllocation(t *testing.T, gdb *gorm.DB, projectID, yarnID uint, used int) {
	t.Helper()
	a := &models.ProjectYarn{ProjectID: projectID, YarnID: yarnID, SkeinsUsed: used}
	if err := gdb.Create(a).Error; err != nil {
		t.Fatalf("seed allocation %d/%d: %v", projectID, yarnID, err)
	}
}
