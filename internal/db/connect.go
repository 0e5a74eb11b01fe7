// Package db opens the durable store and manages its schema.
package db

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/zulandar/stash/internal/config"
	"github.com/zulandar/stash/internal/logging"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const slowQueryThreshold = 200 * time.Millisecond

// DSN builds a MySQL-compatible DSN (MySQL or Dolt) from the database config.
func DSN(cfg config.DatabaseConfig) string {
	c := mysqldrv.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Name
	c.ParseTime = true
	return c.FormatDSN()
}

// SQLiteDSN returns the DSN for a SQLite file. Transactions begin IMMEDIATE so
// a read-check-write sequence holds the write lock from its first read.
func SQLiteDSN(path string) string {
	return path + "?_txlock=immediate&_foreign_keys=1&_busy_timeout=5000"
}

// Open connects to the configured database. log may be nil.
func Open(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logging.NewGormLogger(log, slowQueryThreshold)}

	switch cfg.Driver {
	case config.DriverSQLite, "":
		db, err := gorm.Open(sqlite.Open(SQLiteDSN(cfg.Path)), gcfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", cfg.Path, err)
		}
		return db, nil
	case config.DriverMySQL:
		db, err := gorm.Open(mysql.Open(DSN(cfg)), gcfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
}

// ConnectAdmin opens a connection to the MySQL server without selecting a
// database, used for CREATE DATABASE operations.
func ConnectAdmin(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	admin := cfg
	admin.Name = ""
	db, err := gorm.Open(mysql.Open(DSN(admin)), &gorm.Config{
		Logger: logging.NewGormLogger(log, slowQueryThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("db: admin connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// CreateDatabase creates the named database if it doesn't already exist.
func CreateDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: create database %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: close: %w", err)
	}
	return sqlDB.Close()
}
