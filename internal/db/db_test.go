package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/stash/internal/config"
	"github.com/zulandar/stash/internal/models"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want []string
	}{
		{
			name: "default local",
			cfg:  config.DatabaseConfig{Host: "127.0.0.1", Port: 3306, Name: "stash", User: "root"},
			want: []string{"root@tcp(127.0.0.1:3306)/stash", "parseTime=true"},
		},
		{
			name: "password and custom port",
			cfg:  config.DatabaseConfig{Host: "10.0.0.5", Port: 3307, Name: "stash_bob", User: "bob", Password: "pw"},
			want: []string{"bob:pw@tcp(10.0.0.5:3307)/stash_bob"},
		},
		{
			name: "no database selected",
			cfg:  config.DatabaseConfig{Host: "dolt.internal", Port: 3306, User: "root"},
			want: []string{"root@tcp(dolt.internal:3306)/?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.cfg)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("/var/lib/stash.db")
	assert.True(t, strings.HasPrefix(dsn, "/var/lib/stash.db?"))
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_foreign_keys=1")
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestOpen_SQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.db")
	gdb, err := Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, AutoMigrate(gdb))
	for _, table := range []string{"yarn", "projects", "project_yarn", "patterns", "folders"} {
		assert.True(t, gdb.Migrator().HasTable(table), "table %s missing", table)
	}
}

func TestReset_DropsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.db")
	gdb, err := Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })
	require.NoError(t, AutoMigrate(gdb))

	require.NoError(t, gdb.Create(&models.Folder{Name: "Lace"}).Error)
	require.NoError(t, Reset(gdb))

	var count int64
	require.NoError(t, gdb.Model(&models.Folder{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAllModels_Count(t *testing.T) {
	assert.Len(t, AllModels(), 5)
}

func TestConnect_MySQLError(t *testing.T) {
	// Port 1 is unlikely to have a MySQL server; expect connection error.
	_, err := Open(config.DatabaseConfig{Driver: config.DriverMySQL, Host: "127.0.0.1", Port: 1, Name: "nonexistent", User: "root"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: connect to")
}
