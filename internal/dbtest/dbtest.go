// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wallet_ledger/internal/config"
	"wallet_ledger/internal/db"
)

// Open returns a migrated SQLite database in t.TempDir, closed on cleanup
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.Config{DBDriver: config.DriverSQLite, DBPath: filepath.Join(t.TempDir(), "ledger.db")}
	gdb, err := db.Open(cfg)
	require.NoError(t, err)
	gdb.Logger = gdb.Logger.LogMode(logger.Silent)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// SQLX wraps gdb for sqlx-based readers
func SQLX(t testing.TB, gdb *gorm.DB) *sqlx.DB {
	t.Helper()
	x, err := db.SQLX(gdb)
	require.NoError(t, err)
	return x
}
