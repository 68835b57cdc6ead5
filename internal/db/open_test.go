package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet_ledger/internal/config"
	"wallet_ledger/internal/domain"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBDriver: config.DriverMySQL, DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "ledger"}
	assert.Equal(t, "u:p@tcp(h:3306)/ledger?parseTime=true", DSN(cfg))

	cfg.DBDriver = config.DriverPostgres
	cfg.DBPort = "5432"
	assert.Equal(t, "host=h user=u password=p dbname=ledger port=5432 sslmode=disable", DSN(cfg))

	cfg.DBDriver = config.DriverSQLite
	cfg.DBPath = "/tmp/x.db"
	assert.Equal(t, "/tmp/x.db?_busy_timeout=5000&_journal_mode=WAL", DSN(cfg))
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{DBDriver: config.DriverSQLite, DBPath: filepath.Join(t.TempDir(), "ledger.db")}

	gdb, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	for _, m := range Models() {
		assert.True(t, gdb.Migrator().HasTable(m))
	}
	assert.True(t, gdb.Migrator().HasIndex(&domain.Transaction{}, "idx_transactions_wallet_type_ref"))

	x, err := SQLX(gdb)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", x.DriverName())

	_, err = Open(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}
