package db

import (
	"fmt"  // Error formatting
	"time" // Pool lifetimes

	"github.com/jmoiron/sqlx"    // Raw SQL reads over the shared pool
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/driver/postgres"    // PostgreSQL driver for GORM
	"gorm.io/driver/sqlite"      // SQLite driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM logger routed through logrus

	"wallet_ledger/internal/config" // Custom package for configuration
)

// DSN builds the data source name for the configured driver
func DSN(cfg *config.Config) string {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	case config.DriverSQLite:
		return cfg.DBPath + "?_busy_timeout=5000&_journal_mode=WAL"
	default:
		return cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	}
}

func dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		return mysql.Open(DSN(cfg)), nil
	case config.DriverPostgres:
		return postgres.Open(DSN(cfg)), nil
	case config.DriverSQLite:
		return sqlite.Open(DSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}
}

// GormConfig is shared by the server, the migrator and the tests.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey on every dialect.
func GormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond, // Log queries slower than this
			LogLevel:                  level,                  // Only warnings and errors by default
			IgnoreRecordNotFoundError: true,                   // Not-found is an expected outcome
			Colorful:                  false,                  // Logrus owns formatting
		}),
	}
}

// Open connects to the configured database and sizes the pool
func Open(cfg *config.Config) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(d, GormConfig(logger.Warn))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1) // SQLite allows a single writer
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(30 * time.Minute)
	}
	return gdb, nil
}

// SQLX wraps the pool behind gdb so sqlx queries share its connections
func SQLX(gdb *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(sqlDB, bindDriverName(gdb.Dialector.Name())), nil
}

// bindDriverName maps a gorm dialect to the name sqlx uses to pick placeholders
func bindDriverName(dialect string) string {
	switch dialect {
	case "postgres":
		return "pgx"
	case "sqlite":
		return "sqlite3"
	default:
		return dialect
	}
}
