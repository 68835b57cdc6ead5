package db

import (
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library

	"wallet_ledger/internal/domain" // Importing domain models
)

// Models lists every table owned or read by the service
func Models() []any {
	return []any{&domain.User{}, &domain.Wallet{}, &domain.Transaction{}, &domain.Delivery{}}
}

// legacyReferenceIndex did not include the category and is replaced on migrate
const legacyReferenceIndex = "idx_transactions_wallet_type_ref"

// Migrate performs automatic migration for the database schema
func Migrate(gdb *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := gdb.AutoMigrate(Models()...); err != nil {
		logrus.WithError(err).Error("migration failed")
		return err
	}
	if m := gdb.Migrator(); m.HasIndex(&domain.Transaction{}, legacyReferenceIndex) {
		if err := m.DropIndex(&domain.Transaction{}, legacyReferenceIndex); err != nil {
			logrus.WithError(err).Error("dropping legacy reference index failed")
			return err
		}
		logrus.WithField("index", legacyReferenceIndex).Info("Dropped legacy reference index")
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
