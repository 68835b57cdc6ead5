// Package store is the wallet ledger persistence layer. Every balance change
// happens inside a database transaction together with the ledger row that
// records it, and balance checks are part of the same UPDATE statement.
package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wallet_ledger/internal/events"
)

// Options tune a Store. Zero values fall back to the defaults below.
type Options struct {
	Currency       string
	OverdraftLimit int64
	OpTimeout      time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Publisher      events.Publisher
}

const (
	defaultCurrency  = "XOF"
	defaultTimeout   = 5 * time.Second
	defaultBackoff   = 20 * time.Millisecond
	defaultListLimit = 50
	maxListLimit     = 200
)

// Store implements the wallet ledger on top of GORM
type Store struct {
	db             *gorm.DB
	currency       string
	overdraftLimit int64
	opTimeout      time.Duration
	maxRetries     int
	retryBackoff   time.Duration
	publisher      events.Publisher
}

// New builds a Store over db
func New(db *gorm.DB, opts Options) *Store {
	s := &Store{
		db:             db,
		currency:       opts.Currency,
		overdraftLimit: opts.OverdraftLimit,
		opTimeout:      opts.OpTimeout,
		maxRetries:     opts.MaxRetries,
		retryBackoff:   opts.RetryBackoff,
		publisher:      opts.Publisher,
	}
	if s.currency == "" {
		s.currency = defaultCurrency
	}
	if s.opTimeout <= 0 {
		s.opTimeout = defaultTimeout
	}
	if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	if s.retryBackoff <= 0 {
		s.retryBackoff = defaultBackoff
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	return s
}

// Currency is the currency assigned to new wallets
func (s *Store) Currency() string {
	return s.currency
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// forUpdate adds a row lock where the dialect supports one.
// SQLite serializes writers at the file level instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
