package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wallet_ledger/internal/domain"
)

// MySQL error numbers
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// PostgreSQL SQLSTATE codes
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// isRetryable reports whether err is a transient conflict that a fresh attempt
// may not hit again: deadlocks, lock timeouts, serialization failures, a busy
// SQLite file, or a unique-index race lost to a concurrent writer.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// withRetry runs fn until it succeeds, fails permanently, or attempts run out.
// Exhaustion surfaces as domain.ErrConcurrencyConflict.
func (s *Store) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * s.retryBackoff
			logrus.WithFields(logrus.Fields{
				"op":      op,
				"attempt": attempt,
				"delay":   delay.String(),
				"error":   err.Error(),
			}).Warn("retrying ledger operation")

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: %w", op, ctx.Err())
			case <-timer.C:
			}
		}

		err = fn(ctx)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("%s: %w (last error: %v)", op, domain.ErrConcurrencyConflict, err)
}
