package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"wallet_ledger/internal/domain"
)

type ledgerTotals struct {
	TotalCredited    int64
	TotalDebited     int64
	TransactionCount int64
}

func (s *Store) totals(tx *gorm.DB, walletID uint) (ledgerTotals, error) {
	var t ledgerTotals
	err := tx.Model(&domain.Transaction{}).
		Select(
			"COALESCE(SUM(CASE WHEN type = ? AND status = ? THEN amount ELSE 0 END), 0) AS total_credited, "+
				"COALESCE(SUM(CASE WHEN type = ? AND status = ? THEN amount ELSE 0 END), 0) AS total_debited, "+
				"COUNT(*) AS transaction_count",
			domain.TypeCredit, domain.StatusCompleted, domain.TypeDebit, domain.StatusCompleted,
		).
		Where("wallet_id = ?", walletID).
		Scan(&t).Error
	return t, err
}

// NormalizeFilter applies the default and maximum page size and validates enums
func NormalizeFilter(f domain.TransactionFilter) (domain.TransactionFilter, error) {
	if f.Type != "" && !f.Type.Valid() {
		return f, fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidRequest, f.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("%w: unknown transaction status %q", domain.ErrInvalidRequest, f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

// ListTransactions returns the user's entries newest first. A user without a
// wallet has an empty history; no wallet is created.
func (s *Store) ListTransactions(ctx context.Context, userID uint, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	filter, err := NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	wallet, err := s.FindWallet(ctx, userID)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return []domain.Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.db.WithContext(ctx).Where("wallet_id = ?", wallet.ID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	txs := []domain.Transaction{}
	err = query.Order("created_at desc").Order("id desc").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// GetStats aggregates the wallet and its ledger in one read transaction.
// It returns domain.ErrWalletNotFound when the user has no wallet yet.
func (s *Store) GetStats(ctx context.Context, userID uint) (*domain.WalletStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var stats *domain.WalletStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet domain.Wallet
		if err := tx.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrWalletNotFound
			}
			return err
		}
		t, err := s.totals(tx, wallet.ID)
		if err != nil {
			return err
		}
		stats = &domain.WalletStats{
			Balance:          wallet.Balance,
			Currency:         wallet.Currency,
			TotalCredited:    t.TotalCredited,
			TotalDebited:     t.TotalDebited,
			TransactionCount: t.TransactionCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Reconcile checks that the stored balance equals completed credits minus
// completed debits for the user's wallet.
func (s *Store) Reconcile(ctx context.Context, userID uint) (*domain.Reconciliation, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec *domain.Reconciliation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet domain.Wallet
		if err := tx.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrWalletNotFound
			}
			return err
		}
		t, err := s.totals(tx, wallet.ID)
		if err != nil {
			return err
		}
		ledger := t.TotalCredited - t.TotalDebited
		rec = &domain.Reconciliation{
			WalletID:      wallet.ID,
			UserID:        wallet.UserID,
			Balance:       wallet.Balance,
			TotalCredited: t.TotalCredited,
			TotalDebited:  t.TotalDebited,
			LedgerBalance: ledger,
			Drift:         wallet.Balance - ledger,
			Consistent:    wallet.Balance == ledger,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListAllTransactions pages through the whole ledger with optional filters
func (s *Store) ListAllTransactions(ctx context.Context, filter domain.AdminTransactionFilter) (*domain.TransactionPage, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidRequest, filter.Type)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction status %q", domain.ErrInvalidRequest, filter.Status)
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	db := s.db.WithContext(ctx)
	query := db.Model(&domain.Transaction{})
	if filter.UserID != 0 {
		query = query.Where("wallet_id IN (?)", db.Model(&domain.Wallet{}).Select("id").Where("user_id = ?", filter.UserID))
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From > 0 {
		query = query.Where("created_at >= ?", filter.From)
	}
	if filter.To > 0 {
		query = query.Where("created_at <= ?", filter.To)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	txs := []domain.Transaction{}
	if err := query.Order("created_at desc").Order("id desc").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return &domain.TransactionPage{
		Transactions: txs,
		Page:         filter.Page,
		PageSize:     filter.PageSize,
		Total:        total,
		TotalPages:   int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize)),
	}, nil
}
