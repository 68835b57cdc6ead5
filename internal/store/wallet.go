package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/events"
)

// GetOrCreateWallet returns the user's wallet, creating an empty one on first
// reference. Concurrent first calls for one user all see the same row.
func (s *Store) GetOrCreateWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrInvalidRequest)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var wallet *domain.Wallet
	err := s.withRetry(ctx, "get_or_create_wallet", func(ctx context.Context) error {
		w, err := s.getOrCreate(s.db.WithContext(ctx), userID)
		wallet = w
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// getOrCreate inserts the wallet if absent and reads back whichever row won
func (s *Store) getOrCreate(db *gorm.DB, userID uint) (*domain.Wallet, error) {
	candidate := domain.Wallet{UserID: userID, Balance: 0, Currency: s.currency}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&candidate)
	if res.Error != nil {
		return nil, res.Error
	}

	var wallet domain.Wallet
	if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	if res.RowsAffected > 0 {
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,          // User ID
			"wallet_id": wallet.ID,       // Wallet ID
			"currency":  wallet.Currency, // Wallet currency
		}).Info("Wallet created")
	}
	return &wallet, nil
}

// FindWallet returns the user's wallet without creating one
func (s *Store) FindWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var wallet domain.Wallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Credit adds req.Amount to the user's wallet and appends a completed credit entry
func (s *Store) Credit(ctx context.Context, req domain.MutationRequest) (*domain.MutationResult, error) {
	return s.apply(ctx, domain.TypeCredit, req)
}

// Debit removes req.Amount from the user's wallet and appends a completed debit
// entry. It fails with domain.ErrInsufficientBalance when the balance at commit
// time cannot cover the amount.
func (s *Store) Debit(ctx context.Context, req domain.MutationRequest) (*domain.MutationResult, error) {
	return s.apply(ctx, domain.TypeDebit, req)
}

func validateMutation(req *domain.MutationRequest) error {
	if req.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if req.UserID == 0 {
		return fmt.Errorf("%w: userId is required", domain.ErrInvalidRequest)
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return fmt.Errorf("%w: description is required", domain.ErrInvalidRequest)
	}
	if req.Category = strings.TrimSpace(req.Category); req.Category == "" {
		req.Category = domain.CategoryGeneral
	}
	if req.Category == domain.CategoryDeliveryPayment {
		return fmt.Errorf("%w: category %q is reserved for delivery settlements", domain.ErrInvalidRequest, req.Category)
	}
	if req.ReferenceID != nil {
		ref := strings.TrimSpace(*req.ReferenceID)
		if ref == "" {
			req.ReferenceID = nil
		} else {
			req.ReferenceID = &ref
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, kind domain.TransactionType, req domain.MutationRequest) (*domain.MutationResult, error) {
	if err := validateMutation(&req); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	op := string(kind)
	var result *domain.MutationResult
	err := s.withRetry(ctx, op, func(ctx context.Context) error {
		db := s.db.WithContext(ctx)
		wallet, err := s.getOrCreate(db, req.UserID)
		if err != nil {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			r, err := s.applyInTx(tx, wallet.ID, kind, req)
			result = r
			return err
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Retry only when a concurrent writer recorded this reference;
			// the next attempt then replays or rejects it.
			prior, lookupErr := priorEntry(db, wallet.ID, kind, req)
			if lookupErr != nil {
				return lookupErr
			}
			if prior == nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
			}
		}
		return err
	})
	if err != nil {
		fields := logrus.Fields{
			"user_id": req.UserID, // User ID
			"amount":  req.Amount, // Amount
			"type":    kind,       // Transaction type
			"error":   err.Error(),
		}
		if errors.Is(err, domain.ErrInsufficientBalance) {
			logrus.WithFields(fields).Warn("Debit rejected")
		} else {
			logrus.WithFields(fields).Error("Ledger mutation failed")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":        req.UserID,                     // User ID
		"wallet_id":      result.Wallet.ID,               // Wallet ID
		"transaction_id": result.Transaction.ID,          // Ledger entry ID
		"amount":         req.Amount,                     // Amount
		"type":           kind,                           // Transaction type
		"category":       result.Transaction.Category,    // Category
		"reference_id":   result.Transaction.Reference(), // External reference
		"balance":        result.Wallet.Balance,          // Balance after the operation
		"replayed":       result.Replayed,                // Returned an earlier entry
	}).Info("Ledger transaction")

	if !result.Replayed {
		eventKind := events.KindWalletCredited
		if kind == domain.TypeDebit {
			eventKind = events.KindWalletDebited
		}
		s.publish(ctx, events.FromTransaction(eventKind, result.Wallet, result.Transaction))
	}
	return result, nil
}

// applyInTx runs inside the caller's transaction. Any error rolls everything back.
func (s *Store) applyInTx(tx *gorm.DB, walletID uint, kind domain.TransactionType, req domain.MutationRequest) (*domain.MutationResult, error) {
	prior, err := priorEntry(tx, walletID, kind, req)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		if prior.Amount != req.Amount {
			return nil, fmt.Errorf("%w: reference %s already recorded for amount %d",
				domain.ErrInvalidRequest, prior.Reference(), prior.Amount)
		}
		var wallet domain.Wallet
		if err := tx.First(&wallet, walletID).Error; err != nil {
			return nil, err
		}
		return &domain.MutationResult{Wallet: wallet, Transaction: *prior, Replayed: true}, nil
	}

	var res *gorm.DB
	if kind == domain.TypeDebit {
		res = tx.Model(&domain.Wallet{}).
			Where("id = ? AND balance >= ?", walletID, req.Amount-s.overdraftLimit).
			Update("balance", gorm.Expr("balance - ?", req.Amount))
	} else {
		res = tx.Model(&domain.Wallet{}).
			Where("id = ?", walletID).
			Update("balance", gorm.Expr("balance + ?", req.Amount))
	}
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if kind == domain.TypeDebit {
			return nil, domain.ErrInsufficientBalance
		}
		return nil, domain.ErrWalletNotFound
	}

	var wallet domain.Wallet
	if err := tx.First(&wallet, walletID).Error; err != nil {
		return nil, err
	}
	entry := domain.Transaction{
		WalletID:     wallet.ID,
		Type:         kind,
		Amount:       req.Amount,
		Currency:     wallet.Currency,
		Status:       domain.StatusCompleted,
		Description:  req.Description,
		Category:     req.Category,
		ReferenceID:  req.ReferenceID,
		BalanceAfter: wallet.Balance,
		Metadata:     req.Metadata,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &domain.MutationResult{Wallet: wallet, Transaction: entry}, nil
}

// priorEntry returns the entry already recorded under req's reference on this
// wallet, direction and category, or nil. Requests without a reference have none.
func priorEntry(db *gorm.DB, walletID uint, kind domain.TransactionType, req domain.MutationRequest) (*domain.Transaction, error) {
	if req.ReferenceID == nil {
		return nil, nil
	}
	var prior domain.Transaction
	res := db.Where("wallet_id = ? AND type = ? AND category = ? AND reference_id = ?",
		walletID, kind, req.Category, *req.ReferenceID).Limit(1).Find(&prior)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &prior, nil
}

// publish hands committed events to the publisher. Failures are logged only:
// the ledger is the source of truth and the change is already durable.
func (s *Store) publish(ctx context.Context, evts ...events.LedgerEvent) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evts...); err != nil {
		logrus.WithFields(logrus.Fields{
			"events": len(evts),
			"error":  err.Error(),
		}).Error("Failed to publish ledger events")
	}
}
